package workspace

// ReadFileRequest reads a file, optionally a byte range of it.
type ReadFileRequest struct {
	Path   string `json:"path"`
	Offset int64  `json:"offset"`
	Limit  int64  `json:"limit"`
}

func (r *ReadFileRequest) Validate() error {
	if r.Path == "" {
		return ErrPathRequired
	}
	if r.Offset < 0 {
		return ErrInvalidOffset
	}
	if r.Limit < 0 {
		return ErrInvalidLimit
	}
	return nil
}

type ReadFileResponse struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Size      int64  `json:"size"`
	Offset    int64  `json:"offset"`
	Truncated bool   `json:"truncated"`
}

// WriteFileRequest writes content to a file. Existing files are only
// replaced when Overwrite is set.
type WriteFileRequest struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Overwrite bool   `json:"overwrite"`
}

func (r *WriteFileRequest) Validate() error {
	if r.Path == "" {
		return ErrPathRequired
	}
	return nil
}

type WriteFileResponse struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytes_written"`
	Created      bool   `json:"created"`
}

// ListDirectoryRequest lists a directory. MaxDepth 0 lists immediate children,
// a negative MaxDepth is unlimited.
type ListDirectoryRequest struct {
	Path           string `json:"path"`
	MaxDepth       int    `json:"max_depth"`
	IncludeIgnored bool   `json:"include_ignored"`
	Offset         int    `json:"offset"`
	Limit          int    `json:"limit"`
}

func (r *ListDirectoryRequest) Validate() error {
	if r.Offset < 0 {
		return ErrInvalidOffset
	}
	if r.Limit < 0 {
		return ErrInvalidLimit
	}
	return nil
}

type DirectoryEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

type ListDirectoryResponse struct {
	Path             string           `json:"path"`
	Entries          []DirectoryEntry `json:"entries"`
	Offset           int              `json:"offset"`
	Limit            int              `json:"limit"`
	TotalCount       int              `json:"total_count"`
	Truncated        bool             `json:"truncated"`
	TruncationReason string           `json:"truncation_reason,omitempty"`
}
