package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

func (p *Provider) readFile(ctx context.Context, req ReadFileRequest) (*ReadFileResponse, error) {
	abs, err := p.resolver.Abs(req.Path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileMissing, req.Path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", req.Path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, req.Path)
	}

	limit := req.Limit
	if limit == 0 || limit > p.cfg.MaxFileSize {
		limit = p.cfg.MaxFileSize
	}
	if req.Limit == 0 && info.Size()-req.Offset > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d; read a range with offset and limit",
			ErrFileTooLarge, req.Path, info.Size(), p.cfg.MaxFileSize)
	}

	content, err := readRange(abs, req.Offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", req.Path, err)
	}
	if isBinaryContent(content) {
		return nil, fmt.Errorf("%w: %s", ErrBinaryFile, req.Path)
	}

	return &ReadFileResponse{
		Path:      p.resolver.Rel(abs),
		Content:   string(content),
		Size:      info.Size(),
		Offset:    req.Offset,
		Truncated: req.Offset+int64(len(content)) < info.Size(),
	}, nil
}

func (p *Provider) writeFile(ctx context.Context, req WriteFileRequest) (*WriteFileResponse, error) {
	abs, err := p.resolver.Abs(req.Path)
	if err != nil {
		return nil, err
	}

	content := []byte(req.Content)
	if int64(len(content)) > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes, limit is %d", ErrFileTooLarge, len(content), p.cfg.MaxFileSize)
	}
	if isBinaryContent(content) {
		return nil, fmt.Errorf("%w: refusing to write binary content to %s", ErrBinaryFile, req.Path)
	}

	perm := os.FileMode(0o644)
	created := true
	info, err := os.Stat(abs)
	switch {
	case err == nil:
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrIsDirectory, req.Path)
		}
		if !req.Overwrite {
			return nil, fmt.Errorf("%w: %s; set overwrite to replace it", ErrFileExists, req.Path)
		}
		perm = info.Mode().Perm()
		created = false
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to stat %s: %w", req.Path, err)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}
	if err := writeFileAtomic(abs, content, perm); err != nil {
		return nil, err
	}

	p.log.Debug().Str("path", req.Path).Int("bytes", len(content)).Msg("file written")
	return &WriteFileResponse{
		Path:         p.resolver.Rel(abs),
		BytesWritten: len(content),
		Created:      created,
	}, nil
}

func (p *Provider) listDirectory(ctx context.Context, req ListDirectoryRequest) (*ListDirectoryResponse, error) {
	limit := p.cfg.DefaultListLimit
	if req.Limit != 0 {
		limit = min(req.Limit, p.cfg.MaxListResults)
	}
	if req.Path == "" {
		req.Path = "."
	}

	abs, err := p.resolver.Abs(req.Path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileMissing, req.Path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", req.Path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, req.Path)
	}

	maxDepth := req.MaxDepth
	if maxDepth < 0 {
		maxDepth = -1
	}

	w := &walker{
		provider:       p,
		maxDepth:       maxDepth,
		includeIgnored: req.IncludeIgnored || !p.cfg.RespectGitignore,
		visited:        map[string]bool{},
	}
	if err := w.walk(ctx, abs, 0); err != nil {
		return nil, err
	}

	entries := w.entries
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Path < entries[j].Path
	})

	page, more := paginate(entries, req.Offset, limit)

	resp := &ListDirectoryResponse{
		Path:       p.resolver.Rel(abs),
		Entries:    page,
		Offset:     req.Offset,
		Limit:      limit,
		TotalCount: len(entries),
		Truncated:  more || w.capped,
	}
	switch {
	case w.capped:
		resp.TruncationReason = fmt.Sprintf("Results capped at %d entries.", p.cfg.MaxListResults)
	case more:
		resp.TruncationReason = fmt.Sprintf("Page limit reached. More results at offset %d.", req.Offset+limit)
	}
	return resp, nil
}

// walker collects directory entries up to maxDepth, stopping at MaxListResults.
type walker struct {
	provider       *Provider
	maxDepth       int
	includeIgnored bool
	visited        map[string]bool
	entries        []DirectoryEntry
	capped         bool
}

func (w *walker) walk(ctx context.Context, dir string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.maxDepth >= 0 && depth > w.maxDepth {
		return nil
	}

	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		canonical = dir
	}
	if w.visited[canonical] {
		return nil
	}
	w.visited[canonical] = true

	children, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list directory: %w", err)
	}

	for _, child := range children {
		if len(w.entries) >= w.provider.cfg.MaxListResults {
			w.capped = true
			return nil
		}

		abs := filepath.Join(dir, child.Name())
		rel := w.provider.resolver.Rel(abs)
		isDir := child.IsDir()
		if child.Type()&fs.ModeSymlink != 0 {
			// Symlinks that resolve outside the root are left out.
			if _, err := w.provider.resolver.Abs(abs); err != nil {
				continue
			}
			if target, err := os.Stat(abs); err == nil {
				isDir = target.IsDir()
			}
		}

		if child.Name() == ".git" && isDir {
			continue
		}
		if !w.includeIgnored && w.provider.ignore.ShouldIgnore(rel, isDir) {
			continue
		}

		w.entries = append(w.entries, DirectoryEntry{Path: rel, IsDir: isDir})

		if isDir {
			if err := w.walk(ctx, abs, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
