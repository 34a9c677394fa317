package workspace

import (
	"errors"
	"fmt"
)

// -- Sentinels --

var (
	ErrOutsideWorkspace = errors.New("path is outside workspace root")
	ErrNotInitialized   = errors.New("workspace provider not initialized")
	ErrUnknownTool      = errors.New("unknown workspace tool")
	ErrPathRequired     = errors.New("path is required")
	ErrIsDirectory      = errors.New("path is a directory")
	ErrNotADirectory    = errors.New("not a directory")
	ErrFileMissing      = errors.New("file or path does not exist")
	ErrFileExists       = errors.New("file already exists")
	ErrBinaryFile       = errors.New("file is binary")
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidOffset    = errors.New("offset cannot be negative")
	ErrInvalidLimit     = errors.New("limit cannot be negative")
)

// -- Error Types --

// RootError is returned when the workspace root is invalid.
type RootError struct {
	Root  string
	Cause error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("invalid workspace root %s: %v", e.Root, e.Cause)
}
func (e *RootError) Unwrap() error { return e.Cause }

// ArgumentsError is returned when tool arguments do not decode into the request type.
type ArgumentsError struct {
	Tool  string
	Cause error
}

func (e *ArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Cause)
}
func (e *ArgumentsError) Unwrap() error { return e.Cause }

// IgnoreReadError is returned when .gitignore exists but cannot be read.
type IgnoreReadError struct {
	Path  string
	Cause error
}

func (e *IgnoreReadError) Error() string {
	return fmt.Sprintf("failed to read .gitignore at %s: %v", e.Path, e.Cause)
}
func (e *IgnoreReadError) Unwrap() error { return e.Cause }
