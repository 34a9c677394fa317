package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Cyclone1070/mcpagent/internal/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, cfg Config) (*Provider, string) {
	t.Helper()
	if cfg.Root == "" {
		cfg.Root = t.TempDir()
	}
	p := New(cfg)
	require.NoError(t, p.Init(context.Background()))
	return p, p.Root()
}

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestProvider_Tools(t *testing.T) {
	p, _ := newTestProvider(t, Config{})

	descs := p.Tools()
	require.Len(t, descs, 3)
	assert.Equal(t, "read_file", descs[0].Name)
	assert.Equal(t, "write_file", descs[1].Name)
	assert.Equal(t, "list_directory", descs[2].Name)

	catalog := tool.BuildCatalog(descs, p.log)
	assert.False(t, catalog.Degraded())
	assert.Equal(t, 3, catalog.Len())
}

func TestProvider_CallBeforeInit(t *testing.T) {
	p := New(Config{Root: t.TempDir()})
	_, err := p.CallTool(context.Background(), "read_file", map[string]any{"path": "a"})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestProvider_UnknownTool(t *testing.T) {
	p, _ := newTestProvider(t, Config{})
	_, err := p.CallTool(context.Background(), "delete_everything", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestProvider_InitRootErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	err := New(Config{Root: missing}).Init(context.Background())
	var rootErr *RootError
	assert.ErrorAs(t, err, &rootErr)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	err = New(Config{Root: file}).Init(context.Background())
	assert.ErrorIs(t, err, ErrNotADirectory)
}

func TestProvider_CreateRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "new", "workspace")
	p := New(Config{Root: root, CreateRoot: true})
	require.NoError(t, p.Init(context.Background()))
	assert.DirExists(t, root)
}

func TestReadFile(t *testing.T) {
	p, root := newTestProvider(t, Config{MaxFileSize: 16})
	writeTestFile(t, root, "notes/a.txt", "hello world")
	writeTestFile(t, root, "big.txt", "0123456789abcdefghij")
	writeTestFile(t, root, "blob.bin", "ab\x00cd")

	tests := []struct {
		name      string
		args      map[string]any
		want      string
		truncated bool
		wantErr   error
	}{
		{"whole file", map[string]any{"path": "notes/a.txt"}, "hello world", false, nil},
		{"range", map[string]any{"path": "notes/a.txt", "offset": float64(6), "limit": float64(3)}, "wor", true, nil},
		{"range of large file", map[string]any{"path": "big.txt", "offset": float64(10), "limit": float64(100)}, "abcdefghij", false, nil},
		{"too large", map[string]any{"path": "big.txt"}, "", false, ErrFileTooLarge},
		{"binary", map[string]any{"path": "blob.bin"}, "", false, ErrBinaryFile},
		{"missing", map[string]any{"path": "ghost.txt"}, "", false, ErrFileMissing},
		{"directory", map[string]any{"path": "notes"}, "", false, ErrIsDirectory},
		{"escape", map[string]any{"path": "../outside.txt"}, "", false, ErrOutsideWorkspace},
		{"no path", map[string]any{}, "", false, ErrPathRequired},
		{"negative offset", map[string]any{"path": "notes/a.txt", "offset": float64(-1)}, "", false, ErrInvalidOffset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := p.CallTool(context.Background(), "read_file", tt.args)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			resp := out.(*ReadFileResponse)
			assert.Equal(t, tt.want, resp.Content)
			assert.Equal(t, tt.truncated, resp.Truncated)
		})
	}
}

func TestReadFile_UnknownArgument(t *testing.T) {
	p, root := newTestProvider(t, Config{})
	writeTestFile(t, root, "a.txt", "x")

	_, err := p.CallTool(context.Background(), "read_file", map[string]any{"path": "a.txt", "encoding": "latin1"})
	var argErr *ArgumentsError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "read_file", argErr.Tool)
	assert.Contains(t, err.Error(), "encoding")
}

func TestReadFile_SymlinkEscape(t *testing.T) {
	p, root := newTestProvider(t, Config{})
	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))
	if err := os.Symlink(outside, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := p.CallTool(context.Background(), "read_file", map[string]any{"path": "link.txt"})
	assert.ErrorIs(t, err, ErrOutsideWorkspace)
}

func TestWriteFile(t *testing.T) {
	p, root := newTestProvider(t, Config{MaxFileSize: 32})

	out, err := p.CallTool(context.Background(), "write_file", map[string]any{"path": "deep/dir/new.txt", "content": "fresh"})
	require.NoError(t, err)
	resp := out.(*WriteFileResponse)
	assert.True(t, resp.Created)
	assert.Equal(t, "deep/dir/new.txt", resp.Path)
	assert.Equal(t, 5, resp.BytesWritten)

	data, err := os.ReadFile(filepath.Join(root, "deep", "dir", "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))

	_, err = p.CallTool(context.Background(), "write_file", map[string]any{"path": "deep/dir/new.txt", "content": "again"})
	assert.ErrorIs(t, err, ErrFileExists)

	out, err = p.CallTool(context.Background(), "write_file", map[string]any{"path": "deep/dir/new.txt", "content": "again", "overwrite": true})
	require.NoError(t, err)
	assert.False(t, out.(*WriteFileResponse).Created)

	data, err = os.ReadFile(filepath.Join(root, "deep", "dir", "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "again", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "deep", "dir"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteFile_Rejections(t *testing.T) {
	p, root := newTestProvider(t, Config{MaxFileSize: 8})
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0o755))

	tests := []struct {
		name    string
		args    map[string]any
		wantErr error
	}{
		{"too large", map[string]any{"path": "a.txt", "content": "123456789"}, ErrFileTooLarge},
		{"binary", map[string]any{"path": "a.txt", "content": "a\x00b"}, ErrBinaryFile},
		{"directory", map[string]any{"path": "dir", "content": "x", "overwrite": true}, ErrIsDirectory},
		{"escape", map[string]any{"path": "../a.txt", "content": "x"}, ErrOutsideWorkspace},
		{"absolute outside", map[string]any{"path": "/tmp/elsewhere.txt", "content": "x"}, ErrOutsideWorkspace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.CallTool(context.Background(), "write_file", tt.args)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestListDirectory(t *testing.T) {
	p, root := newTestProvider(t, Config{})
	writeTestFile(t, root, "b.txt", "")
	writeTestFile(t, root, "a.txt", "")
	writeTestFile(t, root, "src/main.go", "")
	writeTestFile(t, root, "src/pkg/util.go", "")

	out, err := p.CallTool(context.Background(), "list_directory", nil)
	require.NoError(t, err)
	resp := out.(*ListDirectoryResponse)
	assert.Equal(t, ".", resp.Path)
	assert.Equal(t, []DirectoryEntry{
		{Path: "src", IsDir: true},
		{Path: "a.txt"},
		{Path: "b.txt"},
	}, resp.Entries)

	out, err = p.CallTool(context.Background(), "list_directory", map[string]any{"max_depth": float64(-1)})
	require.NoError(t, err)
	resp = out.(*ListDirectoryResponse)
	assert.Equal(t, []DirectoryEntry{
		{Path: "src", IsDir: true},
		{Path: "src/pkg", IsDir: true},
		{Path: "a.txt"},
		{Path: "b.txt"},
		{Path: "src/main.go"},
		{Path: "src/pkg/util.go"},
	}, resp.Entries)

	out, err = p.CallTool(context.Background(), "list_directory", map[string]any{"path": "src"})
	require.NoError(t, err)
	resp = out.(*ListDirectoryResponse)
	assert.Equal(t, "src", resp.Path)
	assert.Len(t, resp.Entries, 2)
}

func TestListDirectory_Gitignore(t *testing.T) {
	p, root := newTestProvider(t, Config{})
	writeTestFile(t, root, ".gitignore", "# build output\nbuild/\n*.log\n")
	writeTestFile(t, root, "build/out.bin", "")
	writeTestFile(t, root, "debug.log", "")
	writeTestFile(t, root, "keep.txt", "")
	writeTestFile(t, root, ".git/HEAD", "")

	// .gitignore is read during Init.
	require.NoError(t, p.Init(context.Background()))

	out, err := p.CallTool(context.Background(), "list_directory", nil)
	require.NoError(t, err)
	assert.Equal(t, []DirectoryEntry{
		{Path: ".gitignore"},
		{Path: "keep.txt"},
	}, out.(*ListDirectoryResponse).Entries)

	out, err = p.CallTool(context.Background(), "list_directory", map[string]any{"include_ignored": true})
	require.NoError(t, err)
	assert.Len(t, out.(*ListDirectoryResponse).Entries, 4)
}

func TestListDirectory_Pagination(t *testing.T) {
	p, root := newTestProvider(t, Config{DefaultListLimit: 2, MaxListResults: 4})
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		writeTestFile(t, root, name+".txt", "")
	}

	out, err := p.CallTool(context.Background(), "list_directory", map[string]any{})
	require.NoError(t, err)
	resp := out.(*ListDirectoryResponse)
	assert.Len(t, resp.Entries, 2)
	assert.True(t, resp.Truncated)
	assert.Equal(t, "Results capped at 4 entries.", resp.TruncationReason)

	out, err = p.CallTool(context.Background(), "list_directory", map[string]any{"offset": float64(2), "limit": float64(10)})
	require.NoError(t, err)
	resp = out.(*ListDirectoryResponse)
	assert.Equal(t, 4, resp.Limit)
	assert.Equal(t, []DirectoryEntry{{Path: "c.txt"}, {Path: "d.txt"}}, resp.Entries)
}

func TestListDirectory_NotADirectory(t *testing.T) {
	p, root := newTestProvider(t, Config{})
	writeTestFile(t, root, "a.txt", "")

	_, err := p.CallTool(context.Background(), "list_directory", map[string]any{"path": "a.txt"})
	assert.ErrorIs(t, err, ErrNotADirectory)
}

func TestListDirectory_Cancelled(t *testing.T) {
	p, _ := newTestProvider(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.CallTool(ctx, "list_directory", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteFile_SymlinkedParentEscape(t *testing.T) {
	p, root := newTestProvider(t, Config{})
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "out")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := p.CallTool(context.Background(), "write_file", map[string]any{"path": "out/new.txt", "content": "x"})
	assert.ErrorIs(t, err, ErrOutsideWorkspace)
	assert.NoFileExists(t, filepath.Join(outside, "new.txt"))
}
