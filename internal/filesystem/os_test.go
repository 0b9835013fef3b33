package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_WriteCreatesParents(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs := NewOSFileSystem(root)

	err := fs.Write(ctx, "src/deep/nested/app.py", "print('hi')\n")
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(root, "src", "deep", "nested", "app.py"))
	require.NoError(t, err)
	require.Equal(t, "print('hi')\n", string(b))

	content, err := fs.Read(ctx, filepath.Join(root, "src/deep/nested/app.py"))
	require.NoError(t, err)
	require.Equal(t, "print('hi')\n", content)
}

func TestOSFileSystem_ReadMissing(t *testing.T) {
	fs := NewOSFileSystem(t.TempDir())
	_, err := fs.Read(context.Background(), "missing.py")
	require.ErrorIs(t, err, ErrFileNotFound)

	exists, err := fs.FileExists(context.Background(), "missing.py")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestOSFileSystem_ReadDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "pkg"), 0o755))

	_, err := NewOSFileSystem(root).Read(context.Background(), "pkg")
	require.ErrorIs(t, err, ErrIsDir)
}

func TestOSFileSystem_OutsideRoot(t *testing.T) {
	fs := NewOSFileSystem(t.TempDir())
	err := fs.Write(context.Background(), "../escape.txt", "x")
	require.ErrorIs(t, err, ErrOutsideRoot)
}

func TestOSFileSystem_ListDirAndIsDir(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	fs := NewOSFileSystem(root)
	require.NoError(t, fs.Write(ctx, "dir/b.txt", "b"))
	require.NoError(t, fs.Write(ctx, "dir/a.txt", "a"))
	require.NoError(t, fs.Write(ctx, "dir/sub/c.txt", "c"))

	names, err := fs.ListDir(ctx, "dir")
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "b.txt", "sub/"}, names)

	isDir, err := fs.IsDir(ctx, "dir/sub")
	require.NoError(t, err)
	require.True(t, isDir)

	isDir, err = fs.IsDir(ctx, "dir/a.txt")
	require.NoError(t, err)
	require.False(t, isDir)
}

func TestApplyChangelist(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	osFS := NewOSFileSystem(root)
	require.NoError(t, osFS.Write(ctx, "old.py", "old"))

	staged := NewMemDiffFileSystem(osFS)
	require.NoError(t, staged.Write(ctx, "new/app.py", "new"))
	require.NoError(t, staged.Delete(ctx, "old.py"))

	require.NoError(t, ApplyChangelist(ctx, osFS, staged.GetChangelist()))

	content, err := osFS.Read(ctx, "new/app.py")
	require.NoError(t, err)
	require.Equal(t, "new", content)

	exists, err := osFS.FileExists(ctx, "old.py")
	require.NoError(t, err)
	require.False(t, exists)
}
