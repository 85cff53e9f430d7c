package modulemap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/closurecap/mockintrospect"
)

func TestWorkspaceRoot_FindsEnclosingModule(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/proj\n\ngo 1.23\n"), 0o644))

	mm := New(mockintrospect.New(), nil)
	root, modPath, err := mm.WorkspaceRoot(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, dir, root)
	assert.Equal(t, "example.com/proj", modPath)
}

func TestWorkspaceRoot_NoModuleFound(t *testing.T) {
	mm := New(mockintrospect.New(), nil)
	root, modPath, err := mm.WorkspaceRoot(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "", root)
	assert.Equal(t, "", modPath)
}

func TestRelativeToModule(t *testing.T) {
	assert.Equal(t, "./internal/util", RelativeToModule("example.com/proj", "example.com/proj/internal/util"))
	assert.Equal(t, ".", RelativeToModule("example.com/proj", "example.com/proj"))
	assert.Equal(t, "other/pkg", RelativeToModule("", "other/pkg"))
}
