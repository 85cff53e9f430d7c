package modulemap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/closurecap/introspect"
	"github.com/viant/closurecap/mockintrospect"
)

func moduleCacheEntry(path string, exports introspect.Value) introspect.ModuleCacheEntry {
	return introspect.ModuleCacheEntry{Path: path, Exports: exports}
}

func TestMap_Resolve_BuiltIn(t *testing.T) {
	fsValue := mockintrospect.NewObject()
	in := mockintrospect.New()
	in.AddBuiltIn("fs", fsValue)

	mm := New(in, nil)
	decision, err := mm.Resolve(context.Background(), fsValue)
	require.NoError(t, err)
	assert.True(t, decision.IsModule)
	assert.False(t, decision.CaptureByValue)
	assert.Equal(t, "fs", decision.Name)
}

func TestMap_Resolve_UserLocalCapturedByValue(t *testing.T) {
	in := mockintrospect.New()
	in.Cwd = "/srv/app"
	exports := mockintrospect.NewObject()
	in.ModuleCache = append(in.ModuleCache, moduleCacheEntry("/srv/app/helpers.js", exports))

	mm := New(in, nil)
	decision, err := mm.Resolve(context.Background(), exports)
	require.NoError(t, err)
	assert.True(t, decision.IsModule)
	assert.True(t, decision.CaptureByValue)
	assert.Equal(t, "./helpers.js", decision.Name)
}

func TestMap_Resolve_NodeModulesCapturedByReference(t *testing.T) {
	in := mockintrospect.New()
	in.Cwd = "/srv/app"
	exports := mockintrospect.NewObject()
	in.ModuleCache = append(in.ModuleCache, moduleCacheEntry("/srv/app/node_modules/lodash/index.js", exports))

	mm := New(in, nil)
	decision, err := mm.Resolve(context.Background(), exports)
	require.NoError(t, err)
	assert.True(t, decision.IsModule)
	assert.False(t, decision.CaptureByValue)
	assert.Equal(t, "lodash/index.js", decision.Name)
}

func TestMap_Resolve_DeploymentOnlyForcesCaptureByValue(t *testing.T) {
	in := mockintrospect.New()
	in.Cwd = "/srv/app"
	exports := mockintrospect.NewObject()
	exports.DeploymentOnly = true
	in.ModuleCache = append(in.ModuleCache, moduleCacheEntry("/srv/app/node_modules/secrets/index.js", exports))

	mm := New(in, nil)
	decision, err := mm.Resolve(context.Background(), exports)
	require.NoError(t, err)
	assert.True(t, decision.CaptureByValue)
	assert.True(t, decision.DeploymentOnly)
}

// writeWorkspace creates a temp module root with a go.mod and returns the
// root plus a nested working directory.
func writeWorkspace(t *testing.T, modulePath string) (root, cwd string) {
	t.Helper()
	root = t.TempDir()
	cwd = filepath.Join(root, "cmd", "app")
	require.NoError(t, os.MkdirAll(cwd, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module "+modulePath+"\n\ngo 1.23\n"), 0o644))
	return root, cwd
}

func TestMap_Resolve_WorkspaceSiblingIsUserLocal(t *testing.T) {
	root, cwd := writeWorkspace(t, "example.com/host")

	in := mockintrospect.New()
	in.Cwd = cwd
	exports := mockintrospect.NewObject()
	in.ModuleCache = append(in.ModuleCache, moduleCacheEntry(filepath.Join(root, "shared", "util.js"), exports))

	mm := New(in, nil)
	decision, err := mm.Resolve(context.Background(), exports)
	require.NoError(t, err)
	assert.True(t, decision.IsModule)
	assert.True(t, decision.CaptureByValue, "a path inside the host's module boundary is user-local even when outside cwd")
	assert.Equal(t, "./shared/util.js", decision.Name)
}

func TestMap_Resolve_ImportPathKeyRebasedAgainstModule(t *testing.T) {
	_, cwd := writeWorkspace(t, "example.com/host")

	in := mockintrospect.New()
	in.Cwd = cwd
	exports := mockintrospect.NewObject()
	in.ModuleCache = append(in.ModuleCache, moduleCacheEntry("example.com/host/assets/fn.js", exports))

	mm := New(in, nil)
	decision, err := mm.Resolve(context.Background(), exports)
	require.NoError(t, err)
	assert.True(t, decision.CaptureByValue)
	assert.Equal(t, "./assets/fn.js", decision.Name)
}

func TestMap_Resolve_NotAModule(t *testing.T) {
	in := mockintrospect.New()
	mm := New(in, nil)
	decision, err := mm.Resolve(context.Background(), mockintrospect.NewObject())
	require.NoError(t, err)
	assert.False(t, decision.IsModule)
}
