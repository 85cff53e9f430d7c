package modulemap

import (
	"context"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// WorkspaceRoot walks up from startDir looking for a go.mod, returning the
// directory that contains it and the module path it declares. Grounded on
// the teacher's repository.Detector.findProjectRoot +
// extractGoModuleName(afs download, then modfile.Parse) pair, reused here
// so a closurecap instance embedded in a Go host can resolve its own
// module boundary the same way the teacher resolves a scanned project's.
func (m *Map) WorkspaceRoot(ctx context.Context, startDir string) (root, modulePath string, err error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, "go.mod")
		content, dlErr := m.fs.DownloadWithURL(ctx, candidate)
		if dlErr == nil && len(content) > 0 {
			mod, parseErr := modfile.Parse(candidate, content, nil)
			if parseErr == nil && mod.Module != nil {
				return dir, mod.Module.Mod.Path, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", nil
		}
		dir = parent
	}
}

// RelativeToModule strips a module path prefix from an import path, the Go
// analogue of stripping a node_modules segment: used when a `./`-relative
// dynamic module name needs to be expressed against the host's own module
// boundary (WorkspaceRoot's second return) rather than its filesystem path.
func RelativeToModule(modulePath, importPath string) string {
	if modulePath == "" {
		return importPath
	}
	trimmed := strings.TrimPrefix(importPath, modulePath)
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return "."
	}
	return "./" + trimmed
}
