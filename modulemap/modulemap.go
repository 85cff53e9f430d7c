// Package modulemap implements the Module Map (component E): mapping live
// values to stable module references and deciding capture-by-value vs
// capture-by-reference (spec.md §4.5). Grounded on the teacher's
// inspector/repository.Detector (root-finding, modfile-driven project-name
// extraction) for the process-cwd-relative path normalization, and on
// analyzer.Analyzer's/inspector/coder.Coder's use of afs.Service to stay
// storage-agnostic.
package modulemap

import (
	"context"
	"strings"

	"github.com/viant/afs"

	"github.com/viant/closurecap/introspect"
)

// builtInNode holds a cached built-in module lookup.
type builtInNode struct {
	name  string
	value introspect.Value
}

// Map implements spec.md §4.5: a lazily initialized built-in sub-map plus a
// per-lookup scan of the dynamic module cache. The built-in sub-map belongs
// to this Map instance; it is not shared with other Maps.
type Map struct {
	fs afs.Service

	introspector introspect.Introspector

	builtIns     []builtInNode
	builtInsInit bool

	// Workspace boundary of the embedding host, resolved lazily from the
	// process cwd via WorkspaceRoot and used to normalize cache paths that
	// fall outside the cwd itself.
	wsInit       bool
	wsRoot       string
	wsModulePath string
}

// New returns a Map that resolves module paths relative to fs (defaulting
// to afs.New(), matching the teacher's analyzer.Analyzer/coder.Coder
// pattern of carrying an afs.Service rather than hard-coding os calls).
func New(introspector introspect.Introspector, fs afs.Service) *Map {
	if fs == nil {
		fs = afs.New()
	}
	return &Map{introspector: introspector, fs: fs}
}

// Decision is the outcome of resolving value against the module cache.
type Decision struct {
	// IsModule reports whether value is bound to any module at all; when
	// false, the caller should continue the walker's ordinary dispatch.
	IsModule bool

	// CaptureByValue selects the "recurse into the walker as an ordinary
	// object" branch of §4.5; when false, the caller should emit a
	// TagModule Entry with Name.
	CaptureByValue bool

	// Name is the normalized module reference, valid when !CaptureByValue.
	Name string

	// DeploymentOnly records whether the module was flagged
	// deploymentOnlyModule, for the breadcrumb-trace hint (§7).
	DeploymentOnly bool
}

// Resolve implements spec.md §4.5's lookup + capture decision. The
// deploymentOnlyModule marker itself lives on the host side; it reaches us
// through Introspector.IsDeploymentOnlyModule.
func (m *Map) Resolve(ctx context.Context, value introspect.Value) (Decision, error) {
	if err := m.ensureBuiltIns(); err != nil {
		return Decision{}, err
	}
	for _, b := range m.builtIns {
		if m.introspector.Identity(b.value, value) {
			return Decision{IsModule: true, CaptureByValue: false, Name: b.name}, nil
		}
	}

	entries, err := m.introspector.IterModuleCache()
	if err != nil {
		return Decision{}, err
	}
	cwd := m.introspector.ProcessCwd()
	for _, e := range entries {
		if !m.introspector.Identity(e.Exports, value) {
			continue
		}
		name := m.normalizeName(ctx, cwd, e.Path)
		deploymentOnly := m.introspector.IsDeploymentOnlyModule(e.Exports)
		isUserLocal := strings.HasPrefix(name, "./") && !strings.Contains(name, "node_modules")
		if deploymentOnly || isUserLocal {
			return Decision{IsModule: true, CaptureByValue: true, Name: name, DeploymentOnly: deploymentOnly}, nil
		}
		return Decision{IsModule: true, CaptureByValue: false, Name: stripNodeModules(name), DeploymentOnly: deploymentOnly}, nil
	}
	return Decision{IsModule: false}, nil
}

// ensureBuiltIns populates this Map's built-in module cache on its first
// Resolve; a new Map starts with an empty one.
func (m *Map) ensureBuiltIns() error {
	if m.builtInsInit {
		return nil
	}
	m.builtInsInit = true
	for _, name := range m.introspector.BuiltInModuleNames() {
		v, err := m.introspector.RequireModule(name)
		if err != nil {
			continue // a host may not provide every name in the closed set.
		}
		m.builtIns = append(m.builtIns, builtInNode{name: name, value: v})
	}
	return nil
}

// normalizeName computes the module reference for a cache path, per
// spec.md §4.5's "relative to the process working directory, prefixed with
// ./". Three bases are tried in order: a cache key expressed as a host
// import path (prefixed with the embedding module's own path) is rebased
// with RelativeToModule; a filesystem path under the cwd is rebased
// against it; a path outside the cwd but inside the host's module boundary
// (WorkspaceRoot) is rebased against that boundary, so a module loaded
// from a sibling of the cwd still resolves as user-local rather than
// leaking an absolute path into the emitted text.
func (m *Map) normalizeName(ctx context.Context, cwd, path string) string {
	p := filepathToSlash(path)
	root, modPath := m.workspace(ctx, cwd)
	if modPath != "" && (p == modPath || strings.HasPrefix(p, modPath+"/")) {
		return RelativeToModule(modPath, p)
	}
	if name := normalizeRelative(cwd, p); strings.HasPrefix(name, "./") {
		return name
	}
	if root != "" {
		if name := normalizeRelative(root, p); strings.HasPrefix(name, "./") {
			return name
		}
	}
	return p
}

// workspace lazily resolves the embedding host's module boundary from cwd.
func (m *Map) workspace(ctx context.Context, cwd string) (root, modulePath string) {
	if !m.wsInit {
		m.wsInit = true
		m.wsRoot, m.wsModulePath, _ = m.WorkspaceRoot(ctx, cwd)
	}
	return m.wsRoot, m.wsModulePath
}

// normalizeRelative computes path relative to base, prefixed with "./",
// using afs-style URL joining semantics (forward slashes regardless of
// host OS, matching how the teacher's Coder/Analyzer treat storage URLs
// uniformly). Paths outside base come back unchanged.
func normalizeRelative(cwd, path string) string {
	cwd = strings.TrimSuffix(filepathToSlash(cwd), "/")
	p := filepathToSlash(path)
	if cwd != "" && strings.HasPrefix(p, cwd+"/") {
		rel := strings.TrimPrefix(p, cwd+"/")
		return "./" + rel
	}
	return p
}

func filepathToSlash(s string) string {
	return strings.ReplaceAll(s, "\\", "/")
}

// stripNodeModules strips everything up to and including the last
// node_modules segment, so deployed code resolves the package via its own
// node_modules (spec.md §4.5 "capture by reference" branch).
func stripNodeModules(name string) string {
	const marker = "node_modules/"
	idx := strings.LastIndex(name, marker)
	if idx < 0 {
		return name
	}
	return name[idx+len(marker):]
}
