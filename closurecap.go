// Package closurecap implements a deep closure serializer: given a live
// callable plus its lexical environment, it produces a self-contained
// source-text module that reconstructs an equivalent callable when loaded
// fresh (spec.md §1). Serialize is the thin connective entry point in front
// of the syntax/walker/modulemap/globals/emit subsystems, the same role the
// teacher's inspector.Factory plays in front of its per-language inspectors.
package closurecap

import (
	"context"

	"github.com/viant/afs"

	"github.com/viant/closurecap/emit"
	"github.com/viant/closurecap/globals"
	"github.com/viant/closurecap/introspect"
	"github.com/viant/closurecap/modulemap"
	"github.com/viant/closurecap/walker"
)

// Options bundles the caller-supplied policy knobs, mirroring
// inspector/info.Config's pattern of a plain struct of toggles defaulted
// when nil.
type Options struct {
	// ExportName is the identifier the emitted module's `exports` object
	// binds the reconstructed callable to.
	ExportName string

	// FactoryMode, when true, wraps the emitted callable in an
	// immediately-invoked factory expression (spec.md §4.7.1).
	FactoryMode bool

	// AllowSecrets opts into capturing secret-flagged deferred values
	// without failing (spec.md §7 "Secret leak").
	AllowSecrets bool

	// Serialize is an inclusion predicate the caller may supply to exclude
	// specific live values from capture (spec.md §4.4.1 step 5). Nil means
	// "serialize everything" subject to the remaining do-not-capture rules.
	Serialize func(value introspect.Value) bool

	// FS backs the Module Map's path resolution; nil defaults to afs.New().
	FS afs.Service

	// GeneratorFunctionExample and IteratorSymbolValue seed the two
	// generator-function-prototype and iterator-symbol entries of the
	// Well-Known Globals Registry (spec.md §4.6); both may be left nil if
	// the target program never touches generators or iterators.
	GeneratorFunctionExample introspect.Value
	IteratorSymbolValue      introspect.Value

	// OutputWrapperInstance is a live, empty instance of the host's
	// serialized-output wrapper class (spec.md §4.4.5); required only if
	// the target graph can reach a deferred ("Output") value.
	OutputWrapperInstance introspect.Value
}

// DefaultOptions returns an Options with FactoryMode enabled, matching the
// common case of an immediately-invoked reconstruction factory.
func DefaultOptions() *Options {
	return &Options{ExportName: "value", FactoryMode: true}
}

// GlobalLister is the minimal global-object enumeration surface Serialize
// needs to seed the Well-Known Globals Registry (spec.md §4.6); a concrete
// Introspector implementation is expected to also satisfy this.
type GlobalLister interface {
	GlobalNames() []string
	GlobalValue(name string) introspect.Value
}

// Serialize implements spec.md §1's end-to-end pipeline: walk target's
// reachable graph into normalized IR, then emit it as source text. The
// returned error, when non-nil, is always a *walker.SerializationError.
func Serialize(ctx context.Context, target introspect.Value, in introspect.Introspector, syn introspect.SyntaxService, lister GlobalLister, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	modules := modulemap.New(in, opts.FS)

	var globalNames []string
	var seeds []globals.Seed
	if lister != nil {
		globalNames = lister.GlobalNames()
		seeds = globals.Build(lister, in, opts.GeneratorFunctionExample, opts.IteratorSymbolValue)
	}

	// The default prototypes are the intrinsics Function.prototype and
	// Object.prototype — the constructors' own `prototype` properties, not
	// their [[Prototype]]s (both constructors' [[Prototype]] is
	// Function.prototype).
	var defaultFunctionProto, defaultObjectProto introspect.Value
	if lister != nil {
		if fn := lister.GlobalValue("Function"); fn != nil {
			defaultFunctionProto = ownPrototypeProperty(in, fn)
		}
		if obj := lister.GlobalValue("Object"); obj != nil {
			defaultObjectProto = ownPrototypeProperty(in, obj)
		}
	}

	w := walker.New(walker.Config{
		Introspector:             in,
		SyntaxService:            syn,
		Modules:                  modules,
		GlobalNames:              globalNames,
		DefaultFunctionPrototype: defaultFunctionProto,
		DefaultObjectPrototype:   defaultObjectProto,
		Serialize:                opts.Serialize,
		AllowSecrets:             opts.AllowSecrets,
		Seeds:                    seeds,
		OutputWrapperInstance:    opts.OutputWrapperInstance,
	})

	root, err := w.Serialize(ctx, target)
	if err != nil {
		return "", err
	}

	exportName := opts.ExportName
	if exportName == "" {
		exportName = "value"
	}

	e := emit.New()
	out, err := e.Emit(root, exportName, opts.FactoryMode)
	if err != nil {
		return "", &walker.SerializationError{Kind: walker.ErrKindBrokenInvariant, Message: err.Error(), ContextRef: w.Context(), SuppressStack: true}
	}
	return out, nil
}

// ownPrototypeProperty returns value's own `prototype` property, if it has
// one with a plain data descriptor.
func ownPrototypeProperty(in introspect.Introspector, value introspect.Value) introspect.Value {
	descs, err := in.GetOwnPropertyDescriptors(value)
	if err != nil {
		return nil
	}
	for _, d := range descs {
		if !d.IsSymbol && d.Name == "prototype" && d.HasValue {
			return in.GetOwnProperty(value, d)
		}
	}
	return nil
}
