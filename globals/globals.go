// Package globals implements the Well-Known Globals Registry (component
// F): a static, ordered seed list of opaque expressions for intrinsics,
// pre-installed into the walker's cache before a top-level walk begins
// (spec.md §4.6). Grounded on the teacher's inspector.NewFactory
// extension-to-inspector static table (inspector/inspector.go) as the
// idiomatic shape for a small, ordered, fixed lookup table driving
// dispatch.
package globals

import "github.com/viant/closurecap/introspect"

// Seed is one well-known global entry: the live value of an intrinsic (the
// caller supplies the live value through its GlobalLister; this package only orders and names them), paired with the
// source-text expression that reproduces it in the deserialization
// environment.
type Seed struct {
	Value introspect.Value
	Expr  string
}

// namePriority lists the global names §4.6 requires be seeded (and
// preferred over any indirectly-reached path) before falling back to a walk
// of the global prototype chain.
var namePriority = []string{"Object", "Function", "Array", "Number", "String"}

// deprecatedGlobalAliases are skipped per spec.md §4.6 ("skipping
// deprecated GLOBAL/root").
var deprecatedGlobalAliases = map[string]bool{"GLOBAL": true, "root": true}

// GlobalLister is the minimal surface this package needs from a host
// adapter: enumerate the global object's own named properties together
// with their live values. A concrete Introspector implementation is
// expected to expose this (or the caller assembles it from
// GetOwnPropertyDescriptors + GetOwnProperty on the global object handle).
type GlobalLister interface {
	GlobalNames() []string
	GlobalValue(name string) introspect.Value
}

// Build produces the ordered seed list per spec.md §4.6: Object, Function,
// Array, Number, String first, then the rest of the global object's own
// properties (skipping deprecated aliases), then each such property's
// prototype, then each such property's own `prototype` field, then the
// generator-function prototype pair, then the iterator symbol.
//
// iteratorSymbol is the live Symbol.iterator value (so the walker's cache
// recognizes it by identity); it is seeded with the fixed expression
// "Symbol.iterator", the one source-text expression that reproduces the
// intrinsic in any deserialization environment. A nil value means the
// caller has no way to supply it and the entry is simply omitted.
func Build(lister GlobalLister, in introspect.Introspector, generatorFunctionExample introspect.Value, iteratorSymbol introspect.Value) []Seed {
	seen := map[string]bool{}
	var seeds []Seed

	addGlobal := func(name string) {
		if seen[name] || deprecatedGlobalAliases[name] {
			return
		}
		v := lister.GlobalValue(name)
		if v == nil {
			return
		}
		seen[name] = true
		seeds = append(seeds, Seed{Value: v, Expr: "global." + name})
	}

	for _, name := range namePriority {
		addGlobal(name)
	}
	for _, name := range lister.GlobalNames() {
		addGlobal(name)
	}

	// Prototypes and `.prototype` fields of every seeded global, in the
	// same order the globals themselves were seeded.
	baseCount := len(seeds)
	for i := 0; i < baseCount; i++ {
		s := seeds[i]
		proto := in.GetPrototypeOf(s.Value)
		if proto != nil {
			seeds = append(seeds, Seed{Value: proto, Expr: "Object.getPrototypeOf(" + s.Expr + ")"})
		}
		if protoField := lookupOwnProperty(in, s.Value, "prototype"); protoField != nil {
			seeds = append(seeds, Seed{Value: protoField, Expr: s.Expr + ".prototype"})
		}
	}

	if generatorFunctionExample != nil {
		genProto := in.GetPrototypeOf(generatorFunctionExample)
		if genProto != nil {
			genProtoExpr := "Object.getPrototypeOf(function*(){})"
			seeds = append(seeds, Seed{Value: genProto, Expr: genProtoExpr})
			genProtoProto := in.GetPrototypeOf(genProto)
			if genProtoProto != nil {
				seeds = append(seeds, Seed{Value: genProtoProto, Expr: "Object.getPrototypeOf(" + genProtoExpr + ")"})
			}
		}
	}

	if iteratorSymbol != nil {
		seeds = append(seeds, Seed{Value: iteratorSymbol, Expr: "Symbol.iterator"})
	}

	return seeds
}

func lookupOwnProperty(in introspect.Introspector, value introspect.Value, name string) introspect.Value {
	descs, err := in.GetOwnPropertyDescriptors(value)
	if err != nil {
		return nil
	}
	for _, d := range descs {
		if d.IsSymbol || d.Name != name {
			continue
		}
		if !d.HasValue {
			return nil
		}
		return in.GetOwnProperty(value, d)
	}
	return nil
}
