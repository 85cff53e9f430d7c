// Package introspect declares the abstract contracts the core consumes: the
// Introspector (a mapping from the host runtime's live values to source
// text, scope chains, and prototype chains) and the SyntaxService (a parser
// abstraction). Both are consumed, never implemented, by walker/syntax; the
// concrete runtime-host adapter and parser library are external
// collaborators (spec.md §1/§6).
package introspect

import "context"

// Value is an opaque handle to a live value in the host runtime. The core
// never inspects it directly; every question about a Value is routed
// through an Introspector method.
type Value = interface{}

// ValueKind classifies a Value for the walker's dispatch order (spec.md
// §4.4.1). The scripting runtime's own `typeof`/`instanceof` give this for
// free; Go's static type system does not, so Classify is the minimal
// necessary translation this port adds on top of the spec's Introspector
// contract.
type ValueKind int

const (
	KindUndefined ValueKind = iota
	KindNull
	KindBoolean
	KindString
	KindNumber
	KindBigInt
	KindRegexp
	KindCallable
	KindPromise
	KindOutput
	KindArray
	KindArgumentsLike
	KindObject
)

// PropertyDescriptor mirrors one entry of
// Introspector.GetOwnPropertyDescriptors: exactly one of Name/Symbol is set
// (spec.md §6.1, "must not include the __proto__ pseudo-property"; §9,
// "normalized to carry both a string name and a symbol slot, exactly one of
// which is set").
type PropertyDescriptor struct {
	Name     string
	Symbol   string
	IsSymbol bool

	HasValue     bool
	Configurable bool
	Enumerable   bool
	Writable     bool

	// Get/Set are present only for accessor properties; at most one of
	// {HasValue} and {Get,Set non-nil} applies.
	Get Value
	Set Value
}

// SourceLocation is the Introspector's best-effort textual origin for a
// callable (spec.md §6.1 getSourceLocation); zero value means unresolvable.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// ModuleCacheEntry is one entry yielded by IterModuleCache.
type ModuleCacheEntry struct {
	Path    string
	Exports Value
}

// Introspector is the abstract runtime-host adapter the core depends on
// (spec.md §6.1). All access to host-runtime internals goes through this
// interface so the core stays testable against a synthetic implementation.
type Introspector interface {
	// GetSourceText returns the textual representation of callable suitable
	// for syntax normalization (§4.1).
	GetSourceText(callable Value) (string, error)

	// GetSourceLocation returns the best-effort origin of callable.
	GetSourceLocation(callable Value) SourceLocation

	// Arity returns callable's declared parameter count, preserved across
	// serialization because some host libraries introspect `.length`
	// (spec.md §3.2 paramCount).
	Arity(callable Value) int

	// LookupCapturedVariable searches callable's lexical scope chain for
	// name. If throwOnFailure and the name is not found, it returns an
	// error; otherwise a failed lookup returns (nil, nil) representing
	// `undefined`.
	LookupCapturedVariable(callable Value, name string, throwOnFailure bool) (Value, error)

	// GetPrototypeOf returns the [[Prototype]] of value.
	GetPrototypeOf(value Value) Value

	// GetOwnPropertyDescriptors enumerates value's own properties.
	GetOwnPropertyDescriptors(value Value) ([]PropertyDescriptor, error)

	// GetOwnProperty returns the current value for a data descriptor;
	// returns nil (i.e. undefined) for an accessor descriptor.
	GetOwnProperty(value Value, descriptor PropertyDescriptor) Value

	// Identity reports reference equality between a and b.
	Identity(a, b Value) bool

	// BuiltInModuleNames is the closed set of host-standard module names
	// (spec.md §6.1).
	BuiltInModuleNames() []string

	// RequireModule loads a module by name, the way the host's own module
	// loader would.
	RequireModule(name string) (Value, error)

	// IterModuleCache enumerates the host's currently loaded modules.
	IterModuleCache() ([]ModuleCacheEntry, error)

	// ProcessCwd returns the process's current working directory.
	ProcessCwd() string

	// ClassTag returns the canonical "[object ...]" class tag, used to
	// detect arguments-like objects.
	ClassTag(value Value) string

	// Classify routes value to the dispatch-order category the walker
	// needs (§4.4.1). [EXPANDED — see SPEC_FULL.md §6.1.]
	Classify(value Value) ValueKind

	// IsDoNotCapture reports whether value itself carries a truthy
	// doNotCapture marker (§4.4.1 step 3, §4.4.1 step 5, §9 "Escape
	// hatches"). The walker checks a callable's prototype-chain ancestors
	// itself, with one call per ancestor.
	IsDoNotCapture(value Value) bool

	// IsDeploymentOnlyModule reports whether a module's exported value
	// carries the deploymentOnlyModule marker (§4.5's capture-by-value
	// trigger; §7's breadcrumb hint).
	IsDeploymentOnlyModule(value Value) bool

	// ResolvePromise blocks (cooperatively, via ctx) until value settles
	// and returns its resolved value, or an error if it rejected.
	ResolvePromise(ctx context.Context, value Value) (Value, error)

	// ResolveOutput resolves a deferred ("Output") value to its inner
	// value, and reports whether the handle was marked secret (§4.4.5).
	ResolveOutput(ctx context.Context, value Value) (inner Value, secret bool, err error)

	// BigIntText returns the canonical decimal digits of a KindBigInt
	// value, without the trailing "n" suffix the emitter adds (spec.md
	// §4.4.1 rule 6, §8.1 "bigints").
	BigIntText(value Value) string

	// RegexpParts returns the source and flags of a KindRegexp value.
	RegexpParts(value Value) (source, flags string)
}

// Primitive-kind value representation contract: for KindNumber, Value is a
// Go float64 (its bit pattern already faithfully distinguishes -0, NaN,
// and ±Infinity per spec.md §8.1 "primitive fidelity" — no adapter layer
// needed); for KindString, a Go string; for KindBoolean, a Go bool; for
// KindNull, any value (ignored, treated as the JSON null literal); for
// KindUndefined, any value (ignored, treated as the ir.Undefined
// sentinel). KindBigInt and KindRegexp route through BigIntText/
// RegexpParts above because their natural Go representation is ambiguous
// across hosts (big.Int vs. string digits, compiled vs. uncompiled
// regexp).
