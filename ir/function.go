package ir

// FunctionInfo is the payload of a TagFunction Entry (spec.md §3.2).
type FunctionInfo struct {
	// Code is the normalized, name-stripped function expression text used
	// for anonymous emission.
	Code string

	// CapturedValues maps a captured variable's name (string Entry) to the
	// Entry holding its captured value, in first-capture order.
	CapturedValues *OrderedMap

	// Env holds properties installed on the function object itself.
	Env *OrderedMap

	// UsesNonLexicalReceiver is true when the body is not an arrow/lambda
	// and references `this`/`super`.
	UsesNonLexicalReceiver bool

	// Proto is set only when the prototype chain does not terminate at the
	// default function prototype and the function is capturable (§3.2).
	Proto *Entry

	// Name is the original declaration/inferred name, used only to improve
	// emitted identifier readability.
	Name string

	// ParamCount is the function's declared parameter count; preserved so
	// that host libraries that introspect `.length` still see the right
	// arity.
	ParamCount int

	// IsArrow records whether the function is lexical-`this` (arrow/lambda)
	// shaped.
	IsArrow bool
}

// NewFunctionInfo returns a FunctionInfo with empty ordered maps ready for
// population.
func NewFunctionInfo(code string, paramCount int) *FunctionInfo {
	return &FunctionInfo{
		Code:           code,
		CapturedValues: NewOrderedMap(),
		Env:            NewOrderedMap(),
		ParamCount:     paramCount,
	}
}

// IsSimple reports whether fi is a "simple function" per the glossary:
// no captures, no own properties, no custom prototype. Simple functions
// are candidates for cross-call-site deduplication (§4.4.2 step 10).
func (fi *FunctionInfo) IsSimple() bool {
	return fi.CapturedValues.Len() == 0 && fi.Env.Len() == 0 && fi.Proto == nil
}
