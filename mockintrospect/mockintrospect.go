// Package mockintrospect is a hand-rolled, test-only implementation of
// introspect.Introspector over plain Go values (SPEC_FULL.md §6.1: "A
// hand-written mockintrospect package implements this interface over plain
// Go values for unit tests"). No mocking framework is used, matching the
// teacher's own test style of building fixtures by hand
// (inspector/jsx/inspector_test.go, analyzer/golang_analyzer_test.go).
package mockintrospect

import (
	"context"
	"fmt"
	"sort"

	"github.com/viant/closurecap/introspect"
)

// Meta carries the two do-not-capture-adjacent markers every container
// value can be flagged with.
type Meta struct {
	DoNotCapture   bool
	DeploymentOnly bool
}

// Scope is a lexical scope chain node for LookupCapturedVariable.
type Scope struct {
	Vars   map[string]introspect.Value
	Parent *Scope
}

// NewScope returns an empty Scope chained to parent.
func NewScope(parent *Scope) *Scope {
	return &Scope{Vars: map[string]introspect.Value{}, Parent: parent}
}

// Set declares name in the scope.
func (s *Scope) Set(name string, v introspect.Value) *Scope {
	s.Vars[name] = v
	return s
}

// Lookup searches s and its ancestors for name.
func (s *Scope) Lookup(name string) (introspect.Value, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if v, ok := cur.Vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Prop is one own-property slot, mirroring introspect.PropertyDescriptor
// but also carrying the live value GetOwnProperty returns.
type Prop struct {
	Name     string
	Symbol   string
	IsSymbol bool

	Value introspect.Value

	Get introspect.Value
	Set introspect.Value

	Configurable bool
	Enumerable   bool
	Writable     bool
	HasValue     bool
}

// Props is an insertion-ordered set of Prop, mirroring what
// GetOwnPropertyDescriptors/GetOwnProperty enumerate for a container value.
type Props struct {
	list []Prop
}

// NewProps returns an empty Props.
func NewProps() *Props { return &Props{} }

// Data appends a simple, fully-writable/enumerable/configurable data
// property, the common case for object literal fields and captured values.
func (p *Props) Data(name string, value introspect.Value) *Props {
	p.list = append(p.list, Prop{Name: name, Value: value, HasValue: true, Configurable: true, Enumerable: true, Writable: true})
	return p
}

// Full appends an arbitrary Prop (accessor, non-enumerable, symbol-keyed...).
func (p *Props) Full(prop Prop) *Props {
	p.list = append(p.list, prop)
	return p
}

func (p *Props) descriptors() []introspect.PropertyDescriptor {
	out := make([]introspect.PropertyDescriptor, 0, len(p.list))
	for _, e := range p.list {
		out = append(out, introspect.PropertyDescriptor{
			Name: e.Name, Symbol: e.Symbol, IsSymbol: e.IsSymbol,
			HasValue: e.HasValue, Configurable: e.Configurable, Enumerable: e.Enumerable, Writable: e.Writable,
			Get: e.Get, Set: e.Set,
		})
	}
	return out
}

func (p *Props) ownValue(d introspect.PropertyDescriptor) introspect.Value {
	for _, e := range p.list {
		if e.IsSymbol == d.IsSymbol && e.Name == d.Name && e.Symbol == d.Symbol {
			return e.Value
		}
	}
	return nil
}

// Function is a mock callable: source text plus a lexical scope chain and
// own-property set, all of which the walker drills into via Introspector.
type Function struct {
	Meta

	Name       string
	Source     string
	ParamCount int
	Scope      *Scope
	Proto      introspect.Value
	Props      *Props

	File string
	Line int
}

// Object is a mock ordinary object.
type Object struct {
	Meta

	Proto introspect.Value
	Props *Props
}

// NewObject returns an empty Object.
func NewObject() *Object { return &Object{Props: NewProps()} }

// Array is a mock array or arguments-like object.
type Array struct {
	Meta

	Elements  map[int]introspect.Value
	Length    int
	Proto     introspect.Value
	Arguments bool
}

// Promise is a mock settled/rejected promise.
type Promise struct {
	Value   introspect.Value
	Err     error
	Pending bool
}

// Output is a mock deferred value handle (spec.md §4.4.5).
type Output struct {
	Inner  introspect.Value
	Secret bool
}

// BigInt is the mock representation of a KindBigInt value: its decimal
// digits, without the trailing "n" suffix.
type BigInt string

// Regexp is the mock representation of a KindRegexp value.
type Regexp struct {
	Source string
	Flags  string
}

type undefinedMarker struct{}
type nullMarker struct{}

// Undefined and Null are the two mock primitive sentinels; any other Go
// value reaching Classify as `nil` is also treated as undefined.
var (
	Undefined introspect.Value = undefinedMarker{}
	Null      introspect.Value = nullMarker{}
)

// Mock implements introspect.Introspector over the plain Go value model
// above.
type Mock struct {
	BuiltIns    map[string]introspect.Value
	builtInList []string

	ModuleCache []introspect.ModuleCacheEntry
	Cwd         string

	Globals     map[string]introspect.Value
	globalOrder []string
}

// New returns an empty Mock ready for population.
func New() *Mock {
	return &Mock{
		BuiltIns: map[string]introspect.Value{},
		Globals:  map[string]introspect.Value{},
	}
}

// AddBuiltIn registers a built-in module value under name.
func (m *Mock) AddBuiltIn(name string, value introspect.Value) {
	if _, ok := m.BuiltIns[name]; !ok {
		m.builtInList = append(m.builtInList, name)
	}
	m.BuiltIns[name] = value
}

// AddGlobal registers a global-object own property under name, implementing
// the GlobalLister surface globals.Build and closurecap.Serialize consume.
func (m *Mock) AddGlobal(name string, value introspect.Value) {
	if _, ok := m.Globals[name]; !ok {
		m.globalOrder = append(m.globalOrder, name)
	}
	m.Globals[name] = value
}

// GlobalNames implements globals.GlobalLister.
func (m *Mock) GlobalNames() []string { return append([]string(nil), m.globalOrder...) }

// GlobalValue implements globals.GlobalLister.
func (m *Mock) GlobalValue(name string) introspect.Value { return m.Globals[name] }

func (m *Mock) GetSourceText(callable introspect.Value) (string, error) {
	fn, ok := callable.(*Function)
	if !ok {
		return "", fmt.Errorf("mockintrospect: %T is not a callable", callable)
	}
	return fn.Source, nil
}

func (m *Mock) GetSourceLocation(callable introspect.Value) introspect.SourceLocation {
	fn, ok := callable.(*Function)
	if !ok {
		return introspect.SourceLocation{}
	}
	return introspect.SourceLocation{File: fn.File, Line: fn.Line}
}

func (m *Mock) Arity(callable introspect.Value) int {
	fn, ok := callable.(*Function)
	if !ok {
		return 0
	}
	return fn.ParamCount
}

func (m *Mock) LookupCapturedVariable(callable introspect.Value, name string, throwOnFailure bool) (introspect.Value, error) {
	fn, ok := callable.(*Function)
	if !ok || fn.Scope == nil {
		if throwOnFailure {
			return nil, fmt.Errorf("mockintrospect: %s is not defined", name)
		}
		return nil, nil
	}
	v, found := fn.Scope.Lookup(name)
	if !found {
		if throwOnFailure {
			return nil, fmt.Errorf("mockintrospect: %s is not defined", name)
		}
		return nil, nil
	}
	return v, nil
}

func (m *Mock) GetPrototypeOf(value introspect.Value) introspect.Value {
	switch v := value.(type) {
	case *Function:
		return v.Proto
	case *Object:
		return v.Proto
	case *Array:
		return v.Proto
	default:
		return nil
	}
}

func (m *Mock) props(value introspect.Value) *Props {
	switch v := value.(type) {
	case *Function:
		if v.Props == nil {
			return NewProps()
		}
		return v.Props
	case *Object:
		if v.Props == nil {
			return NewProps()
		}
		return v.Props
	default:
		return nil
	}
}

func (m *Mock) GetOwnPropertyDescriptors(value introspect.Value) ([]introspect.PropertyDescriptor, error) {
	if arr, ok := value.(*Array); ok {
		var out []introspect.PropertyDescriptor
		indices := make([]int, 0, len(arr.Elements))
		for i := range arr.Elements {
			indices = append(indices, i)
		}
		sort.Ints(indices)
		for _, i := range indices {
			out = append(out, introspect.PropertyDescriptor{
				Name: fmt.Sprintf("%d", i), HasValue: true,
				Configurable: true, Enumerable: true, Writable: true,
			})
		}
		out = append(out, introspect.PropertyDescriptor{Name: "length", HasValue: true, Configurable: false, Enumerable: false, Writable: true})
		return out, nil
	}
	if p := m.props(value); p != nil {
		return p.descriptors(), nil
	}
	return nil, nil
}

func (m *Mock) GetOwnProperty(value introspect.Value, descriptor introspect.PropertyDescriptor) introspect.Value {
	if !descriptor.HasValue {
		return nil
	}
	if arr, ok := value.(*Array); ok {
		if descriptor.Name == "length" {
			return float64(arr.Length)
		}
		var idx int
		if _, err := fmt.Sscanf(descriptor.Name, "%d", &idx); err == nil {
			return arr.Elements[idx]
		}
		return nil
	}
	if p := m.props(value); p != nil {
		return p.ownValue(descriptor)
	}
	return nil
}

func (m *Mock) Identity(a, b introspect.Value) bool {
	return a == b
}

func (m *Mock) BuiltInModuleNames() []string {
	return append([]string(nil), m.builtInList...)
}

func (m *Mock) RequireModule(name string) (introspect.Value, error) {
	v, ok := m.BuiltIns[name]
	if !ok {
		return nil, fmt.Errorf("mockintrospect: no such built-in module %q", name)
	}
	return v, nil
}

func (m *Mock) IterModuleCache() ([]introspect.ModuleCacheEntry, error) {
	return m.ModuleCache, nil
}

func (m *Mock) ProcessCwd() string { return m.Cwd }

func (m *Mock) ClassTag(value introspect.Value) string {
	switch v := value.(type) {
	case *Array:
		if v.Arguments {
			return "[object Arguments]"
		}
		return "[object Array]"
	case *Function:
		return "[object Function]"
	default:
		return "[object Object]"
	}
}

func (m *Mock) Classify(value introspect.Value) introspect.ValueKind {
	switch v := value.(type) {
	case nil:
		return introspect.KindUndefined
	case undefinedMarker:
		return introspect.KindUndefined
	case nullMarker:
		return introspect.KindNull
	case bool:
		return introspect.KindBoolean
	case string:
		return introspect.KindString
	case float64:
		return introspect.KindNumber
	case BigInt:
		return introspect.KindBigInt
	case *Regexp:
		return introspect.KindRegexp
	case *Function:
		return introspect.KindCallable
	case *Promise:
		return introspect.KindPromise
	case *Output:
		return introspect.KindOutput
	case *Array:
		if v.Arguments {
			return introspect.KindArgumentsLike
		}
		return introspect.KindArray
	case *Object:
		return introspect.KindObject
	default:
		return introspect.KindObject
	}
}

func (m *Mock) IsDoNotCapture(value introspect.Value) bool {
	switch v := value.(type) {
	case *Function:
		return v.DoNotCapture
	case *Object:
		return v.DoNotCapture
	case *Array:
		return v.DoNotCapture
	default:
		return false
	}
}

func (m *Mock) IsDeploymentOnlyModule(value introspect.Value) bool {
	switch v := value.(type) {
	case *Function:
		return v.DeploymentOnly
	case *Object:
		return v.DeploymentOnly
	case *Array:
		return v.DeploymentOnly
	default:
		return false
	}
}

func (m *Mock) ResolvePromise(ctx context.Context, value introspect.Value) (introspect.Value, error) {
	p, ok := value.(*Promise)
	if !ok {
		return nil, fmt.Errorf("mockintrospect: %T is not a promise", value)
	}
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Value, nil
}

func (m *Mock) ResolveOutput(ctx context.Context, value introspect.Value) (introspect.Value, bool, error) {
	o, ok := value.(*Output)
	if !ok {
		return nil, false, fmt.Errorf("mockintrospect: %T is not an output handle", value)
	}
	return o.Inner, o.Secret, nil
}

func (m *Mock) BigIntText(value introspect.Value) string {
	b, _ := value.(BigInt)
	return string(b)
}

func (m *Mock) RegexpParts(value introspect.Value) (string, string) {
	r, ok := value.(*Regexp)
	if !ok {
		return "", ""
	}
	return r.Source, r.Flags
}
