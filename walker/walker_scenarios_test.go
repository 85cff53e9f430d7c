package walker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/closurecap/emit"
	"github.com/viant/closurecap/ir"
	"github.com/viant/closurecap/mockintrospect"
	"github.com/viant/closurecap/syntax/tsservice"
)

func newTestWalker(in *mockintrospect.Mock) *Walker {
	return New(Config{
		Introspector:  in,
		SyntaxService: tsservice.New(),
	})
}

// Scenario 1: recursive named function (spec.md §8.2 scenario 1).
func TestScenario_RecursiveNamedFunction(t *testing.T) {
	in := mockintrospect.New()
	fn := &mockintrospect.Function{
		Name:       "fact",
		Source:     "function fact(n){ return n<=1 ? 1 : n*fact(n-1); }",
		ParamCount: 1,
	}
	fn.Scope = mockintrospect.NewScope(nil).Set("fact", fn)

	w := newTestWalker(in)
	entry, err := w.Serialize(context.Background(), fn)
	require.NoError(t, err)
	require.Equal(t, ir.TagFunction, entry.Tag)

	fi := entry.Function
	assert.Equal(t, "fact", fi.Name)
	slot, ok := fi.CapturedValues.Get(ir.NameKey("fact"))
	require.True(t, ok, "self-capture of the recursive name must be present")
	assert.Same(t, entry, slot.Value)

	out, err := emit.New().Emit(entry, "value", false)
	require.NoError(t, err)
	assert.Contains(t, out, "fact")
}

// Scenario 2: captured local (spec.md §8.2 scenario 2).
func TestScenario_CapturedLocal(t *testing.T) {
	in := mockintrospect.New()
	scope := mockintrospect.NewScope(nil).Set("k", float64(42))
	fn := &mockintrospect.Function{
		Source:     "function(){ return k; }",
		ParamCount: 0,
		Scope:      scope,
	}

	w := newTestWalker(in)
	entry, err := w.Serialize(context.Background(), fn)
	require.NoError(t, err)

	slot, ok := entry.Function.CapturedValues.Get(ir.NameKey("k"))
	require.True(t, ok)
	require.Equal(t, ir.TagJSON, slot.Value.Tag)
	assert.Equal(t, float64(42), slot.Value.JSON)
}

// Scenario 3: subset property chain (spec.md §8.2 scenario 3).
func TestScenario_SubsetPropertyChain(t *testing.T) {
	in := mockintrospect.New()

	a := mockintrospect.NewObject()
	a.Props.Data("b", float64(1))

	d := &mockintrospect.Function{Source: "function() { return this.c; }", ParamCount: 0}

	obj := mockintrospect.NewObject()
	obj.Props.Data("a", a)
	obj.Props.Data("c", float64(2))
	obj.Props.Data("d", d)

	scope := mockintrospect.NewScope(nil).Set("obj", obj)
	fn := &mockintrospect.Function{Source: "function(){ return obj.a.b; }", ParamCount: 0, Scope: scope}

	w := newTestWalker(in)
	entry, err := w.Serialize(context.Background(), fn)
	require.NoError(t, err)

	slot, ok := entry.Function.CapturedValues.Get(ir.NameKey("obj"))
	require.True(t, ok)
	require.Equal(t, ir.TagObject, slot.Value.Tag)
	assert.True(t, slot.Value.Object.Partial, "subset capture leaves the object Entry partial")

	_, hasC := slot.Value.Object.Env.Get(ir.NameKey("c"))
	_, hasD := slot.Value.Object.Env.Get(ir.NameKey("d"))
	assert.False(t, hasC, "c was never reached by any chain")
	assert.False(t, hasD, "d was never reached by any chain")

	aSlot, hasA := slot.Value.Object.Env.Get(ir.NameKey("a"))
	require.True(t, hasA)
	bSlot, hasB := aSlot.Value.Object.Env.Get(ir.NameKey("b"))
	require.True(t, hasB)
	assert.Equal(t, float64(1), bSlot.Value.JSON)
}

// Scenario 4: non-lexical receiver escape (spec.md §8.2 scenario 4).
func TestScenario_NonLexicalReceiverEscape(t *testing.T) {
	in := mockintrospect.New()

	a := mockintrospect.NewObject()
	a.Props.Data("b", float64(1))

	d := &mockintrospect.Function{Source: "function() { return this.c; }", ParamCount: 0}

	obj := mockintrospect.NewObject()
	obj.Props.Data("a", a)
	obj.Props.Data("c", float64(2))
	obj.Props.Data("d", d)

	scope := mockintrospect.NewScope(nil).Set("obj", obj)
	fn := &mockintrospect.Function{Source: "function(){ return obj.d(); }", ParamCount: 0, Scope: scope}

	w := newTestWalker(in)
	entry, err := w.Serialize(context.Background(), fn)
	require.NoError(t, err)

	slot, ok := entry.Function.CapturedValues.Get(ir.NameKey("obj"))
	require.True(t, ok)
	assert.False(t, slot.Value.Object.Partial, "invoking a receiver-using property forces full materialization")

	_, hasC := slot.Value.Object.Env.Get(ir.NameKey("c"))
	_, hasD := slot.Value.Object.Env.Get(ir.NameKey("d"))
	assert.True(t, hasC)
	assert.True(t, hasD)
}

// Scenario 5: derived class (spec.md §8.2 scenario 5).
func TestScenario_DerivedClass(t *testing.T) {
	in := mockintrospect.New()

	baseProto := mockintrospect.NewObject()
	foo := &mockintrospect.Function{Source: "foo(){ return 1; }", ParamCount: 0}
	baseProto.Props.Data("foo", foo)

	baseCtor := &mockintrospect.Function{
		Name:   "A",
		Source: "class A { foo(){ return 1; } }",
		Props:  mockintrospect.NewProps().Data("prototype", baseProto),
	}

	derivedFoo := &mockintrospect.Function{Source: "foo(){ return super.foo() + 1; }", ParamCount: 0}
	derivedProto := mockintrospect.NewObject()
	derivedProto.Proto = baseProto
	derivedProto.Props.Data("foo", derivedFoo)

	derivedCtor := &mockintrospect.Function{
		Name:   "B",
		Source: "class B extends A { foo(){ return super.foo() + 1; } }",
		Proto:  baseCtor,
		Props:  mockintrospect.NewProps().Data("prototype", derivedProto),
	}

	scope := mockintrospect.NewScope(nil).Set("B", derivedCtor)
	target := &mockintrospect.Function{Source: "() => new B().foo()", ParamCount: 0, Scope: scope}

	w := newTestWalker(in)
	entry, err := w.Serialize(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, ir.TagFunction, entry.Tag)

	bSlot, ok := entry.Function.CapturedValues.Get(ir.NameKey("B"))
	require.True(t, ok)
	require.Equal(t, ir.TagFunction, bSlot.Value.Tag)
	require.NotNil(t, bSlot.Value.Function.Proto, "derived class constructor emits a proto field")

	out, err := emit.New().Emit(entry, "value", false)
	require.NoError(t, err)
	assert.Contains(t, out, "__super")
}

// Scenario 6: sparse array (spec.md §8.2 scenario 6).
func TestScenario_SparseArray(t *testing.T) {
	in := mockintrospect.New()

	arr := &mockintrospect.Array{
		Elements: map[int]interface{}{0: "x", 5: "y"},
		Length:   6,
	}
	scope := mockintrospect.NewScope(nil).Set("a", arr)
	fn := &mockintrospect.Function{Source: "() => a", ParamCount: 0, Scope: scope}

	w := newTestWalker(in)
	entry, err := w.Serialize(context.Background(), fn)
	require.NoError(t, err)

	slot, ok := entry.Function.CapturedValues.Get(ir.NameKey("a"))
	require.True(t, ok)
	require.Equal(t, ir.TagArray, slot.Value.Tag)
	assert.Len(t, slot.Value.Array, 2)

	out, err := emit.New().Emit(entry, "value", false)
	require.NoError(t, err)
	assert.Contains(t, out, "arr[5] = 'y';")
}
