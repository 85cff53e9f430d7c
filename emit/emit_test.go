package emit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/closurecap/ir"
)

func simpleFunctionEntry(code string) *ir.Entry {
	fi := ir.NewFunctionInfo(code, 0)
	return (&ir.Entry{}).SetFunction(fi)
}

func TestEmit_SimpleFunctionNoFactory(t *testing.T) {
	root := simpleFunctionEntry("function() { return 1; }")

	e := New()
	out, err := e.Emit(root, "value", false)
	require.NoError(t, err)
	assert.Contains(t, out, "exports.value = ")
	assert.Contains(t, out, "function() { return 1; }")
}

func TestEmit_RejectsNonFunctionRoot(t *testing.T) {
	root := (&ir.Entry{}).SetJSON("not a function")
	e := New()
	_, err := e.Emit(root, "value", false)
	assert.Error(t, err)
}

func TestEmitArray_TrivialLiteral(t *testing.T) {
	entry := (&ir.Entry{}).SetArray([]ir.ArrayElement{
		{Index: 0, Value: (&ir.Entry{}).SetJSON(float64(1))},
		{Index: 1, Value: (&ir.Entry{}).SetJSON(float64(2))},
	})
	e := New()
	got, err := e.emitEntry(entry)
	require.NoError(t, err)
	assert.Equal(t, "[1, 2]", got)
}

func TestEmitArray_SparseGetsTopLevelBinding(t *testing.T) {
	entry := (&ir.Entry{}).SetArray([]ir.ArrayElement{
		{Index: 0, Value: (&ir.Entry{}).SetJSON(float64(1))},
		{Index: 5, Value: (&ir.Entry{}).SetJSON(float64(2))},
	})
	e := New()
	got, err := e.emitEntry(entry)
	require.NoError(t, err)
	assert.Equal(t, "__arr", got)
	assert.Contains(t, e.environment.String(), "var __arr = [];")
	assert.Contains(t, e.environment.String(), "__arr[5] = 2;")
}

func TestEmitObject_NonComplexLiteral(t *testing.T) {
	oi := ir.NewObjectInfo()
	oi.Env.Set(ir.NameKey("a"), ir.DefaultDataProperty(), (&ir.Entry{}).SetJSON(float64(1)))
	entry := (&ir.Entry{}).SetObject(oi)

	e := New()
	got, err := e.emitEntry(entry)
	require.NoError(t, err)
	assert.Equal(t, "{a: 1}", got)
}

func TestEmitObject_ComplexWithProtoUsesCreateAndAssignments(t *testing.T) {
	protoOi := ir.NewObjectInfo()
	protoEntry := (&ir.Entry{}).SetObject(protoOi)

	oi := ir.NewObjectInfo()
	oi.Proto = protoEntry
	oi.Env.Set(ir.NameKey("a"), ir.DefaultDataProperty(), (&ir.Entry{}).SetJSON(float64(1)))
	entry := (&ir.Entry{}).SetObject(oi)

	e := New()
	got, err := e.emitEntry(entry)
	require.NoError(t, err)
	assert.Equal(t, "__obj", got)
	assert.Contains(t, e.environment.String(), "Object.create(")
	assert.Contains(t, e.environment.String(), "__obj.a = 1;")
}

func TestEmitObject_IdentityPreservedAcrossMultipleReferences(t *testing.T) {
	oi := ir.NewObjectInfo()
	oi.Env.Set(ir.NameKey("a"), ir.DefaultDataProperty(), (&ir.Entry{}).SetJSON(float64(1)))
	shared := (&ir.Entry{}).SetObject(oi)

	outerOi := ir.NewObjectInfo()
	outerOi.Env.Set(ir.NameKey("x"), ir.DefaultDataProperty(), shared)
	outerOi.Env.Set(ir.NameKey("y"), ir.DefaultDataProperty(), shared)
	outer := (&ir.Entry{}).SetObject(outerOi)

	e := New()
	e.countRefs(outer)
	got, err := e.emitEntry(outer)
	require.NoError(t, err)

	xName, err := e.emitEntry(shared)
	require.NoError(t, err)
	assert.Equal(t, xName, e.namedEntries[shared])

	env := e.environment.String()
	assert.Contains(t, env, got+".x = "+xName+";")
	assert.Contains(t, env, got+".y = "+xName+";")
}

func TestJSStringLiteral_EscapesControlCharacters(t *testing.T) {
	got := jsStringLiteral("a'b\\c\nd")
	assert.Equal(t, `'a\'b\\c\nd'`, got)
}

func TestNumberLiteral_SpecialForms(t *testing.T) {
	json, err := jsonLiteral(float64(3))
	require.NoError(t, err)
	assert.Equal(t, "3", json)
	assert.Equal(t, "NaN", numberLiteral(math.NaN()))
	assert.Equal(t, "Infinity", numberLiteral(math.Inf(1)))
	assert.Equal(t, "-Infinity", numberLiteral(math.Inf(-1)))
	assert.Equal(t, "-0", numberLiteral(math.Copysign(0, -1)))
}

func TestLegalizeName_PrefixesReservedWords(t *testing.T) {
	assert.Equal(t, "_class", legalizeName("class"))
	assert.Equal(t, "_1abc", legalizeName("1abc"))
	assert.True(t, isLegalIdentifier("greet"))
	assert.False(t, isLegalIdentifier("class"))
	assert.False(t, isLegalIdentifier("1abc"))
}
