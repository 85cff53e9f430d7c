package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   *Entry
		wantErr bool
	}{
		{"json null is valid", (&Entry{}).SetJSON(nil), false},
		{"expr requires text", &Entry{Tag: TagExpr}, true},
		{"expr ok", (&Entry{}).SetExpr("-0"), false},
		{"function requires payload", &Entry{Tag: TagFunction}, true},
		{"function ok", (&Entry{}).SetFunction(NewFunctionInfo("function(){}", 0)), false},
		{"no tag", &Entry{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOrderedMapPreservesInsertionOrder(t *testing.T) {
	m := NewOrderedMap()
	m.Set(NameKey("c"), DefaultDataProperty(), (&Entry{}).SetJSON(3))
	m.Set(NameKey("a"), DefaultDataProperty(), (&Entry{}).SetJSON(1))
	m.Set(NameKey("b"), DefaultDataProperty(), (&Entry{}).SetJSON(2))
	// re-setting an existing key must not move it
	m.Set(NameKey("c"), DefaultDataProperty(), (&Entry{}).SetJSON(33))

	var order []string
	for _, s := range m.Slots() {
		order = append(order, s.Key.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, order)

	slot, ok := m.Get(NameKey("c"))
	require.True(t, ok)
	assert.Equal(t, 33, slot.Value.JSON)
}

func TestOrderedMapDelete(t *testing.T) {
	m := NewOrderedMap()
	m.Set(NameKey("a"), nil, nil)
	m.Set(NameKey("b"), nil, nil)
	m.Set(NameKey("c"), nil, nil)
	assert.True(t, m.Delete(NameKey("b")))
	assert.False(t, m.Has(NameKey("b")))
	var order []string
	for _, s := range m.Slots() {
		order = append(order, s.Key.Name)
	}
	assert.Equal(t, []string{"a", "c"}, order)
}

func TestContextCacheUsesIdentityFunc(t *testing.T) {
	type box struct{ v int }
	a := &box{1}
	b := &box{1}
	ctx := NewContext(func(x, y interface{}) bool {
		xb, xok := x.(*box)
		yb, yok := y.(*box)
		return xok && yok && xb == yb
	})

	sentinel := NewSentinel()
	ctx.Insert(a, sentinel)

	got, ok := ctx.Lookup(a)
	require.True(t, ok)
	assert.Same(t, sentinel, got)

	_, ok = ctx.Lookup(b)
	assert.False(t, ok)
}

func TestChainSetByFirstStep(t *testing.T) {
	chains := ChainSet{
		{Steps: []ChainStep{{Name: "a"}, {Name: "b"}}},
		{Steps: []ChainStep{{Name: "a"}, {Name: "c", Invoked: true}}},
		{Steps: []ChainStep{{Name: "d", Invoked: true}}},
	}
	grouped := chains.ByFirstStep()
	require.Len(t, grouped["a"], 2)
	require.Len(t, grouped["d"], 1)
	assert.True(t, grouped["d"][0].LastInvoked() == false) // tail of {d} is empty -> capture-all for d
}

func TestFunctionInfoIsSimple(t *testing.T) {
	fi := NewFunctionInfo("function(){ return 1; }", 0)
	assert.True(t, fi.IsSimple())
	fi.CapturedValues.Set(NameKey("k"), DefaultDataProperty(), (&Entry{}).SetJSON(1))
	assert.False(t, fi.IsSimple())
}
