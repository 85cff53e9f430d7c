package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDump_TerminatesOnCycle(t *testing.T) {
	oi := NewObjectInfo()
	entry := (&Entry{}).SetObject(oi)
	oi.Env.Set(NameKey("me"), DefaultDataProperty(), entry)

	out, err := Dump(entry)
	require.NoError(t, err)
	assert.Contains(t, out, "ref#0", "the cyclic edge is rendered as a back-reference")
}

func TestDump_PreservesSlotOrder(t *testing.T) {
	fi := NewFunctionInfo("function(){ return z + a; }", 0)
	fi.CapturedValues.Set(NameKey("z"), DefaultDataProperty(), (&Entry{}).SetJSON(float64(1)))
	fi.CapturedValues.Set(NameKey("a"), DefaultDataProperty(), (&Entry{}).SetJSON(float64(2)))
	entry := (&Entry{}).SetFunction(fi)

	out, err := Dump(entry)
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "z:"), strings.Index(out, "a:"))
}
