package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/closurecap/syntax/tsservice"
)

func newTestAnalyzer(globals ...string) *CaptureAnalyzer {
	return NewCaptureAnalyzer(tsservice.New(), globals)
}

func TestAnalyze_FreeVariableCapturedWhole(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function(){ return k; }")
	require.NoError(t, err)

	chains, ok := result.Required["k"]
	require.True(t, ok)
	assert.True(t, chains.CaptureAll())
	assert.Equal(t, []string{"k"}, result.RequiredOrder)
	assert.False(t, result.UsesNonLexicalReceiver)
}

func TestAnalyze_LocalBindingsAreNotCaptured(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function(a){ var b = 1; let c = 2; return a + b + c + d; }")
	require.NoError(t, err)

	assert.NotContains(t, result.Required, "a")
	assert.NotContains(t, result.Required, "b")
	assert.NotContains(t, result.Required, "c")
	assert.Contains(t, result.Required, "d")
}

func TestAnalyze_MultiStepPropertyChain(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function(){ return obj.a.b; }")
	require.NoError(t, err)

	chains, ok := result.Required["obj"]
	require.True(t, ok)
	require.Len(t, chains, 1)
	require.Len(t, chains[0].Steps, 2)
	assert.Equal(t, "a", chains[0].Steps[0].Name)
	assert.Equal(t, "b", chains[0].Steps[1].Name)
	assert.False(t, chains[0].LastInvoked())
}

func TestAnalyze_InvokedFinalStep(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function(){ return obj.d(); }")
	require.NoError(t, err)

	chains := result.Required["obj"]
	require.Len(t, chains, 1)
	require.Len(t, chains[0].Steps, 1)
	assert.Equal(t, "d", chains[0].Steps[0].Name)
	assert.True(t, chains[0].LastInvoked())
}

func TestAnalyze_CallResultEndsChain(t *testing.T) {
	// obj.a().b accesses a property of the call result, not of obj.a, so
	// the recorded chain stops at the invoked step.
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function(){ return obj.a().b; }")
	require.NoError(t, err)

	chains := result.Required["obj"]
	require.Len(t, chains, 1)
	require.Len(t, chains[0].Steps, 1)
	assert.Equal(t, "a", chains[0].Steps[0].Name)
	assert.True(t, chains[0].LastInvoked())
}

func TestAnalyze_DynamicSubscriptCapturesWhole(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function(){ return obj[key]; }")
	require.NoError(t, err)

	chains, ok := result.Required["obj"]
	require.True(t, ok)
	assert.True(t, chains.CaptureAll())
	assert.Contains(t, result.Required, "key")
}

func TestAnalyze_StringSubscriptIsChainStep(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function(){ return obj['a']; }")
	require.NoError(t, err)

	chains := result.Required["obj"]
	require.Len(t, chains, 1)
	require.Len(t, chains[0].Steps, 1)
	assert.Equal(t, "a", chains[0].Steps[0].Name)
}

func TestAnalyze_EscapingUseCapturesWhole(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function(){ g(obj); return obj.a; }")
	require.NoError(t, err)

	chains, ok := result.Required["obj"]
	require.True(t, ok)
	assert.True(t, chains.CaptureAll(), "passing obj whole to a function wins over the .a chain")
}

func TestAnalyze_TypeofRecordsOptional(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function(){ return typeof maybe; }")
	require.NoError(t, err)

	assert.NotContains(t, result.Required, "maybe")
	assert.Contains(t, result.Optional, "maybe")
	assert.Equal(t, []string{"maybe"}, result.OptionalOrder)
}

func TestAnalyze_GlobalsAreFiltered(t *testing.T) {
	ca := newTestAnalyzer("console", "Math")
	result, err := ca.Analyze("function(){ console.log(Math.max(a, __dirname)); }")
	require.NoError(t, err)

	assert.NotContains(t, result.Required, "console")
	assert.NotContains(t, result.Required, "Math")
	assert.NotContains(t, result.Required, "__dirname")
	assert.Contains(t, result.Required, "a")
}

func TestAnalyze_SynthesizedHelpersSurviveFiltering(t *testing.T) {
	ca := newTestAnalyzer("__awaiter", "__rest")
	result, err := ca.Analyze("function(){ return __rest(v, []); }")
	require.NoError(t, err)
	assert.Contains(t, result.Required, "__rest")
}

func TestAnalyze_ThisBoundInsideNonArrow(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function(){ return this.c; }")
	require.NoError(t, err)

	assert.NotContains(t, result.Required, "this")
	assert.True(t, result.UsesNonLexicalReceiver)
}

func TestAnalyze_ArrowCapturingThisFails(t *testing.T) {
	ca := newTestAnalyzer()
	_, err := ca.Analyze("() => this.x")
	require.Error(t, err)
	var thisErr *ErrThisCaptured
	assert.ErrorAs(t, err, &thisErr)
}

func TestAnalyze_NestedFunctionShadowsReceiver(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function(){ return function(){ return this.x; }; }")
	require.NoError(t, err)
	assert.False(t, result.UsesNonLexicalReceiver, "this inside a nested non-arrow belongs to that function")
}

func TestAnalyze_ArrowIsTransparentToReceiver(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function(){ return () => this.x; }")
	require.NoError(t, err)
	assert.True(t, result.UsesNonLexicalReceiver)
}

func TestAnalyze_NamedFunctionExpressionNameIsBound(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function fact(n){ return n <= 1 ? 1 : n * fact(n - 1); }")
	require.NoError(t, err)
	assert.NotContains(t, result.Required, "fact")
}

func TestAnalyze_CalledFreeIdentifierIsRequired(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function(){ return helper(1); }")
	require.NoError(t, err)
	assert.Contains(t, result.Required, "helper")
	assert.NotContains(t, result.Optional, "helper")
}

func TestAnalyze_CatchParameterIsBlockScoped(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function(){ try { risky(); } catch (e) { return e; } return e2; }")
	require.NoError(t, err)
	assert.NotContains(t, result.Required, "e")
	assert.Contains(t, result.Required, "e2")
}

func TestAnalyze_DestructuredParametersAreBound(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function({a, b: c}, [d]){ return a + c + d + e; }")
	require.NoError(t, err)
	assert.NotContains(t, result.Required, "a")
	assert.NotContains(t, result.Required, "c")
	assert.NotContains(t, result.Required, "d")
	assert.Contains(t, result.Required, "e")
}

func TestAnalyze_CaptureOrderFollowsSource(t *testing.T) {
	ca := newTestAnalyzer()
	result, err := ca.Analyze("function(){ return z + a + m; }")
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, result.RequiredOrder)
}

func TestAnalyze_AwaiterBodyIsReceiverTransparent(t *testing.T) {
	ca := newTestAnalyzer("__awaiter")
	result, err := ca.Analyze("function(){ return __awaiter(this, void 0, void 0, function*() { return this.x + k; }); }")
	require.NoError(t, err)
	assert.Contains(t, result.Required, "k")
	assert.True(t, result.UsesNonLexicalReceiver, "this inside the awaiter generator body counts as the outer function's receiver")
}

func TestAnalyze_AwaiterCallAloneIsNotReceiverUse(t *testing.T) {
	ca := newTestAnalyzer("__awaiter")
	result, err := ca.Analyze("function(){ return __awaiter(this, void 0, void 0, function*() { return k; }); }")
	require.NoError(t, err)
	assert.False(t, result.UsesNonLexicalReceiver, "the helper's canonical `this` argument is not itself a receiver use")
}
