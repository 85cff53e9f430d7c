package ir

// ChainStep is one `.name` / `[name]` suffix observed on a captured
// variable or a nested property (spec.md §3.5). Only the final step of a
// chain may have Invoked true.
type ChainStep struct {
	Name    string
	Invoked bool
}

// CapturedPropertyChain is one observed access path rooted at a free
// variable. An empty chain ([]ChainStep(nil)) is not the same as "no
// chains recorded for this name" — see Chains below, where an empty *list*
// of chains means "capture everything," matching spec.md §3.5.
type CapturedPropertyChain struct {
	Steps []ChainStep
}

// LastInvoked reports whether the chain's final step was a call-site access
// (e.g. `obj.a.b()`), which matters for the receiver-escape rule (§4.4.3).
func (c CapturedPropertyChain) LastInvoked() bool {
	if len(c.Steps) == 0 {
		return false
	}
	return c.Steps[len(c.Steps)-1].Invoked
}

// FirstName returns the first step's name and whether the chain is
// non-empty.
func (c CapturedPropertyChain) FirstName() (string, bool) {
	if len(c.Steps) == 0 {
		return "", false
	}
	return c.Steps[0].Name, true
}

// Tail returns the chain with its first step removed, for recursing into a
// nested property during subset-capture (§4.4.4).
func (c CapturedPropertyChain) Tail() CapturedPropertyChain {
	if len(c.Steps) == 0 {
		return c
	}
	return CapturedPropertyChain{Steps: c.Steps[1:]}
}

// ChainSet is the per-name chain list used by both the analyzer's output
// and the walker's subset-capture hints. A nil or empty ChainSet means
// "capture everything"; a non-empty ChainSet with zero-length chains inside
// it is a different thing entirely and never constructed by the analyzer.
type ChainSet []CapturedPropertyChain

// CaptureAll reports whether this set signals full materialization.
func (c ChainSet) CaptureAll() bool {
	return len(c) == 0
}

// ByFirstStep groups the tails of every chain in c by their first step
// name, for the subset-capture loop in §4.4.4. Chains that are themselves
// empty (capture-all markers mixed into a non-empty set, which the analyzer
// never produces but which defensive callers may pass) are skipped.
func (c ChainSet) ByFirstStep() map[string]ChainSet {
	out := make(map[string]ChainSet)
	for _, chain := range c {
		name, ok := chain.FirstName()
		if !ok {
			continue
		}
		out[name] = append(out[name], chain.Tail())
	}
	return out
}
