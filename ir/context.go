package ir

// Frame is one breadcrumb on the Context's error-reporting stack (spec.md
// §3.6/§7): a function location, a captured-variable name, or a
// captured-module name, depending on which fields are set.
type Frame struct {
	FunctionName string
	File         string
	Line         int

	CapturedVariable string
	CapturedModule   string
	DeploymentOnly   bool
}

// IdentityFunc reports whether a and b are the same live value. Context
// uses it instead of Go's own `==`/map-key equality because live values
// from the host runtime are not guaranteed to be Go-comparable (spec.md
// §6.1 `identity`).
type IdentityFunc func(a, b interface{}) bool

// cacheSlot pairs a live value with the Entry assigned to it.
type cacheSlot struct {
	value interface{}
	entry *Entry
}

// memberMapping records, for a class member callable, the Entry of its
// base-class ancestor (spec.md §3.6 memberToBaseEntry).
type memberMapping struct {
	member interface{}
	base   *Entry
}

// Context is the mutable per-serialization state shared by the walker and
// emitter (spec.md §3.6). It is not safe for concurrent use and is
// discarded once emission completes.
type Context struct {
	identity IdentityFunc

	cache []cacheSlot

	Frames []Frame

	instanceMembers []memberMapping
	staticMembers   []memberMapping

	SimpleFunctions []*FunctionInfo

	ContainsSecrets bool
}

// NewContext creates a Context using identity for live-value comparison.
func NewContext(identity IdentityFunc) *Context {
	if identity == nil {
		identity = func(a, b interface{}) bool { return a == b }
	}
	return &Context{identity: identity}
}

// Lookup returns the Entry already cached for value, if any.
func (c *Context) Lookup(value interface{}) (*Entry, bool) {
	for _, slot := range c.cache {
		if c.identity(slot.value, value) {
			return slot.entry, true
		}
	}
	return nil, false
}

// Insert records value -> entry in the cache. Callers must insert a
// sentinel Entry before recursing into value's children, so that cycles
// terminate (spec.md §3.7).
func (c *Context) Insert(value interface{}, entry *Entry) {
	c.cache = append(c.cache, cacheSlot{value: value, entry: entry})
}

// PushFrame pushes a breadcrumb and returns a function that pops it; callers
// typically `defer ctx.PushFrame(f)()`.
func (c *Context) PushFrame(f Frame) func() {
	c.Frames = append(c.Frames, f)
	return func() {
		if len(c.Frames) > 0 {
			c.Frames = c.Frames[:len(c.Frames)-1]
		}
	}
}

// RecordMember maps a class member callable to its base-class ancestor
// Entry, for later super-rewrite emission (spec.md §4.4.2 step 6).
func (c *Context) RecordMember(static bool, member interface{}, base *Entry) {
	m := memberMapping{member: member, base: base}
	if static {
		c.staticMembers = append(c.staticMembers, m)
	} else {
		c.instanceMembers = append(c.instanceMembers, m)
	}
}

// BaseOf returns the base-class Entry recorded for member, if any, and
// whether it was recorded as a static (vs. instance) member.
func (c *Context) BaseOf(member interface{}) (base *Entry, static bool, ok bool) {
	for _, m := range c.instanceMembers {
		if c.identity(m.member, member) {
			return m.base, false, true
		}
	}
	for _, m := range c.staticMembers {
		if c.identity(m.member, member) {
			return m.base, true, true
		}
	}
	return nil, false, false
}

// FindSimpleFunction searches SimpleFunctions for a prior FunctionInfo with
// identical code and receiver-usage, per the dedup rule in §4.4.2 step 10.
func (c *Context) FindSimpleFunction(code string, usesNonLexicalReceiver bool) (*FunctionInfo, bool) {
	for _, fi := range c.SimpleFunctions {
		if fi.Code == code && fi.UsesNonLexicalReceiver == usesNonLexicalReceiver {
			return fi, true
		}
	}
	return nil, false
}
