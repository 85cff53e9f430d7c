package syntax

import (
	"strings"

	"github.com/viant/closurecap/introspect"
	"github.com/viant/closurecap/ir"
)

// CaptureResult is the Free-Variable Analyzer's output (spec.md §4.2):
// required/optional maps from free-variable name to the chains observed
// for it, plus whether the function body uses the dynamic receiver.
// RequiredOrder/OptionalOrder list the names in first-occurrence source
// order; callers iterate those rather than the maps so that captured-value
// insertion order — and with it the emitted text — stays deterministic
// (spec.md §5 "Ordering guarantees").
type CaptureResult struct {
	Required      map[string]ir.ChainSet
	RequiredOrder []string

	Optional      map[string]ir.ChainSet
	OptionalOrder []string

	UsesNonLexicalReceiver bool
}

// ErrThisCaptured is returned when `this` shows up as a required capture of
// an arrow function — spec.md §4.2's error condition.
type ErrThisCaptured struct{}

func (e *ErrThisCaptured) Error() string {
	return "arrow function captured 'this'. Assign 'this' to another name outside function and capture that."
}

// synthesizedHelpers are compiler-generated free-variable names that must
// never be dropped by built-in filtering, even though they look like
// ambient globals (spec.md §4.2 "Built-in filtering").
var synthesizedHelpers = map[string]bool{"__awaiter": true, "__rest": true}

// runtimeOnlyPseudoGlobals are dropped unconditionally (spec.md §4.2).
var runtimeOnlyPseudoGlobals = map[string]bool{"__dirname": true, "__filename": true, "require": true}

// CaptureAnalyzer implements the Free-Variable Analyzer (component B).
type CaptureAnalyzer struct {
	syntax  introspect.SyntaxService
	globals map[string]bool
}

// NewCaptureAnalyzer returns a CaptureAnalyzer that treats globalNames as
// ambient (and therefore not captured).
func NewCaptureAnalyzer(svc introspect.SyntaxService, globalNames []string) *CaptureAnalyzer {
	g := make(map[string]bool, len(globalNames))
	for _, n := range globalNames {
		g[n] = true
	}
	return &CaptureAnalyzer{syntax: svc, globals: g}
}

type accum struct {
	captureAll bool
	chains     []ir.CapturedPropertyChain
}

type collector struct {
	required      map[string]*accum
	requiredOrder []string
	optional      map[string]*accum
	optionalOrder []string
}

func newCollector() *collector {
	return &collector{required: map[string]*accum{}, optional: map[string]*accum{}}
}

func (c *collector) record(isOptional bool, name string, steps []ir.ChainStep) {
	target := c.required
	if isOptional {
		target = c.optional
	}
	a, ok := target[name]
	if !ok {
		a = &accum{}
		target[name] = a
		if isOptional {
			c.optionalOrder = append(c.optionalOrder, name)
		} else {
			c.requiredOrder = append(c.requiredOrder, name)
		}
	}
	if len(steps) == 0 {
		a.captureAll = true
		return
	}
	if a.captureAll {
		return
	}
	a.chains = append(a.chains, ir.CapturedPropertyChain{Steps: steps})
}

func finalize(m map[string]*accum) map[string]ir.ChainSet {
	out := make(map[string]ir.ChainSet, len(m))
	for name, a := range m {
		if a.captureAll {
			out[name] = ir.ChainSet{}
			continue
		}
		out[name] = ir.ChainSet(a.chains)
	}
	return out
}

// compactOrder drops names that built-in filtering removed from m, keeping
// the remaining names in first-occurrence order.
func compactOrder(order []string, m map[string]ir.ChainSet) []string {
	out := order[:0]
	for _, name := range order {
		if _, ok := m[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Analyze implements spec.md §4.2.
func (ca *CaptureAnalyzer) Analyze(normalizedText string) (*CaptureResult, error) {
	tree, err := ca.syntax.ParseExpression([]byte(normalizedText))
	if err != nil {
		return nil, err
	}
	root := unwrapExpression(tree.RootNode())
	if root == nil {
		return nil, &ErrUnparseableForm{Reason: "empty function body"}
	}

	col := newCollector()
	top := newScope(scopeFunction, nil)
	ca.walkFunctionLike(root, top, col)

	required := finalize(col.required)
	optional := finalize(col.optional)

	ca.filterBuiltins(required)
	ca.filterBuiltins(optional)

	if _, ok := required["this"]; ok {
		return nil, &ErrThisCaptured{}
	}
	// A `typeof this` inside an arrow can land `this` in optional; it has no
	// scope-chain binding to look up and cannot be named in a with block.
	delete(optional, "this")

	receiver := computeReceiverFlag(root)

	return &CaptureResult{
		Required:               required,
		RequiredOrder:          compactOrder(col.requiredOrder, required),
		Optional:               optional,
		OptionalOrder:          compactOrder(col.optionalOrder, optional),
		UsesNonLexicalReceiver: receiver,
	}, nil
}

func (ca *CaptureAnalyzer) filterBuiltins(m map[string]ir.ChainSet) {
	for name := range m {
		if synthesizedHelpers[name] {
			continue
		}
		if ca.globals[name] || runtimeOnlyPseudoGlobals[name] {
			delete(m, name)
		}
	}
}

// unwrapExpression descends through the parenthesized-expression wrapper
// ParseExpression introduces (spec.md §4.2 "parse as an
// expression-in-parentheses") down to the actual function/arrow/class node.
func unwrapExpression(n introspect.Node) introspect.Node {
	for n != nil {
		switch n.Type() {
		case "program":
			n = firstNamedChild(n)
		case "expression_statement":
			n = firstNamedChild(n)
		case "parenthesized_expression":
			n = firstNamedChild(n)
		default:
			return n
		}
	}
	return nil
}

func firstNamedChild(n introspect.Node) introspect.Node {
	if n == nil || n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}

// --- main scope-aware walk -------------------------------------------------

// walkFunctionLike processes the top-level (or a nested) function/arrow/
// method/class-constructor node: binds its parameters and, for named
// function expressions, its own name, then walks its body.
func (ca *CaptureAnalyzer) walkFunctionLike(n introspect.Node, outer *scope, col *collector) {
	if n == nil {
		return
	}
	isArrow := n.Type() == "arrow_function"
	fnScope := newScope(scopeFunction, outer)
	if !isArrow {
		// `this` and `arguments` are bindings of every non-arrow function
		// (spec.md §4.2); arrows see the enclosing function's, via the
		// scope chain.
		fnScope.declareBlock("arguments")
		fnScope.declareBlock("this")
	}

	if name := n.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
		// Named function expression / declaration: visible for recursion.
		fnScope.declareBlock(name.Text())
	}

	if params := n.ChildByFieldName("parameters"); params != nil {
		ca.declareParameterList(params, fnScope, col)
	} else if isArrow {
		// Arrow with a single bare identifier parameter (no parens).
		for i := 0; i < n.ChildCount(); i++ {
			c := n.Child(i)
			if c != nil && c.Type() == "identifier" {
				fnScope.declareBlock(c.Text())
				break
			}
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	if body.Type() == "statement_block" {
		for i := 0; i < body.NamedChildCount(); i++ {
			ca.visit(body.NamedChild(i), fnScope, col)
		}
		return
	}
	// Arrow with a concise (expression) body.
	ca.visit(body, fnScope, col)
}

func (ca *CaptureAnalyzer) declareParameterList(params introspect.Node, sc *scope, col *collector) {
	for i := 0; i < params.NamedChildCount(); i++ {
		ca.declarePattern(params.NamedChild(i), sc, col, sc.declareBlock)
	}
}

// declarePattern binds every identifier introduced by a
// parameter/destructuring pattern via declareFn, visiting any default-value
// expressions (which execute in the surrounding scope, before the name they
// initialize is itself usable).
func (ca *CaptureAnalyzer) declarePattern(n introspect.Node, sc *scope, col *collector, declareFn func(string)) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier":
		declareFn(n.Text())
	case "assignment_pattern":
		left := n.ChildByFieldName("left")
		right := n.ChildByFieldName("right")
		if right != nil {
			ca.visit(right, sc, col)
		}
		ca.declarePattern(left, sc, col, declareFn)
	case "rest_pattern", "spread_element":
		if n.NamedChildCount() > 0 {
			ca.declarePattern(n.NamedChild(0), sc, col, declareFn)
		}
	case "object_pattern":
		for i := 0; i < n.NamedChildCount(); i++ {
			child := n.NamedChild(i)
			switch child.Type() {
			case "pair_pattern", "pair":
				value := child.ChildByFieldName("value")
				if value == nil {
					value = child.ChildByFieldName("name")
				}
				ca.declarePattern(value, sc, col, declareFn)
			case "shorthand_property_identifier_pattern", "shorthand_property_identifier":
				declareFn(child.Text())
			default:
				ca.declarePattern(child, sc, col, declareFn)
			}
		}
	case "array_pattern":
		for i := 0; i < n.NamedChildCount(); i++ {
			ca.declarePattern(n.NamedChild(i), sc, col, declareFn)
		}
	default:
		// Unknown pattern shape: be conservative and do nothing rather
		// than mis-binding a free variable as local.
	}
}

// visit walks a general expression/statement subtree, recording free
// variable occurrences into col.
func (ca *CaptureAnalyzer) visit(n introspect.Node, sc *scope, col *collector) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier":
		ca.recordIdentifier(n, sc, col, false)
		return

	case "this":
		ca.recordNamed(n, "this", sc, col, false)
		return
	case "super":
		// `super` is handled structurally by the Super-Reference Rewriter
		// (component C); it never contributes a free-variable capture.
		return

	case "member_expression", "subscript_expression":
		ca.visitAccess(n, sc, col, false, false)
		return

	case "call_expression":
		if body, ok := awaiterBody(n); ok {
			// Still walk the wrapped body for captures (the helper
			// wrapping does not change what is a free variable); the
			// `this`-transparency only matters for the receiver pass.
			ca.walkFunctionLike(body, sc, col)
			if fn := n.ChildByFieldName("function"); fn != nil {
				ca.visit(fn, sc, col)
			}
			if args := n.ChildByFieldName("arguments"); args != nil {
				for i := 0; i < args.NamedChildCount(); i++ {
					if i == args.NamedChildCount()-1 {
						continue // the function body was already walked above
					}
					ca.visit(args.NamedChild(i), sc, col)
				}
			}
			return
		}
		if fn := n.ChildByFieldName("function"); fn != nil {
			switch fn.Type() {
			case "identifier":
				ca.recordIdentifier(fn, sc, col, false)
			case "this":
				ca.recordNamed(fn, "this", sc, col, false)
			case "member_expression", "subscript_expression":
				ca.visitAccess(fn, sc, col, false, true)
			default:
				ca.visit(fn, sc, col)
			}
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			ca.visit(args, sc, col)
		}
		return

	case "new_expression":
		if ctor := n.ChildByFieldName("constructor"); ctor != nil {
			ca.visit(ctor, sc, col)
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			ca.visit(args, sc, col)
		}
		return

	case "unary_expression":
		operand := n.ChildByFieldName("argument")
		if isTypeofOperator(n) {
			ca.visitAsOptional(operand, sc, col)
			return
		}
		ca.visit(operand, sc, col)
		return

	case "variable_declaration", "lexical_declaration":
		hoisted := n.Type() == "variable_declaration"
		for i := 0; i < n.NamedChildCount(); i++ {
			decl := n.NamedChild(i)
			if decl.Type() != "variable_declarator" {
				continue
			}
			value := decl.ChildByFieldName("value")
			if value != nil {
				ca.visit(value, sc, col)
			}
			name := decl.ChildByFieldName("name")
			declareFn := sc.declareBlock
			if hoisted {
				declareFn = sc.declareHoisted
			}
			ca.declarePattern(name, sc, col, declareFn)
		}
		return

	case "function_declaration", "generator_function_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			sc.declareHoisted(name.Text())
		}
		ca.walkFunctionLike(n, sc, col)
		return

	case "function", "function_expression", "generator_function", "arrow_function":
		ca.walkFunctionLike(n, sc, col)
		return

	case "method_definition":
		keyNode := n.ChildByFieldName("name")
		if keyNode != nil && keyNode.Type() == "computed_property_name" && keyNode.NamedChildCount() > 0 {
			ca.visit(keyNode.NamedChild(0), sc, col)
		}
		ca.walkFunctionLike(n, sc, col)
		return

	case "class_declaration", "class":
		ca.visitClass(n, sc, col)
		return

	case "catch_clause":
		blockScope := newScope(scopeBlock, sc)
		if param := n.ChildByFieldName("parameter"); param != nil {
			ca.declarePattern(param, blockScope, col, blockScope.declareBlock)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			for i := 0; i < body.NamedChildCount(); i++ {
				ca.visit(body.NamedChild(i), blockScope, col)
			}
		}
		return

	case "statement_block":
		blockScope := newScope(scopeBlock, sc)
		for i := 0; i < n.NamedChildCount(); i++ {
			ca.visit(n.NamedChild(i), blockScope, col)
		}
		return

	case "for_statement":
		blockScope := newScope(scopeBlock, sc)
		if init := n.ChildByFieldName("initializer"); init != nil {
			ca.visit(init, blockScope, col)
		}
		if cond := n.ChildByFieldName("condition"); cond != nil {
			ca.visit(cond, blockScope, col)
		}
		if inc := n.ChildByFieldName("increment"); inc != nil {
			ca.visit(inc, blockScope, col)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			ca.visit(body, blockScope, col)
		}
		return

	case "for_in_statement":
		ca.visitForInOf(n, sc, col)
		return

	case "pair":
		// object literal `key: value`; key is not a reference unless
		// computed.
		key := n.ChildByFieldName("key")
		if key != nil && key.Type() == "computed_property_name" && key.NamedChildCount() > 0 {
			ca.visit(key.NamedChild(0), sc, col)
		}
		if value := n.ChildByFieldName("value"); value != nil {
			ca.visit(value, sc, col)
		}
		return

	case "shorthand_property_identifier":
		ca.recordIdentifier(n, sc, col, false)
		return

	case "property_identifier", "string", "number", "true", "false", "null", "undefined", "comment":
		return
	}

	// Generic structural fallback: visit named children left to right.
	for i := 0; i < n.NamedChildCount(); i++ {
		ca.visit(n.NamedChild(i), sc, col)
	}
}

func (ca *CaptureAnalyzer) visitAsOptional(n introspect.Node, sc *scope, col *collector) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier":
		ca.recordIdentifier(n, sc, col, true)
	case "this":
		ca.recordNamed(n, "this", sc, col, true)
	case "member_expression", "subscript_expression":
		ca.visitAccess(n, sc, col, true, false)
	default:
		ca.visit(n, sc, col)
	}
}

func (ca *CaptureAnalyzer) visitForInOf(n introspect.Node, sc *scope, col *collector) {
	blockScope := newScope(scopeBlock, sc)
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if right != nil {
		ca.visit(right, sc, col) // iterable evaluates in the outer scope
	}
	if left != nil {
		switch left.Type() {
		case "variable_declaration", "lexical_declaration":
			ca.visit(left, blockScope, col)
		default:
			ca.visit(left, blockScope, col)
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		ca.visit(body, blockScope, col)
	}
}

func (ca *CaptureAnalyzer) visitClass(n introspect.Node, sc *scope, col *collector) {
	if super := n.ChildByFieldName("superclass"); super != nil {
		ca.visit(super, sc, col)
	}
	if name := n.ChildByFieldName("name"); name != nil {
		sc.declareBlock(name.Text())
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < body.NamedChildCount(); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "method_definition":
			ca.visit(member, sc, col)
		case "public_field_definition", "field_definition":
			if value := member.ChildByFieldName("value"); value != nil {
				fieldScope := newScope(scopeFunction, sc)
				fieldScope.declareBlock("arguments")
				ca.visit(value, fieldScope, col)
			}
		}
	}
}

// visitAccess handles a (possibly multi-level) member/subscript access
// chain rooted at a free variable (or `this`): it records the whole
// observed chain — each `.x`/`["x"]` suffix in source order — against the
// root name, per spec.md §4.2's "walking up parent property-access/
// element-access/call nodes while the identifier (or each prior access) is
// the receiver". invoked marks the chain's final step as a call site
// (`a.b(...)`); only the final step may carry that flag. If the chain's
// root is not a plain identifier/this (a call result, a literal), the root
// expression is visited normally instead.
func (ca *CaptureAnalyzer) visitAccess(n introspect.Node, sc *scope, col *collector, isOptional bool, invoked bool) {
	root, steps, describable, indexes := accessChain(n)

	// Dynamic subscript index expressions evaluate in the current scope
	// regardless of whether the chain itself was statically describable.
	for _, idx := range indexes {
		ca.visit(idx, sc, col)
	}

	name, isThis, ok := rootIdentifier(root)
	if !ok {
		ca.visit(root, sc, col)
		return
	}
	if sc.isBound(name) {
		return
	}
	if !isThis && !describable {
		col.record(isOptional, name, nil) // dynamic step: capture the root whole
		return
	}
	if invoked && len(steps) > 0 {
		steps[len(steps)-1].Invoked = true
	}
	col.record(isOptional, name, steps)
}

// accessChain descends from the outermost access node to the chain's root,
// returning the root node, the chain steps in source order (innermost
// first), whether every step was statically describable, and any subscript
// index expressions encountered that are not string/number literals.
func accessChain(outer introspect.Node) (root introspect.Node, steps []ir.ChainStep, describable bool, indexes []introspect.Node) {
	describable = true
	var accesses []introspect.Node
	node := outer
	for node != nil {
		switch node.Type() {
		case "member_expression", "subscript_expression":
			accesses = append(accesses, node)
			node = node.ChildByFieldName("object")
		default:
			root = node
			node = nil
		}
	}
	for i := len(accesses) - 1; i >= 0; i-- {
		a := accesses[i]
		switch a.Type() {
		case "member_expression":
			prop := a.ChildByFieldName("property")
			if prop == nil {
				describable = false
				continue
			}
			steps = append(steps, ir.ChainStep{Name: prop.Text()})
		case "subscript_expression":
			idx := a.ChildByFieldName("index")
			if idx != nil && (idx.Type() == "string" || idx.Type() == "number") {
				steps = append(steps, ir.ChainStep{Name: strings.Trim(idx.Text(), `"'`)})
				continue
			}
			describable = false
			if idx != nil {
				indexes = append(indexes, idx)
			}
		}
	}
	return root, steps, describable, indexes
}

func (ca *CaptureAnalyzer) recordIdentifier(n introspect.Node, sc *scope, col *collector, isOptional bool) {
	name := n.Text()
	if sc.isBound(name) {
		return
	}
	col.record(isOptional, name, nil)
}

func (ca *CaptureAnalyzer) recordNamed(n introspect.Node, name string, sc *scope, col *collector, isOptional bool) {
	if sc.isBound(name) {
		return
	}
	col.record(isOptional, name, nil)
}

// rootIdentifier returns the name at the root of a (possibly multi-level)
// member/subscript chain, i.e. the innermost `object`.
func rootIdentifier(n introspect.Node) (name string, isThis bool, ok bool) {
	if n == nil {
		return "", false, false
	}
	switch n.Type() {
	case "identifier":
		return n.Text(), false, true
	case "this":
		return "this", true, true
	default:
		return "", false, false
	}
}

func isTypeofOperator(n introspect.Node) bool {
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c != nil && !c.IsNamed() && c.Text() == "typeof" {
			return true
		}
	}
	return false
}

// awaiterBody detects the canonical TypeScript/Babel await-helper call
// shape: __awaiter(this, arguments?, void 0, function*(){...}) and returns
// its last (generator function) argument (spec.md §4.2).
func awaiterBody(n introspect.Node) (introspect.Node, bool) {
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" || fn.Text() != "__awaiter" {
		return nil, false
	}
	args := n.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() != 4 {
		return nil, false
	}
	first := args.NamedChild(0)
	if first == nil || first.Type() != "this" {
		return nil, false
	}
	last := args.NamedChild(3)
	if last == nil {
		return nil, false
	}
	switch last.Type() {
	case "function", "function_expression", "generator_function", "arrow_function":
		return last, true
	default:
		return nil, false
	}
}

// computeReceiverFlag reports whether root's own body (not a nested
// non-arrow function/method/class/generator's body) references `this` or
// `super`. Arrow functions and the synthesized __awaiter generator body are
// transparent to `this` and are descended into; other function boundaries
// are opaque.
func computeReceiverFlag(root introspect.Node) bool {
	if root == nil {
		return false
	}
	if root.Type() != "arrow_function" {
		return scanForReceiver(root.ChildByFieldName("body"), true)
	}
	return false
}

func scanForReceiver(n introspect.Node, transparent bool) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "this", "super":
		return transparent
	case "arrow_function":
		return scanForReceiver(n.ChildByFieldName("body"), transparent)
	case "function", "function_expression", "function_declaration", "generator_function", "generator_function_declaration", "method_definition", "class", "class_declaration":
		return false // opaque: this/super inside belongs to that nested scope
	case "call_expression":
		if body, ok := awaiterBody(n); ok {
			// The helper's canonical `this` first argument is not a receiver
			// use of its own; only the generator body — descended into as if
			// it were an arrow — can contribute one.
			return scanForReceiver(body.ChildByFieldName("body"), transparent)
		}
	}
	for i := 0; i < n.ChildCount(); i++ {
		if scanForReceiver(n.Child(i), transparent) {
			return true
		}
	}
	return false
}
