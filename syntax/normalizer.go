// Package syntax implements the Syntax Normalizer (component A), the
// Free-Variable Analyzer (component B), and the Super-Reference Rewriter
// (component C) of the closure serializer — the source-text-facing stages
// that run before the graph walker. All three are driven by an
// introspect.SyntaxService, grounded on the teacher's tree-sitter-driven
// walk in analyzer/node.go and inspector/golang/inspector_tree_sitter.go.
package syntax

import (
	"fmt"
	"strings"

	"github.com/viant/closurecap/introspect"
)

// FunctionKind classifies the callable's declared shape, per spec.md
// component A's responsibility ("classify kind: arrow, method, generator,
// async, class constructor").
type FunctionKind int

const (
	KindFunction FunctionKind = iota
	KindArrow
	KindMethod
	KindGenerator
	KindAsync
	KindClassConstructor
)

// NormalizedForm is the tuple produced by the Syntax Normalizer (spec.md
// §4.1): {funcExprWithoutName, funcExprWithName?, declarationName?,
// isArrowFunction}.
type NormalizedForm struct {
	FuncExprWithoutName string
	FuncExprWithName    string
	DeclarationName     string
	IsArrowFunction     bool
	IsAsync             bool
	IsGenerator         bool
	Kind                FunctionKind
}

// ErrUnparseableForm is returned when a callable's source text cannot be
// normalized at all (spec.md §4.1 rules 1-2, and §7 "Unparseable function
// form").
type ErrUnparseableForm struct {
	Reason string
}

func (e *ErrUnparseableForm) Error() string {
	return "the function form was not understood: " + e.Reason
}

// nativeCodeMarker is the marker rule 2 looks for. We detect
// `[native code]` via a split literal so that grepping this file's own text
// for the bracketed marker cannot produce a false positive when this
// package is itself the target of serialization (spec.md §4.1 rule 2).
var nativeCodeMarker = "[native" + " code]"

// Normalizer implements the Syntax Normalizer (component A).
type Normalizer struct {
	syntax introspect.SyntaxService
}

// NewNormalizer returns a Normalizer driven by svc.
func NewNormalizer(svc introspect.SyntaxService) *Normalizer {
	return &Normalizer{syntax: svc}
}

// Normalize implements spec.md §4.1's 12 ordered rules.
func (n *Normalizer) Normalize(text string) (*NormalizedForm, error) {
	// Rule 1.
	if strings.HasPrefix(text, "[Function:") {
		return nil, &ErrUnparseableForm{Reason: "opaque function representation"}
	}
	// Rule 2.
	if strings.Contains(text, nativeCodeMarker) {
		return nil, &ErrUnparseableForm{Reason: "it was a native code function."}
	}

	// Rule 3: arrow function expression.
	if n.looksLikeArrow(text) {
		return &NormalizedForm{
			FuncExprWithoutName: text,
			FuncExprWithName:    text,
			IsArrowFunction:     true,
			Kind:                KindArrow,
		}, nil
	}

	// Rule 4: class with a constructor.
	if strings.HasPrefix(strings.TrimSpace(text), "class ") || strings.TrimSpace(text) == "class" || strings.HasPrefix(strings.TrimSpace(text), "class{") {
		return n.normalizeClass(text)
	}

	body := text
	isAsync := false
	isGenerator := false

	// Rule 5: strip leading "async ".
	if strings.HasPrefix(body, "async ") {
		isAsync = true
		body = strings.TrimPrefix(body, "async ")
	}

	// Rule 6: "function get "/"function set ".
	if strings.HasPrefix(body, "function get ") {
		body = "function " + strings.TrimPrefix(body, "function get ")
	} else if strings.HasPrefix(body, "function set ") {
		body = "function " + strings.TrimPrefix(body, "function set ")
	} else if strings.HasPrefix(body, "function* get ") {
		body = "function* " + strings.TrimPrefix(body, "function* get ")
	} else if strings.HasPrefix(body, "function* set ") {
		body = "function* " + strings.TrimPrefix(body, "function* set ")
	} else if strings.HasPrefix(body, "get ") {
		// Rule 7.
		body = strings.TrimPrefix(body, "get ")
	} else if strings.HasPrefix(body, "set ") {
		body = strings.TrimPrefix(body, "set ")
	}

	// Rule 10: generator marker — either a concise generator method
	// ("*gen(){...}") or a full generator function ("function* ...").
	if strings.HasPrefix(body, "*") || strings.HasPrefix(body, "function*") || strings.HasPrefix(body, "function *") {
		isGenerator = true
	}

	var declName string
	var withoutName, withName string
	var computed bool

	switch {
	case strings.HasPrefix(body, "function"):
		// Rule 8: already a function declaration/expression.
		withoutName, withName, declName, computed = n.splitFunctionHeader(body)
	default:
		// Rule 9: concise method -> prepend "function".
		prefixed := "function " + body
		withoutName, withName, declName, computed = n.splitFunctionHeader(prefixed)
	}

	// Rule 11: computed property name detection — synthesize __computed in
	// the named form while the unnamed form is preserved verbatim.
	if computed {
		declName = "__computed"
	}

	kind := KindFunction
	switch {
	case isGenerator:
		kind = KindGenerator
	case isAsync:
		kind = KindAsync
	case declName != "" && !strings.HasPrefix(strings.TrimSpace(text), "function") && !strings.HasPrefix(strings.TrimSpace(text), "async") && !strings.HasPrefix(strings.TrimSpace(text), "get ") && !strings.HasPrefix(strings.TrimSpace(text), "set "):
		kind = KindMethod
	}

	if isAsync {
		withoutName = "async " + withoutName
		withName = "async " + withName
	}

	return &NormalizedForm{
		FuncExprWithoutName: withoutName,
		FuncExprWithName:    withName,
		DeclarationName:     declName,
		IsArrowFunction:     false,
		IsAsync:             isAsync,
		IsGenerator:         isGenerator,
		Kind:                kind,
	}, nil
}

// looksLikeArrow asks the syntax service whether text parses as a standalone
// arrow function expression (spec.md §4.1 rule 3).
func (n *Normalizer) looksLikeArrow(text string) bool {
	tree, err := n.syntax.ParseExpression([]byte(text))
	if err != nil || tree == nil || !tree.OK() {
		return false
	}
	return containsNodeType(tree.RootNode(), "arrow_function", 4)
}

func containsNodeType(node introspect.Node, typ string, depth int) bool {
	if node == nil || depth < 0 {
		return false
	}
	if node.Type() == typ {
		return true
	}
	for i := 0; i < node.ChildCount(); i++ {
		if containsNodeType(node.Child(i), typ, depth-1) {
			return true
		}
	}
	return false
}

// splitFunctionHeader extracts the declaration name (if any legal
// identifier follows "function"/"function*") and produces both the named
// and unnamed forms (spec.md §4.1 rules 11-12).
func (n *Normalizer) splitFunctionHeader(body string) (withoutName, withName, declName string, computed bool) {
	prefix := "function"
	rest := strings.TrimLeft(strings.TrimPrefix(body, prefix), " ")
	if strings.HasPrefix(rest, "*") {
		rest = strings.TrimLeft(rest[1:], " ")
		prefix += "*"
	}

	if strings.HasPrefix(rest, "[") {
		// computed property name: function [expr](...) {...}
		withoutName = prefix + rest
		withName = withoutName
		depth := 0
		for i := 0; i < len(rest); i++ {
			if rest[i] == '[' {
				depth++
			} else if rest[i] == ']' {
				if depth--; depth == 0 {
					withName = prefix + " __computed" + rest[i+1:]
					break
				}
			}
		}
		return withoutName, withName, "", true
	}

	// Find the end of a candidate identifier: up to '(' or whitespace.
	parenIdx := strings.IndexByte(rest, '(')
	if parenIdx < 0 {
		// Malformed; treat whole remainder as body with no name.
		return fmt.Sprintf("%s(%s", prefix, rest), fmt.Sprintf("%s %s", prefix, rest), "", false
	}
	candidate := strings.TrimSpace(rest[:parenIdx])
	remainder := rest[parenIdx:]

	withoutName = prefix + remainder
	if candidate == "" {
		return withoutName, withoutName, "", false
	}
	if !isLegalIdentifier(candidate) || isReservedWord(candidate) {
		// include only as a comment in the named form.
		withName = prefix + " /* " + candidate + " */" + remainder
		return withoutName, withName, "", false
	}
	withName = prefix + " " + candidate + remainder
	return withoutName, withName, candidate, false
}

func isLegalIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
		isDigit := r >= '0' && r <= '9'
		if i == 0 {
			if !isAlpha {
				return false
			}
			continue
		}
		if !isAlpha && !isDigit {
			return false
		}
	}
	return true
}

var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "export": true, "extends": true, "finally": true,
	"for": true, "function": true, "if": true, "import": true, "in": true,
	"instanceof": true, "new": true, "return": true, "super": true,
	"switch": true, "this": true, "throw": true, "try": true, "typeof": true,
	"var": true, "void": true, "while": true, "with": true, "yield": true,
	"let": true, "static": true, "enum": true, "await": true, "implements": true,
	"package": true, "protected": true, "interface": true, "private": true,
	"public": true, "null": true, "true": true, "false": true,
}

func isReservedWord(s string) bool {
	return reservedWords[s]
}

// normalizeClass implements spec.md §4.1 rule 4: extract the constructor
// from a class body, synthesizing one if absent.
func (n *Normalizer) normalizeClass(text string) (*NormalizedForm, error) {
	tree, err := n.syntax.Parse([]byte(text))
	if err != nil {
		return nil, &ErrUnparseableForm{Reason: err.Error()}
	}
	if tree == nil || !tree.OK() {
		return nil, &ErrUnparseableForm{Reason: "unparseable class declaration"}
	}

	classNode := findFirstOfType(tree.RootNode(), "class_declaration")
	if classNode == nil {
		classNode = findFirstOfType(tree.RootNode(), "class")
	}
	if classNode == nil {
		return nil, &ErrUnparseableForm{Reason: "expected a class declaration"}
	}

	isDerived := classNode.ChildByFieldName("superclass") != nil
	for i := 0; !isDerived && i < classNode.NamedChildCount(); i++ {
		isDerived = classNode.NamedChild(i).Type() == "class_heritage"
	}

	body := classNode.ChildByFieldName("body")
	var ctorNode introspect.Node
	if body != nil {
		for i := 0; i < body.NamedChildCount(); i++ {
			member := body.NamedChild(i)
			if member.Type() != "method_definition" {
				continue
			}
			nameNode := member.ChildByFieldName("name")
			if nameNode != nil && nameNode.Text() == "constructor" {
				ctorNode = member
				break
			}
		}
	}

	// rest is "(params) { body }", taken verbatim from the explicit
	// constructor or synthesized per §4.1 rule 4.
	var rest string
	switch {
	case ctorNode != nil:
		rest = strings.TrimSpace(strings.TrimPrefix(ctorNode.Text(), "constructor"))
	case isDerived:
		rest = "() { super(); }"
	default:
		rest = "() { }"
	}

	return &NormalizedForm{
		FuncExprWithoutName: "function" + rest,
		FuncExprWithName:    "function constructor" + rest,
		DeclarationName:     "constructor",
		IsArrowFunction:     false,
		Kind:                KindClassConstructor,
	}, nil
}

func findFirstOfType(node introspect.Node, typ string) introspect.Node {
	if node == nil {
		return nil
	}
	if node.Type() == typ {
		return node
	}
	for i := 0; i < node.ChildCount(); i++ {
		if found := findFirstOfType(node.Child(i), typ); found != nil {
			return found
		}
	}
	return nil
}
