package syntax

import (
	"strings"

	"github.com/viant/closurecap/introspect"
)

// SuperRewriter implements the Super-Reference Rewriter (component C):
// rewrites super(...), super.x, and super[expr] into explicit references to
// the synthesized __super binding (spec.md §4.3), driven by the same
// tree-sitter tree the normalizer and analyzer use so replacement spans are
// computed from byte ranges rather than regex — grounded on the teacher's
// src[node.StartByte():node.EndByte()] slicing habit in
// inspector/golang/utils.go. The walker always feeds Rewrite the
// normalizer's name-stripped form, so the §4.3 anonymity requirement is
// met structurally before rewriting; no separate name-stripping step
// exists here.
type SuperRewriter struct {
	syntax introspect.SyntaxService
}

// NewSuperRewriter returns a SuperRewriter driven by svc.
func NewSuperRewriter(svc introspect.SyntaxService) *SuperRewriter {
	return &SuperRewriter{syntax: svc}
}

// span is a single textual replacement: [start,end) of the original text
// replaced by text.
type span struct {
	start, end uint32
	text       string
}

// Rewrite rewrites every super(...)/super.x/super[expr] occurrence in
// functionText. isStatic selects between `__super.x` (static member) and
// `__super.prototype.x` (instance member) for property access.
func (sr *SuperRewriter) Rewrite(functionText string, isStatic bool) (string, error) {
	tree, err := sr.syntax.ParseExpression([]byte(functionText))
	if err != nil {
		return "", err
	}
	root := unwrapExpression(tree.RootNode())
	if root == nil {
		return functionText, nil
	}

	// Node byte ranges are relative to the parse buffer, which wraps
	// functionText in parentheses (§4.2); root's start is functionText's
	// byte 0, so its offset is the delta to subtract from every span.
	delta := root.StartByte()

	// root itself is the function whose body we rewrite; collectSuperSpans
	// treats function nodes as opaque boundaries, so walk root's children
	// rather than root.
	var spans []span
	for i := 0; i < root.ChildCount(); i++ {
		collectSuperSpans(root.Child(i), isStatic, &spans)
	}
	if len(spans) == 0 {
		return functionText, nil
	}
	for i := range spans {
		spans[i].start -= delta
		spans[i].end -= delta
	}

	return applySpans(functionText, spans), nil
}

// collectSuperSpans walks n looking for `super` references, recording a
// replacement span for each. It does not descend into nested non-arrow
// function/method/class bodies, whose own `super` belongs to that
// boundary.
func collectSuperSpans(n introspect.Node, isStatic bool, out *[]span) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "function", "function_expression", "function_declaration", "generator_function", "generator_function_declaration", "method_definition", "class", "class_declaration":
		return
	case "call_expression":
		if fn := n.ChildByFieldName("function"); fn != nil && fn.Type() == "super" {
			if args := n.ChildByFieldName("arguments"); args != nil {
				// super(...args) -> __super.call(this, ...args)
				argsText := sliceAfterParen(args)
				*out = append(*out, span{
					start: fn.StartByte(),
					end:   args.EndByte(),
					text:  "__super.call(this" + argsJoin(argsText) + ")",
				})
				return
			}
		}
	case "member_expression":
		if obj := n.ChildByFieldName("object"); obj != nil && obj.Type() == "super" {
			prop := n.ChildByFieldName("property")
			replacement := "__super"
			if !isStatic {
				replacement = "__super.prototype"
			}
			if prop != nil {
				*out = append(*out, span{start: obj.StartByte(), end: obj.EndByte(), text: replacement})
			}
			return
		}
	case "subscript_expression":
		if obj := n.ChildByFieldName("object"); obj != nil && obj.Type() == "super" {
			replacement := "__super"
			if !isStatic {
				replacement = "__super.prototype"
			}
			*out = append(*out, span{start: obj.StartByte(), end: obj.EndByte(), text: replacement})
			if idx := n.ChildByFieldName("index"); idx != nil {
				collectSuperSpans(idx, isStatic, out)
			}
			return
		}
	}
	for i := 0; i < n.ChildCount(); i++ {
		collectSuperSpans(n.Child(i), isStatic, out)
	}
}

// sliceAfterParen returns the raw argument-list text including parens,
// e.g. "(a, b)".
func sliceAfterParen(args introspect.Node) string {
	return args.Text()
}

// argsJoin turns "(a, b)" into ", a, b" (empty-args "()" into "") so it can
// be appended after "this" in __super.call(this, ...).
func argsJoin(parenText string) string {
	trimmed := strings.TrimPrefix(parenText, "(")
	trimmed = strings.TrimSuffix(trimmed, ")")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return ""
	}
	return ", " + trimmed
}

// applySpans rewrites text by replacing each span, processing them in
// reverse byte order so earlier offsets stay valid.
func applySpans(text string, spans []span) string {
	sorted := make([]span, len(spans))
	copy(sorted, spans)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].start > sorted[j].start; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	var b strings.Builder
	var cursor uint32
	for _, s := range sorted {
		if s.start < cursor {
			continue // overlapping span from a nested walk; skip
		}
		b.WriteString(text[cursor:s.start])
		b.WriteString(s.text)
		cursor = s.end
	}
	b.WriteString(text[cursor:])
	return b.String()
}
