// Package emit implements the Emitter (component G): rendering the
// normalized ir.Entry IR into a source-text module (spec.md §4.7).
// Grounded on inspector/coder.Coder (a stateful builder accumulating
// declarations before producing final text) and the per-language
// inspector/*/emitter.go files (golang/emitter.go, jsx/emitter.go,
// graph/emitter.go) for the convention of a narrow Emitter type with one
// Emit-shaped entry point per IR node kind.
package emit

import (
	"fmt"
	"strings"

	"github.com/viant/closurecap/ir"
)

// Emitter implements spec.md §4.7.
type Emitter struct {
	environment strings.Builder
	functions   strings.Builder

	varNames       map[string]bool
	namedEntries   map[*ir.Entry]string
	functionNames  map[*ir.FunctionInfo]string
	refCount       map[*ir.Entry]int
	countedVisited map[*ir.Entry]bool
}

// New returns a ready-to-use Emitter.
func New() *Emitter {
	e := &Emitter{
		varNames:       map[string]bool{},
		namedEntries:   map[*ir.Entry]string{},
		functionNames:  map[*ir.FunctionInfo]string{},
		refCount:       map[*ir.Entry]int{},
		countedVisited: map[*ir.Entry]bool{},
	}
	// __super is reserved for the synthesized super-binding (spec.md §9
	// "Forbidden names") and must never be chosen by newName.
	e.varNames["__super"] = true
	return e
}

// Emit implements spec.md §4.7.1: render root (a function Entry) as a
// complete source-text module exporting exportName.
func (e *Emitter) Emit(root *ir.Entry, exportName string, factoryMode bool) (string, error) {
	if root == nil || root.Tag != ir.TagFunction {
		return "", fmt.Errorf("emit: root entry must be a function entry")
	}

	e.countRefs(root)

	rootExpr, err := e.emitEntry(root)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.WriteString(e.functions.String())
	if factoryMode {
		out.WriteString(e.environment.String())
		fmt.Fprintf(&out, "exports.%s = (%s)();\n", exportName, rootExpr)
	} else {
		fmt.Fprintf(&out, "exports.%s = %s;\n", exportName, rootExpr)
		out.WriteString(e.environment.String())
	}
	return out.String(), nil
}

// countRefs walks the Entry graph once, counting how many distinct edges
// point at each reference-typed Entry. An Entry referenced more than once
// (including a cyclic self-reference) must be lifted to a top-level
// binding regardless of its own complexity, to preserve identity across
// its use sites (spec.md §8.1 "Identity preservation in emitted code").
func (e *Emitter) countRefs(entry *ir.Entry) {
	if entry == nil {
		return
	}
	e.refCount[entry]++
	if e.countedVisited[entry] {
		return
	}
	e.countedVisited[entry] = true

	switch entry.Tag {
	case ir.TagObject:
		e.countObjectRefs(entry.Object)
	case ir.TagArray:
		for _, el := range entry.Array {
			e.countRefs(el.Value)
		}
	case ir.TagFunction:
		e.countFunctionRefs(entry.Function)
	case ir.TagPromise:
		e.countRefs(entry.Promise)
	case ir.TagOutput:
		e.countRefs(entry.Output)
	}
}

func (e *Emitter) countObjectRefs(oi *ir.ObjectInfo) {
	if oi.Proto != nil {
		e.countRefs(oi.Proto)
	}
	for _, slot := range oi.Env.Slots() {
		e.countRefs(slot.Value)
		if slot.Info != nil {
			e.countRefs(slot.Info.Get)
			e.countRefs(slot.Info.Set)
		}
	}
}

func (e *Emitter) countFunctionRefs(fi *ir.FunctionInfo) {
	for _, slot := range fi.CapturedValues.Slots() {
		e.countRefs(slot.Value)
	}
	for _, slot := range fi.Env.Slots() {
		e.countRefs(slot.Value)
		if slot.Info != nil {
			e.countRefs(slot.Info.Get)
			e.countRefs(slot.Info.Set)
		}
	}
	e.countRefs(fi.Proto)
}

// emitEntry is the main dispatcher: it returns the expression text to use
// at a reference site, declaring a top-level binding first if needed.
func (e *Emitter) emitEntry(entry *ir.Entry) (string, error) {
	if entry == nil {
		return "undefined", nil
	}
	if name, ok := e.namedEntries[entry]; ok {
		return name, nil
	}

	switch entry.Tag {
	case ir.TagJSON:
		return jsonLiteral(entry.JSON)
	case ir.TagExpr:
		return entry.Expr, nil
	case ir.TagModule:
		return fmt.Sprintf("require(%s)", jsStringLiteral(entry.Module)), nil
	case ir.TagPromise:
		inner, err := e.emitEntry(entry.Promise)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Promise.resolve(%s)", inner), nil
	case ir.TagOutput:
		// Delegated to its inner entry (spec.md §4.7.5): the wrapper
		// shape is itself an object Entry, already fully populated by the
		// walker (§4.4.5), so there is nothing extra to render here.
		return e.emitEntry(entry.Output)
	case ir.TagRegexp:
		return e.emitRegexp(entry)
	case ir.TagArray:
		return e.emitArray(entry)
	case ir.TagObject:
		return e.emitObject(entry)
	case ir.TagFunction:
		return e.emitFunction(entry)
	default:
		return "", fmt.Errorf("emit: entry has no disposition tag")
	}
}

func (e *Emitter) emitRegexp(entry *ir.Entry) (string, error) {
	literal := fmt.Sprintf("new RegExp(%s, %s)", jsStringLiteral(entry.Regexp.Source), jsStringLiteral(entry.Regexp.Flags))
	if e.refCount[entry] <= 1 {
		return literal, nil
	}
	name := e.newName("re")
	e.namedEntries[entry] = name
	fmt.Fprintf(&e.environment, "var %s = %s;\n", name, literal)
	return name, nil
}

func isRefType(entry *ir.Entry) bool {
	if entry == nil {
		return false
	}
	switch entry.Tag {
	case ir.TagObject, ir.TagArray, ir.TagRegexp, ir.TagFunction, ir.TagPromise, ir.TagOutput:
		return true
	default:
		return false
	}
}
