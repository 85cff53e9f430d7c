package emit

import (
	"fmt"
	"strings"

	"github.com/viant/closurecap/ir"
)

// emitFunction implements spec.md §4.7.2: a named top-level function
// declaration whose body re-establishes captured bindings via `with` and
// routes the caller's real receiver/arguments through a double `.apply`,
// so functions that do use the non-lexical receiver see it while those
// that don't can ignore it.
func (e *Emitter) emitFunction(entry *ir.Entry) (string, error) {
	fi := entry.Function
	if name, ok := e.functionNames[fi]; ok {
		e.namedEntries[entry] = name
		return name, nil
	}

	name := e.newName(functionBaseName(fi))
	e.functionNames[fi] = name
	e.namedEntries[entry] = name

	bindings := make([]string, 0, fi.CapturedValues.Len())
	for _, slot := range fi.CapturedValues.Slots() {
		v, err := e.emitEntry(slot.Value)
		if err != nil {
			return "", err
		}
		bindings = append(bindings, fmt.Sprintf("%s: %s", slot.Key.Name, v))
	}

	params := make([]string, fi.ParamCount)
	for i := range params {
		params[i] = fmt.Sprintf("__%d", i)
	}

	fmt.Fprintf(&e.functions,
		"function %s(%s) {\n  return (function() {\n    with ({%s}) {\n\nreturn %s;\n\n    }\n  }).apply(this, arguments).apply(this, arguments);\n}\n",
		name, strings.Join(params, ", "), strings.Join(bindings, ", "), fi.Code)

	if fi.Proto != nil {
		protoExpr, err := e.emitEntry(fi.Proto)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&e.environment, "Object.setPrototypeOf(%s, %s);\n", name, protoExpr)
	}

	for _, slot := range fi.Env.Slots() {
		if err := e.emitPropertyAssignment(name, slot); err != nil {
			return "", err
		}
	}

	return name, nil
}

func functionBaseName(fi *ir.FunctionInfo) string {
	if fi.Name != "" {
		return fi.Name
	}
	return "fn"
}
