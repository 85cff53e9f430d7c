package emit

import (
	"fmt"
	"strings"

	"github.com/viant/closurecap/ir"
)

// emitObject implements spec.md §4.7.3: a complex object (non-default
// prototype, any non-simple descriptor, or a transitively reachable
// object/array/regex/function) emits as `var <v> = Object.create(<proto>)`
// (or `= {}`) followed by per-property statements; a non-complex object
// emits as a single object literal.
func (e *Emitter) emitObject(entry *ir.Entry) (string, error) {
	if !e.objectIsComplex(entry) {
		slots := entry.Object.Env.Slots()
		parts := make([]string, 0, len(slots))
		for _, slot := range slots {
			v, err := e.emitEntry(slot.Value)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s: %s", keyLiteralForm(slot.Key), v))
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	}

	name := e.newName("obj")
	e.namedEntries[entry] = name

	ctorExpr := "{}"
	if entry.Object.Proto != nil {
		protoExpr, err := e.emitEntry(entry.Object.Proto)
		if err != nil {
			return "", err
		}
		ctorExpr = fmt.Sprintf("Object.create(%s)", protoExpr)
	}
	fmt.Fprintf(&e.environment, "var %s = %s;\n", name, ctorExpr)

	for _, slot := range entry.Object.Env.Slots() {
		if err := e.emitPropertyAssignment(name, slot); err != nil {
			return "", err
		}
	}
	return name, nil
}

func (e *Emitter) objectIsComplex(entry *ir.Entry) bool {
	if e.refCount[entry] > 1 {
		return true
	}
	oi := entry.Object
	if oi.Proto != nil {
		return true
	}
	for _, slot := range oi.Env.Slots() {
		if slot.Info == nil || !slot.Info.IsSimple() {
			return true
		}
		if isRefType(slot.Value) {
			return true
		}
	}
	return false
}

// emitPropertyAssignment implements one property statement of §4.7.3:
// `<v>.<k> = <val>;` for simple descriptors and legal identifier names,
// `<v>[<keyExpr>] = <val>;` otherwise, and
// `Object.defineProperty(<v>, <key>, {...});` for non-simple descriptors or
// accessors. Shared with function-object-property emission (§4.7.2's "emit
// each env property exactly as an object property would be").
func (e *Emitter) emitPropertyAssignment(ownerVar string, slot ir.Slot) error {
	key := slot.Key

	if slot.Info.IsAccessor() {
		var parts []string
		if slot.Info.Get != nil {
			g, err := e.emitEntry(slot.Info.Get)
			if err != nil {
				return err
			}
			parts = append(parts, "get: "+g)
		}
		if slot.Info.Set != nil {
			s, err := e.emitEntry(slot.Info.Set)
			if err != nil {
				return err
			}
			parts = append(parts, "set: "+s)
		}
		parts = append(parts, fmt.Sprintf("configurable: %t, enumerable: %t", slot.Info.Configurable, slot.Info.Enumerable))
		fmt.Fprintf(&e.environment, "Object.defineProperty(%s, %s, {%s});\n", ownerVar, keyExpr(key), strings.Join(parts, ", "))
		return nil
	}

	v, err := e.emitEntry(slot.Value)
	if err != nil {
		return err
	}

	if slot.Info.IsSimple() {
		if !key.IsSymbol && isLegalIdentifier(key.Name) {
			fmt.Fprintf(&e.environment, "%s.%s = %s;\n", ownerVar, key.Name, v)
		} else {
			fmt.Fprintf(&e.environment, "%s[%s] = %s;\n", ownerVar, keyExpr(key), v)
		}
		return nil
	}

	fmt.Fprintf(&e.environment, "Object.defineProperty(%s, %s, {value: %s, writable: %t, enumerable: %t, configurable: %t});\n",
		ownerVar, keyExpr(key), v, slot.Info.Writable, slot.Info.Enumerable, slot.Info.Configurable)
	return nil
}

func keyExpr(key ir.Key) string {
	if key.IsSymbol {
		return key.Symbol
	}
	return jsStringLiteral(key.Name)
}

func keyLiteralForm(key ir.Key) string {
	if key.IsSymbol {
		return "[" + key.Symbol + "]"
	}
	if isLegalIdentifier(key.Name) {
		return key.Name
	}
	return jsStringLiteral(key.Name)
}
