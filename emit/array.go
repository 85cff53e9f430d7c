package emit

import (
	"fmt"
	"strings"

	"github.com/viant/closurecap/ir"
)

// emitArray implements spec.md §4.7.4: a trivial array (dense, no
// reference-typed elements, not independently shared) emits as a bracketed
// literal; a non-trivial one emits as `var <v> = [];` followed by per-index
// assignments, preserving sparsity.
func (e *Emitter) emitArray(entry *ir.Entry) (string, error) {
	if !e.arrayIsNonTrivial(entry) {
		parts := make([]string, 0, len(entry.Array))
		for _, el := range entry.Array {
			v, err := e.emitEntry(el.Value)
			if err != nil {
				return "", err
			}
			parts = append(parts, v)
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	}

	name := e.newName("arr")
	e.namedEntries[entry] = name
	fmt.Fprintf(&e.environment, "var %s = [];\n", name)
	maxIdx := -1
	for _, el := range entry.Array {
		v, err := e.emitEntry(el.Value)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&e.environment, "%s[%d] = %s;\n", name, el.Index, v)
		if el.Index > maxIdx {
			maxIdx = el.Index
		}
	}
	// Trailing holes: index assignments alone stop short of the recorded
	// length, so close the gap explicitly.
	if entry.ArrayLength > maxIdx+1 {
		fmt.Fprintf(&e.environment, "%s.length = %d;\n", name, entry.ArrayLength)
	}
	return name, nil
}

func (e *Emitter) arrayIsNonTrivial(entry *ir.Entry) bool {
	if e.refCount[entry] > 1 {
		return true
	}
	if isSparse(entry.Array) {
		return true
	}
	if entry.ArrayLength > len(entry.Array) {
		return true
	}
	for _, el := range entry.Array {
		if isRefType(el.Value) {
			return true
		}
	}
	return false
}

// isSparse reports whether the array's own-property count (minus the
// implicit `length`) differs from the dense length spec.md §4.7.4 and §8.1
// describe: a dense array of n elements has exactly indices 0..n-1.
func isSparse(elems []ir.ArrayElement) bool {
	if len(elems) == 0 {
		return false
	}
	maxIdx := elems[0].Index
	for _, el := range elems {
		if el.Index > maxIdx {
			maxIdx = el.Index
		}
	}
	return maxIdx+1 != len(elems)
}
