package emit

import (
	"fmt"
	"strings"
	"unicode"
)

// newName returns a fresh top-level identifier derived from base, per
// spec.md §4.7.6: "__<legalized-base>" or, when that collides,
// "__<legalized-base><index>" with index bumped until free. Uniquified
// against every name already handed out by this Emitter (including the
// reserved "__super" seeded by New).
func (e *Emitter) newName(base string) string {
	legal := "__" + legalizeName(base)
	if !e.varNames[legal] {
		e.varNames[legal] = true
		return legal
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s%d", legal, i)
		if !e.varNames[candidate] {
			e.varNames[candidate] = true
			return candidate
		}
	}
}

// legalizeName coerces base into a legal, non-reserved JavaScript
// identifier fragment, per spec.md §4.7.6: strips non-identifier
// characters and leading underscores (the caller supplies the "__"
// prefix); a leading digit remaining after that is prefixed with "_".
func legalizeName(base string) string {
	base = strings.TrimLeft(base, "_")
	var b strings.Builder
	for _, r := range base {
		switch {
		case r == '_' || r == '$':
			b.WriteRune(r)
		case unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsDigit(r):
			if b.Len() == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		name = "_"
	}
	if isReservedWordName(name) {
		name = "_" + name
	}
	return name
}

// isLegalIdentifier reports whether name can be used directly as a property
// access (`obj.name`) without needing bracket notation.
func isLegalIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || r == '$' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return !isReservedWordName(name)
}

var reservedWordNames = map[string]bool{
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

func isReservedWordName(name string) bool {
	return reservedWordNames[name]
}
