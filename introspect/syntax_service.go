package introspect

// Node is a minimal read-only facade over a parsed syntax node — a
// narrowed version of *sitter.Node's own method set (spec.md §6.2), so a
// test double can implement it without pulling in a real parser.
type Node interface {
	Type() string
	IsNamed() bool
	StartByte() uint32
	EndByte() uint32
	ChildCount() int
	Child(i int) Node
	NamedChildCount() int
	NamedChild(i int) Node
	ChildByFieldName(name string) Node
	// Text returns the literal source text spanning this node's byte range.
	Text() string
}

// Tree is a parsed syntax tree plus its diagnostic status (spec.md §6.2:
// "surface whether the toplevel parse succeeded and, if not, the first
// diagnostic").
type Tree interface {
	RootNode() Node
	OK() bool
	FirstDiagnostic() string
}

// SyntaxService is the abstract parser the core consumes (spec.md §6.2).
// The concrete parser library itself (tree-sitter, or any other) is an
// external collaborator; the core only ever calls this interface.
type SyntaxService interface {
	// Parse parses src as a complete program/module.
	Parse(src []byte) (Tree, error)

	// ParseExpression parses src as a single expression — used by the
	// free-variable analyzer, which treats a normalized function's text as
	// "an expression in parentheses" (§4.2).
	ParseExpression(src []byte) (Tree, error)
}
