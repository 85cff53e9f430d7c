// Package tsservice is the default introspect.SyntaxService implementation,
// backed by github.com/smacker/go-tree-sitter's JavaScript grammar —
// grounded on inspector/jsx.Inspector and
// inspector/golang.TreeSitterInspector's identical
// parser.ParseCtx(...)/tree.RootNode() shape in the teacher repo.
package tsservice

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/viant/closurecap/introspect"
)

// Service adapts go-tree-sitter to introspect.SyntaxService.
type Service struct{}

// New returns a ready-to-use Service.
func New() *Service {
	return &Service{}
}

// Parse implements introspect.SyntaxService.
func (s *Service) Parse(src []byte) (introspect.Tree, error) {
	return s.parse(src)
}

// ParseExpression implements introspect.SyntaxService. Tree-sitter's
// JavaScript grammar has no standalone "expression" entry point, so per
// spec.md §4.2 ("parse the text as an expression-in-parentheses") we wrap
// src in parentheses and parse as a program; the resulting root's single
// statement is an expression_statement wrapping a parenthesized_expression.
func (s *Service) ParseExpression(src []byte) (introspect.Tree, error) {
	wrapped := make([]byte, 0, len(src)+2)
	wrapped = append(wrapped, '(')
	wrapped = append(wrapped, src...)
	wrapped = append(wrapped, ')')
	return s.parse(wrapped)
}

func (s *Service) parse(src []byte) (*tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())

	parsed, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, err
	}
	return &tree{src: src, tree: parsed}, nil
}
