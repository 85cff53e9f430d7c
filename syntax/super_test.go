package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/viant/closurecap/syntax/tsservice"
)

func TestSuperRewriter_Rewrite(t *testing.T) {
	rewriter := NewSuperRewriter(tsservice.New())

	testCases := []struct {
		name     string
		source   string
		isStatic bool
		expect   string
	}{
		{
			name:     "super call in constructor",
			source:   "function() { super(a, b); }",
			isStatic: false,
			expect:   "function() { __super.call(this, a, b); }",
		},
		{
			name:     "super call with no arguments",
			source:   "function() { super(); }",
			isStatic: false,
			expect:   "function() { __super.call(this); }",
		},
		{
			name:     "instance member access",
			source:   "function() { return super.greet(); }",
			isStatic: false,
			expect:   "function() { return __super.prototype.greet(); }",
		},
		{
			name:     "static member access",
			source:   "function() { return super.create(); }",
			isStatic: true,
			expect:   "function() { return __super.create(); }",
		},
		{
			name:     "nested function body left untouched",
			source:   "function() { var f = function() { return super.x; }; return f; }",
			isStatic: false,
			expect:   "function() { var f = function() { return super.x; }; return f; }",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := rewriter.Rewrite(tc.source, tc.isStatic)
			assert.NoError(t, err)
			assert.Equal(t, tc.expect, got)
		})
	}
}
