package tsservice

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/viant/closurecap/introspect"
)

// tree adapts *sitter.Tree to introspect.Tree.
type tree struct {
	src  []byte
	tree *sitter.Tree
}

func (t *tree) RootNode() introspect.Node {
	root := t.tree.RootNode()
	if root == nil {
		return nil
	}
	return &node{src: t.src, n: root}
}

func (t *tree) OK() bool {
	return !t.RootNode().(*node).n.HasError()
}

func (t *tree) FirstDiagnostic() string {
	var first introspect.Node
	var walk func(n introspect.Node)
	walk = func(n introspect.Node) {
		if n == nil || first != nil {
			return
		}
		raw := n.(*node).n
		if raw.IsError() || raw.IsMissing() {
			first = n
			return
		}
		for i := 0; i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(t.RootNode())
	if first == nil {
		return ""
	}
	return first.Type() + " near byte " + itoa(int(first.StartByte()))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// node adapts *sitter.Node to introspect.Node.
type node struct {
	src []byte
	n   *sitter.Node
}

func (nd *node) Type() string      { return nd.n.Type() }
func (nd *node) IsNamed() bool     { return nd.n.IsNamed() }
func (nd *node) StartByte() uint32 { return nd.n.StartByte() }
func (nd *node) EndByte() uint32   { return nd.n.EndByte() }
func (nd *node) ChildCount() int   { return int(nd.n.ChildCount()) }

func (nd *node) Child(i int) introspect.Node {
	c := nd.n.Child(i)
	if c == nil {
		return nil
	}
	return &node{src: nd.src, n: c}
}

func (nd *node) NamedChildCount() int { return int(nd.n.NamedChildCount()) }

func (nd *node) NamedChild(i int) introspect.Node {
	c := nd.n.NamedChild(i)
	if c == nil {
		return nil
	}
	return &node{src: nd.src, n: c}
}

func (nd *node) ChildByFieldName(name string) introspect.Node {
	c := nd.n.ChildByFieldName(name)
	if c == nil {
		return nil
	}
	return &node{src: nd.src, n: c}
}

func (nd *node) Text() string {
	return string(nd.src[nd.n.StartByte():nd.n.EndByte()])
}
