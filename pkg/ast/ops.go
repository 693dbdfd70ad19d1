package ast

import (
	"iter"

	"github.com/alexshafranov/derplanner-sub000/pkg/diag"
)

func assert(cond bool, msg string) {
	if !cond {
		panic("ast: " + msg)
	}
}

// AppendChild makes child the last child of parent in O(1).
func AppendChild(parent, child *Node) {
	assert(parent != nil && child != nil, "append of nil node")
	assert(child.parent == nil && child.prev == nil && child.next == nil, "append of attached node")

	child.parent = parent
	if parent.last == nil {
		parent.first = child
	} else {
		parent.last.next = child
		child.prev = parent.last
	}
	parent.last = child

	assert(parent.first.prev == nil && parent.last.next == nil, "broken child list after append")
}

// InsertChild makes child the next sibling of after.
func InsertChild(after, child *Node) {
	assert(after != nil && child != nil, "insert of nil node")
	assert(after.parent != nil, "insert after a root")
	assert(child.parent == nil && child.prev == nil && child.next == nil, "insert of attached node")

	parent := after.parent
	child.parent = parent
	child.prev = after
	child.next = after.next
	if after.next != nil {
		after.next.prev = child
	} else {
		parent.last = child
	}
	after.next = child

	assert(parent.last.next == nil, "broken child list after insert")
}

// Unparent detaches node from its parent's child list.
func Unparent(node *Node) {
	assert(node != nil && node.parent != nil, "unparent of a root")

	parent := node.parent
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		parent.first = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		parent.last = node.prev
	}
	node.parent, node.prev, node.next = nil, nil, nil

	assert(parent.first == nil || parent.first.prev == nil, "broken child list after unparent")
	assert(parent.last == nil || parent.last.next == nil, "broken child list after unparent")
}

// Replace puts replacement where old is and detaches old. When old has no
// parent the replacement simply becomes a detached root. It returns
// replacement.
func Replace(old, replacement *Node) *Node {
	if old == replacement {
		return old
	}
	if replacement.parent != nil {
		Unparent(replacement)
	}
	if old.parent != nil {
		InsertChild(old, replacement)
		Unparent(old)
	}
	return replacement
}

// PreorderNext returns the node after cur in a pre-order walk of root's
// subtree, visiting children before siblings, or nil when the walk is over.
// Error nodes are leaves.
func PreorderNext(root, cur *Node) *Node {
	if cur.first != nil && cur.Kind != KindError {
		return cur.first
	}
	return NextAfter(root, cur)
}

// NextAfter returns the pre-order successor of cur's whole subtree within
// root, or nil.
func NextAfter(root, cur *Node) *Node {
	for n := cur; n != root; n = n.parent {
		if n.next != nil {
			return n.next
		}
		if n.parent == nil {
			break
		}
	}
	return nil
}

// Preorder iterates root's subtree in pre-order. The body may rewrite the
// node it is given only if it does not detach it.
func Preorder(root *Node) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for n := root; n != nil; n = PreorderNext(root, n) {
			if !yield(n) {
				return
			}
		}
	}
}

// Walk calls fn for n and, when fn returns true, recursively for each child.
// Error nodes are never descended into.
func Walk(n *Node, fn func(*Node) bool) {
	if !fn(n) || n.Kind == KindError {
		return
	}
	for c := n.first; c != nil; {
		next := c.next
		Walk(c, fn)
		c = next
	}
}

// Children iterates n's direct children. Detaching the yielded child is
// safe.
func (n *Node) Children() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for c := n.first; c != nil; {
			next := c.next
			if !yield(c) {
				return
			}
			c = next
		}
	}
}

// ChildCount counts n's direct children.
func (n *Node) ChildCount() int {
	count := 0
	for c := n.first; c != nil; c = c.next {
		count++
	}
	return count
}

// Child returns the i-th child, or nil.
func (n *Node) Child(i int) *Node {
	c := n.first
	for ; c != nil && i > 0; i-- {
		c = c.next
	}
	return c
}

// ChildrenOf collects the direct children of the given kind.
func ChildrenOf(n *Node, kind Kind) []*Node {
	var out []*Node
	for c := n.first; c != nil; c = c.next {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// FindChild returns the first direct child of the given kind.
func FindChild(n *Node, kind Kind) *Node {
	if n == nil {
		return nil
	}
	for c := n.first; c != nil; c = c.next {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// FindAttribute scans n's attributes for one with the given name.
func FindAttribute(n *Node, name string) *Node {
	for c := n.first; c != nil; c = c.next {
		if c.Kind == KindAttribute && c.Attribute().Name == name {
			return c
		}
	}
	return nil
}

// ReplaceWithError turns n into an Error node in place, keeping its position
// and children so a running traversal can carry on.
func ReplaceWithError(n *Node, err diag.Kind) {
	n.Data = &ErrorNode{Was: n.Kind, Err: err}
	n.Kind = KindError
}

// HasError reports whether n or any node below it is an Error node.
func HasError(n *Node) bool {
	found := false
	Walk(n, func(c *Node) bool {
		if c.Kind == KindError {
			found = true
		}
		return !found
	})
	return found
}

// Clone deep-copies n's subtree into the tree's arena. The copy is detached.
// Definition links of cloned variables still point at the originals; the
// annotate pass rebuilds them.
func (t *Tree) Clone(n *Node) *Node {
	c := t.nodes.Alloc()
	c.Kind = n.Kind
	c.Type = n.Type
	c.Loc = n.Loc
	c.Data = clonePayload(n.Data)
	for child := n.first; child != nil; child = child.next {
		AppendChild(c, t.Clone(child))
	}
	return c
}

func clonePayload(p Payload) Payload {
	switch d := p.(type) {
	case *Var:
		cp := *d
		return &cp
	case *Func:
		cp := *d
		return &cp
	case *Literal:
		cp := *d
		return &cp
	case *Param:
		cp := *d
		return &cp
	case *Fact:
		cp := *d
		return &cp
	case *Task:
		cp := *d
		return &cp
	case *Case:
		cp := *d
		return &cp
	case *Macro:
		cp := *d
		return &cp
	case *Attribute:
		cp := *d
		return &cp
	case *Domain:
		cp := *d
		return &cp
	case *ErrorNode:
		cp := *d
		return &cp
	}
	return nil
}

// IsLiteral reports whether n is a DNF literal: anything that is not And/Or,
// or a Not over such a node.
func IsLiteral(n *Node) bool {
	if n.Kind == KindNot {
		return n.first != nil && !n.first.Kind.IsLogical()
	}
	return n.Kind != KindAnd && n.Kind != KindOr
}
