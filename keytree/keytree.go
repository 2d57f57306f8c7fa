// Package keytree implements the hierarchical key tree that holds every
// translation entry of a project.
//
// A key path such as "page.home.title" addresses a node by walking one
// segment per level from the root. Containers (TypeNode and the root) hold
// ordered children, leaves hold a value. A node's full key is always derived
// from its position in the tree, never stored, so it cannot go stale when a
// subtree is moved or cloned.
package keytree

import (
	"sort"
	"strings"
	"unicode"
)

// RootKey is the key of the synthetic root node.
const RootKey = "__S_Root"

// NodeType classifies a node.
type NodeType int

const (
	TypeLeaf NodeType = iota
	TypeNode
	TypeRoot
)

func (t NodeType) String() string {
	switch t {
	case TypeLeaf:
		return "leaf"
	case TypeNode:
		return "node"
	case TypeRoot:
		return "root"
	default:
		return "unknown"
	}
}

// Record is the constraint on node payloads. Clone must return a deep copy;
// Assign must return a copy of the receiver with the non-empty fields of
// partial laid over it.
type Record[T any] interface {
	Clone() T
	Assign(partial T) T
}

// Node is a single element of a Tree.
type Node[T Record[T]] struct {
	key      string
	typ      NodeType
	value    T
	parent   *Node[T]
	children map[string]*Node[T]
	order    []string
}

func newNode[T Record[T]](key string, typ NodeType) *Node[T] {
	return &Node[T]{key: key, typ: typ}
}

// Key returns the node's own segment.
func (n *Node[T]) Key() string { return n.key }

// Type returns the node's type.
func (n *Node[T]) Type() NodeType { return n.typ }

// Parent returns the parent node, or nil for the root and detached nodes.
func (n *Node[T]) Parent() *Node[T] { return n.parent }

// IsLeaf reports whether the node holds a value instead of children.
func (n *Node[T]) IsLeaf() bool { return n.typ == TypeLeaf }

// AllowAddChild reports whether children may be attached to the node.
func (n *Node[T]) AllowAddChild() bool { return n.typ != TypeLeaf }

// Value returns the node's payload. Containers always return the zero value.
func (n *Node[T]) Value() T { return n.value }

// FullKey returns the dot-joined path from the root to the node.
func (n *Node[T]) FullKey() string {
	if n.typ == TypeRoot {
		return ""
	}
	var segs []string
	for p := n; p != nil && p.typ != TypeRoot; p = p.parent {
		segs = append(segs, p.key)
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, ".")
}

// SetType changes the node's type. Changing to a different type discards
// the current value and all children.
func (n *Node[T]) SetType(typ NodeType) {
	if n.typ == typ {
		return
	}
	n.typ = typ
	var zero T
	n.value = zero
	n.Clear()
}

// Len returns the number of direct children.
func (n *Node[T]) Len() int { return len(n.order) }

// Children returns the direct children in insertion order.
func (n *Node[T]) Children() []*Node[T] {
	out := make([]*Node[T], 0, len(n.order))
	for _, k := range n.order {
		out = append(out, n.children[k])
	}
	return out
}

// Child returns the direct child with the given key, or nil.
func (n *Node[T]) Child(key string) *Node[T] {
	return n.children[key]
}

// Has reports whether a direct child with the given key exists.
func (n *Node[T]) Has(key string) bool {
	_, ok := n.children[key]
	return ok
}

// AddChild creates a new child of the given type.
func (n *Node[T]) AddChild(key string, typ NodeType) (*Node[T], error) {
	child := newNode[T](key, typ)
	if err := n.AttachChild(key, child); err != nil {
		return nil, err
	}
	return child, nil
}

// AttachChild inserts an existing node as a new child under key. The node is
// re-parented and renamed to key.
func (n *Node[T]) AttachChild(key string, child *Node[T]) error {
	if !n.AllowAddChild() {
		return newError(ErrIllegalAddChild, joinKey(n.FullKey(), key), n.typ)
	}
	if err := checkSegment(key, true); err != nil {
		return err
	}
	if n.Has(key) {
		return newError(ErrExistedKey, joinKey(n.FullKey(), key), n.typ)
	}
	if n.children == nil {
		n.children = make(map[string]*Node[T])
	}
	child.key = key
	child.parent = n
	n.children[key] = child
	n.order = append(n.order, key)
	return nil
}

// SetChild replaces the existing child under key, keeping its position.
func (n *Node[T]) SetChild(key string, child *Node[T]) error {
	if !n.AllowAddChild() {
		return newError(ErrIllegalAddChild, joinKey(n.FullKey(), key), n.typ)
	}
	old, ok := n.children[key]
	if !ok {
		return newError(ErrNullKey, joinKey(n.FullKey(), key), n.typ)
	}
	if old != child {
		old.parent = nil
	}
	child.key = key
	child.parent = n
	n.children[key] = child
	return nil
}

// Delete removes the direct child under key. Missing keys are ignored.
func (n *Node[T]) Delete(key string) {
	child, ok := n.children[key]
	if !ok {
		return
	}
	child.parent = nil
	delete(n.children, key)
	for i, k := range n.order {
		if k == key {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

// Clear removes all children.
func (n *Node[T]) Clear() {
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
	n.order = nil
}

// SetValue replaces the payload of a leaf.
func (n *Node[T]) SetValue(v T) error {
	if n.typ != TypeLeaf {
		return newError(ErrIllegalValue, n.FullKey(), n.typ)
	}
	n.value = v
	return nil
}

// Mutate replaces a leaf's payload with fn(current). It is a no-op on
// containers.
func (n *Node[T]) Mutate(fn func(T) T) {
	if n.typ != TypeLeaf {
		return
	}
	n.value = fn(n.value)
}

// Assign lays the non-empty fields of partial over a leaf's payload. It is a
// no-op on containers.
func (n *Node[T]) Assign(partial T) {
	n.Mutate(func(v T) T { return v.Assign(partial) })
}

// Clone returns a deep, detached copy of the node and its subtree.
func (n *Node[T]) Clone() *Node[T] {
	c := newNode[T](n.key, n.typ)
	if n.typ == TypeLeaf {
		c.value = n.value.Clone()
	}
	for _, k := range n.order {
		child := n.children[k].Clone()
		child.parent = c
		if c.children == nil {
			c.children = make(map[string]*Node[T], len(n.order))
		}
		c.children[k] = child
		c.order = append(c.order, k)
	}
	return c
}

// Visit calls fn for every descendant in depth-first pre-order, following
// insertion order. Returning false from fn skips the node's subtree.
func (n *Node[T]) Visit(fn func(*Node[T]) bool) {
	for _, k := range n.order {
		child := n.children[k]
		if fn(child) {
			child.Visit(fn)
		}
	}
}

// SortedVisit is like Visit but orders siblings with less. A nil less sorts
// siblings by key.
func (n *Node[T]) SortedVisit(fn func(*Node[T]) bool, less func(a, b *Node[T]) bool) {
	children := n.Children()
	if less == nil {
		less = func(a, b *Node[T]) bool { return a.key < b.key }
	}
	sort.SliceStable(children, func(i, j int) bool { return less(children[i], children[j]) })
	for _, child := range children {
		if fn(child) {
			child.SortedVisit(fn, less)
		}
	}
}

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

// Tree is a rooted key tree.
type Tree[T Record[T]] struct {
	root *Node[T]
}

// New returns an empty tree.
func New[T Record[T]]() *Tree[T] {
	return &Tree[T]{root: newNode[T](RootKey, TypeRoot)}
}

// Root returns the root node.
func (t *Tree[T]) Root() *Node[T] { return t.root }

// Children returns the top-level nodes.
func (t *Tree[T]) Children() []*Node[T] { return t.root.Children() }

// Add creates the node at path. With recursive set, missing intermediate
// segments are created as containers; otherwise the parent must exist.
func (t *Tree[T]) Add(path string, typ NodeType, recursive bool) (*Node[T], error) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	parent := t.root
	for i, seg := range segs[:len(segs)-1] {
		next := parent.Child(seg)
		if next == nil {
			if !recursive {
				return nil, newError(ErrMissingParent, strings.Join(segs[:i+1], "."), parent.typ)
			}
			next, err = parent.AddChild(seg, TypeNode)
			if err != nil {
				return nil, err
			}
		}
		parent = next
	}
	return parent.AddChild(segs[len(segs)-1], typ)
}

// Get returns the node at path, or nil when any segment is missing or the
// path is malformed. Paths are parsed the same way as in Add.
func (t *Tree[T]) Get(path string) *Node[T] {
	segs, err := ParsePath(path)
	if err != nil {
		return nil
	}
	n := t.root
	for _, seg := range segs {
		n = n.Child(seg)
		if n == nil {
			return nil
		}
	}
	return n
}

// Has reports whether a node exists at path.
func (t *Tree[T]) Has(path string) bool {
	return t.Get(path) != nil
}

// Delete removes the node at path together with its subtree.
func (t *Tree[T]) Delete(path string) {
	n := t.Get(path)
	if n == nil || n.parent == nil {
		return
	}
	n.parent.Delete(n.key)
}

// Visit walks every node except the root. See Node.Visit.
func (t *Tree[T]) Visit(fn func(*Node[T]) bool) {
	t.root.Visit(fn)
}

// SortedVisit walks every node except the root with sorted siblings.
func (t *Tree[T]) SortedVisit(fn func(*Node[T]) bool, less func(a, b *Node[T]) bool) {
	t.root.SortedVisit(fn, less)
}

// Leaves returns every leaf, ordered by full key.
func (t *Tree[T]) Leaves() []*Node[T] {
	var out []*Node[T]
	t.SortedVisit(func(n *Node[T]) bool {
		if n.IsLeaf() {
			out = append(out, n)
		}
		return true
	}, nil)
	return out
}

// Clone returns a deep copy of the tree.
func (t *Tree[T]) Clone() *Tree[T] {
	return &Tree[T]{root: t.root.Clone()}
}

// ParsePath validates a key path and splits it into segments. Surrounding
// whitespace is trimmed. Segments may not be empty or contain whitespace.
func ParsePath(path string) ([]string, error) {
	p := strings.TrimSpace(path)
	if p == "" || strings.HasPrefix(p, ".") || strings.HasSuffix(p, ".") {
		return nil, newError(ErrPathFormat, path, TypeRoot)
	}
	segs := strings.Split(p, ".")
	for _, seg := range segs {
		if err := checkSegment(seg, false); err != nil {
			return nil, newError(ErrPathFormat, path, TypeRoot)
		}
	}
	return segs, nil
}

func checkSegment(seg string, single bool) error {
	if seg == "" || (single && strings.Contains(seg, ".")) {
		return newError(ErrPathFormat, seg, TypeRoot)
	}
	if strings.IndexFunc(seg, unicode.IsSpace) >= 0 {
		return newError(ErrPathFormat, seg, TypeRoot)
	}
	return nil
}

func joinKey(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
