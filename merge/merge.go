// Package merge reconciles a freshly collected key tree with the tree stored
// in the master file.
//
// The shape of the result follows the new tree: keys present only in the new
// tree are added, keys present only in the old tree are dropped, and keys
// present in both are merged node by node with a caller supplied MutateFunc.
// A new-tree key carrying the RemoveSuffix deletes the matching key instead.
package merge

import (
	"strings"

	"github.com/bbt-i18n/bbt/keytree"
)

// RemoveSuffix marks a new-tree key as a deletion request for the key
// without the suffix.
const RemoveSuffix = "@remove@"

// MutateFunc computes the merged payload of a leaf present in both trees.
type MutateFunc[T any] func(oldValue, newValue T) T

// Overwrite returns a MutateFunc that always takes the new value.
func Overwrite[T any]() MutateFunc[T] {
	return func(_, newValue T) T { return newValue }
}

// Diff merges newTree into a copy of oldTree. Neither input is modified.
// A nil fn behaves like Overwrite.
func Diff[T keytree.Record[T]](newTree, oldTree *keytree.Tree[T], fn MutateFunc[T]) (*keytree.Tree[T], error) {
	if fn == nil {
		fn = Overwrite[T]()
	}
	result := oldTree.Clone()
	if _, err := assignNode(newTree.Root(), result.Root(), fn); err != nil {
		return nil, err
	}
	return result, nil
}

// assignNode merges newNode into oldNode in place and returns the node that
// should occupy oldNode's slot. When the node types differ the new subtree
// replaces the old one wholesale.
func assignNode[T keytree.Record[T]](newNode, oldNode *keytree.Node[T], fn MutateFunc[T]) (*keytree.Node[T], error) {
	if newNode.Type() != oldNode.Type() {
		return cloneNew(newNode), nil
	}

	newValue := newNode.Value()
	oldNode.Mutate(func(v T) T { return fn(v, newValue) })

	var removals []string
	seen := make(map[string]bool, newNode.Len())
	for _, newChild := range newNode.Children() {
		key := newChild.Key()
		if target, ok := strings.CutSuffix(key, RemoveSuffix); ok {
			removals = append(removals, target)
			continue
		}
		seen[key] = true

		oldChild := oldNode.Child(key)
		if oldChild == nil {
			if err := oldNode.AttachChild(key, cloneNew(newChild)); err != nil {
				return nil, err
			}
			continue
		}
		merged, err := assignNode(newChild, oldChild, fn)
		if err != nil {
			return nil, err
		}
		if merged != oldChild {
			if err := oldNode.SetChild(key, merged); err != nil {
				return nil, err
			}
		}
	}

	for _, oldChild := range oldNode.Children() {
		if !seen[oldChild.Key()] {
			oldNode.Delete(oldChild.Key())
		}
	}
	for _, key := range removals {
		oldNode.Delete(key)
	}
	return oldNode, nil
}

// cloneNew copies a new-tree subtree that has no old counterpart. Removal
// markers in it are applied to the copy and never end up in the result.
func cloneNew[T keytree.Record[T]](n *keytree.Node[T]) *keytree.Node[T] {
	c := n.Clone()
	stripRemovals(c)
	c.Visit(func(node *keytree.Node[T]) bool {
		stripRemovals(node)
		return true
	})
	return c
}

func stripRemovals[T keytree.Record[T]](n *keytree.Node[T]) {
	for _, child := range n.Children() {
		if target, ok := strings.CutSuffix(child.Key(), RemoveSuffix); ok {
			n.Delete(child.Key())
			n.Delete(target)
		}
	}
}
