package plugin

import (
	"sort"

	"github.com/bbt-i18n/bbt/keytree"
)

// CheckNullValue warns about leaves whose reference-locale text is empty,
// grouped by source directory.
func CheckNullValue() Plugin {
	return Plugin{
		Name: "check-null-value",
		Hooks: map[Hook]HookFunc{
			CollectCompleted: checkNullValue,
		},
	}
}

// EmptyReference returns, per Value.Path, the keys whose text for lang is
// empty or missing.
func EmptyReference(tree *keytree.ValueTree, lang string) map[string][]string {
	out := make(map[string][]string)
	for _, n := range tree.Leaves() {
		v := n.Value()
		if v.Text(lang).IsEmpty() {
			out[v.Path] = append(out[v.Path], n.FullKey())
		}
	}
	return out
}

func checkNullValue(tree *keytree.ValueTree, ctx *Context) error {
	if ctx == nil || len(ctx.Langs) == 0 {
		return nil
	}
	lang := ctx.Langs[0]
	empty := EmptyReference(tree, lang)
	if len(empty) == 0 {
		return nil
	}

	paths := make([]string, 0, len(empty))
	for p := range empty {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	ctx.warnf("The following keys have no %s text. Fill them in, or ignore this if they are meant to be empty.", lang)
	for _, p := range paths {
		ctx.warnf("  %s/%s", p, lang)
		for _, key := range empty[p] {
			ctx.warnf("    %s", key)
		}
	}
	return nil
}

// RemoveNullValueKey drops leaves that have no entry at all for the
// reference locale before they reach the master table. Containers left
// empty are dropped too.
func RemoveNullValueKey() Plugin {
	return Plugin{
		Name: "remove-null-value-key",
		Hooks: map[Hook]HookFunc{
			CollectBeforeDiff: removeNullValueKey,
		},
	}
}

func removeNullValueKey(tree *keytree.ValueTree, ctx *Context) error {
	if ctx == nil || len(ctx.Langs) == 0 {
		return nil
	}
	lang := ctx.Langs[0]

	var doomed []*keytree.ValueNode
	tree.Visit(func(n *keytree.ValueNode) bool {
		if n.IsLeaf() && !n.Value().Has(lang) {
			doomed = append(doomed, n)
		}
		return true
	})
	for _, n := range doomed {
		parent := n.Parent()
		parent.Delete(n.Key())
		for parent != nil && parent.Type() == keytree.TypeNode && parent.Len() == 0 {
			grand := parent.Parent()
			grand.Delete(parent.Key())
			parent = grand
		}
	}
	if len(doomed) > 0 {
		ctx.warnf("Removed %d keys without %s text", len(doomed), lang)
	}
	return nil
}
