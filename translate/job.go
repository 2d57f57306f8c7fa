package translate

import (
	"regexp"
	"strconv"

	"github.com/bbt-i18n/bbt/keytree"
)

// Job is the record to translate into one target locale.
type Job struct {
	Target string
	Source string
	// Record maps a leaf key to its source text. List texts are flattened
	// into key[i] entries.
	Record map[string]string
}

// Pending builds one job per target locale from the leaves of tree. Unless
// all is set, only leaves whose target text is empty are included. Leaves
// without source text are never included. Targets with nothing to do are
// omitted.
func Pending(tree *keytree.ValueTree, source string, targets []string, all bool) []Job {
	var jobs []Job
	for _, target := range targets {
		if target == source {
			continue
		}
		record := make(map[string]string)
		for _, leaf := range tree.Leaves() {
			v := leaf.Value()
			src := v.Text(source)
			if src.IsEmpty() {
				continue
			}
			if !all && !v.Text(target).IsEmpty() {
				continue
			}
			key := leaf.FullKey()
			items, ok := listItems(src)
			if !ok {
				record[key] = src.Str
				continue
			}
			for i, item := range items {
				record[itemKey(key, i)] = item
			}
		}
		if len(record) > 0 {
			jobs = append(jobs, Job{Target: target, Source: source, Record: record})
		}
	}
	return jobs
}

// Size returns the number of non-empty texts in the job.
func (j Job) Size() int {
	n := 0
	for _, text := range j.Record {
		if text != "" {
			n++
		}
	}
	return n
}

var itemKeyPattern = regexp.MustCompile(`^(.+)\[(\d+)\]$`)

func itemKey(key string, i int) string {
	return key + "[" + strconv.Itoa(i) + "]"
}

// listItems returns the items of a list text. Master cells hold lists as
// array literals, so those count as lists too.
func listItems(t keytree.Text) ([]string, bool) {
	if t.IsList() {
		return t.List, true
	}
	if parsed := keytree.ParseText(t.Str); parsed.IsList() {
		return parsed.List, true
	}
	return nil, false
}

// Apply assigns results to the matching leaves of tree and returns how many
// were applied. Results for key[i] are written into element i of a list
// text shaped like the source list. Results whose key has no leaf are
// ignored.
func Apply(tree *keytree.ValueTree, source string, results []Result) int {
	applied := 0
	lists := make(map[*keytree.ValueNode]map[string][]string)

	for _, r := range results {
		if leaf := tree.Get(r.Key); leaf != nil && leaf.IsLeaf() {
			if _, isList := listItems(leaf.Value().Text(source)); !isList {
				leaf.Assign(keytree.Value{Texts: map[string]keytree.Text{r.Target: keytree.StringText(r.Text)}})
				applied++
			}
			continue
		}

		m := itemKeyPattern.FindStringSubmatch(r.Key)
		if m == nil {
			continue
		}
		leaf := tree.Get(m[1])
		if leaf == nil || !leaf.IsLeaf() {
			continue
		}
		srcItems, isList := listItems(leaf.Value().Text(source))
		i, err := strconv.Atoi(m[2])
		if err != nil || !isList || i >= len(srcItems) {
			continue
		}

		byTarget := lists[leaf]
		if byTarget == nil {
			byTarget = make(map[string][]string)
			lists[leaf] = byTarget
		}
		items := byTarget[r.Target]
		if items == nil {
			items = make([]string, len(srcItems))
			if cur, ok := listItems(leaf.Value().Text(r.Target)); ok {
				copy(items, cur)
			}
			byTarget[r.Target] = items
		}
		items[i] = r.Text
		applied++
	}

	for leaf, byTarget := range lists {
		texts := make(map[string]keytree.Text, len(byTarget))
		for target, items := range byTarget {
			texts[target] = keytree.ListText(items...)
		}
		leaf.Assign(keytree.Value{Texts: texts})
	}
	return applied
}
