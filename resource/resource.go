// Package resource regenerates per-directory locale files from a key tree.
//
// Leaves are grouped by their Value.Path. Each group yields one file per
// locale, <root>/<path>/<locale>.<ext>, holding the group's keys as a
// nested, key-sorted object.
package resource

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/bbt-i18n/bbt/keytree"
	"github.com/bbt-i18n/bbt/parser"
)

// Options configures Write.
type Options struct {
	// Fs is the filesystem to write to. Defaults to the OS filesystem.
	Fs afero.Fs
	// Root is the directory the Value paths are resolved against.
	Root string
	// Langs lists the locales to emit; every group gets one file per locale.
	Langs []string
	// Ext is the output file extension without the dot.
	Ext string
	// Parser encodes the objects. Defaults to JSON.
	Parser parser.Parser
}

// Group is the set of locale objects destined for one directory.
type Group struct {
	Path    string
	Objects map[string]*parser.Object
}

// GroupTree splits the tree's leaves by Value.Path and builds, per locale,
// a nested object from their dotted keys. Groups and keys are sorted.
// Locales in langs that a leaf lacks are written as empty strings.
func GroupTree(tree *keytree.ValueTree, langs []string) []*Group {
	byPath := make(map[string]*Group)
	for _, n := range tree.Leaves() {
		v := n.Value()
		g, ok := byPath[v.Path]
		if !ok {
			g = &Group{Path: v.Path, Objects: make(map[string]*parser.Object, len(langs))}
			for _, lang := range langs {
				g.Objects[lang] = parser.NewObject()
			}
			byPath[v.Path] = g
		}
		key := n.FullKey()
		for _, lang := range langs {
			g.Objects[lang].SetPath(key, objectValue(v.Text(lang)))
		}
	}

	groups := make([]*Group, 0, len(byPath))
	for _, g := range byPath {
		for _, obj := range g.Objects {
			obj.SortKeys()
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Path < groups[j].Path })
	return groups
}

func objectValue(t keytree.Text) any {
	if t.IsList() {
		return append([]string{}, t.List...)
	}
	// Cells edited by hand may still hold an array literal.
	if parsed := keytree.ParseText(t.Str); parsed.IsList() {
		return parsed.List
	}
	return t.Str
}

// FileName returns the output path of one locale file.
func FileName(root, dir, lang, ext string) string {
	return filepath.Join(root, filepath.FromSlash(dir), lang+"."+ext)
}

// Write emits every group's locale files and returns their paths in the
// order written.
func Write(tree *keytree.ValueTree, opts Options) ([]string, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	p := opts.Parser
	if p == nil {
		p = parser.JSON{}
	}
	ext := opts.Ext
	if ext == "" {
		ext = p.Ext()
	}

	var written []string
	for _, g := range GroupTree(tree, opts.Langs) {
		for _, lang := range opts.Langs {
			name := FileName(opts.Root, g.Path, lang, ext)
			data, err := p.Marshal(g.Objects[lang])
			if err != nil {
				return written, fmt.Errorf("encoding %s: %w", name, err)
			}
			if err := fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
				return written, fmt.Errorf("creating directory: %w", err)
			}
			if err := afero.WriteFile(fs, name, data, 0o644); err != nil {
				return written, fmt.Errorf("writing %s: %w", name, err)
			}
			written = append(written, name)
		}
	}
	return written, nil
}
