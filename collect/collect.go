// Package collect scans a source tree for locale files and folds them into a
// single key tree.
//
// A locale file is any file matched by the configured pattern whose base
// name (without extension) is one of the project's locales, e.g.
// src/pages/home/zh.tr. Each leaf becomes a Value carrying the directory it
// came from, its full key and one text per locale.
package collect

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/bbt-i18n/bbt/keytree"
	"github.com/bbt-i18n/bbt/parser"
)

// DefaultConcurrency bounds parallel file reads.
const DefaultConcurrency = 10

// Options configures a collection run.
type Options struct {
	// Fs is the filesystem to read from. Defaults to the OS filesystem.
	Fs afero.Fs
	// Root is the project root; Value.Path is relative to it.
	Root string
	// Src is the directory to scan, relative to Root unless absolute.
	Src string
	// Test selects candidate files by their Src-relative path.
	Test *regexp.Regexp
	// Exclude lists directory patterns to skip. See Files.
	Exclude []string
	// Langs lists the project's locales.
	Langs []string
	// Parser decodes file contents. Defaults to JSON.
	Parser parser.Parser
	// Concurrency bounds parallel reads. Defaults to DefaultConcurrency.
	Concurrency int
	// OnFile, when set, is called once per locale file after it is merged.
	OnFile func(path string)
}

// DuplicateKeyError reports a key defined twice in the same locale file,
// typically once as a dotted key and once as a nested object.
type DuplicateKeyError struct {
	File string
	Key  string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: duplicate key %q", e.File, e.Key)
}

type localeFile struct {
	path   string // as passed to the filesystem
	dir    string // slash-separated, relative to Root
	lang   string
	object *parser.Object
}

// Collect scans the source directory and returns the collected tree.
// Locale files are merged in path order, so the result does not depend on
// read scheduling.
func Collect(ctx context.Context, opts Options) (*keytree.ValueTree, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	p := opts.Parser
	if p == nil {
		p = parser.JSON{}
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	src := opts.Src
	if !filepath.IsAbs(src) {
		src = filepath.Join(opts.Root, src)
	}
	paths, err := Files(fs, src, opts.Test, opts.Exclude)
	if err != nil {
		return nil, err
	}

	var candidates []string
	for _, path := range paths {
		if slices.Contains(opts.Langs, langOf(path)) {
			candidates = append(candidates, path)
		}
	}

	files := make([]localeFile, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := afero.ReadFile(fs, path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			obj, err := p.Parse(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			dir, err := filepath.Rel(opts.Root, filepath.Dir(path))
			if err != nil {
				return err
			}
			dir = filepath.ToSlash(dir)
			if dir == "." {
				dir = ""
			}
			files[i] = localeFile{path: path, dir: dir, lang: langOf(path), object: obj}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tree := keytree.NewValueTree()
	for _, f := range files {
		if err := Merge(tree, f.path, f.dir, f.lang, f.object); err != nil {
			return nil, err
		}
		if opts.OnFile != nil {
			opts.OnFile(f.path)
		}
	}
	return tree, nil
}

// Merge folds one decoded locale file into tree. Nested objects and dotted
// keys address the same tree paths. Leaves receive the file's directory,
// their full key and the text for lang.
func Merge(tree *keytree.ValueTree, file, dir, lang string, obj *parser.Object) error {
	seen := make(map[string]bool)
	return mergeObject(tree.Root(), obj, file, dir, lang, seen)
}

func mergeObject(parent *keytree.ValueNode, obj *parser.Object, file, dir, lang string, seen map[string]bool) error {
	for _, key := range obj.Keys() {
		v, _ := obj.Get(key)
		segs, err := keytree.ParsePath(key)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}

		node := parent
		for _, seg := range segs[:len(segs)-1] {
			if node, err = child(node, seg, keytree.TypeNode); err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
		}
		last := segs[len(segs)-1]

		switch val := v.(type) {
		case *parser.Object:
			next, err := child(node, last, keytree.TypeNode)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			if err := mergeObject(next, val, file, dir, lang, seen); err != nil {
				return err
			}
		default:
			text, err := toText(val)
			if err != nil {
				return fmt.Errorf("%s: key %q: %w", file, key, err)
			}
			leaf, err := child(node, last, keytree.TypeLeaf)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			fullKey := leaf.FullKey()
			if seen[fullKey] {
				return &DuplicateKeyError{File: file, Key: fullKey}
			}
			seen[fullKey] = true
			leaf.Assign(keytree.Value{
				Path:  dir,
				Key:   fullKey,
				Texts: map[string]keytree.Text{lang: text},
			})
		}
	}
	return nil
}

// child returns the existing child under key or creates one of typ. An
// existing child of a different kind is a structural conflict between
// locale files.
func child(parent *keytree.ValueNode, key string, typ keytree.NodeType) (*keytree.ValueNode, error) {
	if n := parent.Child(key); n != nil {
		if n.IsLeaf() != (typ == keytree.TypeLeaf) {
			return nil, fmt.Errorf("key %q is both a leaf and a container", n.FullKey())
		}
		return n, nil
	}
	return parent.AddChild(key, typ)
}

func toText(v any) (keytree.Text, error) {
	switch x := v.(type) {
	case string:
		return keytree.StringText(x), nil
	case []string:
		return keytree.ListText(x...), nil
	default:
		return keytree.Text{}, fmt.Errorf("unsupported value of type %T", v)
	}
}

func langOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
