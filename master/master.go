// Package master reads and writes the master translation table, the single
// spreadsheet translators edit.
//
// The table has one header row (path, key, then one column per locale) and
// one row per translation key. It is stored either as an .xlsx workbook with
// a sheet named BBT or as a UTF-8 CSV file with a byte order mark.
package master

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/bbt-i18n/bbt/keytree"
)

const (
	// SheetName is the worksheet holding the table in .xlsx files.
	SheetName = "BBT"
	// PathColumn and KeyColumn are the fixed leading header cells.
	PathColumn = "path"
	KeyColumn  = "key"
)

// UnsupportedFormatError is returned for master files that are neither
// .xlsx nor .csv.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported master file %s (supported: .xlsx, .csv)", e.Path)
}

// Table is the in-memory master table. Rows exclude the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable returns an empty table for langs.
func NewTable(langs []string) *Table {
	return &Table{Header: append([]string{PathColumn, KeyColumn}, langs...)}
}

// Langs returns the locale columns in header order.
func (t *Table) Langs() []string {
	var out []string
	for _, h := range t.Header {
		if h != PathColumn && h != KeyColumn && h != "" {
			out = append(out, h)
		}
	}
	return out
}

func (t *Table) column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Exists reports whether the master file is present.
func Exists(fs afero.Fs, path string) bool {
	ok, err := afero.Exists(fs, path)
	return err == nil && ok
}

// Read loads a master file, dispatching on its extension.
func Read(fs afero.Fs, path string) (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		t, err = readXLSX(fs, path)
	case ".csv":
		t, err = readCSV(fs, path)
	default:
		return nil, &UnsupportedFormatError{Path: path}
	}
	if err != nil {
		return nil, err
	}
	if t.column(PathColumn) < 0 || t.column(KeyColumn) < 0 {
		return nil, fmt.Errorf("%s: header must contain %q and %q columns", path, PathColumn, KeyColumn)
	}
	return t, nil
}

// Write stores a master file, dispatching on its extension. Parent
// directories are created as needed.
func Write(fs afero.Fs, path string, t *Table) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".csv" {
		return &UnsupportedFormatError{Path: path}
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if ext == ".xlsx" {
		return writeXLSX(fs, path, t)
	}
	return writeCSV(fs, path, t)
}

// ToTree converts a table into a key tree. Rows whose key is malformed or
// repeats an earlier row are reported through onWarn and skipped. Cells are
// kept as plain strings; list texts stay in their array literal form until
// resource writes them out.
func ToTree(t *Table, onWarn func(row int, err error)) *keytree.ValueTree {
	tree := keytree.NewValueTree()
	pathCol, keyCol := t.column(PathColumn), t.column(KeyColumn)
	langs := t.Langs()
	langCols := make([]int, len(langs))
	for i, lang := range langs {
		langCols[i] = t.column(lang)
	}

	for i, row := range t.Rows {
		if isBlank(row) {
			continue
		}
		key := strings.TrimSpace(cell(row, keyCol))
		node, err := tree.Add(key, keytree.TypeLeaf, true)
		if err != nil {
			if onWarn != nil {
				// +2: one for the header, one for 1-based numbering.
				onWarn(i+2, err)
			}
			continue
		}
		v := keytree.Value{
			Path:  cell(row, pathCol),
			Key:   key,
			Texts: make(map[string]keytree.Text, len(langs)),
		}
		for j, lang := range langs {
			v.Texts[lang] = keytree.StringText(cell(row, langCols[j]))
		}
		// Cannot fail: node was just created as a leaf.
		_ = node.SetValue(v)
	}
	return tree
}

// FromTree converts a key tree into a table with one row per leaf, ordered
// by key.
func FromTree(tree *keytree.ValueTree, langs []string) *Table {
	t := NewTable(langs)
	for _, n := range tree.Leaves() {
		v := n.Value()
		row := make([]string, 0, len(t.Header))
		row = append(row, v.Path, n.FullKey())
		for _, lang := range langs {
			row = append(row, v.Text(lang).String())
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Load reads a master file straight into a tree, returning the locales in
// header order.
func Load(fs afero.Fs, path string, onWarn func(row int, err error)) (*keytree.ValueTree, []string, error) {
	t, err := Read(fs, path)
	if err != nil {
		return nil, nil, err
	}
	return ToTree(t, onWarn), t.Langs(), nil
}

// Save writes tree to a master file with one column per locale.
func Save(fs afero.Fs, path string, tree *keytree.ValueTree, langs []string) error {
	return Write(fs, path, FromTree(tree, langs))
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
