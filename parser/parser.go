// Package parser reads and writes locale resource files.
//
// Every format decodes into an Object: an ordered mapping whose values are
// strings, string lists or nested Objects. Scalars that are not strings
// (numbers, booleans) are converted to their textual form, so {"a": 5} and
// {"a": "5"} decode to the same Object.
package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Object is an ordered string-keyed mapping.
type Object struct {
	keys   []string
	values map[string]any // string | []string | *Object
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string { return o.keys }

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

// Get returns the value for key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Set stores v under key, keeping the key's position if it already exists.
// v must be a string, a []string or an *Object.
func (o *Object) Set(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Object returns the nested object under key, creating it (and replacing
// any non-object value) when needed.
func (o *Object) Object(key string) *Object {
	if child, ok := o.values[key].(*Object); ok {
		return child
	}
	child := NewObject()
	o.Set(key, child)
	return child
}

// SetPath stores v under a dot-separated path, creating intermediate
// objects as needed.
func (o *Object) SetPath(path string, v any) {
	segs := strings.Split(path, ".")
	cur := o
	for _, seg := range segs[:len(segs)-1] {
		cur = cur.Object(seg)
	}
	cur.Set(segs[len(segs)-1], v)
}

// SortKeys orders keys lexically at every level.
func (o *Object) SortKeys() {
	sort.Strings(o.keys)
	for _, v := range o.values {
		if child, ok := v.(*Object); ok {
			child.SortKeys()
		}
	}
}

// Map converts the object to plain Go maps and slices.
func (o *Object) Map() map[string]any {
	out := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		switch v := o.values[k].(type) {
		case *Object:
			out[k] = v.Map()
		case []string:
			items := make([]any, len(v))
			for i, s := range v {
				items[i] = s
			}
			out[k] = items
		default:
			out[k] = v
		}
	}
	return out
}

// Parser converts between file bytes and Objects.
type Parser interface {
	// Name is the format name used in configuration.
	Name() string
	// Ext is the file extension without the dot.
	Ext() string
	Parse(data []byte) (*Object, error)
	Marshal(obj *Object) ([]byte, error)
}

var registry = map[string]Parser{
	"json":       JSON{},
	"yaml":       YAML{},
	"yml":        YAML{},
	"toml":       TOML{},
	"properties": Properties{},
}

// ByName returns the parser registered for a format name or extension.
func ByName(name string) (Parser, error) {
	p, ok := registry[strings.ToLower(strings.TrimPrefix(name, "."))]
	if !ok {
		return nil, fmt.Errorf("unsupported resource format %q (supported: json, yaml, toml, properties)", name)
	}
	return p, nil
}

// ForFile returns the parser matching a file's extension.
func ForFile(path string) (Parser, error) {
	return ByName(filepath.Ext(path))
}

// scalarString converts a decoded scalar to its textual form.
func scalarString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case nil:
		return "", nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(s), nil
	case fmt.Stringer:
		return s.String(), nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", v)
	}
}

// fromValue converts a generically decoded value into an Object value.
func fromValue(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		return fromMap(x)
	case []any:
		items := make([]string, 0, len(x))
		for i, item := range x {
			s, err := scalarString(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			items = append(items, s)
		}
		return items, nil
	default:
		return scalarString(v)
	}
}

// fromMap converts an unordered map; keys are sorted.
func fromMap(m map[string]any) (*Object, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	obj := NewObject()
	for _, k := range keys {
		v, err := fromValue(m[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		obj.Set(k, v)
	}
	return obj, nil
}
