package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// JSON reads and writes JSON locale files, preserving key order.
type JSON struct{}

func (JSON) Name() string { return "json" }
func (JSON) Ext() string  { return "json" }

// Parse decodes a JSON object via json.Decoder tokens so that key order
// survives.
func (JSON) Parse(data []byte) (*Object, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	dec.UseNumber()

	t, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parsing JSON: expected {, got %v", t)
	}
	obj, err := decodeObject(dec)
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return obj, nil
}

// decodeObject reads members up to and including the closing brace.
func decodeObject(dec *json.Decoder) (*Object, error) {
	obj := NewObject()
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %T", kt)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		obj.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	t, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := t.(type) {
	case json.Delim:
		switch v {
		case '{':
			return decodeObject(dec)
		case '[':
			var items []string
			for dec.More() {
				var raw any
				if err := dec.Decode(&raw); err != nil {
					return nil, err
				}
				s, err := scalarString(raw)
				if err != nil {
					return nil, fmt.Errorf("item %d: %w", len(items), err)
				}
				items = append(items, s)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			if items == nil {
				items = []string{}
			}
			return items, nil
		default:
			return nil, fmt.Errorf("unexpected %v", v)
		}
	case json.Number:
		return v.String(), nil
	default:
		return scalarString(v)
	}
}

// Marshal writes the object with 2-space indentation in key order.
func (JSON) Marshal(obj *Object) ([]byte, error) {
	var b strings.Builder
	writeJSONObject(&b, obj, "")
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func writeJSONObject(b *strings.Builder, obj *Object, indent string) {
	if obj.Len() == 0 {
		b.WriteString("{}")
		return
	}
	inner := indent + "  "
	b.WriteString("{\n")
	for i, k := range obj.keys {
		b.WriteString(inner)
		b.WriteString(jsonString(k))
		b.WriteString(": ")
		switch v := obj.values[k].(type) {
		case *Object:
			writeJSONObject(b, v, inner)
		case []string:
			writeJSONList(b, v, inner)
		case string:
			b.WriteString(jsonString(v))
		}
		if i < len(obj.keys)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(indent)
	b.WriteByte('}')
}

func writeJSONList(b *strings.Builder, items []string, indent string) {
	if len(items) == 0 {
		b.WriteString("[]")
		return
	}
	inner := indent + "  "
	b.WriteString("[\n")
	for i, s := range items {
		b.WriteString(inner)
		b.WriteString(jsonString(s))
		if i < len(items)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(indent)
	b.WriteByte(']')
}

// jsonString returns s as a JSON string literal without HTML escaping.
func jsonString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
