package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Properties reads and writes Java .properties locale files.
//
// Lines starting with '#' or '!' are comments and blank lines are ignored.
// The separator may be '=' or ':'. Keys are flat; dotted keys address the
// same tree paths as nested objects do in the other formats. A trailing
// backslash continues the value on the next line.
type Properties struct{}

func (Properties) Name() string { return "properties" }
func (Properties) Ext() string  { return "properties" }

func (Properties) Parse(data []byte) (*Object, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(text, "\n")

	obj := NewObject()
	for i := 0; i < len(lines); i++ {
		lineNo := i + 1
		logical := strings.TrimLeft(lines[i], " \t\f")
		if logical == "" || logical[0] == '#' || logical[0] == '!' {
			continue
		}
		for continued(logical) && i+1 < len(lines) {
			i++
			logical = logical[:len(logical)-1] + strings.TrimLeft(lines[i], " \t\f")
		}

		rawKey, rawValue := splitKeyValue(logical)
		key, err := unescapeProperty(rawKey)
		if err != nil {
			return nil, fmt.Errorf("parsing properties: line %d: %w", lineNo, err)
		}
		value, err := unescapeProperty(rawValue)
		if err != nil {
			return nil, fmt.Errorf("parsing properties: line %d: %w", lineNo, err)
		}
		if key == "" {
			return nil, fmt.Errorf("parsing properties: line %d: empty key", lineNo)
		}
		// Duplicate keys: the last one wins, the first position is kept.
		obj.Set(key, value)
	}
	return obj, nil
}

func (Properties) Marshal(obj *Object) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeProperties(&buf, "", obj); err != nil {
		return nil, fmt.Errorf("encoding properties: %w", err)
	}
	return buf.Bytes(), nil
}

func writeProperties(buf *bytes.Buffer, prefix string, obj *Object) error {
	for _, k := range obj.Keys() {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		v, _ := obj.Get(k)
		switch x := v.(type) {
		case *Object:
			if err := writeProperties(buf, key, x); err != nil {
				return err
			}
		case []string:
			return fmt.Errorf("key %q: lists cannot be stored in properties files", key)
		case string:
			buf.WriteString(escapeProperty(key, true))
			buf.WriteByte('=')
			buf.WriteString(escapeProperty(x, false))
			buf.WriteByte('\n')
		}
	}
	return nil
}

// continued reports whether a line ends in an odd number of backslashes.
func continued(s string) bool {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// splitKeyValue splits at the first unescaped '=', ':' or whitespace.
// Whitespace around the separator is dropped.
func splitKeyValue(s string) (key, value string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '=', ':':
			return s[:i], strings.TrimLeft(s[i+1:], " \t\f")
		case ' ', '\t', '\f':
			rest := strings.TrimLeft(s[i:], " \t\f")
			if rest != "" && (rest[0] == '=' || rest[0] == ':') {
				rest = strings.TrimLeft(rest[1:], " \t\f")
			}
			return s[:i], rest
		}
	}
	return s, ""
}

func unescapeProperty(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case 'u':
			if i+4 >= len(s) {
				return "", fmt.Errorf("truncated \\u escape in %q", s)
			}
			r, err := strconv.ParseUint(s[i+1:i+5], 16, 32)
			if err != nil {
				return "", fmt.Errorf("bad \\u escape in %q", s)
			}
			b.WriteRune(rune(r))
			i += 4
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

func escapeProperty(s string, isKey bool) string {
	var b strings.Builder
	for i, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '\f':
			b.WriteString(`\f`)
		case '=', ':':
			if isKey {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		case ' ':
			if isKey || i == 0 {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		case '#', '!':
			if isKey && i == 0 {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
