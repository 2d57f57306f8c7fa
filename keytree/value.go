package keytree

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// Text is one locale's translation: either a plain string or a list of
// strings.
type Text struct {
	Str  string
	List []string
}

// StringText returns a plain-string Text.
func StringText(s string) Text { return Text{Str: s} }

// ListText returns a list Text.
func ListText(items ...string) Text {
	if items == nil {
		items = []string{}
	}
	return Text{List: items}
}

var arrayLiteral = regexp.MustCompile(`^\[[\s\S]+\]$`)

// ParseText turns cell text back into a Text. A JSON array literal of
// scalars becomes a list; anything else stays a string.
func ParseText(s string) Text {
	if !arrayLiteral.MatchString(strings.TrimSpace(s)) {
		return Text{Str: s}
	}
	var raw []any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return Text{Str: s}
	}
	items := make([]string, 0, len(raw))
	for _, r := range raw {
		switch v := r.(type) {
		case string:
			items = append(items, v)
		case nil:
			items = append(items, "")
		case map[string]any, []any:
			return Text{Str: s}
		default:
			b, _ := json.Marshal(v)
			items = append(items, string(b))
		}
	}
	return Text{List: items}
}

// IsList reports whether the text is a list.
func (t Text) IsList() bool { return t.List != nil }

// IsEmpty reports whether the text carries no content.
func (t Text) IsEmpty() bool {
	if t.IsList() {
		for _, s := range t.List {
			if s != "" {
				return false
			}
		}
		return true
	}
	return t.Str == ""
}

// Equal reports whether two texts carry the same content.
func (t Text) Equal(o Text) bool {
	if t.IsList() != o.IsList() {
		return false
	}
	if !t.IsList() {
		return t.Str == o.Str
	}
	if len(t.List) != len(o.List) {
		return false
	}
	for i := range t.List {
		if t.List[i] != o.List[i] {
			return false
		}
	}
	return true
}

// String renders the text as a single cell. Lists become a JSON array
// literal that ParseText reads back.
func (t Text) String() string {
	if !t.IsList() {
		return t.Str
	}
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(t.List); err != nil {
		return ""
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Clone returns a copy that shares no memory with t.
func (t Text) Clone() Text {
	if t.List == nil {
		return t
	}
	return Text{List: append([]string{}, t.List...)}
}

// Value is the payload of a translation leaf.
type Value struct {
	// Path is the slash-separated directory, relative to the project root,
	// of the locale files the key was collected from.
	Path string
	// Key is the full dot-joined key.
	Key string
	// Texts maps a locale code to its translation.
	Texts map[string]Text
}

// Text returns the translation for locale, or an empty Text.
func (v Value) Text(locale string) Text {
	return v.Texts[locale]
}

// Has reports whether locale has an entry, even an empty one.
func (v Value) Has(locale string) bool {
	_, ok := v.Texts[locale]
	return ok
}

// With returns a copy of v with locale set to text.
func (v Value) With(locale string, text Text) Value {
	c := v.Clone()
	if c.Texts == nil {
		c.Texts = make(map[string]Text)
	}
	c.Texts[locale] = text
	return c
}

// Locales returns the locales present in the value, sorted.
func (v Value) Locales() []string {
	out := make([]string, 0, len(v.Texts))
	for k := range v.Texts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clone implements Record.
func (v Value) Clone() Value {
	c := Value{Path: v.Path, Key: v.Key}
	if v.Texts != nil {
		c.Texts = make(map[string]Text, len(v.Texts))
		for k, t := range v.Texts {
			c.Texts[k] = t.Clone()
		}
	}
	return c
}

// Assign implements Record. Empty Path and Key in partial are ignored;
// every locale present in partial.Texts is copied, empty or not.
func (v Value) Assign(partial Value) Value {
	c := v.Clone()
	if partial.Path != "" {
		c.Path = partial.Path
	}
	if partial.Key != "" {
		c.Key = partial.Key
	}
	if len(partial.Texts) > 0 && c.Texts == nil {
		c.Texts = make(map[string]Text, len(partial.Texts))
	}
	for k, t := range partial.Texts {
		c.Texts[k] = t.Clone()
	}
	return c
}

// ValueTree is the tree shape used across the project.
type ValueTree = Tree[Value]

// ValueNode is a node of a ValueTree.
type ValueNode = Node[Value]

// NewValueTree returns an empty ValueTree.
func NewValueTree() *ValueTree { return New[Value]() }
