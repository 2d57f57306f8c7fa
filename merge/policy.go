package merge

import (
	"fmt"

	"github.com/bbt-i18n/bbt/keytree"
)

// Mode names a merge policy for translation values.
type Mode string

const (
	ModeRelaxed Mode = "relaxed"
	ModeStrict  Mode = "strict"
)

// Relaxed prefers the new value field by field, falling back to the old
// field wherever the new one is empty. Locales present on only one side are
// kept.
func Relaxed() MutateFunc[keytree.Value] {
	return func(oldValue, newValue keytree.Value) keytree.Value {
		out := keytree.Value{
			Path: firstNonEmpty(newValue.Path, oldValue.Path),
			Key:  firstNonEmpty(newValue.Key, oldValue.Key),
		}
		if len(oldValue.Texts)+len(newValue.Texts) > 0 {
			out.Texts = make(map[string]keytree.Text, len(oldValue.Texts)+len(newValue.Texts))
		}
		for locale, text := range oldValue.Texts {
			out.Texts[locale] = text.Clone()
		}
		for locale, text := range newValue.Texts {
			if text.IsEmpty() && oldValue.Has(locale) {
				continue
			}
			out.Texts[locale] = text.Clone()
		}
		return out
	}
}

// Strict behaves like Relaxed unless the reference locale's text changed.
// In that case the new value is taken as is and every other locale in
// locales is reset to empty, since its translation no longer matches.
func Strict(reference string, locales []string) MutateFunc[keytree.Value] {
	relaxed := Relaxed()
	return func(oldValue, newValue keytree.Value) keytree.Value {
		// Cell form: a collected list equals the array literal read back
		// from the master file.
		if newValue.Text(reference).String() == oldValue.Text(reference).String() {
			return relaxed(oldValue, newValue)
		}
		out := newValue.Clone()
		if out.Texts == nil {
			out.Texts = make(map[string]keytree.Text, len(locales))
		}
		for _, locale := range locales {
			if locale != reference {
				out.Texts[locale] = keytree.Text{}
			}
		}
		return out
	}
}

// Policy returns the MutateFunc for mode. The first locale is the reference
// locale.
func Policy(mode Mode, locales []string) (MutateFunc[keytree.Value], error) {
	switch mode {
	case "", ModeRelaxed:
		return Relaxed(), nil
	case ModeStrict:
		if len(locales) == 0 {
			return nil, fmt.Errorf("strict merge needs at least one locale")
		}
		return Strict(locales[0], locales), nil
	default:
		return nil, fmt.Errorf("unknown merge mode %q (supported: relaxed, strict)", mode)
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
