// Package interpolation protects placeholders inside translatable text
// from machine translation.
//
// Before a text is sent to a translator, Guard.Replace swaps every
// interpolation expression ({name}, @:key, $t(key), <tag>, ...) for an opaque
// token such as $$0 and remembers the originals under the text's key. After
// translation, Guard.Reduce puts the originals back. An expression preceded
// by a backslash is escaped and left untouched. With the built-in tokens, text
// that already looks like a token is protected as well, so Reduce restores
// it verbatim instead of mistaking it for a placeholder.
package interpolation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Patterns are the built-in interpolation grammars, tried as one
// alternation in this order.
var Patterns = []string{
	// {name}, { a.b.c }, {date, localizedDatetime(format: LLL)}
	`\{\s*(?:\w+\.)*?\w+\s*(?:,\s*localizedDatetime(?:\([^)]*\))?)?\s*\}`,
	// @:(linked.key)
	`@:\((?:\w+\.)*?\w+\)`,
	// @:linked.key
	`@:(?:\w+\.)*?\w+`,
	// $t(key)
	`\$t\((?:\w+\.)*?\w+\)`,
	// <tag>
	`<\s*[a-zA-Z0-9]+\s*>`,
}

// DefaultPattern is the compiled alternation of Patterns.
var DefaultPattern = regexp.MustCompile(strings.Join(Patterns, "|"))

var defaultToken = regexp.MustCompile(`\$\$(\d+)`)

// tokenSafePattern is DefaultPattern plus literal $$n text.
var tokenSafePattern = regexp.MustCompile(defaultToken.String() + "|" + DefaultPattern.String())

// TokenFunc produces the replacement token for a matched expression.
type TokenFunc func(match string) string

// Register installs a token generator and, optionally, a pattern that
// replaces DefaultPattern for the current Replace call.
type Register func(token TokenFunc, pattern *regexp.Regexp)

// TokenHook customizes placeholder generation. It is invoked once at the
// start of every Replace call, so any counter it keeps starts fresh for each
// text.
type TokenHook func(register Register)

// Placeholder pairs a protected expression with the token standing in for it.
type Placeholder struct {
	Original string
	Token    string
}

// Guard replaces and restores interpolation expressions. It is safe for
// concurrent use.
type Guard struct {
	hook TokenHook

	mu      sync.Mutex
	records map[string][]Placeholder
}

// NewGuard returns a Guard. A nil hook selects the built-in $$n tokens.
func NewGuard(hook TokenHook) *Guard {
	return &Guard{hook: hook, records: make(map[string][]Placeholder)}
}

// Replace returns text with every unescaped interpolation expression
// swapped for a token, recording the originals under key.
func (g *Guard) Replace(key, text string) string {
	if text == "" {
		return ""
	}
	token, pattern := g.generator()

	var (
		b       strings.Builder
		records []Placeholder
		pos     int
		last    int
	)
	for pos <= len(text) {
		loc := pattern.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if end == start {
			// Empty match from a custom pattern; step past it.
			pos = end + 1
			continue
		}
		match := text[start:end]
		if start > 0 && text[start-1] == '\\' && !(g.hook == nil && defaultToken.MatchString(match)) {
			pos = start + 1
			continue
		}
		tok := token(match)
		b.WriteString(text[last:start])
		b.WriteString(tok)
		records = append(records, Placeholder{Original: match, Token: tok})
		last, pos = end, end
	}
	if len(records) == 0 {
		return text
	}
	b.WriteString(text[last:])

	g.mu.Lock()
	g.records[key] = records
	g.mu.Unlock()
	return b.String()
}

// Reduce restores the expressions recorded for key into text. Tokens that
// have no recorded original are left as they are.
func (g *Guard) Reduce(key, text string) string {
	g.mu.Lock()
	records, ok := g.records[key]
	g.mu.Unlock()
	if !ok {
		return text
	}

	if g.hook == nil {
		return defaultToken.ReplaceAllStringFunc(text, func(tok string) string {
			i, err := strconv.Atoi(tok[2:])
			if err != nil || i >= len(records) {
				return tok
			}
			return records[i].Original
		})
	}
	// Longest tokens first so that a token which prefixes another cannot
	// consume it.
	ordered := append([]Placeholder(nil), records...)
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i].Token) > len(ordered[j].Token) })
	for _, r := range ordered {
		text = strings.Replace(text, r.Token, r.Original, 1)
	}
	return text
}

// Placeholders returns the expressions recorded for key.
func (g *Guard) Placeholders(key string) []Placeholder {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Placeholder(nil), g.records[key]...)
}

func (g *Guard) generator() (TokenFunc, *regexp.Regexp) {
	var (
		token   TokenFunc
		pattern *regexp.Regexp
	)
	hook := g.hook
	if hook == nil {
		counterHook(func(fn TokenFunc, _ *regexp.Regexp) { token = fn })
		return token, tokenSafePattern
	}
	hook(func(fn TokenFunc, p *regexp.Regexp) {
		token, pattern = fn, p
	})
	if token == nil {
		counterHook(func(fn TokenFunc, _ *regexp.Regexp) { token = fn })
	}
	if pattern == nil {
		pattern = DefaultPattern
	}
	return token, pattern
}

func counterHook(register Register) {
	i := 0
	register(func(string) string {
		tok := "$$" + strconv.Itoa(i)
		i++
		return tok
	}, nil)
}
