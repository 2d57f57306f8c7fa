package interpolation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"testing"
)

func TestReplace_Vectors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"linked parens", "@:(common.get)@:(scoreCenter.ruleSetting)@:(common.list)", "$$0$$1$$2"},
		{"trailing dot is not a variable", "{ xxx.asd. }会员积分统计信息", "{ xxx.asd. }会员积分统计信息"},
		{"mixed", "$t('asd')会员{ xxx.0.12.xxx }会员@:(scoreCenter.scoreRatio)", "$t('asd')会员$$0会员$$1"},
		{"escaped", `$t('asd')会员\{ xxx.0.12.xxx }会员\@:(scoreCenter.scoreRatio)`, `$t('asd')会员\{ xxx.0.12.xxx }会员\@:(scoreCenter.scoreRatio)`},
		{"unterminated link", "{ xxx.0.12.xxx }会员@:(scoreCenter.scoreRatio积$t(NNN)信息", "$$0会员@:(scoreCenter.scoreRatio积$$1信息"},
		{"tags", "如谷之歌，<NiMI>。与风共存，< SSN >与种子越冬，与鸟歌颂。<89>", "如谷之歌，$$0。与风共存，$$1与种子越冬，与鸟歌颂。$$2"},
		{"escaped and malformed tags", `\<SS>刚才还在担心<>，<ni)>你不会是天使吧\ <T>`, `\<SS>刚才还在担心<>，<ni)>你不会是天使吧\ $$0`},
		{"datetime", "{xxx, localizedDatetime(format: LLL)}", "$$0"},
		{"datetime spaced", "{ xxx,localizedDatetime(format: LLL)}", "$$0"},
		{"datetime free format", "{xxx.xx, localizedDatetime(  format  :    YYYY年M月D日dddd HH:mm    )}SSS", "$$0SSS"},
		{"datetime no args", "{when, localizedDatetime}", "$$0"},
		{"plain", "nothing to see", "nothing to see"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGuard(nil)
			if got := g.Replace("k", tc.in); got != tc.want {
				t.Fatalf("Replace(%q)\n got  %q\n want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestReduce_RoundTrip(t *testing.T) {
	inputs := []string{
		"@:(common.get)@:(scoreCenter.ruleSetting)@:(common.list)",
		"$t('asd')会员{ xxx.0.12.xxx }会员@:(scoreCenter.scoreRatio)",
		"如谷之歌，<NiMI>。与风共存，< SSN >与种子越冬，与鸟歌颂。<89>",
		`\<SS>刚才还在担心<>，<ni)>你不会是天使吧\ <T>`,
		"Hello {user.name}, see @:common.more",
	}
	g := NewGuard(nil)
	for i, in := range inputs {
		key := fmt.Sprintf("k%d", i)
		if got := g.Reduce(key, g.Replace(key, in)); got != in {
			t.Errorf("round trip %d:\n got  %q\n want %q", i, got, in)
		}
	}
}

func TestReduce_ReorderedTokens(t *testing.T) {
	g := NewGuard(nil)
	replaced := g.Replace("greet", "{a} loves {b}")
	if replaced != "$$0 loves $$1" {
		t.Fatalf("Replace = %q", replaced)
	}
	if got := g.Reduce("greet", "$$1 は $$0 が好き"); got != "{b} は {a} が好き" {
		t.Fatalf("Reduce = %q", got)
	}
}

func TestReplace_LiteralTokenText(t *testing.T) {
	g := NewGuard(nil)
	replaced := g.Replace("price", "costs $$0 per {unit}")
	if replaced != "costs $$0 per $$1" {
		t.Fatalf("Replace = %q", replaced)
	}
	want := []Placeholder{{Original: "$$0", Token: "$$0"}, {Original: "{unit}", Token: "$$1"}}
	if got := g.Placeholders("price"); !reflect.DeepEqual(got, want) {
		t.Fatalf("Placeholders = %+v, want %+v", got, want)
	}
	if got := g.Reduce("price", "每 $$1 花费 $$0"); got != "每 {unit} 花费 $$0" {
		t.Fatalf("Reduce = %q", got)
	}

	in := `{a} then \$$0`
	if got := g.Reduce("escaped", g.Replace("escaped", in)); got != in {
		t.Fatalf("escaped literal round trip: got %q, want %q", got, in)
	}
}

func TestReduce_UnknownTokensAndKeys(t *testing.T) {
	g := NewGuard(nil)
	g.Replace("k", "{a}")

	if got := g.Reduce("k", "$$0 and $$7"); got != "{a} and $$7" {
		t.Fatalf("out-of-range token: got %q", got)
	}
	if got := g.Reduce("unknown", "$$0"); got != "$$0" {
		t.Fatalf("unknown key: got %q", got)
	}
}

func TestReplace_ManyTokens(t *testing.T) {
	var in, want strings.Builder
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&in, "{v%d} ", i)
		fmt.Fprintf(&want, "$$%d ", i)
	}
	g := NewGuard(nil)
	out := g.Replace("many", in.String())
	if out != want.String() {
		t.Fatalf("Replace = %q", out)
	}
	if got := g.Reduce("many", out); got != in.String() {
		t.Fatalf("Reduce = %q", got)
	}
}

func TestTokenHook_CustomFormat(t *testing.T) {
	hook := func(register Register) {
		n := 0
		register(func(string) string {
			n++
			return fmt.Sprintf("[[%d]]", n)
		}, nil)
	}
	g := NewGuard(hook)

	out := g.Replace("k", "{a} and {b}")
	if out != "[[1]] and [[2]]" {
		t.Fatalf("Replace = %q", out)
	}
	if got := g.Reduce("k", "[[2]] und [[1]]"); got != "{b} und {a}" {
		t.Fatalf("Reduce = %q", got)
	}

	// The counter restarts for each text.
	if out := g.Replace("k2", "{c}"); out != "[[1]]" {
		t.Fatalf("second Replace = %q", out)
	}
}

func TestTokenHook_CustomPattern(t *testing.T) {
	pattern := regexp.MustCompile(`%[sd]`)
	g := NewGuard(func(register Register) {
		register(func(m string) string { return "<x" + m[1:] + ">" }, pattern)
	})

	out := g.Replace("k", `%s has %d items, {not} touched, \%s kept`)
	if out != `<xs> has <xd> items, {not} touched, \%s kept` {
		t.Fatalf("Replace = %q", out)
	}
	if got := g.Reduce("k", out); got != `%s has %d items, {not} touched, \%s kept` {
		t.Fatalf("Reduce = %q", got)
	}
}
