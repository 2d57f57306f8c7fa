package translate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bbt-i18n/bbt/keytree"
)

// ---------------------------------------------------------------------------
// parseTranslations / splitStrings
// ---------------------------------------------------------------------------

func TestParseTranslations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"plain", `["a", "b"]`, []string{"a", "b"}},
		{"fenced", "```json\n[\"a\", \"b\"]\n```", []string{"a", "b"}},
		{"chatty", "Here you go:\n[\"a\", \"b\"]\nEnjoy.", []string{"a", "b"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseTranslations(tc.content, 2)
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}

	if _, err := parseTranslations(`["only one"]`, 2); err == nil {
		t.Fatal("length mismatch should fail")
	}
	if _, err := parseTranslations("not json", 1); err == nil {
		t.Fatal("garbage should fail")
	}
}

func TestSplitStrings(t *testing.T) {
	chunks := splitStrings([]string{"a", "b", "c", "d", "e"}, 2)
	if len(chunks) != 3 || len(chunks[2]) != 1 || chunks[2][0] != "e" {
		t.Fatalf("chunks = %v", chunks)
	}
	if got := splitStrings([]string{"a"}, 0); len(got) != 1 {
		t.Fatalf("chunk size 0 should keep one chunk, got %v", got)
	}
}

// ---------------------------------------------------------------------------
// Backends
// ---------------------------------------------------------------------------

func TestNewBackend_RequiresKey(t *testing.T) {
	for _, id := range []string{ProviderGoogle, ProviderDeepL, ProviderChatGPT} {
		if _, err := NewBackend(Provider{ID: id}); !errors.Is(err, ErrMissingAPIKey) {
			t.Fatalf("%s: err = %v, want ErrMissingAPIKey", id, err)
		}
	}
	if _, err := NewBackend(Provider{ID: "babel", APIKey: "k"}); err == nil {
		t.Fatal("unknown provider should fail")
	}
}

func TestGoogleBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/language/translate/v2" || r.URL.Query().Get("key") != "gkey" {
			t.Errorf("unexpected request %s", r.URL)
		}
		var req googleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Target != "zh-CN" || req.Format != "text" || req.Source != "en" {
			t.Errorf("request = %+v", req)
		}
		var resp googleResponse
		for _, q := range req.Q {
			resp.Data.Translations = append(resp.Data.Translations, struct {
				TranslatedText string `json:"translatedText"`
			}{TranslatedText: "zh:" + q})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	b, err := NewBackend(Provider{ID: ProviderGoogle, APIKey: "gkey", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	got, err := b.TranslateTexts(context.Background(), []string{"one", "two"}, "zh_CN", "en")
	if err != nil {
		t.Fatalf("TranslateTexts: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"zh:one", "zh:two"}) {
		t.Fatalf("got %q", got)
	}
}

func TestDeepLBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/translate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "DeepL-Auth-Key dkey" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.PostForm.Get("target_lang") != "EN-US" || r.PostForm.Get("source_lang") != "ZH" {
			t.Errorf("form = %v", r.PostForm)
		}
		var resp deeplResponse
		for _, text := range r.PostForm["text"] {
			resp.Translations = append(resp.Translations, struct {
				DetectedSourceLanguage string `json:"detected_source_language"`
				Text                   string `json:"text"`
			}{"ZH", strings.ToUpper(text)})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	b, err := NewBackend(Provider{ID: ProviderDeepL, APIKey: "dkey", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := b.TranslateTexts(context.Background(), []string{"a", "b"}, "en_US", "zh_CN")
	if err != nil {
		t.Fatalf("TranslateTexts: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("got %q", got)
	}
}

func TestChatBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer ckey" {
			t.Errorf("Authorization = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Model != DefaultChatModel || len(req.Messages) != 2 {
			t.Errorf("request = %+v", req)
		}
		if !strings.Contains(req.Messages[0].Content, "to Japanese") {
			t.Errorf("system prompt lacks target language name: %s", req.Messages[0].Content)
		}
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"`+
			"```json\\n[\\\"いち\\\", \\\"に $$0\\\"]\\n```"+`"}}]}`)
	}))
	defer srv.Close()

	b, err := NewBackend(Provider{ID: ProviderChatGPT, APIKey: "ckey", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	got, err := b.TranslateTexts(context.Background(), []string{"one", "two $$0"}, "ja", "en")
	if err != nil {
		t.Fatalf("TranslateTexts: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"いち", "に $$0"}) {
		t.Fatalf("got %q", got)
	}
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, "slow down")
	}))
	defer srv.Close()

	b, _ := NewBackend(Provider{ID: ProviderGoogle, APIKey: "k", BaseURL: srv.URL})
	_, err := b.TranslateTexts(context.Background(), []string{"x"}, "en", "")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != 429 || se.RetryAfter != 2*time.Second || se.Body != "slow down" {
		t.Fatalf("StatusError = %+v", se)
	}
}

func TestLanguageName(t *testing.T) {
	if got := LanguageName("zh_CN"); !strings.Contains(got, "Chinese") {
		t.Fatalf("LanguageName(zh_CN) = %q", got)
	}
	if got := LanguageName("not a code"); got != "not a code" {
		t.Fatalf("LanguageName fallback = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

type fakeBackend struct {
	mu      sync.Mutex
	batches [][]string
	fn      func(attempt int, texts []string) ([]string, error)
	tries   map[string]int
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) TranslateTexts(_ context.Context, texts []string, target, _ string) ([]string, error) {
	f.mu.Lock()
	if f.tries == nil {
		f.tries = make(map[string]int)
	}
	id := strings.Join(texts, "|")
	attempt := f.tries[id]
	f.tries[id]++
	f.batches = append(f.batches, append([]string(nil), texts...))
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(attempt, texts)
	}
	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = target + ":" + text
	}
	return out, nil
}

func collectResults(t *testing.T, tr *Translator, record map[string]string) (map[string]string, Summary) {
	t.Helper()
	got := make(map[string]string)
	summary, err := tr.Translate(context.Background(), record, "en", "zh", func(results []Result) {
		for _, r := range results {
			if r.Target != "en" {
				t.Errorf("target = %q", r.Target)
			}
			got[r.Key] = r.Text
		}
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	return got, summary
}

func TestTranslate_BatchesAndInterpolation(t *testing.T) {
	fake := &fakeBackend{}
	var progress []int
	var mu sync.Mutex
	tr := New(fake, Options{BatchSize: 2, MaxConcurrent: 1, OnProgress: func(_ string, done, total int) {
		mu.Lock()
		progress = append(progress, done)
		mu.Unlock()
		if total != 5 {
			t.Errorf("total = %d", total)
		}
	}})
	defer tr.Close()

	record := map[string]string{
		"a": "你好 {name}",
		"b": "<0>粗体</0>",
		"c": "",
		"d": `转义 \{name}`,
		"e": "@:common.ok",
		"f": "普通",
	}
	got, summary := collectResults(t, tr, record)

	want := map[string]string{
		"a": "en:你好 {name}",
		"b": "en:<0>粗体</0>",
		"d": `en:转义 \{name}`,
		"e": "en:@:common.ok",
		"f": "en:普通",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("results = %v\nwant %v", got, want)
	}
	if summary != (Summary{Total: 5, Translated: 5}) {
		t.Fatalf("summary = %+v", summary)
	}
	if len(fake.batches) != 3 {
		t.Fatalf("batches = %v, want 3 batches of at most 2", fake.batches)
	}
	if fake.batches[0][0] != "你好 $$0" {
		t.Fatalf("backend saw %q, interpolation not guarded", fake.batches[0][0])
	}
	if !reflect.DeepEqual(progress, []int{2, 4, 5}) {
		t.Fatalf("progress = %v", progress)
	}
	if tr.ErrorLogPath() != "" {
		t.Fatalf("no error log expected, got %s", tr.ErrorLogPath())
	}
}

func TestTranslate_RetryThenSucceed(t *testing.T) {
	fake := &fakeBackend{}
	fake.fn = func(attempt int, texts []string) ([]string, error) {
		if attempt < 2 {
			return nil, errors.New("transient")
		}
		return texts, nil
	}
	tr := New(fake, Options{MaxRetries: 3, RequestDelay: time.Millisecond})
	defer tr.Close()

	got, summary := collectResults(t, tr, map[string]string{"k": "v"})
	if got["k"] != "v" || summary.Failed != 0 {
		t.Fatalf("got %v, summary %+v", got, summary)
	}
	if len(fake.batches) != 3 {
		t.Fatalf("attempts = %d, want 3", len(fake.batches))
	}
}

func TestTranslate_FailedBatchIsLoggedAndSkipped(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeBackend{}
	fake.fn = func(_ int, texts []string) ([]string, error) {
		for _, text := range texts {
			if strings.Contains(text, "boom") {
				return nil, errors.New("backend exploded")
			}
		}
		return texts, nil
	}
	var errs []string
	tr := New(fake, Options{
		BatchSize:   1,
		MaxRetries:  2,
		ErrorLogDir: dir,
		OnError:     func(format string, args ...any) { errs = append(errs, format) },
	})
	tr.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }

	got, summary := collectResults(t, tr, map[string]string{"ok": "fine", "bad": "boom {n}"})
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !reflect.DeepEqual(got, map[string]string{"ok": "fine"}) {
		t.Fatalf("results = %v", got)
	}
	if summary != (Summary{Total: 2, Translated: 1, Failed: 1}) {
		t.Fatalf("summary = %+v", summary)
	}
	if fake.tries["boom $$0"] != 3 {
		t.Fatalf("failing batch tried %d times, want 3", fake.tries["boom $$0"])
	}
	if len(errs) != 1 {
		t.Fatalf("OnError calls = %d", len(errs))
	}

	path := filepath.Join(dir, "bbt-translate-error-2024-03-09.log")
	if tr.ErrorLogPath() != path {
		t.Fatalf("ErrorLogPath = %q, want %q", tr.ErrorLogPath(), path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading error log: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &rec); err != nil {
		t.Fatalf("error log is not one JSON line: %v\n%s", err, data)
	}
	for field, want := range map[string]string{
		"run":        tr.RunID(),
		"translator": "fake",
		"target":     "en",
		"key":        "bad",
		"text":       "boom {n}",
	} {
		if rec[field] != want {
			t.Errorf("%s = %v, want %q", field, rec[field], want)
		}
	}
	if !strings.Contains(rec["error"].(string), "backend exploded") {
		t.Errorf("error = %v", rec["error"])
	}
}

func TestTranslate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := New(&fakeBackend{}, Options{})
	_, err := tr.Translate(ctx, map[string]string{"k": "v"}, "en", "zh", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// ---------------------------------------------------------------------------
// Pending / Apply
// ---------------------------------------------------------------------------

func leafTree(t *testing.T, leaves map[string]keytree.Value) *keytree.ValueTree {
	t.Helper()
	tr := keytree.NewValueTree()
	for key, v := range leaves {
		n, err := tr.Add(key, keytree.TypeLeaf, true)
		if err != nil {
			t.Fatal(err)
		}
		v.Key = key
		if err := n.SetValue(v); err != nil {
			t.Fatal(err)
		}
	}
	return tr
}

func localeTexts(pairs ...any) map[string]keytree.Text {
	m := make(map[string]keytree.Text)
	for i := 0; i < len(pairs); i += 2 {
		m[pairs[i].(string)] = pairs[i+1].(keytree.Text)
	}
	return m
}

func TestPending(t *testing.T) {
	tree := leafTree(t, map[string]keytree.Value{
		"a.title": {Texts: localeTexts("zh", keytree.StringText("标题"), "en", keytree.StringText("Title"))},
		"a.desc":  {Texts: localeTexts("zh", keytree.StringText("描述"))},
		"a.none":  {Texts: localeTexts("en", keytree.StringText("orphan"))},
		"steps":   {Texts: localeTexts("zh", keytree.ListText("一", "二"))},
	})

	jobs := Pending(tree, "zh", []string{"zh", "en", "ja"}, false)
	if len(jobs) != 2 {
		t.Fatalf("jobs = %+v", jobs)
	}
	en := jobs[0]
	if en.Target != "en" || en.Source != "zh" {
		t.Fatalf("job[0] = %+v", en)
	}
	wantEN := map[string]string{"a.desc": "描述", "steps[0]": "一", "steps[1]": "二"}
	if !reflect.DeepEqual(en.Record, wantEN) {
		t.Fatalf("en record = %v", en.Record)
	}
	if len(jobs[1].Record) != 4 || jobs[1].Size() != 4 {
		t.Fatalf("ja record = %v", jobs[1].Record)
	}

	all := Pending(tree, "zh", []string{"en"}, true)
	if _, ok := all[0].Record["a.title"]; !ok {
		t.Fatalf("global mode should include translated keys: %v", all[0].Record)
	}
}

func TestApply(t *testing.T) {
	tree := leafTree(t, map[string]keytree.Value{
		"a":     {Texts: localeTexts("zh", keytree.StringText("甲"))},
		"steps": {Texts: localeTexts("zh", keytree.ListText("一", "二", "三"))},
	})

	n := Apply(tree, "zh", []Result{
		{Key: "a", Target: "en", Text: "A"},
		{Key: "steps[2]", Target: "en", Text: "three"},
		{Key: "steps[0]", Target: "en", Text: "one"},
		{Key: "steps[9]", Target: "en", Text: "out of range"},
		{Key: "missing", Target: "en", Text: "x"},
	})
	if n != 3 {
		t.Fatalf("applied = %d, want 3", n)
	}
	if got := tree.Get("a").Value().Text("en"); !got.Equal(keytree.StringText("A")) {
		t.Fatalf("a.en = %v", got)
	}
	if got := tree.Get("steps").Value().Text("en"); !got.Equal(keytree.ListText("one", "", "three")) {
		t.Fatalf("steps.en = %v", got)
	}
	if got := tree.Get("a").Value().Text("zh"); !got.Equal(keytree.StringText("甲")) {
		t.Fatalf("source text changed: %v", got)
	}
}

func TestPendingAndApply_ArrayLiteralCells(t *testing.T) {
	// Master cells hold lists as array literal strings.
	tree := leafTree(t, map[string]keytree.Value{
		"steps": {Texts: localeTexts(
			"zh", keytree.StringText(`["一","二"]`),
			"en", keytree.StringText(`["one",""]`),
		)},
	})

	jobs := Pending(tree, "zh", []string{"ja"}, false)
	if len(jobs) != 1 {
		t.Fatalf("jobs = %+v", jobs)
	}
	if want := map[string]string{"steps[0]": "一", "steps[1]": "二"}; !reflect.DeepEqual(jobs[0].Record, want) {
		t.Fatalf("ja record = %v", jobs[0].Record)
	}

	n := Apply(tree, "zh", []Result{
		{Key: "steps[1]", Target: "ja", Text: "に"},
		{Key: "steps[1]", Target: "en", Text: "two"},
		{Key: "steps", Target: "en", Text: "whole list"},
	})
	if n != 2 {
		t.Fatalf("applied = %d, want 2", n)
	}
	v := tree.Get("steps").Value()
	if got := v.Text("ja"); !got.Equal(keytree.ListText("", "に")) {
		t.Fatalf("steps.ja = %#v", got)
	}
	if got := v.Text("en"); !got.Equal(keytree.ListText("one", "two")) {
		t.Fatalf("steps.en = %#v", got)
	}
}
