package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// SystemPrompt is sent to the chat model. {{targetLang}} and {{sourceLang}}
// are replaced with English language names.
const SystemPrompt = `You are a professional translator specializing in software and product localization. You are translating UI strings for a software application from {{sourceLang}} to {{targetLang}}.

IMPORTANT TRANSLATION PRINCIPLES:
- Translate for NATURALNESS and FLUENCY in the target language, not word-for-word
- Use established IT terminology in {{targetLang}}
- Maintain the original tone and intent

TECHNICAL REQUIREMENTS:
- The user message is a JSON array of strings.
- Return ONLY a JSON array of translated strings, one for each input entry, in the same order.
- Keep placeholder tokens such as $$0 and $$1 exactly as-is.
- Preserve leading/trailing whitespace, newlines, and punctuation patterns.
- Keep brand names and proper nouns unchanged.
- Return ONLY the JSON array, no explanations or markdown code blocks.`

// chatBackend talks to an OpenAI-compatible chat/completions endpoint.
type chatBackend struct {
	prov   Provider
	client *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (b *chatBackend) Name() string { return b.prov.Name + "(" + b.prov.Model + ")" }

func (b *chatBackend) TranslateTexts(ctx context.Context, texts []string, target, source string) ([]string, error) {
	user, err := json.Marshal(texts)
	if err != nil {
		return nil, err
	}
	req := chatRequest{
		Model: b.prov.Model,
		Messages: []chatMessage{
			{Role: "system", Content: resolvePrompt(target, source)},
			{Role: "user", Content: string(user)},
		},
		Temperature: 0.3,
	}
	headers := map[string]string{"Authorization": "Bearer " + b.prov.APIKey}

	var resp chatResponse
	if err := postJSON(ctx, b.client, joinURL(b.prov.BaseURL, "/v1/chat/completions"), headers, req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("response has no choices")
	}
	return parseTranslations(resp.Choices[0].Message.Content, len(texts))
}

func resolvePrompt(target, source string) string {
	src := "the source language"
	if source != "" {
		src = LanguageName(source)
	}
	r := strings.NewReplacer("{{targetLang}}", LanguageName(target), "{{sourceLang}}", src)
	return r.Replace(SystemPrompt)
}

// LanguageName returns the English name of a locale code such as zh_CN,
// or the code itself when it cannot be parsed.
func LanguageName(code string) string {
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
