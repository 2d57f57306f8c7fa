package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// deeplBackend talks to the DeepL v2 API with form-encoded requests.
type deeplBackend struct {
	prov   Provider
	client *http.Client
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

func (b *deeplBackend) Name() string { return b.prov.Name }

func (b *deeplBackend) TranslateTexts(ctx context.Context, texts []string, target, source string) ([]string, error) {
	form := url.Values{}
	form.Set("target_lang", deeplLang(target))
	if source != "" {
		// Source languages are accepted without a region only.
		base, _, _ := strings.Cut(deeplLang(source), "-")
		form.Set("source_lang", base)
	}
	for _, text := range texts {
		form.Add("text", text)
	}

	headers := map[string]string{
		"Content-Type":  "application/x-www-form-urlencoded",
		"Authorization": "DeepL-Auth-Key " + b.prov.APIKey,
	}
	body, err := doRequest(ctx, b.client, joinURL(b.prov.BaseURL, "/v2/translate"), headers, []byte(form.Encode()))
	if err != nil {
		return nil, err
	}

	var resp deeplResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed response: %w: %s", err, truncate(string(body), 300))
	}
	out := make([]string, len(resp.Translations))
	for i, tr := range resp.Translations {
		out[i] = tr.Text
	}
	return out, nil
}

// deeplLang upper-cases a code the way DeepL spells it: zh_CN -> ZH-CN.
func deeplLang(code string) string {
	return strings.ToUpper(strings.ReplaceAll(code, "_", "-"))
}
