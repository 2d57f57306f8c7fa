package translate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// googleBackend talks to the Cloud Translation v2 REST API.
type googleBackend struct {
	prov   Provider
	client *http.Client
}

type googleRequest struct {
	Q      []string `json:"q"`
	Target string   `json:"target"`
	Source string   `json:"source,omitempty"`
	Format string   `json:"format"`
}

type googleResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (b *googleBackend) Name() string { return b.prov.Name }

func (b *googleBackend) TranslateTexts(ctx context.Context, texts []string, target, source string) ([]string, error) {
	endpoint := joinURL(b.prov.BaseURL, "/language/translate/v2") + "?key=" + url.QueryEscape(b.prov.APIKey)
	req := googleRequest{
		Q:      texts,
		Target: googleLang(target),
		Source: googleLang(source),
		Format: "text",
	}

	var resp googleResponse
	if err := postJSON(ctx, b.client, endpoint, nil, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data.Translations) == 0 {
		return nil, fmt.Errorf("response has no translations")
	}

	out := make([]string, len(resp.Data.Translations))
	for i, tr := range resp.Data.Translations {
		out[i] = tr.TranslatedText
	}
	return out, nil
}

// googleLang converts zh_CN style codes to the BCP 47 form the API takes.
func googleLang(code string) string {
	return strings.ReplaceAll(code, "_", "-")
}
