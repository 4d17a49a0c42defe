package provider

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiBody struct {
	Contents []geminiContent `json:"contents"`
}

func gemini() Descriptor {
	return Descriptor{
		ID:      Gemini,
		Name:    "Gemini",
		BaseURL: "https://generativelanguage.googleapis.com",
		// model goes in the path, the key in the query string
		Endpoint: func(base, credential, model string) string {
			return fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", base, model, url.QueryEscape(credential))
		},
		ListEndpoint: func(base, credential, _ string) string {
			return fmt.Sprintf("%s/v1beta/models?key=%s", base, url.QueryEscape(credential))
		},
		DefaultModel: "gemini-2.5-flash",
		Fallback: []Model{
			{ID: "gemini-3-pro-preview", Name: "Gemini 3 Pro Preview"},
			{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro"},
			{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
			{ID: "gemini-2.5-flash-lite", Name: "Gemini 2.5 Flash Lite"},
			{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash"},
			{ID: "gemini-2.0-flash-lite", Name: "Gemini 2.0 Flash Lite"},
		},
		Headers: func(string) map[string]string {
			return map[string]string{"Content-Type": "application/json"}
		},
		ListHeaders: func(string) map[string]string {
			return map[string]string{}
		},
		Body: func(_, prompt string) any {
			return geminiBody{
				Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
			}
		},
		Parse:       textAt("candidates.0.content.parts.0.text"),
		ParseModels: modelArray("models", geminiModel),
	}
}

// geminiModel keeps only models that support generateContent
func geminiModel(value gjson.Result) (Model, bool) {
	supported := false
	for _, method := range value.Get("supportedGenerationMethods").Array() {
		if method.String() == "generateContent" {
			supported = true
			break
		}
	}
	if !supported {
		return Model{}, false
	}

	name := value.Get("name").String()
	display := value.Get("displayName").String()
	if display == "" {
		display = name
	}
	return Model{ID: strings.Replace(name, "models/", "", 1), Name: display}, true
}
