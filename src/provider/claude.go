package provider

import "github.com/tidwall/gjson"

const anthropicVersion = "2023-06-01"

func claude() Descriptor {
	return Descriptor{
		ID:           Claude,
		Name:         "Claude",
		BaseURL:      "https://api.anthropic.com",
		Endpoint:     Static("/v1/messages"),
		ListEndpoint: Static("/v1/models"),
		DefaultModel: "claude-3-5-sonnet-20241022",
		Fallback: []Model{
			{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet (New)"},
			{ID: "claude-3-5-sonnet-20240620", Name: "Claude 3.5 Sonnet"},
			{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku"},
			{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus"},
			{ID: "claude-3-sonnet-20240229", Name: "Claude 3 Sonnet"},
			{ID: "claude-3-haiku-20240307", Name: "Claude 3 Haiku"},
		},
		Headers: func(credential string) map[string]string {
			return map[string]string{
				"x-api-key":         credential,
				"anthropic-version": anthropicVersion,
				"content-type":      "application/json",
				"anthropic-dangerous-direct-browser-access": "true",
			}
		},
		// the listing endpoint rejects bearer auth
		ListHeaders: func(credential string) map[string]string {
			return map[string]string{
				"x-api-key":         credential,
				"anthropic-version": anthropicVersion,
			}
		},
		Body: func(model, prompt string) any {
			return chatCompletionBody{
				Model:     model,
				MaxTokens: 1024,
				Messages:  []chatMessage{{Role: "user", Content: prompt}},
			}
		},
		Parse: textAt("content.0.text"),
		ParseModels: modelArray("data", func(value gjson.Result) (Model, bool) {
			id := value.Get("id").String()
			name := value.Get("display_name").String()
			if name == "" {
				name = id
			}
			return Model{ID: id, Name: name}, true
		}),
	}
}
