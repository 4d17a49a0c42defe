package provider

import "github.com/tidwall/gjson"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionBody struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

func chatCompletionRequest(model, prompt string) any {
	return chatCompletionBody{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
}

// openAICompatible builds a descriptor for backends speaking the OpenAI chat
// completions dialect.
func openAICompatible(id ID, name, base, chatPath, modelsPath, defaultModel string, fallback []Model, convert func(gjson.Result) (Model, bool)) Descriptor {
	return Descriptor{
		ID:           id,
		Name:         name,
		BaseURL:      base,
		Endpoint:     Static(chatPath),
		ListEndpoint: Static(modelsPath),
		DefaultModel: defaultModel,
		Fallback:     fallback,
		Headers:      bearer,
		ListHeaders:  bearerOnly,
		Body:         chatCompletionRequest,
		Parse:        textAt("choices.0.message.content"),
		ParseModels:  modelArray("data", convert),
	}
}

func chatGPT() Descriptor {
	return openAICompatible(ChatGPT, "ChatGPT", "https://api.openai.com",
		"/v1/chat/completions", "/v1/models", "gpt-4o",
		[]Model{
			{ID: "gpt-4o", Name: "GPT-4o"},
			{ID: "gpt-4o-mini", Name: "GPT-4o Mini"},
			{ID: "gpt-4-turbo", Name: "GPT-4 Turbo"},
			{ID: "gpt-4", Name: "GPT-4"},
			{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo"},
			{ID: "o1-preview", Name: "o1 Preview"},
			{ID: "o1-mini", Name: "o1 Mini"},
		},
		idMatching("gpt", "o1"),
	)
}

func kimi() Descriptor {
	return openAICompatible(Kimi, "Kimi", "https://api.moonshot.ai",
		"/v1/chat/completions", "/v1/models", "moonshot-v1-8k",
		[]Model{
			{ID: "moonshot-v1-8k", Name: "Kimi v1 8k"},
			{ID: "moonshot-v1-32k", Name: "Kimi v1 32k"},
			{ID: "moonshot-v1-128k", Name: "Kimi v1 128k"},
			{ID: "moonshot-v1-auto", Name: "Kimi v1 Auto"},
		},
		idAsName,
	)
}

func grok() Descriptor {
	return openAICompatible(Grok, "Grok", "https://api.x.ai",
		"/v1/chat/completions", "/v1/models", "grok-beta",
		[]Model{
			{ID: "grok-beta", Name: "Grok Beta"},
			{ID: "grok-2-latest", Name: "Grok 2 Latest"},
			{ID: "grok-2-1212", Name: "Grok 2 (1212)"},
			{ID: "grok-2-vision-1212", Name: "Grok 2 Vision"},
		},
		idAsName,
	)
}

func deepSeek() Descriptor {
	return openAICompatible(DeepSeek, "DeepSeek", "https://api.deepseek.com",
		"/chat/completions", "/models", "deepseek-chat",
		[]Model{
			{ID: "deepseek-chat", Name: "DeepSeek Chat"},
			{ID: "deepseek-reasoner", Name: "DeepSeek Reasoner (R1)"},
			{ID: "deepseek-coder", Name: "DeepSeek Coder"},
		},
		idAsName,
	)
}
