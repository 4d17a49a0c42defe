package provider

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinTable(t *testing.T) {
	table := Builtin()
	require.Len(t, table, len(Order))

	for _, d := range table.Ordered() {
		t.Run(string(d.ID), func(t *testing.T) {
			assert.NotEmpty(t, d.Name)
			assert.NotNil(t, d.Endpoint)
			assert.NotNil(t, d.Headers)
			assert.NotNil(t, d.Body)
			assert.NotNil(t, d.Parse)
			assert.True(t, d.CanListModels())

			_, ok := Lookup(d.Fallback, d.DefaultModel)
			assert.True(t, ok, "default model %s should be in the fallback catalog", d.DefaultModel)

			seen := map[string]bool{}
			for _, m := range d.Fallback {
				assert.False(t, seen[m.ID], "duplicate fallback id %s", m.ID)
				seen[m.ID] = true
			}
		})
	}
}

func TestEndpoints(t *testing.T) {
	table := Builtin()

	tests := []struct {
		id       ID
		wantURL  string
		wantList string
	}{
		{ChatGPT, "https://api.openai.com/v1/chat/completions", "https://api.openai.com/v1/models"},
		{Claude, "https://api.anthropic.com/v1/messages", "https://api.anthropic.com/v1/models"},
		{Kimi, "https://api.moonshot.ai/v1/chat/completions", "https://api.moonshot.ai/v1/models"},
		{Grok, "https://api.x.ai/v1/chat/completions", "https://api.x.ai/v1/models"},
		{DeepSeek, "https://api.deepseek.com/chat/completions", "https://api.deepseek.com/models"},
		{
			Gemini,
			"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-pro:generateContent?key=secret",
			"https://generativelanguage.googleapis.com/v1beta/models?key=secret",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			d := table.MustGet(tt.id)
			model := d.DefaultModel
			if tt.id == Gemini {
				model = "gemini-2.5-pro"
			}
			assert.Equal(t, tt.wantURL, d.URL("secret", model))

			listURL, ok := d.ListURL("secret")
			require.True(t, ok)
			assert.Equal(t, tt.wantList, listURL)
		})
	}
}

func TestWithBaseURL(t *testing.T) {
	d := Builtin().MustGet(ChatGPT).WithBaseURL("http://127.0.0.1:9999/")
	assert.Equal(t, "http://127.0.0.1:9999/v1/chat/completions", d.URL("k", "gpt-4o"))

	// the original table is untouched
	assert.Equal(t, "https://api.openai.com", Builtin().MustGet(ChatGPT).BaseURL)
}

func TestHeaders(t *testing.T) {
	table := Builtin()

	openai := table.MustGet(ChatGPT).Headers("tok")
	assert.Equal(t, "Bearer tok", openai["Authorization"])
	assert.Equal(t, "application/json", openai["Content-Type"])

	claude := table.MustGet(Claude).Headers("tok")
	assert.Equal(t, "tok", claude["x-api-key"])
	assert.Equal(t, "2023-06-01", claude["anthropic-version"])
	assert.NotContains(t, claude, "Authorization")

	claudeList := table.MustGet(Claude).ListHeaders("tok")
	assert.Equal(t, "tok", claudeList["x-api-key"])
	assert.NotContains(t, claudeList, "Authorization")

	gemini := table.MustGet(Gemini).Headers("tok")
	assert.NotContains(t, gemini, "Authorization")
	assert.Empty(t, table.MustGet(Gemini).ListHeaders("tok"))
}

func TestBodies(t *testing.T) {
	table := Builtin()

	body, err := json.Marshal(table.MustGet(Grok).Body("grok-beta", "hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"grok-beta","messages":[{"role":"user","content":"hello"}]}`, string(body))

	body, err = json.Marshal(table.MustGet(Claude).Body("claude-3-haiku-20240307", "hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"claude-3-haiku-20240307","max_tokens":1024,"messages":[{"role":"user","content":"hello"}]}`, string(body))

	body, err = json.Marshal(table.MustGet(Gemini).Body("gemini-2.5-flash", "hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"contents":[{"parts":[{"text":"hello"}]}]}`, string(body))
}

func TestParseResponse(t *testing.T) {
	table := Builtin()

	tests := []struct {
		name string
		id   ID
		raw  string
		want string
	}{
		{"openai ok", ChatGPT, `{"choices":[{"message":{"content":"hi"}}]}`, "hi"},
		{"openai no choices", DeepSeek, `{"choices":[]}`, ParseFailure},
		{"openai empty content", Kimi, `{"choices":[{"message":{"content":""}}]}`, ParseFailure},
		{"openai error shape", Grok, `{"error":{"message":"bad"}}`, ParseFailure},
		{"claude ok", Claude, `{"content":[{"type":"text","text":"hello"}]}`, "hello"},
		{"claude missing", Claude, `{"content":[]}`, ParseFailure},
		{"gemini ok", Gemini, `{"candidates":[{"content":{"parts":[{"text":"yo"}]}}]}`, "yo"},
		{"gemini numeric", Gemini, `{"candidates":[{"content":{"parts":[{"text":5}]}}]}`, ParseFailure},
		{"not json", ChatGPT, `<html>`, ParseFailure},
		{"empty", Claude, ``, ParseFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.MustGet(tt.id).Parse([]byte(tt.raw))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseModels(t *testing.T) {
	table := Builtin()

	t.Run("chatgpt keeps chat families", func(t *testing.T) {
		raw := `{"data":[{"id":"gpt-4o"},{"id":"whisper-1"},{"id":"o1-mini"},{"id":"dall-e-3"},{"id":"gpt-4o"}]}`
		models, err := table.MustGet(ChatGPT).ParseModels([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, []Model{{ID: "gpt-4o", Name: "gpt-4o"}, {ID: "o1-mini", Name: "o1-mini"}}, models)
	})

	t.Run("claude display names", func(t *testing.T) {
		raw := `{"data":[{"id":"claude-x","display_name":"Claude X"},{"id":"claude-y"}]}`
		models, err := table.MustGet(Claude).ParseModels([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, []Model{{ID: "claude-x", Name: "Claude X"}, {ID: "claude-y", Name: "claude-y"}}, models)
	})

	t.Run("gemini generateContent only", func(t *testing.T) {
		raw := `{"models":[
			{"name":"models/gemini-2.5-pro","displayName":"Gemini 2.5 Pro","supportedGenerationMethods":["generateContent","countTokens"]},
			{"name":"models/embedding-001","displayName":"Embedding","supportedGenerationMethods":["embedContent"]},
			{"name":"models/gemini-x","supportedGenerationMethods":["generateContent"]}
		]}`
		models, err := table.MustGet(Gemini).ParseModels([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, []Model{
			{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro"},
			{ID: "gemini-x", Name: "models/gemini-x"},
		}, models)
	})

	t.Run("wrong shape is an error", func(t *testing.T) {
		_, err := table.MustGet(Kimi).ParseModels([]byte(`{"models":[]}`))
		assert.Error(t, err)

		_, err = table.MustGet(Kimi).ParseModels([]byte(`nope`))
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})
}

func TestParseID(t *testing.T) {
	id, err := ParseID(" Claude ")
	require.NoError(t, err)
	assert.Equal(t, Claude, id)

	_, err = ParseID("llama")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = Table{}.Get(Claude)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
