package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/elee1766/quorum/src/config"
	"github.com/elee1766/quorum/src/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers every OpenAI-compatible chat call with the requested
// model's name, and lists two models.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"data":[{"id":"gpt-4o"},{"id":"gpt-4o-mini"}]}`))
			return
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Messages) == 0 {
			http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
			return
		}
		answer := "**" + body.Model + "** says hi"
		if strings.Contains(body.Messages[0].Content, "FINAL VERDICT:") {
			answer = "ChatGPT: greets.\nFINAL VERDICT:\nhi"
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": answer}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, base string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "quorum.db")
	cfg.Providers["chatgpt"] = config.ProviderConfig{BaseURL: base, APIKeyEnv: "OPENAI_API_KEY"}
	return cfg
}

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestAppRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := fakeBackend(t)
	cfg := testConfig(t, srv.URL)

	a, err := New(ctx, cfg, Options{Getenv: env(map[string]string{"OPENAI_API_KEY": "sk-env"})})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []provider.ID{provider.ChatGPT}, a.Session.Credentialed())
	assert.True(t, a.Session.IsSeeded(provider.ChatGPT))

	round, err := a.Dispatcher(nil).DispatchAll(ctx, "hello")
	require.NoError(t, err)
	outcomes, err := round.Wait(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "**gpt-4o** says hi", outcomes[0].Text)
	assert.Contains(t, outcomes[0].HTML, "<strong>gpt-4o</strong>")

	verdict, err := a.Orchestrator().Synthesize(ctx, "hello")
	require.NoError(t, err)
	assert.True(t, verdict.Structured)
	assert.Equal(t, "hi", verdict.Verdict)
	assert.Equal(t, "greets.", verdict.Summaries[0].Text)
}

func TestAppRestoreLatest(t *testing.T) {
	ctx := context.Background()
	srv := fakeBackend(t)
	cfg := testConfig(t, srv.URL)
	opts := Options{Getenv: env(map[string]string{"OPENAI_API_KEY": "sk-env"})}

	a, err := New(ctx, cfg, opts)
	require.NoError(t, err)
	ok, err := a.RestoreLatest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	round, err := a.Dispatcher(nil).DispatchAll(ctx, "what?")
	require.NoError(t, err)
	_, err = round.Wait(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := New(ctx, cfg, opts)
	require.NoError(t, err)
	defer b.Close()

	ok, err = b.RestoreLatest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "what?", b.Session.Prompt())
	assert.Equal(t, map[provider.ID]string{provider.ChatGPT: "**gpt-4o** says hi"}, b.Session.Responses())
}

func TestAppModelsReconcilesChoice(t *testing.T) {
	ctx := context.Background()
	srv := fakeBackend(t)
	cfg := testConfig(t, srv.URL)

	a, err := New(ctx, cfg, Options{Getenv: env(nil)})
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Session.SetCredential(ctx, provider.ChatGPT, "sk-stored"))
	require.NoError(t, a.Session.SelectModel(ctx, provider.ChatGPT, "gpt-4", provider.Builtin().MustGet(provider.ChatGPT).FallbackModels()))

	models, err := a.Models(ctx, provider.ChatGPT)
	require.NoError(t, err)
	assert.Len(t, models, 2)
	assert.Equal(t, "gpt-4o", a.Session.SelectedModel(provider.ChatGPT))
}

func TestAppCredentialChangesForgetModels(t *testing.T) {
	ctx := context.Background()
	var listings atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		listings.Add(1)
		w.Write([]byte(`{"data":[{"id":"gpt-4o"},{"id":"gpt-4o-mini"}]}`))
	}))
	defer srv.Close()

	a, err := New(ctx, testConfig(t, srv.URL), Options{Getenv: env(nil)})
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.SetCredential(ctx, provider.ChatGPT, "sk-one"))
	_, err = a.Models(ctx, provider.ChatGPT)
	require.NoError(t, err)
	_, err = a.Models(ctx, provider.ChatGPT)
	require.NoError(t, err)
	assert.Equal(t, int32(1), listings.Load(), "second listing should come from the cache")

	require.NoError(t, a.DeleteCredential(ctx, provider.ChatGPT))
	models, err := a.Models(ctx, provider.ChatGPT)
	require.NoError(t, err)
	assert.Equal(t, a.Table.MustGet(provider.ChatGPT).FallbackModels(), models)
	assert.Equal(t, int32(1), listings.Load())

	require.NoError(t, a.SetCredential(ctx, provider.ChatGPT, "sk-two"))
	_, err = a.Models(ctx, provider.ChatGPT)
	require.NoError(t, err)
	assert.Equal(t, int32(2), listings.Load(), "a new key lists models again")
}

func TestAppDeleteCredentialRefusesEnvironmentKey(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t, "http://127.0.0.1:1"), Options{Getenv: env(map[string]string{"OPENAI_API_KEY": "sk-env"})})
	require.NoError(t, err)
	defer a.Close()

	err = a.DeleteCredential(ctx, provider.ChatGPT)
	require.ErrorIs(t, err, ErrEnvCredential)
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
	_, ok := a.Session.Credential(provider.ChatGPT)
	assert.True(t, ok)
}
