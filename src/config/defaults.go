package config

import (
	"time"

	"github.com/elee1766/quorum/src/markup"
	"github.com/elee1766/quorum/src/provider"
	"github.com/elee1766/quorum/src/synth"
)

// DefaultAPIKeyEnv maps each provider to the environment variable its
// vendor documents for API keys
var DefaultAPIKeyEnv = map[provider.ID]string{
	provider.ChatGPT:  "OPENAI_API_KEY",
	provider.Gemini:   "GEMINI_API_KEY",
	provider.Claude:   "ANTHROPIC_API_KEY",
	provider.Kimi:     "MOONSHOT_API_KEY",
	provider.Grok:     "XAI_API_KEY",
	provider.DeepSeek: "DEEPSEEK_API_KEY",
}

// DefaultConfig returns a default configuration with sensible defaults
func DefaultConfig() *Config {
	providers := make(map[string]ProviderConfig, len(DefaultAPIKeyEnv))
	for id, env := range DefaultAPIKeyEnv {
		providers[string(id)] = ProviderConfig{APIKeyEnv: env}
	}

	return &Config{
		Version: "1.0",
		Dispatch: DispatchConfig{
			Timeout:   Duration(60 * time.Second),
			UserAgent: "quorum/1.0",
		},
		Synthesis: SynthesisConfig{
			Priority:       provider.Names(),
			FallbackLength: synth.DefaultFallbackLength,
		},
		Render: RenderConfig{
			Strict:    true,
			Highlight: true,
			Style:     markup.DefaultStyle,
		},
		Storage: StorageConfig{
			DatabasePath: GetDefaultStoragePaths().DatabasePath,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
		Providers: providers,
	}
}
