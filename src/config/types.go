package config

// Config represents the complete configuration for quorum
type Config struct {
	// Version of the configuration format
	Version string `json:"version"`

	// Dispatch controls the fan-out round
	Dispatch DispatchConfig `json:"dispatch"`

	// Synthesis controls the summarize step
	Synthesis SynthesisConfig `json:"synthesis"`

	// Render controls markdown to HTML conversion
	Render RenderConfig `json:"render"`

	// Storage configuration
	Storage StorageConfig `json:"storage"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Providers holds per-provider overrides keyed by provider id
	Providers map[string]ProviderConfig `json:"providers,omitempty" validate:"dive,keys,provider_id,endkeys"`
}

// DispatchConfig defines how provider calls are issued
type DispatchConfig struct {
	// Timeout bounds every provider call
	Timeout Duration `json:"timeout" validate:"min=0"`

	// UserAgent is sent with every request
	UserAgent string `json:"user_agent,omitempty"`
}

// SynthesisConfig defines how the synthesizer is picked and its reply parsed
type SynthesisConfig struct {
	// Priority is the order in which providers are tried as synthesizer
	Priority []string `json:"priority,omitempty" validate:"dive,provider_id"`

	// FallbackLength is how many characters of a raw answer stand in for a
	// missing summary line
	FallbackLength int `json:"fallback_length" validate:"min=1"`
}

// RenderConfig defines markdown rendering
type RenderConfig struct {
	// Strict escapes all text, not only headings and code blocks
	Strict bool `json:"strict"`

	// Highlight colors fenced code blocks
	Highlight bool `json:"highlight"`

	// Style is the chroma style used for highlighting
	Style string `json:"style,omitempty"`
}

// StorageConfig defines where state is kept
type StorageConfig struct {
	// DatabasePath is the sqlite file holding credentials and rounds
	DatabasePath string `json:"database_path,omitempty"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `json:"level,omitempty" validate:"log_level"`
}

// ProviderConfig defines per-provider overrides
type ProviderConfig struct {
	// BaseURL replaces the provider's origin, e.g. for a proxy
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`

	// APIKeyEnv names the environment variable a credential is read from
	// when none is stored
	APIKeyEnv string `json:"api_key_env,omitempty"`
}

// ConfigPrecedence defines the order of configuration loading
type ConfigPrecedence struct {
	// SystemConfig path
	SystemConfig string

	// UserConfig path
	UserConfig string

	// ProjectConfig path
	ProjectConfig string

	// LocalConfig path
	LocalConfig string

	// EnvironmentPrefix for env var overrides
	EnvironmentPrefix string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e ValidationError) Error() string {
	return e.Message
}

// ConfigSource indicates where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"
	SourceUser        ConfigSource = "user"
	SourceProject     ConfigSource = "project"
	SourceLocal       ConfigSource = "local"
	SourceEnvironment ConfigSource = "environment"
)

// ConfigLocation is a configuration file that contributed to the result
type ConfigLocation struct {
	Path   string       `json:"path"`
	Source ConfigSource `json:"source"`
}
