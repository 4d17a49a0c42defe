package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/elee1766/quorum/src/provider"
	"github.com/spf13/afero"
)

// Loader handles loading and merging configurations from multiple sources
type Loader struct {
	fs         afero.Fs
	precedence ConfigPrecedence
	validator  *Validator
	getenv     func(string) string
	sources    []ConfigLocation
}

// NewLoader creates a new configuration loader reading from fs
func NewLoader(fs afero.Fs, precedence ConfigPrecedence) *Loader {
	return &Loader{
		fs:         fs,
		precedence: precedence,
		validator:  NewValidator(),
		getenv:     os.Getenv,
	}
}

// WithGetenv replaces the environment lookup, mostly for tests
func (l *Loader) WithGetenv(getenv func(string) string) *Loader {
	l.getenv = getenv
	return l
}

// Load loads configuration from all sources and merges them
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()
	l.sources = []ConfigLocation{{Source: SourceDefault}}

	sources := []struct {
		path   string
		source ConfigSource
	}{
		{l.precedence.SystemConfig, SourceSystem},
		{l.precedence.UserConfig, SourceUser},
		{l.precedence.ProjectConfig, SourceProject},
		{l.precedence.LocalConfig, SourceLocal},
	}

	for _, src := range sources {
		if src.path == "" {
			continue
		}

		data, err := afero.ReadFile(l.fs, src.path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s config from %s: %w", src.source, src.path, err)
		}

		merged, err := l.mergeFile(config, data)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s config from %s: %w", src.source, src.path, err)
		}
		config = merged
		l.sources = append(l.sources, ConfigLocation{Path: src.path, Source: src.source})
	}

	if l.precedence.EnvironmentPrefix != "" {
		if err := l.applyEnvironmentOverrides(config); err != nil {
			return nil, err
		}
	}

	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Sources lists the locations that contributed to the last Load
func (l *Loader) Sources() []ConfigLocation {
	return l.sources
}

// mergeFile decodes data over base. Keys absent from the file keep their
// value from base; provider entries merge field by field.
func (l *Loader) mergeFile(base *Config, data []byte) (*Config, error) {
	result := *base
	result.Synthesis.Priority = append([]string(nil), base.Synthesis.Priority...)
	result.Providers = nil

	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	result.Providers = mergeProviders(base.Providers, result.Providers)
	return &result, nil
}

// mergeProviders merges provider overrides with the second taking precedence
func mergeProviders(base, override map[string]ProviderConfig) map[string]ProviderConfig {
	result := maps.Clone(base)
	if result == nil {
		result = make(map[string]ProviderConfig, len(override))
	}

	for id, o := range override {
		merged := result[id]
		if o.BaseURL != "" {
			merged.BaseURL = o.BaseURL
		}
		if o.APIKeyEnv != "" {
			merged.APIKeyEnv = o.APIKeyEnv
		}
		result[id] = merged
	}

	return result
}

// applyEnvironmentOverrides applies environment variable overrides to config
func (l *Loader) applyEnvironmentOverrides(config *Config) error {
	prefix := l.precedence.EnvironmentPrefix
	applied := false

	if level := l.getenv(prefix + "_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
		applied = true
	}

	if timeout := l.getenv(prefix + "_TIMEOUT"); timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid %s_TIMEOUT: %w", prefix, err)
		}
		config.Dispatch.Timeout = Duration(parsed)
		applied = true
	}

	if path := l.getenv(prefix + "_DB_PATH"); path != "" {
		config.Storage.DatabasePath = path
		applied = true
	}

	if priority := l.getenv(prefix + "_SYNTH_PRIORITY"); priority != "" {
		config.Synthesis.Priority = nil
		for _, id := range strings.Split(priority, ",") {
			if id = strings.TrimSpace(id); id != "" {
				config.Synthesis.Priority = append(config.Synthesis.Priority, id)
			}
		}
		applied = true
	}

	if strict := l.getenv(prefix + "_RENDER_STRICT"); strict != "" {
		parsed, err := strconv.ParseBool(strict)
		if err != nil {
			return fmt.Errorf("invalid %s_RENDER_STRICT: %w", prefix, err)
		}
		config.Render.Strict = parsed
		applied = true
	}

	for _, id := range provider.Order {
		key := prefix + "_" + strings.ToUpper(string(id)) + "_BASE_URL"
		if base := l.getenv(key); base != "" {
			if config.Providers == nil {
				config.Providers = make(map[string]ProviderConfig)
			}
			pc := config.Providers[string(id)]
			pc.BaseURL = base
			config.Providers[string(id)] = pc
			applied = true
		}
	}

	if applied {
		l.sources = append(l.sources, ConfigLocation{Source: SourceEnvironment})
	}
	return nil
}

// SaveFile saves configuration to a file
func (l *Loader) SaveFile(config *Config, path string) error {
	if err := l.validator.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dir := filepath.Dir(path)
	if err := l.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(l.fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// BaseURLs returns the configured origin overrides keyed by provider
func (c *Config) BaseURLs() map[provider.ID]string {
	out := make(map[provider.ID]string)
	for name, pc := range c.Providers {
		id, err := provider.ParseID(name)
		if err != nil || pc.BaseURL == "" {
			continue
		}
		out[id] = pc.BaseURL
	}
	return out
}

// EnvCredentials reads a credential for every provider whose api_key_env
// is set in the environment
func (c *Config) EnvCredentials(getenv func(string) string) map[provider.ID]string {
	out := make(map[provider.ID]string)
	for _, id := range provider.Order {
		pc, ok := c.Providers[string(id)]
		if !ok || pc.APIKeyEnv == "" {
			continue
		}
		if value := strings.TrimSpace(getenv(pc.APIKeyEnv)); value != "" {
			out[id] = value
		}
	}
	return out
}

// PriorityIDs returns the synthesis priority as provider ids
func (c *Config) PriorityIDs() []provider.ID {
	ids := make([]provider.ID, 0, len(c.Synthesis.Priority))
	for _, name := range c.Synthesis.Priority {
		if id, err := provider.ParseID(name); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
