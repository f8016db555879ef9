// Package config loads and resolves kaze configuration: the JSON config
// file, {env:VAR} substitution, API key precedence, and provider/model
// selection.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DefaultSystemPrompt is prepended to every new conversation unless the
// config overrides it.
const DefaultSystemPrompt = "You are kaze, a helpful AI assistant in the terminal. " +
	"Be concise. Use code blocks with language tags when showing code."

// Entry holds the connection details for a single provider. Any field
// may use {env:VAR} substitution.
type Entry struct {
	// APIKey authenticates against the provider. The PROVIDER_API_KEY
	// environment variable takes precedence over this value.
	APIKey string `json:"api_key,omitempty"`
	// BaseURL overrides the provider's default endpoint.
	BaseURL string `json:"base_url,omitempty"`
	// Model overrides the model for this provider only.
	Model string `json:"model,omitempty"`
}

// Providers maps each supported backend to its optional entry.
type Providers struct {
	Anthropic  *Entry `json:"anthropic,omitempty"`
	OpenAI     *Entry `json:"openai,omitempty"`
	OpenRouter *Entry `json:"openrouter,omitempty"`
	Ollama     *Entry `json:"ollama,omitempty"`
}

// Config is the root kaze configuration, deserialized from config.json.
// Zero values fall back to defaults so kaze runs without a config file.
type Config struct {
	// Model is the global default model identifier. May use the
	// "provider/model" compound form.
	Model string `json:"model,omitempty"`
	// DefaultProvider names the backend used when no flag selects one.
	DefaultProvider string `json:"default_provider,omitempty"`
	// SystemPrompt seeds every new session.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// SessionsDir overrides where session logs and the index live.
	SessionsDir string `json:"sessions_dir,omitempty"`
	// Provider holds per-backend connection entries.
	Provider Providers `json:"provider,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SystemPrompt: DefaultSystemPrompt,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.DefaultProvider != "" {
		c.DefaultProvider = source.DefaultProvider
	}
	if source.SystemPrompt != "" {
		c.SystemPrompt = source.SystemPrompt
	}
	if source.SessionsDir != "" {
		c.SessionsDir = source.SessionsDir
	}
	if source.Provider.Anthropic != nil {
		c.Provider.Anthropic = source.Provider.Anthropic
	}
	if source.Provider.OpenAI != nil {
		c.Provider.OpenAI = source.Provider.OpenAI
	}
	if source.Provider.OpenRouter != nil {
		c.Provider.OpenRouter = source.Provider.OpenRouter
	}
	if source.Provider.Ollama != nil {
		c.Provider.Ollama = source.Provider.Ollama
	}
}

// Load reads a JSON config file, merges it over defaults, and applies
// {env:VAR} substitution. An empty filename loads the default path; a
// missing file at the default path yields pure defaults.
func Load(filename string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := filename != ""
	if !explicit {
		filename = DefaultPath()
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			cfg.substitute()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	cfg.substitute()
	return &cfg, nil
}

// entry returns the configured Entry for a provider name, or nil.
func (c *Config) entry(name string) *Entry {
	switch name {
	case "anthropic":
		return c.Provider.Anthropic
	case "openai":
		return c.Provider.OpenAI
	case "openrouter":
		return c.Provider.OpenRouter
	case "ollama":
		return c.Provider.Ollama
	}
	return nil
}

// ResolveAPIKey resolves the credential for a provider: the
// PROVIDER_API_KEY environment variable first, then the config entry.
// Returns "" when neither is set.
func (c *Config) ResolveAPIKey(name string) string {
	envKey := strings.ToUpper(name) + "_API_KEY"
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if e := c.entry(name); e != nil {
		return e.APIKey
	}
	return ""
}

// BaseURL returns the configured endpoint override for a provider, or "".
func (c *Config) BaseURL(name string) string {
	if e := c.entry(name); e != nil {
		return e.BaseURL
	}
	return ""
}

// substitute applies {env:VAR} substitution to every string field that
// supports it.
func (c *Config) substitute() {
	c.Model = substituteEnv(c.Model)
	c.DefaultProvider = substituteEnv(c.DefaultProvider)
	c.SystemPrompt = substituteEnv(c.SystemPrompt)
	c.SessionsDir = substituteEnv(c.SessionsDir)
	for _, e := range []*Entry{c.Provider.Anthropic, c.Provider.OpenAI, c.Provider.OpenRouter, c.Provider.Ollama} {
		if e == nil {
			continue
		}
		e.APIKey = substituteEnv(e.APIKey)
		e.BaseURL = substituteEnv(e.BaseURL)
		e.Model = substituteEnv(e.Model)
	}
}

// substituteEnv replaces each {env:VAR} occurrence with the value of the
// named environment variable. Unset variables substitute to "".
func substituteEnv(s string) string {
	for {
		start := strings.Index(s, "{env:")
		if start < 0 {
			return s
		}
		end := strings.Index(s[start:], "}")
		if end < 0 {
			return s
		}
		name := s[start+len("{env:") : start+end]
		s = s[:start] + os.Getenv(name) + s[start+end+1:]
	}
}
