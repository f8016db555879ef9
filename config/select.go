package config

import (
	"fmt"
	"strings"

	"github.com/kaze-sh/kaze/provider"
)

// Selection is a resolved provider + model pair.
type Selection struct {
	Provider string
	Model    string
}

// ResolveSelection decides which provider and model to use.
// Priority: CLI flags > config file > built-in defaults.
//
// Accepted forms:
//
//	--model anthropic/claude-sonnet-4-5    provider/model shorthand, only when --provider is omitted
//	--provider openrouter --model "org/model"    slash preserved as part of the model id
//	--provider anthropic    provider's default model
//	(nothing)    config file, then built-in default
func ResolveSelection(flagProvider, flagModel string, cfg *Config) (Selection, error) {
	// The shorthand only applies without an explicit --provider: an
	// OpenRouter model id legitimately contains a slash.
	if flagProvider == "" && flagModel != "" {
		if prov, model, ok := strings.Cut(flagModel, "/"); ok {
			if err := validateProvider(prov); err != nil {
				return Selection{}, err
			}
			return Selection{Provider: prov, Model: model}, nil
		}
	}

	name := flagProvider
	if name == "" {
		name = cfg.DefaultProvider
	}
	if name == "" {
		name = provider.NameAnthropic
	}
	if err := validateProvider(name); err != nil {
		return Selection{}, err
	}

	model := flagModel
	if model == "" {
		if e := cfg.entry(name); e != nil {
			model = e.Model
		}
	}
	if model == "" && cfg.Model != "" {
		// A compound global default selects the model part only; the
		// provider was already decided above.
		if _, m, ok := strings.Cut(cfg.Model, "/"); ok && name != provider.NameOpenRouter {
			model = m
		} else {
			model = cfg.Model
		}
	}
	if model == "" {
		model = provider.DefaultModel(name)
	}

	return Selection{Provider: name, Model: model}, nil
}

// ProviderConfig assembles the dispatcher config for a selection,
// resolving the credential and endpoint.
func (c *Config) ProviderConfig(sel Selection) provider.Config {
	return provider.Config{
		Name:    sel.Provider,
		Model:   sel.Model,
		APIKey:  c.ResolveAPIKey(sel.Provider),
		BaseURL: c.BaseURL(sel.Provider),
	}
}

func validateProvider(name string) error {
	for _, known := range provider.Names() {
		if name == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (supported: %s)", provider.ErrUnknownProvider, name, strings.Join(provider.Names(), ", "))
}
