package provider

// newOpenRouter builds an adapter for OpenRouter's OpenAI-compatible
// API. The framing is identical to OpenAI's, so the adapter reuses
// chatCompletionsStream; only the endpoint and name differ. Compound
// "provider/model" ids are passed through verbatim; OpenRouter's own
// registry interprets them, so the adapter never splits on '/'.
func newOpenRouter(cfg Config) *openAI {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	return &openAI{
		name:    NameOpenRouter,
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  cfg.HTTPClient,
	}
}
