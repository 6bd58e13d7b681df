// Package embed generates vector embeddings for document chunks through
// local or hosted inference services.
package embed

import (
	"context"
	"fmt"
)

// Provider generates embeddings for a batch of texts. Implementations
// must return one vector per input text, in input order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Config configures an embedding provider.
type Config struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, openai, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// NewProvider creates an embedding provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllama(cfg), nil
	case "openai", "custom":
		return NewOpenAICompat(cfg), nil
	case "":
		return nil, fmt.Errorf("embed provider not specified")
	default:
		return nil, fmt.Errorf("unknown embed provider: %s", cfg.Provider)
	}
}
