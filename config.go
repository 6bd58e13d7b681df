package distill

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yhilem/distill/extract"
)

// Config is the extraction configuration tree. See the extract package
// for field documentation.
type Config = extract.Config

// Config section aliases, so callers can assemble a Config without
// importing the extract package.
type (
	OCRConfig            = extract.OCRConfig
	ChunkingConfig       = extract.ChunkingConfig
	EmbeddingConfig      = extract.EmbeddingConfig
	ImageConfig          = extract.ImageConfig
	LanguageConfig       = extract.LanguageConfig
	KeywordConfig        = extract.KeywordConfig
	EntityConfig         = extract.EntityConfig
	TokenReductionConfig = extract.TokenReductionConfig
	PostProcessingConfig = extract.PostProcessingConfig
	PDFConfig            = extract.PDFConfig
	HTMLConfig           = extract.HTMLConfig
	SpreadsheetConfig    = extract.SpreadsheetConfig
)

// DefaultConfig returns a Config suitable for most documents: caching
// and quality processing on, OCR available for image-only content,
// enrichment stages off until enabled.
func DefaultConfig() *Config {
	return &Config{
		UseCache:                true,
		EnableQualityProcessing: true,
		MaxConcurrency:          8,
		OCR:                     &extract.OCRConfig{Languages: []string{"eng"}},
	}
}

// configFilenames are probed in order by DiscoverConfig.
var configFilenames = []string{"distill.yaml", "distill.yml", ".distill.yaml", "distill.json"}

// LoadConfig reads a configuration file. The format follows the file
// extension; .yaml, .yml and .json are supported.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing yaml config %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing json config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
	return cfg, nil
}

// DiscoverConfig walks from dir up to the filesystem root looking for a
// distill config file, then falls back to ~/.distill/config.yaml.
// It returns nil with no error when nothing is found.
func DiscoverConfig(dir string) (*Config, error) {
	if dir == "" {
		dir = "."
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	for {
		for _, name := range configFilenames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return LoadConfig(path)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".distill", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(path)
		}
	}
	return nil, nil
}
