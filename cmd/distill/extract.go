package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yhilem/distill"
)

var (
	flagJSONOut      bool
	flagNoCache      bool
	flagForceOCR     bool
	flagOCRLangs     string
	flagChunk        bool
	flagChunkSize    int
	flagChunkOverlap int
	flagLanguages    bool
	flagKeywords     bool
	flagEntities     bool
	flagQuality      bool
	flagReduceTokens string
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract a single document",
	Long: `Extract reads one document, resolves its media type, and runs the
extraction pipeline. Plain text goes to stdout; --json emits the full
result including metadata, tables, chunks, and entities.

Examples:
  distill extract report.pdf
  distill extract scan.png --ocr-languages eng+deu --json
  distill extract notes.md --chunk --chunk-size 800 --keywords --json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().BoolVar(&flagJSONOut, "json", false, "Emit the full result as JSON")
	extractCmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the result cache")
	extractCmd.Flags().BoolVar(&flagForceOCR, "force-ocr", false, "Run OCR even when text extraction succeeds")
	extractCmd.Flags().StringVar(&flagOCRLangs, "ocr-languages", "", "OCR language hints, + separated (e.g. eng+fra)")
	extractCmd.Flags().BoolVar(&flagChunk, "chunk", false, "Split content into chunks")
	extractCmd.Flags().IntVar(&flagChunkSize, "chunk-size", 0, "Maximum characters per chunk")
	extractCmd.Flags().IntVar(&flagChunkOverlap, "chunk-overlap", 0, "Character overlap between chunks")
	extractCmd.Flags().BoolVar(&flagLanguages, "detect-languages", false, "Detect content languages")
	extractCmd.Flags().BoolVar(&flagKeywords, "keywords", false, "Extract keywords")
	extractCmd.Flags().BoolVar(&flagEntities, "entities", false, "Extract entities (emails, URLs, dates, amounts, phones)")
	extractCmd.Flags().BoolVar(&flagQuality, "quality", true, "Clean extracted text and score its quality")
	extractCmd.Flags().StringVar(&flagReduceTokens, "reduce-tokens", "", "Token reduction mode: light or aggressive")
}

// applyFlags layers command-line switches over the loaded config.
func applyFlags(cfg *distill.Config) error {
	if flagNoCache {
		cfg.UseCache = false
	}
	cfg.EnableQualityProcessing = flagQuality
	if flagForceOCR {
		cfg.ForceOCR = true
	}
	if flagOCRLangs != "" {
		if cfg.OCR == nil {
			cfg.OCR = &distill.OCRConfig{}
		}
		cfg.OCR.Languages = strings.Split(flagOCRLangs, "+")
	}
	if flagChunk || flagChunkSize > 0 || flagChunkOverlap > 0 {
		if cfg.Chunking == nil {
			cfg.Chunking = &distill.ChunkingConfig{}
		}
		if flagChunkSize > 0 {
			cfg.Chunking.MaxChars = flagChunkSize
		}
		if flagChunkOverlap > 0 {
			cfg.Chunking.MaxOverlap = flagChunkOverlap
		}
	}
	if flagLanguages && cfg.LanguageDetection == nil {
		cfg.LanguageDetection = &distill.LanguageConfig{}
	}
	if flagKeywords && cfg.Keywords == nil {
		cfg.Keywords = &distill.KeywordConfig{}
	}
	if flagEntities && cfg.Entities == nil {
		cfg.Entities = &distill.EntityConfig{}
	}
	switch flagReduceTokens {
	case "":
	case "light", "aggressive":
		cfg.TokenReduction = &distill.TokenReductionConfig{Mode: flagReduceTokens}
	default:
		return fmt.Errorf("invalid --reduce-tokens mode %q (want light or aggressive)", flagReduceTokens)
	}
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(cfg); err != nil {
		return err
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.Cache().Close()

	result, err := p.ExtractFile(context.Background(), args[0], cfg)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", args[0], err)
	}

	if flagJSONOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintln(os.Stdout, result.Content)
	return nil
}
