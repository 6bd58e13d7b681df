package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yhilem/distill/mimetype"
)

// StructuredExtractor handles JSON and YAML documents by flattening their
// value tree into searchable text, one "path: value" line per scalar.
type StructuredExtractor struct{}

func (e *StructuredExtractor) Name() string { return "structured" }

func (e *StructuredExtractor) Supports(mime string) bool {
	switch mime {
	case mimetype.JSON, mimetype.YAML, "application/x-ipynb+json":
		return true
	}
	return false
}

func (e *StructuredExtractor) Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	var root any
	var err error
	switch mime {
	case mimetype.YAML:
		err = yaml.Unmarshal(content, &root)
	default:
		err = json.Unmarshal(content, &root)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing structured document: %w", err)
	}

	var lines []string
	flattenValue("", root, &lines)

	return &Result{
		Content:  strings.Join(lines, "\n"),
		MimeType: mime,
		Metadata: map[string]string{"field_count": fmt.Sprintf("%d", len(lines))},
	}, nil
}

// flattenValue walks a decoded JSON/YAML tree depth-first, emitting one
// line per scalar leaf. Map keys are sorted for deterministic output.
func flattenValue(path string, v any, out *[]string) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenValue(joinPath(path, k), val[k], out)
		}
	case []any:
		for i, item := range val {
			flattenValue(fmt.Sprintf("%s[%d]", path, i), item, out)
		}
	case nil:
		// skip nulls
	default:
		line := fmt.Sprintf("%v", val)
		if path != "" {
			line = path + ": " + line
		}
		if strings.TrimSpace(line) != "" {
			*out = append(*out, line)
		}
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
