package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/praetorian-inc/asea-lza/pkg/types"
	"gopkg.in/yaml.v3"
)

// Load reads and parses the mapping table at p. YAML tables are accepted
// by extension and normalised through JSON so both forms share one decoder.
func Load(ctx context.Context, src Source, p string) (*types.Mappings, error) {
	data, err := src.Read(ctx, p)
	if err != nil {
		return nil, err
	}

	if ext := strings.ToLower(path.Ext(p)); ext == ".yaml" || ext == ".yml" {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, &types.LoadError{Path: p, Err: err}
		}
	}

	var m types.Mappings
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &types.LoadError{Path: p, Err: err}
	}

	slog.Debug("loaded mapping table", "path", p, "stacks", m.Len())
	return &m, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	out, err := json.Marshal(normalize(doc))
	if err != nil {
		return nil, fmt.Errorf("converting yaml mapping table: %w", err)
	}
	return out, nil
}

// normalize turns yaml.v3's map[string]any / map[any]any trees into shapes
// encoding/json can marshal.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	}
	return v
}
