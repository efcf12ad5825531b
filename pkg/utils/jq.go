package utils

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// PerformJqQuery runs jqQuery over a JSON document and returns every result.
func PerformJqQuery(jsonContent []byte, jqQuery string) ([]any, error) {
	var jsonData any
	if err := json.Unmarshal(jsonContent, &jsonData); err != nil {
		return nil, err
	}
	return PerformJqQueryOnValue(jsonData, jqQuery)
}

// PerformJqQueryOnValue runs jqQuery over an already decoded value. gojq
// only understands the types produced by encoding/json, so callers holding
// typed structs should go through PerformJqQuery.
func PerformJqQueryOnValue(value any, jqQuery string) ([]any, error) {
	query, err := gojq.Parse(jqQuery)
	if err != nil {
		return nil, fmt.Errorf("invalid jq query %q: %w", jqQuery, err)
	}

	var results []any
	iter := query.Run(value)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			if err, ok := err.(*gojq.HaltError); ok && err.Value() == nil {
				break
			}
			return nil, err
		}
		results = append(results, v)
	}
	return results, nil
}
