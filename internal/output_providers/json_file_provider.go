package outputproviders

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/praetorian-inc/asea-lza/pkg/reconcilers"
	"github.com/praetorian-inc/asea-lza/pkg/types"
	"github.com/praetorian-inc/asea-lza/pkg/utils"
)

type JsonFileProvider struct {
	OutputPath string
}

func NewJsonFileProvider(outputPath string) *JsonFileProvider {
	return &JsonFileProvider{OutputPath: outputPath}
}

// Write encodes data as indented JSON at filename under the output path.
func (fp *JsonFileProvider) Write(filename string, data any) (string, error) {
	fullpath := GetFullPath(filename, fp.OutputPath)
	if err := utils.EnsureFileDirectory(fullpath); err != nil {
		return "", err
	}

	file, err := os.Create(fullpath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", fullpath, err)
	}
	slog.Debug("output written", "path", fullpath)
	return fullpath, nil
}

// WriteResult writes the resource mapping, the deletion list and every
// reconciled template. Paths are returned in write order.
func (fp *JsonFileProvider) WriteResult(result *reconcilers.Result) ([]string, error) {
	var written []string

	mappings := result.Mappings
	if mappings == nil {
		mappings = []types.ResourceMappingEntry{}
	}
	path, err := fp.Write(ResourceMappingFile, mappings)
	if err != nil {
		return written, err
	}
	written = append(written, path)

	deletions := result.Deletions
	if deletions == nil {
		deletions = []types.DeletionFlag{}
	}
	if path, err = fp.Write(DeletionsFile, deletions); err != nil {
		return written, err
	}
	written = append(written, path)

	keys := make([]string, 0, len(result.Templates))
	for k := range result.Templates {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if path, err = fp.Write(TemplateFileName(key), result.Templates[key]); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
