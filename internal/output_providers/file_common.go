package outputproviders

import (
	"path/filepath"
	"strings"

	"github.com/praetorian-inc/asea-lza/pkg/utils"
)

const (
	ResourceMappingFile = "resource-mapping.json"
	DeletionsFile       = "deletions.json"
	TemplatesDir        = "templates"
)

// GetFullPath constructs the full file path from filename and output path
func GetFullPath(filename string, outputPath string) string {
	return filepath.Join(outputPath, filepath.FromSlash(filename))
}

// TemplateFileName maps a stack key to templates/<account>/<region>/<stack>[/<nested>].json.
func TemplateFileName(stackKey string) string {
	parts := strings.Split(strings.ReplaceAll(stackKey, "|", "/"), "/")
	for i, p := range parts {
		parts[i] = sanitize(p)
	}
	return TemplatesDir + "/" + strings.Join(parts, "/") + ".json"
}

func sanitize(segment string) string {
	segment = utils.SafeFileName(segment)
	switch segment {
	case "", ".", "..":
		return "_"
	}
	return segment
}
