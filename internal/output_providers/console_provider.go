package outputproviders

import (
	"slices"

	"github.com/praetorian-inc/asea-lza/internal/message"
	"github.com/praetorian-inc/asea-lza/pkg/reconcilers"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

type ConsoleProvider struct{}

func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

// Write prints a run summary, with adopted resources counted per type.
func (cp *ConsoleProvider) Write(result *reconcilers.Result) {
	message.Section("Summary")
	message.Count("stacks", result.Stacks)
	message.Count("adopted resources", len(result.Mappings))
	message.Count("deletions", len(result.Deletions))
	message.Count("templates", len(result.Templates))

	byType := make(map[types.AseaResourceType]int)
	for _, m := range result.Mappings {
		byType[m.ResourceType]++
	}
	if len(byType) == 0 {
		return
	}
	message.Section("Adopted by type")
	names := make([]types.AseaResourceType, 0, len(byType))
	for t := range byType {
		names = append(names, t)
	}
	slices.Sort(names)
	for _, t := range names {
		message.Count(string(t), byType[t])
	}
}
