package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/praetorian-inc/asea-lza/internal/registry"
	"github.com/praetorian-inc/asea-lza/pkg/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var listReconcilersCmd = &cobra.Command{
	Use:   "list-reconcilers",
	Short: "Display the registered reconcilers by phase and category",
	Run: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("no-color") {
			color.NoColor = true
		}
		displayReconcilerTree(os.Stdout, registry.Registry)
	},
}

func init() {
	rootCmd.AddCommand(listReconcilersCmd)
}

func displayReconcilerTree(w io.Writer, reg *registry.ReconcilerRegistry) {
	bold := color.New(color.Bold)
	hierarchy := reg.GetHierarchy()

	phases := make([]types.Phase, 0, len(hierarchy))
	for p := range hierarchy {
		phases = append(phases, p)
	}
	slices.Sort(phases)

	for _, phase := range phases {
		fmt.Fprintf(w, "\n%s\n", bold.Sprintf("phase %d", phase))

		categories := make([]string, 0, len(hierarchy[phase]))
		for c := range hierarchy[phase] {
			categories = append(categories, c)
		}
		slices.Sort(categories)

		for _, category := range categories {
			fmt.Fprintf(w, "├─ %s\n", category)
			for _, name := range hierarchy[phase][category] {
				entry, _ := reg.Get(name)
				fmt.Fprintf(w, "  ├─ %s - %s\n", name, entry.Metadata.Description)
			}
		}
	}
	fmt.Fprintln(w)
}
