package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nordbeam/nb-inertia-sub000/core/props"
	"github.com/nordbeam/nb-inertia-sub000/core/registry"
)

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List registered page contracts",
	Long: `List every registered page contract: page id, component path, and
each declared prop with its modifier summary. Static-analysis tooling
reads the same metadata.`,
	RunE: runPages,
}

func init() {
	rootCmd.AddCommand(pagesCmd)
}

func runPages(cmd *cobra.Command, args []string) error {
	reg := registry.New()
	if err := registerSite(reg); err != nil {
		return err
	}
	reg.Freeze()

	for _, contract := range reg.Pages() {
		fmt.Printf("%s  ->  %s", contract.ID, contract.Component)
		if contract.TypeName != "" {
			fmt.Printf("  (type %s)", contract.TypeName)
		}
		fmt.Println()

		for _, spec := range contract.Schema {
			fmt.Printf("  %-20s %-12s %s\n", spec.Name, spec.Type, modifierSummary(spec))
		}

		scope := reg.Scope(contract.ID)
		for _, entry := range reg.Providers(scope) {
			fmt.Printf("  + provider %q -> %s\n", entry.Ref.Name(), strings.Join(entry.Produce, ", "))
		}
		fmt.Println()
	}
	return nil
}

// modifierSummary renders a prop's modifier set for display.
func modifierSummary(spec props.PropSpec) string {
	var mods []string
	if spec.Optional {
		mods = append(mods, "optional")
	}
	if spec.Nullable {
		mods = append(mods, "nullable")
	}
	if spec.Lazy {
		mods = append(mods, "lazy")
	}
	if spec.DeferGroup != "" {
		mods = append(mods, "defer("+spec.DeferGroup+")")
	}
	if spec.Partial {
		mods = append(mods, "partial")
	}
	if spec.Once != nil {
		mods = append(mods, "once")
	}
	if spec.MergeMode != props.MergeNone {
		mods = append(mods, "merge("+spec.MergeMode.String()+")")
	}
	if spec.FromSource != "" {
		mods = append(mods, "from("+spec.FromSource+")")
	}
	if len(mods) == 0 {
		return "required"
	}
	return strings.Join(mods, ", ")
}
