package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nordbeam/nb-inertia-sub000/core/registry"
	"github.com/nordbeam/nb-inertia-sub000/core/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate all page contracts and provider scopes",
	Long: `Run the build-time checks without starting the server: duplicate
registrations surface during registration itself, and every page is
checked against the providers in its scope for prop collisions.

Exits non-zero when any check fails, listing every failure.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	reg := registry.New()
	if err := registerSite(reg); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	reg.Freeze()

	errs := validation.ValidateRegistry(reg)
	if len(errs) == 0 {
		fmt.Printf("ok: %d page(s) validated\n", len(reg.Pages()))
		return nil
	}

	for _, err := range errs {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(1)
	return nil
}
