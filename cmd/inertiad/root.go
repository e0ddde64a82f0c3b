package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "inertiad",
	Short: "Page-contract server for single-page-app renderers",
	Long: `inertiad serves pages over the Inertia protocol through a declared
page-contract engine: every page's props are registered at start-up,
validated against their call sites and shared providers, and resolved
per request with lazy/defer/once/partial/merge semantics.

Quick start:
  inertiad serve       # Start the page server
  inertiad pages       # List registered page contracts
  inertiad validate    # Validate all contracts and scopes`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "inertiad.yaml", "config file path")
}
