// Package main implements scribectl, a command line client that generates
// blog batches locally, looks up brand ad counts and reports domain metrics
// without running the API server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	ui := newUI()
	root := newRootCmd(ui)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.err("[ERROR]"), err.Error())
		os.Exit(1)
	}
}

func newRootCmd(ui *ui) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "scribectl",
		Short:         "Scribe CLI",
		Long:          "Scribe CLI for generating SEO blog batches, checking brand ads and reporting domain metrics.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (defaults to ./config.yaml)")

	root.AddCommand(generateCmd(&configPath, ui))
	root.AddCommand(brandAdsCmd(&configPath, ui))
	root.AddCommand(domainsCmd(&configPath, ui))
	return root
}
