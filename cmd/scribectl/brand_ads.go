package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scribe-api/internal/brand"
)

func brandAdsCmd(configPath *string, ui *ui) *cobra.Command {
	return &cobra.Command{
		Use:     "brand-ads <website-url>",
		Short:   "Identify a website's brand and report its ad counts",
		Example: "  scribectl brand-ads https://acme.example",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			log := newCLILogger(cfg)

			models, err := modelsFactory(cmd.Context(), cfg.LLM)
			if err != nil {
				return fmt.Errorf("failed to initialize gemini client: %w", err)
			}
			svc, err := newLocalBrandService(cfg, models, log)
			if err != nil {
				return err
			}
			return runBrandAds(cmd.Context(), cmd.OutOrStdout(), ui, svc, args[0])
		},
	}
}

func runBrandAds(ctx context.Context, w io.Writer, ui *ui, svc *brand.Service, websiteURL string) error {
	report, err := svc.Lookup(ctx, websiteURL)
	if errors.Is(err, brand.ErrBrandNotIdentified) {
		fmt.Fprintf(w, "%s could not identify a brand for %s\n", ui.warn("[WARN]"), websiteURL)
		return nil
	}
	if err != nil {
		return err
	}
	printBrandReport(w, ui, report)
	return nil
}
