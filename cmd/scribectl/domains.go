package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/domainmetrics"
)

func domainsCmd(configPath *string, ui *ui) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "domains <domain>...",
		Short: "Report domain rating, US traffic and brand ads for up to 20 domains",
		Example: "  scribectl domains acme.com beta.io\n" +
			"  scribectl domains acme.com,beta.io --out metrics.csv",
		Args: cobra.MinimumNArgs(1),
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
			svc, err := newLocalDomainService(cfg, models, log)
			if err != nil {
				return err
			}
			return runDomains(cmd.Context(), cmd.OutOrStdout(), ui, svc, strings.Join(args, " "), out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Also write successful results to this CSV path")
	return cmd
}

func runDomains(ctx context.Context, w io.Writer, ui *ui, svc *domainmetrics.Service, input, out string) error {
	results, err := svc.Analyze(ctx, input)
	if err != nil {
		return err
	}
	printDomainResults(w, ui, results)
	if out == "" {
		return nil
	}

	var buf bytes.Buffer
	if err := domainmetrics.WriteCSV(&buf, results); err != nil {
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(w, "%s Wrote %s\n", ui.ok("[OK]"), out)
	return nil
}

func printDomainResults(w io.Writer, u *ui, results []domain.DomainAnalysis) {
	fmt.Fprintln(w, u.title("Domains"))
	failed := 0
	for _, r := range results {
		if r.Status != domain.AnalysisSuccess {
			failed++
			fmt.Fprintf(w, "  %s %s\n    %s\n", u.err(fmt.Sprintf("%-8s", r.Status)), r.Domain, u.err(r.Error))
			continue
		}
		fmt.Fprintf(w, "  %s %s %s %s %s %s\n",
			u.ok(fmt.Sprintf("%-8s", r.Status)), r.Domain,
			u.dim("dr"), ratingText(r.DomainRating),
			u.dim("us traffic"), countText(r.USTraffic))
		if r.InstagramDisplayName != "" {
			line := fmt.Sprintf("    %s %s", u.dim("brand"), r.InstagramDisplayName)
			if r.AdCounts != nil {
				line += fmt.Sprintf(" %s %s", u.dim("ads"), countText(r.AdCounts.Total))
			}
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintf(w, "%s %d analyzed, %d failed\n", u.info("[INFO]"), len(results)-failed, failed)
}

func ratingText(f *float64) string {
	if f == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *f)
}
