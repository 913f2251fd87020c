package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/phrazzld/scribe-api/internal/csvimport"
	"github.com/phrazzld/scribe-api/internal/domain"
	"github.com/phrazzld/scribe-api/internal/events"
	"github.com/phrazzld/scribe-api/internal/export/docx"
	"github.com/phrazzld/scribe-api/internal/service"
	"github.com/phrazzld/scribe-api/internal/task"
)

const stopTimeout = 30 * time.Second

type generateOptions struct {
	keyword   string
	secondary string
	title     string
	outline   string
	wordCount int
	tone      string
	backlink  string
	editions  int
	csvPath   string
	parallel  int
	out       string
}

// requests builds the batch from --csv when given, otherwise from the
// single request flags repeated --editions times.
func (o generateOptions) requests() ([]domain.BlogRequest, error) {
	if o.csvPath != "" {
		f, err := os.Open(o.csvPath)
		if err != nil {
			return nil, fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		return csvimport.Parse(f)
	}

	base := domain.BlogRequest{
		PrimaryKeyword:    o.keyword,
		SecondaryKeywords: domain.SplitKeywords(o.secondary),
		BlogTitle:         o.title,
		Outline:           o.outline,
		WordCount:         o.wordCount,
		Tone:              domain.ToneStyle(strings.ToLower(strings.TrimSpace(o.tone))),
		BacklinkURL:       o.backlink,
	}
	return domain.ExpandEditions(base, o.editions)
}

func generateCmd(configPath *string, ui *ui) *cobra.Command {
	opts := generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a batch of blogs and export them to .docx",
		Example: "  scribectl generate --keyword \"home roasting\" --backlink https://example.com --editions 3\n" +
			"  scribectl generate --csv keywords.csv --parallel 2 --out blogs.docx",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.csvPath == "" && strings.TrimSpace(opts.keyword) == "" {
				return errors.New("either --keyword or --csv is required")
			}
			reqs, err := opts.requests()
			if err != nil {
				return err
			}
			if opts.out == "" {
				opts.out = docx.Filename(time.Now())
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			log := newCLILogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			models, err := modelsFactory(ctx, cfg.LLM)
			if err != nil {
				return fmt.Errorf("failed to initialize gemini client: %w", err)
			}

			emitter := events.NewInMemoryEventEmitter(log)
			svc, err := newLocalBatchService(cfg, models, emitter, log)
			if err != nil {
				return err
			}
			return runGenerate(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), ui, svc, emitter, reqs, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.keyword, "keyword", "", "Primary keyword")
	f.StringVar(&opts.secondary, "secondary", "", "Comma-separated secondary keywords")
	f.StringVar(&opts.title, "title", "", "Blog title (generated when empty)")
	f.StringVar(&opts.outline, "outline", "", "Outline to follow")
	f.IntVar(&opts.wordCount, "word-count", 1500, "Target word count: 1000|1500|2000")
	f.StringVar(&opts.tone, "tone", string(domain.ToneConversational), "Tone: conversational|professional|technical|casual")
	f.StringVar(&opts.backlink, "backlink", "", "Backlink URL to weave into the article")
	f.IntVar(&opts.editions, "editions", 1, "Number of editions to generate from the flags")
	f.StringVar(&opts.csvPath, "csv", "", "CSV file with one request per row")
	f.IntVar(&opts.parallel, "parallel", 0, "Concurrent generations (0 uses the configured maximum)")
	f.StringVar(&opts.out, "out", "", "Output .docx path")
	return cmd
}

// runGenerate submits reqs, drives a progress bar from task events and writes
// the completed blogs to opts.out. Interrupting ctx cancels the remaining
// tasks; whatever finished is still exported.
func runGenerate(
	ctx context.Context,
	stdout, stderr io.Writer,
	ui *ui,
	svc *service.BatchService,
	emitter *events.InMemoryEventEmitter,
	reqs []domain.BlogRequest,
	opts generateOptions,
) error {
	bar := progressbar.NewOptions(len(reqs),
		progressbar.OptionSetWriter(stderr),
		progressbar.OptionSetDescription("Generating blogs"),
		progressbar.OptionSetWidth(18),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	unsubscribe := emitter.Subscribe(events.HandlerFunc(func(_ context.Context, ev *events.TaskEvent) error {
		if task.TaskStatus(ev.Status).IsTerminal() {
			return bar.Add(1)
		}
		return nil
	}), events.TaskUpdated)
	defer unsubscribe()

	receipt, err := svc.SubmitBatch(ctx, reqs, opts.parallel)
	if receipt != nil {
		for _, r := range receipt.Rejected {
			for _, fe := range r.Errors {
				fmt.Fprintf(stderr, "%s request %d: %s\n", ui.warn("[WARN]"), r.Index+1, fe.Message)
			}
		}
	}
	if err != nil {
		return err
	}
	bar.ChangeMax(len(receipt.TaskIDs))
	fmt.Fprintf(stdout, "%s Batch %s started with %d tasks on %d workers\n",
		ui.info("[INFO]"), receipt.BatchID, len(receipt.TaskIDs), receipt.Workers)

	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		fmt.Fprintln(stderr, ui.warn("[WARN]"), "Stopping...")
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		if err := svc.Shutdown(stopCtx); err != nil {
			return err
		}
	}
	_ = bar.Finish()

	snap := svc.Snapshot()
	printSummary(stdout, ui, snap)

	data, n, err := svc.ExportDocx(context.WithoutCancel(ctx))
	if errors.Is(err, service.ErrNothingToExport) {
		return errors.New("no blogs were generated")
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}
	fmt.Fprintf(stdout, "%s Wrote %d blogs to %s\n", ui.ok("[OK]"), n, opts.out)
	return nil
}
