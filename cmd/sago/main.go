// Command sago scans a calendar for meetings flagged with the Sago marker
// participant, researches the counterparty, and emails a brief to the
// attendees. Runs once by default; --watch keeps polling until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sago/internal/brief"
	"sago/internal/calendar"
	"sago/internal/config"
	"sago/internal/delivery"
	"sago/internal/logging"
	"sago/internal/pipeline"
	"sago/internal/research"
)

var (
	bold = color.New(color.Bold).SprintFunc()
	cyan = color.New(color.FgCyan).SprintFunc()
	red  = color.New(color.FgRed).SprintFunc()
)

func main() {
	var (
		demo     bool
		watch    bool
		days     int
		interval int
		workers  int
		verbose  bool
	)

	root := &cobra.Command{
		Use:   "sago",
		Short: "Meeting-intake scheduler and research-brief pipeline",
		Long: "sago polls a calendar for upcoming meetings that include the Sago marker\n" +
			"participant, resolves who the meeting is with, generates a research brief,\n" +
			"and delivers it to the attendees by email.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), options{
				demo:     demo,
				watch:    watch,
				days:     days,
				interval: interval,
				workers:  workers,
				verbose:  verbose,
			})
		},
	}

	root.Flags().BoolVar(&demo, "demo", false, "use fixed sample meetings instead of the calendar")
	root.Flags().BoolVar(&watch, "watch", false, "keep polling until interrupted")
	root.Flags().IntVar(&days, "days", 0, "scan window in days (overrides config)")
	root.Flags().IntVar(&interval, "interval", 0, "poll interval in seconds for watch mode (overrides config)")
	root.Flags().IntVar(&workers, "workers", 0, "parallel meeting workers (overrides config)")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, red("error: ")+err.Error())
			os.Exit(1)
		}
	}
}

type options struct {
	demo     bool
	watch    bool
	days     int
	interval int
	workers  int
	verbose  bool
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.days > 0 {
		cfg.ScanWindowDays = opts.days
	}
	if opts.interval > 0 {
		cfg.PollInterval = time.Duration(opts.interval) * time.Second
	}
	if opts.workers > 0 {
		cfg.Workers = opts.workers
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}

	level := logging.ParseLevel(cfg.LogLevel)
	newLogger := func(component string) logging.Logger {
		return logging.New(os.Stderr, component, level)
	}
	logger := newLogger("sago")

	fmt.Println()
	fmt.Println("  " + bold("Sago Calendar Automation"))
	fmt.Println("  " + bold("========================"))
	fmt.Println()
	if opts.demo {
		fmt.Println("  " + cyan("DEMO MODE"))
		fmt.Println()
	}

	var source calendar.EventSource
	if opts.demo {
		source = calendar.NewDemoSource(cfg.MarkerEmail)
	} else {
		if cfg.Calendar.AccessToken == "" {
			return fmt.Errorf("no calendar access token configured (set GOOGLE_CALENDAR_TOKEN or use --demo)")
		}
		source = calendar.NewGoogleSource(cfg.Calendar, nil, newLogger("calendar"))
	}
	scanner := calendar.NewScanner(source, cfg.MarkerEmail, newLogger("scanner"))

	var invoker research.Invoker = research.NewClient(cfg.Tavily, nil, newLogger("research"))
	invoker = research.NewCachedInvoker(invoker, research.CacheConfig{})

	composer := brief.NewComposer(invoker, newLogger("brief"))

	mailer, err := delivery.NewMailer(cfg.Mailer, newLogger("mailer"))
	if err != nil {
		return err
	}
	deliverer := delivery.NewService(mailer, cfg.ClientDomain, newLogger("delivery"))

	processed := pipeline.NewProcessedSet()
	resolver := pipeline.NewTargetResolver(cfg.BrandTokens, cfg.ClientDomain)
	runner := pipeline.NewTaskRunner(
		resolver, composer, deliverer, processed,
		cfg.OutputDir, cfg.MeetingTimeout, newLogger("runner"))
	orchestrator := pipeline.NewOrchestrator(scanner, runner, processed, pipeline.OrchestratorConfig{
		ScanDays:  cfg.ScanWindowDays,
		Interval:  cfg.PollInterval,
		Workers:   cfg.Workers,
		OutputDir: cfg.OutputDir,
	}, logger)

	if opts.watch {
		err := orchestrator.Watch(ctx)
		if errors.Is(err, context.Canceled) {
			logger.Info("interrupted, shutting down")
			return nil
		}
		return err
	}
	return orchestrator.RunOnce(ctx)
}
