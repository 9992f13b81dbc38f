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
	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/sportsqa/internal/app"
	"github.com/efebarandurmaz/sportsqa/internal/config"
	"github.com/efebarandurmaz/sportsqa/internal/docstore"
	"github.com/efebarandurmaz/sportsqa/internal/llm"
	"github.com/efebarandurmaz/sportsqa/internal/metrics"
	"github.com/efebarandurmaz/sportsqa/internal/observability"
	"github.com/efebarandurmaz/sportsqa/internal/qa"
	"github.com/efebarandurmaz/sportsqa/internal/server"
	"github.com/efebarandurmaz/sportsqa/internal/temporal"
	"github.com/efebarandurmaz/sportsqa/internal/tui"
	"github.com/efebarandurmaz/sportsqa/internal/uitext"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "sportsqa",
		Short:        "Sports question answering over a small document collection",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/sportsqa.yaml", "Config file path")

	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the question page and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, addr)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")

	var (
		report      bool
		jsonReport  bool
		useTemporal bool
	)
	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := ""
			if len(args) == 1 {
				question = args[0]
			}
			if useTemporal {
				return runAskTemporal(configPath, question)
			}
			return runAsk(configPath, question, report, jsonReport)
		},
	}
	askCmd.Flags().BoolVar(&report, "report", false, "Print a stage report after the answer")
	askCmd.Flags().BoolVar(&jsonReport, "json", false, "Print the stage report as JSON")
	askCmd.Flags().BoolVar(&useTemporal, "temporal", false, "Run the question as a Temporal workflow")

	var transcriptPath string
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive terminal chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(configPath, transcriptPath)
		},
	}
	chatCmd.Flags().StringVar(&transcriptPath, "transcript", "", "Write a JSON transcript on exit")

	docsCmd := &cobra.Command{
		Use:   "docs",
		Short: "List the documents in the corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocs(configPath)
		},
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			printProviders()
		},
	}

	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a Temporal worker for the ask workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(configPath)
		},
	}

	rootCmd.AddCommand(serveCmd, askCmd, chatCmd, docsCmd, providersCmd, workerCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func setup(ctx context.Context, configPath string) (*app.App, *observability.TracerProvider, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := observability.NewLogger(cfg.Log, os.Stderr)

	tcfg := observability.DefaultTracingConfig()
	tcfg.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	tcfg.SampleRate = cfg.Tracing.SampleRate
	tp, err := observability.InitTracing(ctx, tcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: %w", err)
	}

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		tp.Shutdown(ctx)
		return nil, nil, err
	}
	return a, tp, nil
}

func runServe(configPath, addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, tp, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = a.Config.Server.Addr
	}

	health := server.NewHealthServer(observability.DefaultTracingConfig().ServiceVersion)
	health.RegisterCheck("vector_store", server.VectorStoreHealthChecker(a.Collection.Name(), a.Collection.Count))
	health.RegisterCheck("generator", server.GeneratorHealthChecker(a.ProviderName()))

	srv, err := server.New(server.Config{
		Addr:           addr,
		RequestTimeout: a.Config.LLM.Timeout + a.Config.Generation.Timeout,
	}, a.Service, health, a.Metrics, a.Log)
	if err != nil {
		a.Close()
		return err
	}

	shutdown := server.NewShutdown(30*time.Second, a.Log)
	shutdown.Register(server.HTTPServerShutdownHook(srv.Stop))
	shutdown.Register(server.TracingShutdownHook(tp.Shutdown))
	shutdown.Register(server.VectorStoreShutdownHook(a.Close))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	color.New(color.FgGreen, color.Bold).Printf("%s listening on %s\n", uitext.Welcome, addr)

	select {
	case err := <-errCh:
		return errors.Join(err, shutdown.Run())
	case <-ctx.Done():
		return shutdown.Run()
	}
}

func runAsk(configPath, question string, report, jsonReport bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, tp, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer tp.Shutdown(context.Background())
	defer a.Close()

	opts := a.Service.Options()
	rep := metrics.New(question, a.ProviderName(), a.Collection.Name(), opts.Threshold)

	ans, askErr := a.Service.Ask(ctx, question)
	rep.Finish(ans, askErr)

	printAnswer(ans, askErr)

	if jsonReport {
		data, err := rep.JSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else if report {
		rep.PrintSummary(os.Stdout)
	}
	return askErr
}

func runAskTemporal(configPath, question string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LLM.Timeout+cfg.Generation.Timeout)
	defer cancel()

	out, err := temporal.ExecuteAsk(ctx, c, cfg.Temporal.TaskQueue, temporal.AskInput{
		Question:  question,
		TopK:      &cfg.Retrieval.TopK,
		Threshold: &cfg.Retrieval.Threshold,
	})
	if err != nil {
		printAnswer(qa.Answer{}, err)
		return err
	}
	printAnswer(qa.Answer{
		Outcome:   qa.Outcome(out.Outcome),
		Text:      out.Answer,
		Sources:   out.Sources,
		Distances: out.Distances,
	}, nil)
	return nil
}

func printAnswer(ans qa.Answer, err error) {
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	if err != nil {
		red.Println(qa.UserMessage(err))
		gray.Fprintf(os.Stderr, "  %v\n", err)
		return
	}
	if ans.Outcome == qa.OutcomeEmptyQuestion {
		yellow.Println(uitext.EmptyWarning)
		return
	}

	cyan.Println(uitext.AnswerHeading)
	fmt.Println(ans.Text)
	fmt.Println()
	for i, id := range ans.Sources {
		gray.Printf("  %s  distance %.4f\n", id, ans.Distances[i])
	}
	if ans.Outcome == qa.OutcomeAnswered {
		green.Println(uitext.Success)
	}
	cyan.Println(uitext.Tip)
}

func runChat(configPath, transcriptPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, tp, err := setup(ctx, configPath)
	if err != nil {
		return err
	}
	defer tp.Shutdown(context.Background())
	defer a.Close()

	session, err := tui.RunChat(ctx, a.Service, a.Service.Options().Threshold)
	if err != nil {
		return err
	}
	if transcriptPath != "" {
		if err := tui.SaveTranscript(session, transcriptPath); err != nil {
			return err
		}
		color.New(color.FgGreen).Printf("Transcript written to %s\n", transcriptPath)
	}
	return nil
}

func runDocs(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	docs, err := docstore.LoadCorpus(cfg.Corpus.Path)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	gray := color.New(color.FgHiBlack)
	for _, d := range docs {
		bold.Printf("%-6s %s\n", d.ID, d.Title)
		gray.Printf("       %s\n", truncate(d.Text, 100))
	}
	return nil
}

func printProviders() {
	mark := func(ok bool) string {
		if ok {
			return color.New(color.FgGreen).Sprintf("%-9s", "yes")
		}
		return color.New(color.Faint).Sprintf("%-9s", "no")
	}

	fmt.Println("Available LLM providers:")
	fmt.Println()
	fmt.Printf("  %-12s %-9s %-9s %s\n", "NAME", "GENERATE", "EMBED", "ENDPOINT")
	for _, p := range llm.Presets {
		endpoint := p.BaseURL
		switch {
		case p.Name == "custom":
			endpoint = "(set base_url to any OpenAI-compatible endpoint)"
		case p.Name == "local":
			endpoint = "(offline hashing embeddings)"
		case !p.NeedsKey:
			endpoint += " (no key)"
		}
		fmt.Printf("  %-12s %s %s %s\n", p.Name, mark(p.Generates), mark(p.Embeds), endpoint)
	}
	fmt.Printf("  %-12s %s\n", "none", "no generation; relevant questions report the service as unavailable")
	fmt.Println()
	fmt.Println("Configure in sportsqa.yaml or via environment:")
	fmt.Println("  SPORTSQA_LLM_PROVIDER=huggingface")
	fmt.Println("  SPORTSQA_HF_TOKEN=hf_...")
	fmt.Println("  SPORTSQA_LLM_MODEL=google/flan-t5-small")
}

func runWorker(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, tp, err := setup(ctx, configPath)
	if err != nil {
		return err
	}

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  a.Config.Temporal.Host,
		Namespace: a.Config.Temporal.Namespace,
	})
	if err != nil {
		a.Close()
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	w, err := temporal.StartWorker(c, a.Config.Temporal.TaskQueue, a.Activities())
	if err != nil {
		a.Close()
		return err
	}
	a.Log.Info("Worker started", "task_queue", a.Config.Temporal.TaskQueue)

	shutdown := server.NewShutdown(30*time.Second, a.Log)
	shutdown.Register(server.TemporalWorkerShutdownHook(w.Stop))
	shutdown.Register(server.TracingShutdownHook(tp.Shutdown))
	shutdown.Register(server.VectorStoreShutdownHook(a.Close))
	return shutdown.Wait(ctx)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
