// =============================================================================
// seqflow command line entry point
// =============================================================================
// Small operational CLI around the workflow client.
//
// Usage:
//
//	seqflow agents                         # list the agent directory
//	seqflow workflows                      # list registered workflows
//	seqflow run --template content \
//	    --topic "AI in healthcare"         # register and run a template
//	seqflow delete --id my_workflow        # delete a workflow definition
//	seqflow health                         # probe the server
//	seqflow version                        # show version information
//
// All commands accept --config <path> (YAML) and honor SEQFLOW_*
// environment variables.
// =============================================================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kolosal-ai/seqflow/client"
	"github.com/kolosal-ai/seqflow/config"
	"github.com/kolosal-ai/seqflow/internal/telemetry"
	"github.com/kolosal-ai/seqflow/workflow"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runWorkflow(os.Args[2:])
	case "agents":
		runAgents(os.Args[2:])
	case "workflows":
		runWorkflows(os.Args[2:])
	case "delete":
		runDelete(os.Args[2:])
	case "health":
		runHealth(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// env assembles the client, logger, and telemetry from one config file.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	client *client.Client
	otel   *telemetry.Providers
}

func setup(fs *flag.FlagSet, args []string) *env {
	configPath := fs.String("config", "", "Path to config file (YAML)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	clientCfg := &client.Config{
		BaseURL:            cfg.Server.BaseURL,
		BasePath:           cfg.Server.BasePath,
		Timeout:            cfg.HTTP.Timeout,
		HealthTimeout:      cfg.HTTP.HealthTimeout,
		VerifyRegistration: cfg.Register.Verify,
	}
	var opts []client.Option
	if cfg.Execute.RateLimitRPS > 0 {
		opts = append(opts, client.WithRateLimit(cfg.Execute.RateLimitRPS, cfg.Execute.RateLimitBurst))
	}

	return &env{
		cfg:    cfg,
		logger: logger,
		client: client.New(clientCfg, logger, opts...),
		otel:   otelProviders,
	}
}

func (e *env) close() {
	if err := e.otel.Shutdown(context.Background()); err != nil {
		e.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
	e.logger.Sync()
}

// signalContext cancels on SIGINT/SIGTERM so a ^C aborts a long run
// cleanly instead of leaving a half-read stream.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runWorkflow(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	template := fs.String("template", "content", "Template: content, code, or data")
	topic := fs.String("topic", "", "Topic / requirements / data description")
	stream := fs.Bool("stream", true, "Stream live progress")

	e := setup(fs, args)
	defer e.close()

	if *topic == "" {
		fmt.Fprintln(os.Stderr, "run requires --topic")
		os.Exit(1)
	}

	var wf *workflow.Workflow
	switch *template {
	case "content":
		wf = workflow.NewContentCreation("", *topic, "general audience", "article")
	case "code":
		wf = workflow.NewCodeDevelopment("", *topic, "")
	case "data":
		wf = workflow.NewDataAnalysis("", *topic, "")
	default:
		fmt.Fprintf(os.Stderr, "Unknown template: %s\n", *template)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	handler := client.StreamHandler(nil)
	if *stream {
		handler = func(ev client.StreamEvent) {
			switch ev.Type {
			case client.EventStepStart:
				fmt.Fprintf(os.Stderr, "\n--- %s ---\n", ev.StepID)
			case client.EventToken:
				fmt.Print(ev.Token)
			case client.EventStepComplete:
				fmt.Fprintf(os.Stderr, "\n--- %s done (success=%v) ---\n", ev.StepID, ev.Success)
			}
		}
	}

	result, err := e.client.RunWorkflow(ctx, wf, client.RunOptions{
		Streaming: *stream || e.cfg.Execute.Streaming,
		Handler:   handler,
	})
	if err != nil {
		e.logger.Fatal("workflow run failed", zap.Error(err))
	}

	fmt.Printf("\n\nWorkflow:  %s\n", result.WorkflowID)
	fmt.Printf("Success:   %v\n", result.Success)
	fmt.Printf("Duration:  %.0f ms\n", result.TotalExecutionTimeMS)
	for _, id := range result.StepIDs() {
		sr := result.StepResults[id]
		fmt.Printf("  step %-20s success=%-5v %.0f ms\n", id, sr.Success, sr.ExecutionTimeMS)
	}
	if !*stream {
		fmt.Printf("\n%s\n", result.FinalOutput)
	}
}

func runAgents(args []string) {
	fs := flag.NewFlagSet("agents", flag.ExitOnError)
	e := setup(fs, args)
	defer e.close()

	ctx, cancel := signalContext()
	defer cancel()

	agents, err := e.client.Resolver().Agents(ctx)
	if err != nil {
		e.logger.Fatal("failed to fetch agent directory", zap.Error(err))
	}
	for _, a := range agents {
		fmt.Printf("%-24s %-12s %s\n", a.Name, a.Type, a.ID)
	}
}

func runWorkflows(args []string) {
	fs := flag.NewFlagSet("workflows", flag.ExitOnError)
	e := setup(fs, args)
	defer e.close()

	ctx, cancel := signalContext()
	defer cancel()

	summaries, err := e.client.ListWorkflows(ctx)
	if err != nil {
		e.logger.Fatal("failed to list workflows", zap.Error(err))
	}
	for _, s := range summaries {
		fmt.Printf("%-32s steps=%-3d %s\n", s.WorkflowID, s.TotalSteps, s.WorkflowName)
	}
}

func runDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "Workflow id to delete")
	e := setup(fs, args)
	defer e.close()

	if *id == "" {
		fmt.Fprintln(os.Stderr, "delete requires --id")
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := e.client.DeleteWorkflow(ctx, *id); err != nil {
		e.logger.Fatal("delete failed", zap.Error(err))
	}
	fmt.Println("OK")
}

func runHealth(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	e := setup(fs, args)
	defer e.close()

	ctx, cancel := signalContext()
	defer cancel()

	if !e.client.Health(ctx) {
		fmt.Fprintln(os.Stderr, "Health check failed")
		os.Exit(1)
	}
	fmt.Println("OK")
}

func printVersion() {
	fmt.Printf("seqflow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`seqflow - sequential workflow client

Usage:
  seqflow <command> [options]

Commands:
  run        Register and execute a template workflow
  agents     List the server's agent directory
  workflows  List registered workflows
  delete     Delete a workflow definition
  health     Check server health
  version    Show version information
  help       Show this help message

Options for 'run':
  --template <name>   content, code, or data (default content)
  --topic <text>      Topic, requirements, or data description
  --stream            Stream live progress (default true)

Common options:
  --config <path>     Path to configuration file (YAML)

Examples:
  seqflow agents
  seqflow run --template content --topic "AI in healthcare"
  seqflow run --template code --topic "a rate limiter" --stream=false
  seqflow delete --id content_creation_1a2b3c4d
  seqflow health --config /etc/seqflow/config.yaml`)
}

// initLogger builds the CLI logger from the log config.
func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
