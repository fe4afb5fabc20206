package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/openai/openai-go/v3/packages/param"

	"github.com/n0madic/go-ocigenai/internal/auth"
	"github.com/n0madic/go-ocigenai/internal/config"
	"github.com/n0madic/go-ocigenai/internal/engine"
	"github.com/n0madic/go-ocigenai/internal/models"
	"github.com/n0madic/go-ocigenai/internal/schema"
	"github.com/n0madic/go-ocigenai/internal/server"
	"github.com/n0madic/go-ocigenai/internal/types"
	"github.com/n0madic/go-ocigenai/internal/upstream"
)

const commands = "Commands: serve, generate, models, sanitize"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: go-ocigenai <command> [flags]")
		fmt.Fprintln(os.Stderr, commands)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		os.Exit(cmdServe())
	case "generate":
		os.Exit(cmdGenerate())
	case "models":
		os.Exit(cmdModels())
	case "sanitize":
		os.Exit(cmdSanitize())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		fmt.Fprintln(os.Stderr, commands)
		os.Exit(1)
	}
}

// loadConfig reads the config file named by -config; flags parsed afterwards
// override its values.
func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return nil
	}
	return cfg
}

func configPath(args []string) string {
	for i, a := range args {
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "-config="), strings.HasPrefix(a, "--config="):
			return a[strings.Index(a, "=")+1:]
		}
	}
	return ""
}

func newRegistry(cfg *config.Config) (*models.Registry, error) {
	registry := models.NewRegistry()
	if err := registry.LoadOverridesFile(cfg.CapabilitiesFile); err != nil {
		return nil, err
	}
	return registry, nil
}

func newEngine(cfg *config.Config) (*engine.Engine, error) {
	ts, err := auth.NewTokenSource(cfg.AccessToken, cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	registry, err := newRegistry(cfg)
	if err != nil {
		return nil, err
	}
	client := upstream.NewClient(cfg.BaseURL(), ts, cfg.Verbose, cfg.Debug)
	return engine.New(client, engine.Config{
		Registry:      registry,
		CompartmentID: cfg.CompartmentID,
		Verbose:       cfg.Verbose,
	}), nil
}

func bindCommonFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.String("config", "", "Path to a YAML config file")
	fs.StringVar(&cfg.Region, "region", cfg.Region, "OCI region, e.g. us-chicago-1")
	fs.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "Inference endpoint URL (overrides region)")
	fs.StringVar(&cfg.CompartmentID, "compartment-id", cfg.CompartmentID, "Compartment OCID")
	fs.StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "File holding the backend bearer token")
	fs.StringVar(&cfg.CapabilitiesFile, "capabilities-file", cfg.CapabilitiesFile, "YAML capability overrides")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Default model id")
	fs.StringVar(&cfg.EndpointID, "endpoint-id", cfg.EndpointID, "Dedicated endpoint OCID")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable verbose logging")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Dump raw requests and responses to stderr")
}

func cmdServe() int {
	args := os.Args[2:]
	cfg := loadConfig(configPath(args))
	if cfg == nil {
		return 1
	}
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	bindCommonFlags(fs, cfg)
	fs.StringVar(&cfg.Host, "host", cfg.Host, "Bind host")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Listen port")
	fs.StringVar(&cfg.AuthToken, "auth-token", cfg.AuthToken, "Bearer token required from HTTP clients")
	fs.Parse(args)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}
	eng, err := newEngine(cfg)
	if err != nil {
		slog.Error("failed to initialize engine", "error", err)
		return 1
	}
	srv := server.New(cfg, eng)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	slog.Info("go-ocigenai starting", "addr", cfg.Addr(), "endpoint", cfg.BaseURL(), "model", cfg.Model)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		return 1
	}
	return 0
}

func cmdGenerate() int {
	args := os.Args[2:]
	cfg := loadConfig(configPath(args))
	if cfg == nil {
		return 1
	}
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	bindCommonFlags(fs, cfg)
	system := fs.String("system", "", "System message")
	stream := fs.Bool("stream", false, "Stream the reply")
	maxTokens := fs.Int64("max-tokens", 0, "Maximum output tokens")
	temperature := fs.Float64("temperature", 0, "Sampling temperature")
	effort := fs.String("reasoning-effort", "", "Reasoning effort (none|low|medium|high)")
	fs.Parse(args)

	prompt := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if prompt == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			slog.Error("failed to read prompt", "error", err)
			return 1
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		fmt.Fprintln(os.Stderr, "Usage: go-ocigenai generate [flags] <prompt>")
		return 1
	}

	eng, err := newEngine(cfg)
	if err != nil {
		slog.Error("failed to initialize engine", "error", err)
		return 1
	}

	var messages types.Prompt
	if *system != "" {
		messages = append(messages, types.SystemMessage(*system))
	}
	messages = append(messages, types.UserText(prompt))

	opts := engine.Options{Model: cfg.Model, EndpointID: cfg.EndpointID}
	opts.Generation.ReasoningEffort = *effort
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max-tokens":
			opts.Generation.MaxTokens = param.NewOpt(*maxTokens)
		case "temperature":
			opts.Generation.Temperature = param.NewOpt(*temperature)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *stream {
		return streamReply(ctx, eng, messages, opts)
	}
	res, err := eng.Generate(ctx, messages, nil, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, w := range res.Warnings {
		slog.Warn("setting ignored", "setting", w.Setting, "details", w.Details)
	}
	for _, block := range res.Content {
		switch block.Type {
		case types.BlockText:
			fmt.Println(block.Text)
		case types.BlockReasoning:
			fmt.Fprintln(os.Stderr, block.Text)
		case types.BlockToolCall:
			fmt.Printf("tool call %s(%s)\n", block.ToolName, block.Input)
		}
	}
	if cfg.Verbose {
		slog.Info("generation finished", "finish_reason", res.FinishReason,
			"input_tokens", res.Usage.InputTokens, "output_tokens", res.Usage.OutputTokens)
	}
	return 0
}

func streamReply(ctx context.Context, eng *engine.Engine, messages types.Prompt, opts engine.Options) int {
	code := 0
	for ev := range eng.Stream(ctx, messages, nil, opts) {
		switch ev.Type {
		case types.EventStreamStart:
			for _, w := range ev.Warnings {
				slog.Warn("setting ignored", "setting", w.Setting, "details", w.Details)
			}
		case types.EventTextDelta:
			fmt.Print(ev.Delta)
		case types.EventReasoningDelta:
			fmt.Fprint(os.Stderr, ev.Delta)
		case types.EventToolCall:
			fmt.Printf("\ntool call %s(%s)", ev.ToolCall.ToolName, ev.ToolCall.Input)
		case types.EventFinish:
			fmt.Println()
			slog.Debug("generation finished", "finish_reason", ev.FinishReason)
		case types.EventError:
			fmt.Println()
			fmt.Fprintln(os.Stderr, ev.Error)
			code = 1
		}
	}
	return code
}

func cmdModels() int {
	args := os.Args[2:]
	cfg := loadConfig(configPath(args))
	if cfg == nil {
		return 1
	}
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	fs.String("config", "", "Path to a YAML config file")
	fs.StringVar(&cfg.CapabilitiesFile, "capabilities-file", cfg.CapabilitiesFile, "YAML capability overrides")
	fs.Parse(args)

	registry, err := newRegistry(cfg)
	if err != nil {
		slog.Error("failed to load capabilities", "error", err)
		return 1
	}
	ids := fs.Args()
	var catalog []models.Capabilities
	if len(ids) == 0 {
		catalog = registry.Catalog()
	} else {
		for _, id := range ids {
			catalog = append(catalog, registry.Lookup(id))
		}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tFORMAT\tTOOLS\tPENALTIES\tSTOP\tREASONING\tIMAGES")
	for _, c := range catalog {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ModelID, c.APIFormat, yesNo(c.SupportsTools), yesNo(c.SupportsPenalties),
			yesNo(c.SupportsStopSequences), reasoningLabel(c), yesNo(c.SupportsImages))
	}
	tw.Flush()
	return 0
}

func reasoningLabel(c models.Capabilities) string {
	switch {
	case !c.SupportsReasoning:
		return "no"
	case c.ReasoningByModelName:
		return "by name"
	case c.DefaultReasoningEffort != "":
		return string(c.DefaultReasoningEffort)
	}
	return "yes"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func cmdSanitize() int {
	fs := flag.NewFlagSet("sanitize", flag.ExitOnError)
	noCheck := fs.Bool("no-check", false, "Skip compiling the sanitized schema")
	fs.Parse(os.Args[2:])

	var (
		data []byte
		err  error
	)
	if fs.NArg() > 0 {
		data, err = os.ReadFile(fs.Arg(0))
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		slog.Error("failed to read schema", "error", err)
		return 1
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Error("schema is not valid JSON", "error", err)
		return 1
	}
	clean := schema.Sanitize(doc)
	out, err := json.MarshalIndent(clean, "", "  ")
	if err != nil {
		slog.Error("failed to encode schema", "error", err)
		return 1
	}
	fmt.Println(string(out))

	if !*noCheck {
		if err := schema.Check(clean); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}
	return 0
}
