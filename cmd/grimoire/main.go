// Command grimoire is the entry point for the Grimoire prompt-rendering
// service.
//
// Usage:
//
//	grimoire serve    -config config.yaml
//	grimoire render   -config config.yaml -template saludo -context ctx.yaml
//	grimoire validate -config config.yaml -text "Hola {{jugador.nombre}}" [-context ctx.yaml]
//
// serve runs the long-lived service with the HTTP health/metrics surface.
// render performs a one-shot template render and prints the result.
// validate lints template text and prints the findings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/grimoire/internal/app"
	"github.com/MrWong99/grimoire/internal/config"
	"github.com/MrWong99/grimoire/internal/lint"
	"github.com/MrWong99/grimoire/internal/observe"
	"github.com/MrWong99/grimoire/internal/prompt"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		usage()
		return 2
	}

	switch os.Args[1] {
	case "serve":
		return runServe(os.Args[2:])
	case "render":
		return runRender(os.Args[2:])
	case "validate":
		return runValidate(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "grimoire: unknown command %q\n", os.Args[1])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  grimoire serve    -config config.yaml
  grimoire render   -config config.yaml -template KEY [-context ctx.yaml]
  grimoire validate -config config.yaml (-text TEXT | -file PATH) [-context ctx.yaml]`)
}

// ── serve ─────────────────────────────────────────────────────────────────────

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML configuration file")
	fs.Parse(args)

	cfg, ok := loadConfig(*configPath)
	if !ok {
		return 1
	}
	slog.SetDefault(newLogger(cfg.Server.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "grimoire",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	slog.Info("grimoire starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	printStartupSummary(cfg, application)

	slog.Info("server ready — press Ctrl+C to shut down")
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── render ────────────────────────────────────────────────────────────────────

func runRender(args []string) int {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML configuration file")
	templateKey := fs.String("template", "", "key of the template to render")
	contextPath := fs.String("context", "", "optional YAML file with the render context")
	fs.Parse(args)

	if *templateKey == "" {
		fmt.Fprintln(os.Stderr, "grimoire render: -template is required")
		return 2
	}

	cfg, ok := loadConfig(*configPath)
	if !ok {
		return 1
	}
	slog.SetDefault(newLogger(cfg.Server.LogLevel))

	rctx, ok := loadRenderContext(*contextPath)
	if !ok {
		return 1
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer application.Shutdown(ctx)

	out := application.Renderer().RenderTemplate(ctx, *templateKey, rctx)
	for _, e := range out.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", e)
	}
	fmt.Println(out.Value)
	return 0
}

// ── validate ──────────────────────────────────────────────────────────────────

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML configuration file")
	text := fs.String("text", "", "template text to validate")
	file := fs.String("file", "", "file whose contents are validated as template text")
	contextPath := fs.String("context", "", "optional YAML file with a sample render context")
	fs.Parse(args)

	if *text == "" && *file == "" {
		fmt.Fprintln(os.Stderr, "grimoire validate: one of -text or -file is required")
		return 2
	}
	body := *text
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "grimoire validate: %v\n", err)
			return 1
		}
		body = string(data)
	}

	cfg, ok := loadConfig(*configPath)
	if !ok {
		return 1
	}
	slog.SetDefault(newLogger(cfg.Server.LogLevel))

	sample, ok := loadRenderContext(*contextPath)
	if !ok {
		return 1
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer application.Shutdown(ctx)

	issues := application.Validator().CheckTemplate(body, sample)
	if len(issues) == 0 {
		fmt.Println("ok: no findings")
		return 0
	}

	for _, issue := range issues {
		fmt.Printf("%s [%s] %s: %s\n", issue.Severity, issue.Kind, issue.Variable, issue.Message)
		for _, s := range issue.Suggestions {
			fmt.Printf("  did you mean %q?\n", s)
		}
	}
	if lint.HasErrors(issues) {
		return 1
	}
	return 0
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// loadConfig loads and validates the config file, printing a friendly hint
// when the file does not exist.
func loadConfig(path string) (*config.Config, bool) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "grimoire: config file %q not found — copy configs/example.yaml to get started\n", path)
		} else {
			fmt.Fprintf(os.Stderr, "grimoire: %v\n", err)
		}
		return nil, false
	}
	return cfg, true
}

// loadRenderContext reads an optional render-context YAML file. An empty path
// yields an empty context (every variable resolves to "").
func loadRenderContext(path string) (*prompt.RenderContext, bool) {
	if path == "" {
		return &prompt.RenderContext{}, true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "grimoire: read context %q: %v\n", path, err)
		return nil, false
	}
	rctx := &prompt.RenderContext{}
	if err := yaml.Unmarshal(data, rctx); err != nil {
		fmt.Fprintf(os.Stderr, "grimoire: parse context %q: %v\n", path, err)
		return nil, false
	}
	return rctx, true
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, a *app.App) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Grimoire — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Templates       : %-19d ║\n", a.Store().Count())
	fmt.Printf("║  Template packs  : %-19d ║\n", len(cfg.Templates.Packs))
	if cfg.Templates.PostgresDSN != "" {
		fmt.Printf("║  Postgres        : %-19s ║\n", "connected")
	} else {
		fmt.Printf("║  Postgres        : %-19s ║\n", "(disabled)")
	}
	if cfg.Templates.WatchInterval > 0 {
		fmt.Printf("║  Hot reload      : %-19s ║\n", cfg.Templates.WatchInterval)
	} else {
		fmt.Printf("║  Hot reload      : %-19s ║\n", "(disabled)")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
