package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/hanpama/permgraph/internal/demo"
	"github.com/hanpama/permgraph/internal/eventbus"
	"github.com/hanpama/permgraph/internal/metrics"
	"github.com/hanpama/permgraph/internal/otel"
	"github.com/hanpama/permgraph/internal/resolver"
	"github.com/hanpama/permgraph/internal/schema"
	"github.com/hanpama/permgraph/internal/server"
)

const rootUsage = `permgraph: GraphQL execution with enum coercion and field permissions

USAGE:
  permgraph <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL endpoint over the demo shop schema
  sdl              Print the demo shop schema as SDL
  help             Show help for any command
`

const serveUsage = `serve FLAGS (environment defaults in brackets):
  -server.addr <addr>             HTTP listen address [PERMGRAPH_ADDR] (default: :8080)
  -server.pretty                  Pretty-print JSON responses [PERMGRAPH_PRETTY]
  -server.timeout <duration>      Per-request timeout, e.g. 10s [PERMGRAPH_TIMEOUT] (default: 10s)
  -server.cors <origin>           Allowed CORS origin. Repeatable
  -resolver.max-concurrency N     Concurrent async resolvers per batch, 0 for no limit
                                  [PERMGRAPH_MAX_CONCURRENCY] (default: 0)
  -log.level <level>              trace, debug, info, warn or error [PERMGRAPH_LOG_LEVEL] (default: info)
  -metrics                        Serve Prometheus metrics at /metrics [PERMGRAPH_METRICS]
  -otel.endpoint <addr>           OTLP collector endpoint [PERMGRAPH_OTEL_ENDPOINT]
  -otel.service <name>            OpenTelemetry service name [PERMGRAPH_OTEL_SERVICE] (default: permgraph)
`

const sdlUsage = `sdl FLAGS:
  -out <file>   Write SDL to file (default: stdout)
`

// config holds the serve settings. Environment variables fill it first and
// flags override them.
type config struct {
	Addr           string        `envconfig:"addr" default:":8080"`
	Pretty         bool          `envconfig:"pretty"`
	Timeout        time.Duration `envconfig:"timeout" default:"10s"`
	MaxConcurrency int           `envconfig:"max_concurrency"`
	LogLevel       string        `envconfig:"log_level" default:"info"`
	Metrics        bool          `envconfig:"metrics"`
	OtelEndpoint   string        `envconfig:"otel_endpoint"`
	OtelService    string        `envconfig:"otel_service" default:"permgraph"`
	CORS           []string      `ignored:"true"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "permgraph:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("permgraph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer))
	if err := global.Parse(args); err != nil {
		fmt.Fprint(stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd, cmdArgs := remaining[0], remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs, stderr)
	case "sdl":
		return cmdSDL(cmdArgs, stdout, stderr)
	case "help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	case "sdl":
		fmt.Fprint(stdout, sdlUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func loadConfig(args []string, stderr io.Writer) (config, error) {
	var cfg config
	if err := envconfig.Process("permgraph", &cfg); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}
	var cors stringListFlag
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&cfg.Addr, "server.addr", cfg.Addr, "HTTP listen address")
	fs.BoolVar(&cfg.Pretty, "server.pretty", cfg.Pretty, "Pretty-print JSON responses")
	fs.DurationVar(&cfg.Timeout, "server.timeout", cfg.Timeout, "Per-request timeout")
	fs.Var(&cors, "server.cors", "Allowed CORS origin")
	fs.IntVar(&cfg.MaxConcurrency, "resolver.max-concurrency", cfg.MaxConcurrency, "Concurrent async resolvers per batch")
	fs.StringVar(&cfg.LogLevel, "log.level", cfg.LogLevel, "Log level")
	fs.BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "Serve Prometheus metrics")
	fs.StringVar(&cfg.OtelEndpoint, "otel.endpoint", cfg.OtelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&cfg.OtelService, "otel.service", cfg.OtelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, serveUsage)
		return cfg, err
	}
	cfg.CORS = cors
	if cfg.MaxConcurrency < 0 {
		return cfg, fmt.Errorf("-resolver.max-concurrency must not be negative")
	}
	return cfg, nil
}

func newLogger(level string, w io.Writer) (logr.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return logr.Discard(), fmt.Errorf("log level: %w", err)
	}
	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return zerologr.New(&zl), nil
}

// app is everything serve wires together besides the listener.
type app struct {
	handler  http.Handler
	shutdown func(context.Context) error
}

func newApp(cfg config, logger logr.Logger) (*app, error) {
	bus := eventbus.New()
	eventbus.Use(bus)

	shutdown, err := otel.Setup(bus, cfg.OtelEndpoint, cfg.OtelService)
	if err != nil {
		return nil, fmt.Errorf("otel setup: %w", err)
	}

	b, err := demo.New(demo.NewStore(), resolver.WithMaxConcurrency(cfg.MaxConcurrency))
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}

	sopts := []server.Option{
		server.WithContext(demo.ViewerFromRequest),
		server.WithLogger(logger),
	}
	if cfg.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if cfg.Timeout > 0 {
		sopts = append(sopts, server.WithTimeout(cfg.Timeout))
	}
	if len(cfg.CORS) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.CORS...))
	}
	h, err := server.New(b.Runtime, b.Schema, sopts...)
	if err != nil {
		return nil, fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := metrics.New(reg)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		m.Attach(bus)
		mux.Handle("/metrics", metrics.Handler(reg))
	}

	return &app{handler: mux, shutdown: shutdown}, nil
}

func cmdServe(args []string, stderr io.Writer) error {
	cfg, err := loadConfig(args, stderr)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel, stderr)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.shutdown(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.Addr, Handler: a.handler, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("GraphQL server listening", "addr", cfg.Addr, "metrics", cfg.Metrics)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func cmdSDL(args []string, stdout, stderr io.Writer) error {
	outFile := ""
	fs := flag.NewFlagSet("sdl", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&outFile, "out", outFile, "Write SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, sdlUsage)
		return err
	}

	b, err := demo.New(demo.NewStore())
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	sdl := schema.Render(b.Schema)
	if outFile == "" {
		fmt.Fprint(stdout, sdl)
		return nil
	}
	return os.WriteFile(outFile, []byte(sdl), 0o644)
}
