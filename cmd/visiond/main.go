package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"visiond/internal/config"
	"visiond/internal/httpapi"
	"visiond/internal/manifest"
	"visiond/internal/provision"
	"visiond/internal/session"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated list, trimming blanks.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		p := strings.TrimSpace(part)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseZerologLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func main() {
	// Flags with environment variable defaults
	addr := flag.String("addr", envOr("VISIOND_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	assetsDir := flag.String("assets-dir", envOr("VISIOND_ASSETS_DIR", ""), "Directory holding the model package (default: user config dir)")
	configPath := flag.String("config", envOr("VISIOND_CONFIG", ""), "Optional config file (.yaml/.json/.toml)")
	systemPrompt := flag.String("system-prompt", envOr("VISIOND_SYSTEM_PROMPT", ""), "System prompt prepended to every run")
	visionBin := flag.String("vision-bin", envOr("VISIOND_VISION_BIN", ""), "Vision runtime binary on PATH")
	maxTokens := flag.Int("max-tokens", 0, "Default max new tokens per run (0=builtin default)")
	threads := flag.Int("threads", 0, "Worker thread count hint for the runtime")
	ctxSize := flag.Int("ctx-size", 0, "Context window size hint for the runtime")
	logLevel := flag.String("log-level", envOr("VISIOND_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	corsOrigins := flag.String("cors-origins", envOr("VISIOND_CORS_ORIGINS", ""), "Comma-separated allowed CORS origins (enables CORS)")
	provisionOnStart := flag.Bool("provision-on-start", false, "Download missing model files before serving")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("svc", "visiond").Logger()

	var cfg config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("load config")
		}
		cfg = loaded
	}
	// Flags and env override file values.
	if *addr != ":8080" || cfg.Addr == "" {
		cfg.Addr = *addr
	}
	if *assetsDir != "" {
		cfg.AssetsDir = *assetsDir
	}
	if *systemPrompt != "" {
		cfg.SystemPrompt = *systemPrompt
	}
	if *visionBin != "" {
		cfg.VisionBin = *visionBin
	}
	if *maxTokens > 0 {
		cfg.MaxTokens = *maxTokens
	}
	if *threads > 0 {
		cfg.Threads = *threads
	}
	if *ctxSize > 0 {
		cfg.CtxSize = *ctxSize
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if origins := splitCSV(*corsOrigins); len(origins) > 0 {
		cfg.CORSEnabled = true
		cfg.CORSAllowedOrigins = origins
	}
	logger = logger.Level(parseZerologLevel(cfg.LogLevel))

	root := cfg.AssetsDir
	if root == "" {
		d, err := manifest.DefaultRoot()
		if err != nil {
			logger.Fatal().Err(err).Msg("resolve default assets dir")
		}
		root = d
	}
	man, err := manifest.Load(root)
	if err != nil {
		logger.Fatal().Err(err).Str("root", root).Msg("load asset manifest")
	}

	prov := provision.New(provision.Config{Logger: logger})

	// "builtin:llama" selects the in-process runtime (text-only, requires the
	// llama build tag); anything else is treated as a vision CLI binary.
	var adapter session.InferenceAdapter
	if cfg.VisionBin == "builtin:llama" {
		adapter = session.NewLlamaAdapter(cfg.CtxSize, cfg.Threads)
	} else {
		adapter = session.NewVisionCLIAdapter(session.VisionCLIConfig{
			Bin:       cfg.VisionBin,
			ExtraArgs: append([]string(nil), cfg.VisionArgs...),
		})
	}

	ctl := session.NewController(session.Config{
		Manifest:    man,
		Provisioner: prov,
		Adapter:     adapter,
		Params: session.InferParams{
			MaxTokens:   cfg.MaxTokens,
			Temperature: float32(cfg.Temperature),
			Threads:     cfg.Threads,
			CtxSize:     cfg.CtxSize,
		},
		SystemPrompt: cfg.SystemPrompt,
		Logger:       logger,
	})

	// Base context canceled on shutdown so in-flight runs stop too.
	baseCtx, baseCancel := context.WithCancel(context.Background())
	defer baseCancel()

	httpapi.SetLogger(logger)
	httpapi.SetBaseContext(baseCtx)
	if cfg.MaxBodyBytes > 0 {
		httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	}
	if cfg.GenerateTimeoutSeconds > 0 {
		httpapi.SetGenerateTimeoutSeconds(cfg.GenerateTimeoutSeconds)
	}
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, cfg.CORSAllowedMethods, cfg.CORSAllowedHeaders)

	if *provisionOnStart && !ctl.Ready() {
		logger.Info().Str("root", man.LocalRoot()).Msg("provisioning model package")
		if err := prov.Ensure(baseCtx, man, nil); err != nil {
			logger.Fatal().Err(err).Msg("provision model package")
		}
	}

	mux := httpapi.NewMux(ctl)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("assets", man.LocalRoot()).Bool("provisioned", ctl.Ready()).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	baseCancel()
	ctl.Cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}
