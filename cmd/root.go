package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/timvw/judge-patrol/internal/config"
	"github.com/timvw/judge-patrol/internal/judge"
	"github.com/timvw/judge-patrol/internal/model"
	telem "github.com/timvw/judge-patrol/internal/otel"
	"github.com/timvw/judge-patrol/internal/review"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	// Global flags.
	flagConfig    string
	flagProvider  string
	flagModel     string
	flagBaseURL   string
	flagAPIKey    string
	flagMaxTokens int64
	flagTimeout   string
	flagVerbose   bool

	flagRouteModels = map[string]*string{}
)

// errVerdictFailed signals a negative verdict. It maps to exit code 1,
// every other error to exit code 2.
var errVerdictFailed = errors.New("verdict: fail")

var rootCmd = &cobra.Command{
	Use:   "judge-patrol",
	Short: "LLM-as-judge review of text and screenshots against acceptance criteria",
	Long: `judge-patrol asks an LLM whether an artifact meets an acceptance criterion.

An artifact ending in .png, .jpg or .jpeg is treated as a screenshot path
and reviewed by the visual judge; anything else is reviewed as literal
text. Each modality has a fast and a smart route, configured in
.judge-patrol.yaml or through JUDGE_PATROL_* environment variables.

All judgment is made by the model. Go code only classifies, dispatches
and normalizes the reply to {"pass": bool, "feedback": string}.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with 0 (pass), 1 (negative
// verdict) or 2 (error).
func Execute() {
	err := rootCmd.Execute()
	switch {
	case err == nil:
	case errors.Is(err, errVerdictFailed):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.Version = Version

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default: .judge-patrol.yaml, then ~/.config/judge-patrol/config.yaml)")
	pf.StringVar(&flagProvider, "provider", "", "LLM provider for all routes: anthropic, openai, gemini")
	pf.StringVar(&flagModel, "model", "", "model for every route without its own model")
	pf.StringVar(&flagBaseURL, "base-url", "", "override LLM API base URL")
	pf.StringVar(&flagAPIKey, "api-key", "", "override LLM API key")
	pf.Int64Var(&flagMaxTokens, "max-tokens", 0, "max completion tokens (default: 1024)")
	pf.StringVar(&flagTimeout, "timeout", "", `per-run timeout, e.g. "90s" ("off" disables)`)
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging to stderr")

	for _, name := range config.RouteNames {
		v := new(string)
		flagRouteModels[name] = v
		flag := strings.ReplaceAll(name, "_", "-") + "-model"
		pf.StringVar(v, flag, "", fmt.Sprintf("model for the %s route", name))
	}
}

// loadConfig resolves defaults, file, env and flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = flagProvider
	}
	if flags.Changed("model") {
		cfg.Model = flagModel
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = flagBaseURL
	}
	if flags.Changed("api-key") {
		cfg.APIKey = flagAPIKey
	}
	if flagMaxTokens > 0 {
		cfg.MaxTokens = flagMaxTokens
	}
	if flags.Changed("timeout") {
		cfg.Timeout = flagTimeout
	}
	for name, v := range flagRouteModels {
		cfg.SetRouteModel(name, *v)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the stderr logger. Info by default, debug with --verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.DisableStacktrace = true
	zcfg.Sampling = nil
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zcfg.Build()
}

// app bundles everything a reviewing command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	engine *review.Engine
}

// setup loads config, starts telemetry and builds the engine. The
// returned context carries the configured timeout; close releases it.
func setup(cmd *cobra.Command) (context.Context, *app, func(), error) {
	logger, err := newLogger(flagVerbose)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("logger: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.ConfigFile != "" {
		logger.Debug("config loaded", zap.String("path", cfg.ConfigFile))
	}

	routes, err := buildRoutes(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Initialize OTEL (no-op if no endpoint configured)
	tel, err := telem.Init(ctx, telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
		Version:  Version,
	})
	if err != nil {
		logger.Warn("otel init failed", zap.Error(err))
		tel = nil
	}

	var metrics *telem.Metrics
	if tel != nil {
		metrics = tel.Metrics
	}

	rt := &app{
		cfg:    cfg,
		logger: logger,
		engine: review.New(routes, review.Options{Logger: logger, Metrics: metrics}),
	}

	var cancel context.CancelFunc = func() {}
	if cfg.TimeoutDuration > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.TimeoutDuration)
	}

	closeFn := func() {
		cancel()
		if tel.Enabled() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			if err := tel.Shutdown(sctx); err != nil {
				logger.Warn("otel shutdown", zap.Error(err))
			}
		}
		_ = logger.Sync()
	}
	return ctx, rt, closeFn, nil
}

var (
	modalities = []model.Modality{model.ModalityTextual, model.ModalityVisual}
	tiers      = []model.Intelligence{model.IntelligenceFast, model.IntelligenceSmart}
)

// buildRoutes creates one backend per distinct route configuration.
// Unwired routes stay nil and surface as ErrBackendUnavailable.
func buildRoutes(cfg *config.Config, logger *zap.Logger) (review.Routes, error) {
	var routes review.Routes
	backends := map[config.RouteConfig]judge.Backend{}

	for _, m := range modalities {
		for _, tier := range tiers {
			name := config.RouteName(m, tier)
			rc := cfg.Route(m, tier)
			if !rc.Wired() {
				logger.Debug("route not wired", zap.String("route", name))
				continue
			}

			b, ok := backends[rc]
			if !ok {
				var err error
				b, err = judge.New(settingsFor(rc, cfg.MaxTokens))
				if err != nil {
					return routes, fmt.Errorf("route %s: %w", name, err)
				}
				backends[rc] = b
			}

			switch name {
			case "text_fast":
				routes.TextFast = b
			case "text_smart":
				routes.TextSmart = b
			case "visual_fast":
				routes.VisualFast = b
			case "visual_smart":
				routes.VisualSmart = b
			}
		}
	}
	return routes, nil
}

func settingsFor(rc config.RouteConfig, maxTokens int64) judge.Settings {
	extraHeaders := map[string]string{}
	// Azure AI Foundry needs "api-key" besides the SDK's own auth header.
	if rc.APIKey != "" && (os.Getenv("AZURE_RESOURCE_NAME") != "" || config.IsAzureEndpoint(rc.BaseURL)) {
		extraHeaders["api-key"] = rc.APIKey
	}
	return judge.Settings{
		Provider:     rc.Provider,
		Model:        rc.Model,
		BaseURL:      rc.BaseURL,
		APIKey:       rc.APIKey,
		MaxTokens:    maxTokens,
		ExtraHeaders: extraHeaders,
	}
}
