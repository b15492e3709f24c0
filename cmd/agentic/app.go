package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/martinemde/agentic/actions"
	"github.com/martinemde/agentic/agentloop"
	"github.com/martinemde/agentic/config"
	"github.com/martinemde/agentic/memory"
	"github.com/martinemde/agentic/unifiedllm"
)

// loadConfig finds and loads the config file, applies flag overrides and
// validates the result.
func loadConfig(g *globalFlags) (*config.Config, error) {
	path, err := config.FindConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	cfg := config.Default()
	if path != "" {
		if cfg, err = config.Load(path); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.provider != "" {
		cfg.Provider = g.provider
	}
	if g.model != "" {
		cfg.Model = g.model
	}
	if g.verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	return config.NewLogger(os.Stderr, level, cfg.LogFormat)
}

// app holds the collaborators shared by the run and replay commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	client    *unifiedllm.Client
	completer *unifiedllm.TextCompleter
	retriever *memory.SQLiteRetriever
	store     *memory.Store
	bundle    []agentloop.Action
	closers   []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	adapter, err := unifiedllm.NewGollmAdapter(cfg.Provider, cfg.ResolvedAPIKey(),
		unifiedllm.WithModel(cfg.Model),
		unifiedllm.WithMaxTokens(cfg.MaxTokens),
		unifiedllm.WithTemperature(cfg.Temperature),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", cfg.Provider, err)
	}
	a.client = unifiedllm.NewClient(
		unifiedllm.WithProvider(cfg.Provider, adapter),
		unifiedllm.WithDefaultProvider(cfg.Provider),
		unifiedllm.WithClientLogger(logger),
		unifiedllm.WithMiddleware(unifiedllm.RateLimitMiddleware(
			unifiedllm.NewRequestLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst))),
	)
	a.closers = append(a.closers, a.client.Close)
	a.completer = unifiedllm.NewTextCompleter(a.client, completionOptions(cfg), logger)

	a.retriever, err = memory.NewSQLiteRetriever(cfg.Memory.DBPath, a.completer,
		memory.WithChunkSize(cfg.Memory.ChunkSize),
		memory.WithTopK(cfg.Memory.TopK),
		memory.WithSummaryCacheSize(cfg.Memory.SummaryCacheSize),
		memory.WithRetrieverLogger(logger),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open memory index: %w", err)
	}
	a.closers = append(a.closers, a.retriever.Close)

	docs, err := initialDocuments(cfg.Memory.Documents)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store, err = memory.NewStore(ctx, a.retriever, docs, memory.WithLogger(logger))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load memory documents: %w", err)
	}

	bundle, closers, err := buildActions(cfg.Actions, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.bundle = bundle
	a.closers = append(a.closers, closers...)
	return a, nil
}

func completionOptions(cfg *config.Config) unifiedllm.CompletionOptions {
	opts := unifiedllm.DefaultCompletionOptions(cfg.Model)
	opts.Provider = cfg.Provider
	opts.Temperature = cfg.Temperature
	opts.MaxTokens = cfg.MaxTokens
	opts.StopSequences = cfg.Stop
	opts.Retry.MaxRetries = cfg.Retry.MaxRetries
	opts.Retry.BaseDelay = cfg.Retry.BaseDelay
	opts.Retry.MaxDelay = cfg.Retry.MaxDelay
	opts.Retry.Multiplier = cfg.Retry.Multiplier
	return opts
}

func initialDocuments(cfgs []config.DocumentConfig) ([]memory.Document, error) {
	docs := make([]memory.Document, 0, len(cfgs))
	for _, d := range cfgs {
		text, err := d.Content()
		if err != nil {
			return nil, err
		}
		docs = append(docs, memory.Document{Name: d.Name, Text: text})
	}
	return docs, nil
}

// buildActions assembles the enabled action bundles. The returned closers
// release bundle resources such as a launched browser.
func buildActions(cfg config.ActionsConfig, logger *slog.Logger) ([]agentloop.Action, []func() error, error) {
	var bundle []agentloop.Action
	var closers []func() error

	if cfg.Filesystem.Enabled {
		fs, err := actions.NewFilesystem(cfg.Filesystem.Root)
		if err != nil {
			return nil, nil, err
		}
		bundle = append(bundle, fs.Actions()...)
		logger.Debug("filesystem actions enabled", "root", fs.Root())
	}
	if cfg.HTTP.Enabled {
		bundle = append(bundle, actions.NewWeb(cfg.HTTP.Timeout).Actions()...)
	}
	if cfg.Browser.Enabled {
		b := actions.NewBrowser(cfg.Browser.Headless, logger)
		bundle = append(bundle, b.Actions()...)
		closers = append(closers, b.Close)
	}
	return bundle, closers, nil
}

// agentOptions translates the config into agent options.
func (a *app) agentOptions() []agentloop.Option {
	acfg := agentloop.DefaultConfig()
	acfg.Model = a.cfg.Model
	acfg.MaxSteps = a.cfg.MaxSteps
	acfg.MaxContextChars = a.cfg.MaxContextChars
	acfg.EnableLoopDetection = a.cfg.LoopDetection.Enabled
	acfg.LoopDetectionWindow = a.cfg.LoopDetection.Window
	acfg.ClarifyTimeout = a.cfg.Clarify.Timeout
	acfg.Verbose = a.cfg.Verbose

	opts := []agentloop.Option{
		agentloop.WithConfig(acfg),
		agentloop.WithLogger(a.logger),
		agentloop.WithActions(a.bundle...),
		agentloop.WithTokenCounter(unifiedllm.NewTokenCounter(a.cfg.Model)),
	}
	if a.cfg.Clarify.Enabled {
		opts = append(opts, agentloop.WithHumanInput(agentloop.NewReaderInput(os.Stdin, os.Stderr)))
	}
	return opts
}

// Close releases everything in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
