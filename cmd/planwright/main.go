package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/planwright/planwright/internal/analyzer"
	"github.com/planwright/planwright/internal/browser"
	"github.com/planwright/planwright/internal/config"
	"github.com/planwright/planwright/internal/httpx"
	"github.com/planwright/planwright/internal/llm"
	"github.com/planwright/planwright/internal/logging"
	"github.com/planwright/planwright/internal/monitoring"
	"github.com/planwright/planwright/internal/normalize"
	"github.com/planwright/planwright/internal/pipeline"
	"github.com/planwright/planwright/internal/sandbox"
	"github.com/planwright/planwright/internal/scorer"
	"github.com/planwright/planwright/internal/server"
	"github.com/planwright/planwright/internal/synth"
)

func main() {
	port := flag.String("port", "", "server port (overrides PORT)")
	noBrowser := flag.Bool("no-browser", false, "disable the validation sandbox")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *port != "" {
		cfg.Server.Port = *port
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	srv, err := build(cfg, log, *noBrowser)
	if err != nil {
		log.Fatal("failed to build service", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		log.Info("shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("shutdown error", zap.Error(err))
		}
	case err := <-errChan:
		log.Fatal("server error", zap.Error(err))
	}
}

// build wires every pipeline component from configuration.
func build(cfg *config.Config, log *logging.Logger, noBrowser bool) (*server.Server, error) {
	fetcher := httpx.New(httpx.DefaultOptions())
	// Present the same locale to example-page fetches as the sandbox browser.
	fetcher.SetHeader("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")

	contentAnalyzer := analyzer.NewHTTPContentAnalyzer(fetcher, log)
	siteAnalyzer := analyzer.New(contentAnalyzer, log)

	var primary llm.Provider
	if cfg.Providers.PrimaryURL != "" {
		primary = llm.NewHTTPProvider(llm.HTTPProviderConfig{
			Name:    "primary",
			BaseURL: cfg.Providers.PrimaryURL,
			APIKey:  cfg.Providers.PrimaryKey,
			Model:   cfg.Providers.PrimaryModel,
			Timeout: cfg.Providers.Timeout,
		})
	}
	var secondary llm.Provider
	if cfg.Providers.SecondaryURL != "" {
		secondary = llm.NewLocalProvider(llm.LocalProviderConfig{
			Name:    "secondary",
			BaseURL: cfg.Providers.SecondaryURL,
			Model:   cfg.Providers.SecondaryModel,
			Timeout: cfg.Providers.Timeout,
		})
	}

	score := scorer.New(scorer.Weights{
		Specificity:  cfg.Scorer.Specificity,
		Clarity:      cfg.Scorer.Clarity,
		Consistency:  cfg.Scorer.Consistency,
		Completeness: cfg.Scorer.Completeness,
	})

	normalizer := normalize.New()
	if cfg.Normalize.LexiconPath != "" {
		lexicons, err := normalize.LoadLexicons(cfg.Normalize.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicons: %w", err)
		}
		normalizer = normalize.NewWithLexicons(lexicons)
	}

	var validator *sandbox.Validator
	if !noBrowser {
		backend := browser.NewChromedp()
		backend.ExecPath = cfg.Sandbox.ChromePath

		sandboxOpts := sandbox.DefaultOptions()
		sandboxOpts.Timeout = cfg.Sandbox.Timeout
		sandboxOpts.AllowedDomains = cfg.Sandbox.AllowedDomains
		sandboxOpts.CaptureScreenshot = cfg.Sandbox.CaptureScreenshot
		sandboxOpts.Session.MaxMemoryMB = cfg.Sandbox.MaxMemoryMB
		validator = sandbox.New(backend, normalizer, sandboxOpts, log)
	}

	metrics := monitoring.New()

	pl := pipeline.New(fetcher, siteAnalyzer, primary, secondary, score,
		validator, metrics, synth.Options{
			Temperature: cfg.Providers.Temperature,
			MaxTokens:   cfg.Providers.MaxTokens,
		}, log)

	return server.New(server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, pl, metrics, log), nil
}
