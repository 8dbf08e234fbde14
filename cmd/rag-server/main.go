package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mcpserverlib "github.com/mark3labs/mcp-go/server"

	"ragdemo/internal/chunker"
	"ragdemo/internal/config"
	"ragdemo/internal/docs"
	"ragdemo/internal/generation"
	"ragdemo/internal/index"
	"ragdemo/internal/mcpserver"
	"ragdemo/internal/server"
	"ragdemo/internal/service"
	"ragdemo/internal/summarizer"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var mcpMode bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragdemo/config.yaml if not provided)")
	flag.BoolVar(&mcpMode, "mcp", false, "Serve the search tool over MCP stdio instead of HTTP")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg, mcpMode)

	ch, err := chunker.NewParagraphChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	if err != nil {
		log.Fatalf("invalid chunker config: %v", err)
	}
	gen := generation.NewClient(generation.Config{
		BaseURL:     cfg.Generator.BaseURL,
		APIKeyEnv:   cfg.Generator.APIKeyEnv,
		Model:       cfg.Generator.Model,
		Timeout:     time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
		MaxTokens:   cfg.Generator.MaxTokens,
		Temperature: cfg.Generator.Temperature,
	})
	svc := service.New(ch, index.NewSearcher(), gen, summarizer.NewFrequencySummarizer(), cfg.Search.TopK, cfg.Summarizer.MaxSentences)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var registry *docs.Registry
	if cfg.Server.DocsDir != "" {
		registry = docs.NewRegistry(cfg.Server.DocsDir, logger)
		if err := registry.Load(); err != nil {
			log.Fatalf("load documents failed: %v", err)
		}
		go func() {
			if err := registry.Watch(ctx); err != nil {
				logger.Error("document watcher stopped", "error", err)
			}
		}()
	}

	if mcpMode {
		if registry == nil {
			log.Fatalf("mcp mode requires server.docs_dir in the config")
		}
		srv := mcpserver.New(svc, registry, logger)
		if err := mcpserverlib.ServeStdio(srv); err != nil {
			log.Fatalf("mcp server failed: %v", err)
		}
		return
	}

	api := server.NewAPI(svc, sourceOrNil(registry), logger, cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	srv := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}, api, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("http server failed: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
}

// newLogger writes JSON logs to stderr, or to the configured file in MCP
// mode where stdio carries the protocol.
func newLogger(cfg *config.AppConfig, mcpMode bool) *slog.Logger {
	if mcpMode && cfg.Server.LogFile != "" {
		f, err := os.OpenFile(cfg.Server.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			log.Fatalf("failed to open log file: %v", err)
		}
		return slog.New(slog.NewJSONHandler(f, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}

// sourceOrNil avoids handing the API a typed-nil DocumentSource.
func sourceOrNil(r *docs.Registry) server.DocumentSource {
	if r == nil {
		return nil
	}
	return r
}
