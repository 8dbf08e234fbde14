package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"ragdemo/internal/chunker"
	"ragdemo/internal/config"
	"ragdemo/internal/docs"
	"ragdemo/internal/generation"
	"ragdemo/internal/index"
	"ragdemo/internal/service"
	"ragdemo/internal/summarizer"
	"ragdemo/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragdemo/config.yaml if not provided)")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: rag [--config=config.yaml] file1.txt [file2.md ...]")
		os.Exit(1)
	}

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

	documents, err := docs.LoadPaths(inputs)
	if err != nil {
		log.Fatalf("load documents failed: %v", err)
	}
	summary, err := svc.Summary(documents)
	if err != nil {
		log.Fatalf("summarize failed: %v", err)
	}

	m := tui.New(svc, documents, summary, cfg.Search.TopK)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
