package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"sdmeta/internal/config"
	"sdmeta/internal/database"
)

func main() {
	if err := run_main(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run_main() error {
	fromConfig := flag.String("config", "", "Path to config file")
	secretsPath := flag.String("secrets", "", "Path to secrets file")
	dbpath := flag.String("db", "", "Path to a sqlite or duckdb database")
	term := flag.String("term", "", "Search term for prompts")
	limit := flag.Int("limit", 10, "Maximum number of search results")
	summarize := flag.Bool("summarize", false, "Summarize matched prompts with the LLM")
	flag.Parse()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	dbPath := *dbpath
	model := "deepseek-chat"
	searchTerm := *term
	searchLimit := *limit
	if *fromConfig != "" {
		k, err := config.LoadConfig(*fromConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if dbPath == "" {
			dbPath = k.String(config.DBPathKey)
		}
		if searchTerm == "" {
			searchTerm = k.String(config.SearchTermKey)
		}
		if !flagPassed("limit") {
			searchLimit = k.Int(config.SearchLimitKey)
		}
		model = k.String(config.LLMModelKey)
	}
	if dbPath == "" {
		flag.Usage()
		return fmt.Errorf("missing database")
	}

	store, err := database.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := FormatCounts(ctx, store.DB)
	if err != nil {
		return fmt.Errorf("format counts: %w", err)
	}
	for _, c := range counts {
		logger.Info("format count", "format", c.Format, "count", c.Count)
	}

	if searchTerm == "" {
		return nil
	}

	results, err := SearchPrompts(ctx, store.DB, searchTerm, searchLimit)
	if err != nil {
		return fmt.Errorf("search prompts: %w", err)
	}
	logger.Info("search results", "term", searchTerm, "count", len(results))
	for _, r := range results {
		logger.Info("match", "file", r.FilePath, "prompt", r.Prompt)
	}

	if !*summarize || len(results) == 0 {
		return nil
	}

	secrets, err := config.LoadSecrets(*secretsPath)
	if err != nil {
		return fmt.Errorf("load secrets: %w", err)
	}
	apiKey := secrets.LLMAPIKey()
	if apiKey == "" {
		return fmt.Errorf("missing %s in secrets", config.LLMAPIKeyKey)
	}

	summary, err := SummarizePrompts(ctx, apiKey, model, results)
	if err != nil {
		return fmt.Errorf("summarize prompts: %w", err)
	}
	fmt.Println(summary)
	return nil
}

func flagPassed(name string) bool {
	passed := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			passed = true
		}
	})
	return passed
}
