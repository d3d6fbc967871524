package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/v2"

	"sdmeta/internal/config"
	"sdmeta/internal/database"
	"sdmeta/internal/parser"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run() error {
	fromConfig := flag.String("config", "", "Path to config file")
	file := flag.String("file", "", "Path to a single image file")
	dir := flag.String("dir", "", "Path to a directory of images")
	dbpath := flag.String("db", "", "Path to a sqlite or duckdb database (use .duckdb for DuckDB)")
	flag.Parse()

	if *fromConfig != "" {
		cfg, err := config.LoadConfig(*fromConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return loadFromConfig(cfg, *dbpath)
	}

	if *file == "" && *dir == "" {
		flag.Usage()
		return fmt.Errorf("missing file or directory")
	}
	if *file != "" && *dir != "" {
		flag.Usage()
		return fmt.Errorf("please provide either a file or directory, not both")
	}

	if *file != "" {
		return loadFileCommand(*file)
	}
	return loadDirectoryCommand(*dir, *dbpath, defaultFormats)
}

func loadFromConfig(cfg *koanf.Koanf, dbOverride string) error {
	paths := cfg.Strings(config.ScanPathsKey)
	if len(paths) == 0 {
		return fmt.Errorf("no directories specified in config under %s", config.ScanPathsKey)
	}
	formats := cfg.Strings(config.ScanFormatsKey)
	if len(formats) == 0 {
		formats = defaultFormats
	}
	dbPath := dbOverride
	if dbPath == "" {
		dbPath = cfg.String(config.DBPathKey)
	}
	for _, dir := range paths {
		if err := loadDirectoryCommand(dir, dbPath, formats); err != nil {
			return err
		}
	}
	return nil
}

func loadFileCommand(file string) error {
	rec, err := parser.ParseFile(file)
	if err != nil {
		return fmt.Errorf("error parsing file: %w", err)
	}

	fmt.Printf("Format: %s\n", rec.Format)
	fmt.Printf("Prompt: %s\n", rec.Prompt)
	fmt.Printf("Negative prompt: %s\n", rec.NegativePrompt)
	fmt.Printf("Parameters:\n%s\n", rec.Parameters)
	return nil
}

func loadDirectoryCommand(root, dbPath string, formats []string) error {
	paths, err := getImagePaths(root, formats)
	if err != nil {
		return fmt.Errorf("error getting image paths: %w", err)
	}

	if dbPath == "" {
		dbPath = filepath.Join(root, "prompts.sqlite")
	}

	store, err := database.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	return loadDirectory(paths, store)
}
