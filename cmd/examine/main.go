package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"sdmeta/internal/parser"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run() error {
	file := flag.String("file", "", "Path to an image file")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		return fmt.Errorf("missing file")
	}
	return examineFile(*file)
}

func examineFile(path string) error {
	m, err := parser.ParseImage(path)
	if err != nil {
		return fmt.Errorf("error parsing file: %w", err)
	}

	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("error rendering result: %w", err)
	}
	fmt.Printf("File: %s\n%s\n", path, out)
	return nil
}
