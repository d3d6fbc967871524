package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"sdmeta/internal/database"
	"sdmeta/internal/parser"
)

const (
	batchSize = 25
)

var defaultFormats = []string{"png", "jpg", "jpeg", "webp"}

func getImagePaths(root string, formats []string) ([]string, error) {
	exts := make(map[string]struct{}, len(formats))
	for _, f := range formats {
		exts["."+strings.ToLower(strings.TrimPrefix(f, "."))] = struct{}{}
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := exts[strings.ToLower(filepath.Ext(d.Name()))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("no image files found in %s", root)
	}
	return paths, nil
}

type fileResult struct {
	database.Record
	err error
}

func loadDirectory(paths []string, store *database.Store) error {
	existingPaths, err := store.ExistingPaths()
	if err != nil {
		return fmt.Errorf("error retrieving existing files: %w", err)
	}

	// Filter out files that are already in the database
	var filesToProcess []string
	for _, path := range paths {
		if _, exists := existingPaths[path]; !exists {
			filesToProcess = append(filesToProcess, path)
		}
	}

	skipped := len(paths) - len(filesToProcess)
	fmt.Printf("Found %d files, skipping %d already loaded files, processing %d new files\n",
		len(paths), skipped, len(filesToProcess))

	if len(filesToProcess) == 0 {
		fmt.Println("All files are already loaded in the database.")
		return nil
	}

	numWorkers := runtime.NumCPU()
	filesCh := make(chan string, numWorkers)
	resultsCh := make(chan fileResult)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	worker := func() {
		defer wg.Done()
		for path := range filesCh {
			rec, err := parser.ParseFile(path)
			if err != nil {
				rec.FilePath = path
			}
			resultsCh <- fileResult{Record: rec, err: err}
		}
	}
	for i := 0; i < numWorkers; i++ {
		go worker()
	}

	go func() {
		for _, p := range filesToProcess {
			filesCh <- p
		}
		close(filesCh)
	}()

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	processed := 0
	batch := make([]database.Record, 0, batchSize)
	for res := range resultsCh {
		processed++
		if res.err != nil {
			fmt.Fprintf(os.Stderr, "\n\nerror processing %s: %v\n\n", res.FilePath, res.err)
		} else {
			batch = append(batch, res.Record)
		}

		if len(batch) >= batchSize {
			if err := store.InsertBatch(batch); err != nil {
				fmt.Fprintf(os.Stderr, "\n\nfailed to insert batch into db: %v\n\n", err)
			}
			batch = batch[:0]
		}
		fmt.Printf("\rProcessed %d/%d new files", processed, len(filesToProcess))
	}

	if len(batch) > 0 {
		if err := store.InsertBatch(batch); err != nil {
			fmt.Fprintf(os.Stderr, "\n\nfailed to insert batch into db: %v\n\n", err)
		}
	}

	fmt.Println("\nDone!")
	return nil
}
