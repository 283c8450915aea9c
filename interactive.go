package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
)

// runInteractiveFinder lists the directories below the working directory and
// lets the user pick the one to scan. It returns "" when the user aborts.
func runInteractiveFinder() (string, error) {
	candidates := []string{"."}
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Continue walking
		}
		if path == "." || !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return fs.SkipDir
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("error scanning for directories: %w", err)
	}

	idx, err := fuzzyfinder.Find(
		candidates,
		func(i int) string {
			return candidates[i]
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return "Select the directory to scan. Press Enter to confirm."
			}
			return previewDirectory(candidates[i])
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return "", nil
		}
		return "", fmt.Errorf("fuzzy finder error: %w", err)
	}
	return candidates[idx], nil
}

// previewDirectory lists the YAML files directly inside dir.
func previewDirectory(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Sprintf("Path: %s\nError reading directory: %v", dir, err)
	}
	preview := fmt.Sprintf("Path: %s\n", dir)
	n := 0
	for _, e := range entries {
		if !e.IsDir() && isYAMLFile(e.Name()) {
			preview += "  " + e.Name() + "\n"
			n++
		}
	}
	return preview + fmt.Sprintf("YAML files here: %d", n)
}
