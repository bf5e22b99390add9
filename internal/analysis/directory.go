package analysis

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/fieldcut/fieldcut/internal/audiofile"
	"github.com/fieldcut/fieldcut/internal/conf"
	"github.com/fieldcut/fieldcut/internal/errors"
)

// DirectoryResult summarizes a directory run.
type DirectoryResult struct {
	Analyzed int
	Skipped  int
	Failed   int
}

// DirectoryAnalysis analyzes every supported audio file under the input
// directory using a bounded worker pool. Cancellation is non-preemptive:
// files not yet claimed by a worker are skipped, but a file whose analysis
// has started runs to completion. Per-file failures are logged and counted,
// never fatal for the rest of the batch.
func DirectoryAnalysis(ctx context.Context, settings *conf.Settings) (DirectoryResult, error) {
	files, err := collectAudioFiles(settings.Input.Path, settings.Input.Recursive)
	if err != nil {
		return DirectoryResult{}, err
	}
	if len(files) == 0 {
		logger.Warn("no audio files found", "path", settings.Input.Path)
		return DirectoryResult{}, nil
	}

	numWorkers := settings.Output.MaxWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = clampInt(numWorkers, 1, 8)
	logger.Info("starting directory analysis",
		"path", settings.Input.Path,
		"files", len(files),
		"workers", numWorkers)

	fileChan := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	result := DirectoryResult{}

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range fileChan {
				fileSettings := *settings
				fileSettings.Input.Path = path
				_, err := FileAnalysis(context.Background(), &fileSettings)

				mu.Lock()
				if err != nil {
					result.Failed++
				} else {
					result.Analyzed++
				}
				mu.Unlock()
				if err != nil {
					logger.Error("file analysis failed", "path", path, "error", err)
				}
			}
		}()
	}

	fed := 0
feed:
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			// Queued work is dropped, claimed work finishes.
			break feed
		case fileChan <- path:
			fed++
		}
	}
	close(fileChan)
	wg.Wait()

	mu.Lock()
	result.Skipped = len(files) - fed
	final := result
	mu.Unlock()

	logger.Info("directory analysis finished",
		"analyzed", final.Analyzed,
		"failed", final.Failed,
		"skipped", final.Skipped)
	return final, nil
}

// collectAudioFiles lists supported audio files under root in deterministic
// order. Non-recursive mode only scans the top level.
func collectAudioFiles(root string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if audiofile.SupportedExtension(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileIO).
			FileContext(root, 0).
			Build()
	}
	sort.Strings(files)
	return files, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
