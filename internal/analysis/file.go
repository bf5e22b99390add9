// Package analysis orchestrates detection runs over files and directories:
// decode, resample to the analysis rate, run the pipeline and write outputs.
package analysis

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fieldcut/fieldcut/internal/audiofile"
	"github.com/fieldcut/fieldcut/internal/conf"
	"github.com/fieldcut/fieldcut/internal/errors"
	"github.com/fieldcut/fieldcut/internal/logging"
	"github.com/fieldcut/fieldcut/internal/pipeline"
	"github.com/fieldcut/fieldcut/internal/project"
	"github.com/fieldcut/fieldcut/internal/segment"
)

var logger *slog.Logger

func init() {
	logger = logging.ForService("analysis")
}

// FileAnalysis analyzes one audio file, writes the timestamps CSV, Audacity
// label track, REAPER regions and project document under the configured
// output directory, and returns the final segment batch. The context only
// gates work that has not started; an analysis in flight runs to completion.
func FileAnalysis(ctx context.Context, settings *conf.Settings) ([]segment.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New(err).
			Component("analysis").
			Category(errors.CategoryCancellation).
			Build()
	}

	path := settings.Input.Path
	if err := audiofile.ValidateAudioFile(path); err != nil {
		return nil, err
	}

	start := time.Now()
	segments, err := detectFile(path, settings)
	if err != nil {
		return nil, err
	}
	logger.Info("analysis finished",
		"path", filepath.Base(path),
		"segments", len(segments),
		"elapsed", time.Since(start))

	if err := writeResults(path, segments, settings); err != nil {
		return nil, err
	}
	return segments, nil
}

// detectFile decodes, resamples to the analysis rate and runs the detection
// pipeline over the whole buffer.
func detectFile(path string, settings *conf.Settings) ([]segment.Segment, error) {
	samples, sourceRate, err := audiofile.ReadMono(path)
	if err != nil {
		return nil, err
	}

	analysisRate := settings.Preprocess.AnalysisSR
	if analysisRate <= 0 {
		analysisRate = sourceRate
	}
	audio, err := audiofile.ResampleForAnalysis(samples, sourceRate, analysisRate)
	if err != nil {
		return nil, err
	}

	duration := float64(len(samples)) / float64(sourceRate)
	return pipeline.Run(audio, analysisRate, duration, &settings.Detection), nil
}

// writeResults emits every output artifact for one analyzed file. When a
// project document from an earlier run exists it is reconciled with the new
// batch instead of being overwritten, so manual edits survive re-detection.
func writeResults(path string, segments []segment.Segment, settings *conf.Settings) error {
	dir, err := outputBase(settings.Output.Dir, path)
	if err != nil {
		return err
	}

	projectPath := filepath.Join(dir, "project.json")
	doc, err := resolveProject(projectPath, path, segments, settings)
	if err != nil {
		return err
	}

	if err := writeTimestampsCSV(doc.Segments, filepath.Join(dir, "timestamps.csv")); err != nil {
		return err
	}
	if err := writeAudacityLabels(doc.Segments, filepath.Join(dir, "audacity_labels.txt")); err != nil {
		return err
	}
	if err := writeReaperRegions(doc.Segments, filepath.Join(dir, "reaper_regions.csv")); err != nil {
		return err
	}

	return doc.Save(projectPath)
}

// resolveProject loads the existing project document, if any, and reconciles
// the new batch against it. A missing document starts a fresh project; a
// corrupt one is an error rather than silently discarded edits.
func resolveProject(projectPath, audioPath string, segments []segment.Segment, settings *conf.Settings) (*project.Project, error) {
	existing, err := project.Load(projectPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return project.New(audioPath, settings.Detection, segments), nil
		}
		return nil, err
	}

	doc := project.Reconcile(existing, segments, settings.Resolve.ToleranceMs, settings.Resolve.DefaultBehavior)
	doc.Settings = settings.Detection
	logger.Info("reconciled project",
		"path", projectPath,
		"existing", len(existing.Segments),
		"detected", len(segments),
		"resolved", len(doc.Segments),
		"policy", settings.Resolve.DefaultBehavior)
	return doc, nil
}
