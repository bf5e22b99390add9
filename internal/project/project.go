// Package project persists a detection run as an editable JSON document:
// the source audio path, the settings snapshot it was produced with, and the
// segment list. Re-detection reconciles a fresh batch against the document
// instead of overwriting edits.
package project

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/fieldcut/fieldcut/internal/conf"
	"github.com/fieldcut/fieldcut/internal/errors"
	"github.com/fieldcut/fieldcut/internal/pipeline"
	"github.com/fieldcut/fieldcut/internal/segment"
)

// Project is the serialized state of one analyzed audio file.
type Project struct {
	RunID     string                 `json:"run_id"`
	CreatedAt time.Time              `json:"created_at"`
	AudioPath string                 `json:"audio_path"`
	Settings  conf.DetectionSettings `json:"settings"`
	Segments  []segment.Segment      `json:"segments"`
}

// New creates a project document for a fresh detection run.
func New(audioPath string, settings conf.DetectionSettings, segments []segment.Segment) *Project {
	return &Project{
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		AudioPath: audioPath,
		Settings:  settings,
		Segments:  segments,
	}
}

// Reconcile merges a new detection batch into the project's segment list
// under the given policy and returns a new project value carrying a fresh run
// ID. Existing segments, including manual edits, are never removed.
func Reconcile(p *Project, batch []segment.Segment, toleranceMs float64, policy string) *Project {
	combined := pipeline.Resolve(p.Segments, batch, toleranceMs, policy)
	return &Project{
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		AudioPath: p.AudioPath,
		Settings:  p.Settings,
		Segments:  combined,
	}
}

// Load reads and decodes a project document. Segment payloads missing
// required fields fail here, before they can reach the engine.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("project").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.New(err).
			Component("project").
			Category(errors.CategoryFileParsing).
			FileContext(path, int64(len(data))).
			Build()
	}
	return &p, nil
}

// Save writes the project document with stable indentation so documents diff
// cleanly under version control.
func (p *Project) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return errors.New(err).
			Component("project").
			Category(errors.CategoryProcessing).
			Build()
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(err).
			Component("project").
			Category(errors.CategoryFileIO).
			FileContext(path, int64(len(data))).
			Build()
	}
	return nil
}
