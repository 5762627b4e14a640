package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/five82/reencode/internal/encoderdriver"
)

// document is the JSON-serializable snapshot of a Project. It excludes the
// unexported save callback, which is process-local and rebound on Load.
type document struct {
	Input   Input                       `json:"input"`
	Output  Output                      `json:"output"`
	Encoder encoderdriver.EncoderConfig `json:"encoder"`
	Scenes  Scenes                      `json:"scenes"`
	Config  StageConfig                 `json:"per_stage_config"`
	Data    StageData                   `json:"per_stage_data"`
}

// SavePath returns a SaveFunc that persists to path via write-then-rename:
// write to "<path>.temp.json", then rename over path. Idempotent: each call
// fully overwrites the staging file and commits atomically.
func SavePath(path string) SaveFunc {
	return func(p *Project) error {
		return save(p, path)
	}
}

func save(p *Project, path string) error {
	doc := document{
		Input:   p.Input,
		Output:  p.Output,
		Encoder: p.Encoder,
		Scenes:  p.Scenes,
		Config:  p.Config,
		Data:    p.Data,
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to serialize project: %w", err)
	}

	tempPath := path + ".temp.json"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write project snapshot: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to commit project snapshot: %w", err)
	}
	return nil
}

// Load reads a previously saved Project from path. The returned Project has
// no save callback bound; call SetSaveFunc (typically with SavePath(path))
// before resuming a run. Load failure is fatal only to the command that
// loads, never to a running pipeline.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse project file: %w", err)
	}

	p := &Project{
		Input:   doc.Input,
		Output:  doc.Output,
		Encoder: doc.Encoder,
		Scenes:  doc.Scenes,
		Config:  doc.Config,
		Data:    doc.Data,
	}

	return p, nil
}
