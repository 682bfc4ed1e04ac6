// merge.go — Render jobs: a template id plus content, merged with overrides.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Job is a render request as stored in a job file.
type Job struct {
	Template    string       `json:"template" yaml:"template"`
	Texts       Texts        `json:"texts" yaml:"texts"`
	Adjustments *Adjustments `json:"adjustments,omitempty" yaml:"adjustments,omitempty"` // nil = defaults
}

// LoadJob reads a job file (.json, .yaml or .yml).
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}

	var job Job
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &job)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &job)
	default:
		return nil, fmt.Errorf("unsupported job format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse job: %w", err)
	}
	return &job, nil
}

// ResolvedAdjustments returns the job's toggles or the defaults.
func (j *Job) ResolvedAdjustments() Adjustments {
	if j == nil || j.Adjustments == nil {
		return DefaultAdjustments()
	}
	return *j.Adjustments
}

// MergeTexts overlays non-empty override strings onto base.
func MergeTexts(base, over Texts) Texts {
	if over.Title != "" {
		base.Title = over.Title
	}
	if over.Subtitle != "" {
		base.Subtitle = over.Subtitle
	}
	if over.Phone != "" {
		base.Phone = over.Phone
	}
	return base
}
