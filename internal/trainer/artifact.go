package trainer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoArtifact means no trained model exists at the configured location.
var ErrNoArtifact = errors.New("trained model not found, run training first")

const (
	modelFile   = "model.json"
	columnsFile = "columns.json"
)

// Artifact pairs a fitted model with the ordered feature-column manifest it
// was trained on. The two files are always read and written together; a
// training run replaces the previous pair wholesale.
type Artifact struct {
	Model   *GBRegressor
	Columns []string
}

// Save writes the artifact pair into dir, creating it if needed. Each file is
// written to a temp name and renamed so readers never observe a half-written
// file.
func (a *Artifact) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model dir: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, modelFile), a.Model); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, columnsFile), a.Columns); err != nil {
		return fmt.Errorf("failed to save feature columns: %w", err)
	}
	return nil
}

// LoadArtifact reads the model + manifest pair from dir.
func LoadArtifact(dir string) (*Artifact, error) {
	modelPath := filepath.Join(dir, modelFile)
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, ErrNoArtifact
	}

	var model GBRegressor
	if err := readJSON(modelPath, &model); err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	var columns []string
	if err := readJSON(filepath.Join(dir, columnsFile), &columns); err != nil {
		return nil, fmt.Errorf("failed to load feature columns: %w", err)
	}

	return &Artifact{Model: &model, Columns: columns}, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
