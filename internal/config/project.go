package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ProjectFileName is the per-project file written by `ota init`.
const ProjectFileName = "ota.config.json"

// ErrProjectNotInitialized is returned when a project has no ota.config.json.
var ErrProjectNotInitialized = errors.New("project is not initialized")

// ProjectConfig links a project directory to an app on the server.
type ProjectConfig struct {
	Slug string `json:"slug"`
	API  string `json:"api"`
}

// ProjectPath returns the location of ota.config.json inside dir.
func ProjectPath(dir string) string {
	return filepath.Join(dir, ProjectFileName)
}

// LoadProject reads ota.config.json from dir.
func LoadProject(dir string) (*ProjectConfig, error) {
	data, err := os.ReadFile(ProjectPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrProjectNotInitialized
		}
		return nil, fmt.Errorf("read project config: %w", err)
	}
	var pc ProjectConfig
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("parse project config: %w", err)
	}
	return &pc, nil
}

// SaveProject writes ota.config.json into dir.
func SaveProject(dir string, pc *ProjectConfig) error {
	data, err := json.MarshalIndent(pc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project config: %w", err)
	}
	if err := os.WriteFile(ProjectPath(dir), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write project config: %w", err)
	}
	return nil
}
