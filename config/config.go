// Package config loads workflow definitions from YAML files.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/deepnoodle-ai/taskloop"
	"github.com/goccy/go-yaml"
)

// WorkflowFile is the on-disk YAML shape of a workflow definition.
type WorkflowFile struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Task        string            `yaml:"task"`
	Tools       []string          `yaml:"tools,omitempty"`
	Inputs      []*taskloop.Input `yaml:"inputs,omitempty"`
}

// ParseWorkflow parses workflow YAML. Unknown fields are rejected so
// typos surface immediately.
func ParseWorkflow(data []byte) (*taskloop.Workflow, error) {
	var file WorkflowFile
	if err := yaml.UnmarshalWithOptions(data, &file, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse workflow: %w", err)
	}
	if strings.TrimSpace(file.Task) == "" {
		return nil, fmt.Errorf("workflow task is required")
	}
	if file.Name == "" {
		return nil, fmt.Errorf("workflow name is required")
	}
	return &taskloop.Workflow{
		Name:        file.Name,
		Description: file.Description,
		Source:      string(data),
		Task:        file.Task,
		Tools:       file.Tools,
		Inputs:      file.Inputs,
	}, nil
}

// LoadWorkflow reads and parses a workflow YAML file. The raw file text
// is preserved as the workflow source so resume compatibility checks see
// exactly what was on disk.
func LoadWorkflow(path string) (*taskloop.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	wf, err := ParseWorkflow(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	wf.FilePath = path
	return wf, nil
}
