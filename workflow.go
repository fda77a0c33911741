// Package taskloop executes natural-language workflows with an automatic
// LLM tool-calling loop. Executions checkpoint after every tool call, so
// an interrupted run can be resumed later with its conversation and
// discovered context intact.
package taskloop

import (
	"strings"
	"text/template"
)

// Input declares one workflow input variable.
type Input struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// Workflow is one natural-language task definition plus the tools the
// model is allowed to invoke while executing it. The task text is a Go
// template rendered against the workflow variables.
type Workflow struct {
	Name        string
	Description string
	FilePath    string
	Source      string
	Task        string
	Tools       []string
	Inputs      []*Input
}

// ID returns the identifier used to key conversations and snapshots.
func (w *Workflow) ID() string {
	if w.Name != "" {
		return w.Name
	}
	return "workflow"
}

// DeclaresTool reports whether the named tool is in the allow-list.
func (w *Workflow) DeclaresTool(name string) bool {
	for _, tool := range w.Tools {
		if tool == name {
			return true
		}
	}
	return false
}

// DefaultVariables returns the declared input defaults.
func (w *Workflow) DefaultVariables() map[string]any {
	defaults := map[string]any{}
	for _, input := range w.Inputs {
		if input.Default != nil {
			defaults[input.Name] = input.Default
		}
	}
	return defaults
}

// Render produces the task instruction by rendering the task template
// with the given variables. Render failures are TemplateErrors.
func (w *Workflow) Render(variables map[string]any) (string, error) {
	tmpl, err := template.New(w.ID()).Option("missingkey=error").Parse(w.Task)
	if err != nil {
		return "", &TemplateError{Workflow: w.ID(), Err: err}
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, variables); err != nil {
		return "", &TemplateError{Workflow: w.ID(), Err: err}
	}
	return sb.String(), nil
}
