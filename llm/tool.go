package llm

import "github.com/deepnoodle-ai/taskloop/schema"

// Tool declares a function the model may call: a name, a human-readable
// description, and a JSON schema for its parameters.
type Tool struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Parameters  schema.Schema `json:"parameters"`
}
