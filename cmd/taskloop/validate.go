package main

import (
	"context"
	"errors"

	"github.com/deepnoodle-ai/taskloop"
	"github.com/deepnoodle-ai/taskloop/config"
	"github.com/deepnoodle-ai/taskloop/llm"
	"github.com/spf13/cobra"
)

type noopLLM struct{}

func (noopLLM) Name() string { return "none" }

func (noopLLM) Generate(ctx context.Context, messages []*llm.Message, opts ...llm.Option) (*llm.Response, error) {
	return nil, errors.New("no model configured")
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workflow-file>",
		Short: "Check a workflow file without invoking the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := config.LoadWorkflow(args[0])
			if err != nil {
				return err
			}
			// The model is never called, so a stub keeps validation
			// usable without credentials.
			o, err := taskloop.NewOrchestrator(taskloop.OrchestratorOptions{
				LLM:      noopLLM{},
				Registry: newRegistry(),
			})
			if err != nil {
				return err
			}
			result := o.Validate(wf)
			for _, msg := range result.Warnings {
				warningStyle.Println("warning: " + msg)
			}
			for _, msg := range result.Errors {
				errorStyle.Println("error: " + msg)
			}
			if !result.Valid {
				return errors.New("workflow validation failed")
			}
			successStyle.Printf("Workflow %q is valid.\n", wf.Name)
			return nil
		},
	}
}
