package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/deepnoodle-ai/taskloop"
	"github.com/deepnoodle-ai/taskloop/config"
	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var varFlags []string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run <workflow-file>",
		Short: "Execute a workflow from the beginning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := config.LoadWorkflow(args[0])
			if err != nil {
				return err
			}
			variables, err := parseVariables(varFlags)
			if err != nil {
				return err
			}
			o, err := newOrchestrator(timeout)
			if err != nil {
				return err
			}
			validation := o.Validate(wf)
			for _, msg := range validation.Warnings {
				warningStyle.Println("warning: " + msg)
			}
			if !validation.Valid {
				for _, msg := range validation.Errors {
					errorStyle.Println("error: " + msg)
				}
				return errors.New("workflow validation failed")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			result, err := o.Execute(ctx, wf, variables)
			printResult(result)
			if err != nil {
				var execErr *taskloop.ExecutionError
				if errors.As(err, &execErr) && execErr.Resumable {
					warningStyle.Printf("A checkpoint exists; continue with: taskloop resume %s\n", args[0])
				}
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&varFlags, "var", nil,
		"set a workflow variable (key=value, repeatable)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0,
		"overall execution timeout (0 disables)")
	return cmd
}
