package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/deepnoodle-ai/taskloop"
	"github.com/deepnoodle-ai/taskloop/config"
	"github.com/deepnoodle-ai/taskloop/resume"
	"github.com/spf13/cobra"
)

func resumeCmd() *cobra.Command {
	var (
		force     bool
		list      bool
		clean     bool
		timeout   time.Duration
		retention time.Duration
	)

	cmd := &cobra.Command{
		Use:   "resume [workflow-file]",
		Short: "Resume an interrupted workflow from its last checkpoint",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return listSnapshots()
			}
			if clean {
				return cleanSnapshots(retention)
			}
			if len(args) != 1 {
				return errors.New("a workflow file is required (or use --list / --clean)")
			}

			wf, err := config.LoadWorkflow(args[0])
			if err != nil {
				return err
			}
			o, err := newOrchestrator(timeout)
			if err != nil {
				return err
			}

			var opts []taskloop.ResumeOption
			if force {
				opts = append(opts, taskloop.WithForce())
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			result, err := o.Resume(ctx, wf, opts...)
			if err != nil {
				var incompatErr *taskloop.ResumeIncompatibleError
				if errors.As(err, &incompatErr) {
					errorStyle.Printf("Cannot resume %q: compatibility score %.2f\n",
						incompatErr.WorkflowID, incompatErr.Result.Score)
					for _, warning := range incompatErr.Result.Warnings {
						warningStyle.Println("  " + warning)
					}
					if incompatErr.Result.MigrationSuggestion != "" {
						fmt.Println(incompatErr.Result.MigrationSuggestion)
					}
					warningStyle.Println("Use --force to resume anyway.")
					return err
				}
				printResult(result)
				return err
			}
			printResult(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false,
		"resume even if the compatibility check fails")
	cmd.Flags().BoolVar(&list, "list", false,
		"list stored checkpoints without executing")
	cmd.Flags().BoolVar(&clean, "clean", false,
		"delete checkpoints older than the retention window")
	cmd.Flags().DurationVar(&timeout, "timeout", 0,
		"overall execution timeout (0 disables)")
	cmd.Flags().DurationVar(&retention, "retention", resume.DefaultRetention,
		"retention window used with --clean")
	return cmd
}

func listSnapshots() error {
	store, err := resume.NewFileStore(resumeDir)
	if err != nil {
		return err
	}
	summaries, err := store.List()
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No checkpoints found.")
		return nil
	}
	boldStyle.Printf("%-30s %-20s %-15s %s\n", "WORKFLOW", "LAST ACTIVITY", "PHASE", "TOOLS")
	for _, summary := range summaries {
		fmt.Printf("%-30s %-20s %-15s %d\n",
			summary.WorkflowID,
			summary.LastActivity.Format("2006-01-02 15:04:05"),
			summary.CurrentPhase,
			summary.ToolCount)
	}
	return nil
}

func cleanSnapshots(retention time.Duration) error {
	store, err := resume.NewFileStore(resumeDir)
	if err != nil {
		return err
	}
	removed, err := store.Cleanup(retention)
	if err != nil {
		return err
	}
	successStyle.Printf("Removed %d checkpoint(s).\n", removed)
	return nil
}
