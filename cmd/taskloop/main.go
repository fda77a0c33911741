package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

var (
	logLevel  string
	resumeDir string
	modelName string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "taskloop",
		Short:   "Taskloop runs resumable LLM-driven workflows",
		Long: `Taskloop executes natural-language workflows with an automatic
tool-calling loop. Progress is checkpointed after every tool call, so an
interrupted run can be resumed later without repeating completed work.`,
		Version: Version,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&resumeDir, "resume-dir", defaultResumeDir(),
		"directory for resume checkpoints")
	rootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "",
		"model to use (defaults to the provider default)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(resumeCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultResumeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskloop"
	}
	return home + "/.taskloop/resume"
}
