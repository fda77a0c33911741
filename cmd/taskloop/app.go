package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/deepnoodle-ai/taskloop"
	"github.com/deepnoodle-ai/taskloop/llm/providers/openai"
	"github.com/deepnoodle-ai/taskloop/resume"
	"github.com/deepnoodle-ai/taskloop/slogger"
	"github.com/deepnoodle-ai/taskloop/state"
	"github.com/deepnoodle-ai/taskloop/toolkit"
	"github.com/fatih/color"
	"github.com/google/uuid"
)

var (
	successStyle = color.New(color.FgGreen)
	errorStyle   = color.New(color.FgRed)
	warningStyle = color.New(color.FgYellow)
	boldStyle    = color.New(color.Bold)
)

// newOrchestrator wires the standard CLI stack: the OpenAI provider, the
// built-in toolkit, and a file-backed snapshot store under resumeDir.
func newOrchestrator(timeout time.Duration) (*taskloop.Orchestrator, error) {
	logger := slogger.New(slogger.LevelFromString(logLevel)).
		With("run_id", uuid.New().String())

	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	var providerOpts []openai.Option
	if modelName != "" {
		providerOpts = append(providerOpts, openai.WithModel(modelName))
	}
	model := openai.New(providerOpts...)

	store, err := resume.NewFileStore(resumeDir, resume.WithStoreLogger(logger))
	if err != nil {
		return nil, err
	}

	return taskloop.NewOrchestrator(taskloop.OrchestratorOptions{
		LLM:           model,
		Registry:      newRegistry(),
		Store:         store,
		Conversations: state.NewConversationStore(),
		Logger:        logger,
		Timeout:       timeout,
	})
}

func newRegistry() *taskloop.Registry {
	return taskloop.NewRegistry(
		toolkit.NewReadFileTool(toolkit.ReadFileToolOptions{}),
		toolkit.NewWriteFileTool(),
		toolkit.NewListDirectoryTool(),
	)
}

// parseVariables turns repeated key=value flags into a variable map.
func parseVariables(flags []string) (map[string]any, error) {
	variables := map[string]any{}
	for _, flag := range flags {
		key, value, found := strings.Cut(flag, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid variable %q (expected key=value)", flag)
		}
		variables[key] = value
	}
	return variables, nil
}

func printResult(result *taskloop.ExecutionResult) {
	if result.Success {
		successStyle.Printf("Workflow %q completed in %s (%d iterations)\n",
			result.WorkflowID, result.Duration.Round(time.Millisecond), result.Iterations)
		if result.FinalOutput != "" {
			fmt.Println()
			fmt.Println(result.FinalOutput)
		}
		return
	}
	errorStyle.Printf("Workflow %q failed: %s\n", result.WorkflowID, result.ErrorMessage)
}
