package taskloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/deepnoodle-ai/taskloop/llm"
	"github.com/deepnoodle-ai/taskloop/resume"
	"github.com/deepnoodle-ai/taskloop/slogger"
	"github.com/deepnoodle-ai/taskloop/state"
)

// DefaultMaxIterations bounds the tool-calling loop.
const DefaultMaxIterations = 25

// SnapshotStore persists execution checkpoints. *resume.FileStore is the
// standard implementation.
type SnapshotStore interface {
	Save(workflowID string, snap *resume.Snapshot) error
	Load(workflowID string) (*resume.Snapshot, error)
}

// ExecutionResult is the outcome of one Execute or Resume call.
type ExecutionResult struct {
	WorkflowID   string        `json:"workflow_id"`
	Success      bool          `json:"success"`
	FinalOutput  string        `json:"final_output,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Duration     time.Duration `json:"duration"`
	Iterations   int           `json:"iterations"`
	Usage        llm.Usage     `json:"usage"`
}

// ValidationResult reports workflow problems found without invoking the
// model. Errors block execution; warnings are informational.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// OrchestratorOptions configures an Orchestrator. LLM is required.
type OrchestratorOptions struct {
	LLM           llm.LLM
	Registry      *Registry
	Store         SnapshotStore
	Conversations *state.ConversationStore
	Codec         *resume.Codec
	Validator     *resume.Validator
	Logger        slogger.Logger
	MaxIterations int
	Timeout       time.Duration
}

// Orchestrator drives workflows to completion through repeated
// model-call and tool-call cycles, checkpointing after every tool call.
// A single workflow id must not be executed concurrently; enforcing that
// is the caller's responsibility.
type Orchestrator struct {
	model         llm.LLM
	registry      *Registry
	store         SnapshotStore
	conversations *state.ConversationStore
	codec         *resume.Codec
	validator     *resume.Validator
	logger        slogger.Logger
	maxIterations int
	timeout       time.Duration
}

// NewOrchestrator creates an orchestrator from the given options.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.LLM == nil {
		return nil, fmt.Errorf("llm is required")
	}
	o := &Orchestrator{
		model:         opts.LLM,
		registry:      opts.Registry,
		store:         opts.Store,
		conversations: opts.Conversations,
		codec:         opts.Codec,
		validator:     opts.Validator,
		logger:        opts.Logger,
		maxIterations: opts.MaxIterations,
		timeout:       opts.Timeout,
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}
	if o.conversations == nil {
		o.conversations = state.NewConversationStore()
	}
	if o.codec == nil {
		o.codec = resume.NewCodec(resume.CodecOptions{})
	}
	if o.validator == nil {
		o.validator = resume.NewValidator()
	}
	if o.logger == nil {
		o.logger = slogger.DefaultLogger
	}
	if o.maxIterations <= 0 {
		o.maxIterations = DefaultMaxIterations
	}
	return o, nil
}

// Execute runs a workflow from the beginning. Variable precedence:
// explicit variables (CLI overrides) win over declared input defaults.
func (o *Orchestrator) Execute(ctx context.Context, wf *Workflow, variables map[string]any) (*ExecutionResult, error) {
	started := time.Now()
	ec := state.NewExecutionContext(wf.ID())

	for name, value := range wf.DefaultVariables() {
		ec.SetVariable(name, value, "workflow", "declared default")
	}
	for name, value := range variables {
		ec.SetVariable(name, value, "cli", "caller override")
	}
	for _, input := range wf.Inputs {
		if _, ok := ec.Variable(input.Name); input.Required && !ok {
			return o.failed(wf, started, fmt.Errorf("required input %q not provided", input.Name))
		}
	}

	ec.SetStatus(state.StatusRendering)
	rendered, err := wf.Render(ec.VariableMap())
	if err != nil {
		return o.failed(wf, started, err)
	}

	messages := []*llm.Message{llm.NewUserMessage(rendered)}
	if err := o.conversations.Replace(ctx, wf.ID(), messages); err != nil {
		return o.failed(wf, started, err)
	}

	meta := resume.WorkflowMetadata{
		WorkflowID:              wf.ID(),
		WorkflowFilePath:        wf.FilePath,
		OriginalWorkflowHash:    resume.HashContent(wf.Source),
		OriginalWorkflowContent: wf.Source,
		StartTime:               ec.StartTime(),
		AvailableTools:          wf.Tools,
	}
	return o.run(ctx, wf, ec, messages, meta, started)
}

// ResumeOption configures a Resume call.
type ResumeOption func(*resumeConfig)

type resumeConfig struct {
	force bool
}

// WithForce bypasses a failed compatibility check.
func WithForce() ResumeOption {
	return func(c *resumeConfig) { c.force = true }
}

// Resume continues a previously checkpointed workflow execution. The
// stored snapshot is validated against the current workflow source; an
// incompatible snapshot fails with a ResumeIncompatibleError unless
// forced.
func (o *Orchestrator) Resume(ctx context.Context, wf *Workflow, opts ...ResumeOption) (*ExecutionResult, error) {
	var cfg resumeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	started := time.Now()

	if o.store == nil {
		return o.failed(wf, started, fmt.Errorf("no snapshot store configured"))
	}
	snap, err := o.store.Load(wf.ID())
	if err != nil {
		return o.failed(wf, started, err)
	}
	if snap == nil {
		return o.failed(wf, started, fmt.Errorf("%w for workflow %q", ErrNoSnapshot, wf.ID()))
	}

	compat := o.validator.Validate(snap, wf.Source, o.registry.Names())
	for _, warning := range compat.Warnings {
		o.logger.Warn("resume compatibility warning",
			"workflow_id", wf.ID(), "warning", warning)
	}
	if !compat.CanResume && !cfg.force {
		err := &ResumeIncompatibleError{WorkflowID: wf.ID(), Result: compat}
		return o.failed(wf, started, err)
	}
	if !compat.CanResume {
		o.logger.Warn("resuming despite failed compatibility check",
			"workflow_id", wf.ID(), "score", compat.Score)
	}

	ec, messages := o.codec.FromSnapshot(snap)
	messages = append(messages, o.resumeMessage(snap, ec))
	if err := o.conversations.Replace(ctx, wf.ID(), messages); err != nil {
		return o.failed(wf, started, err)
	}

	o.logger.Info("resuming workflow",
		"workflow_id", wf.ID(),
		"compatibility_score", compat.Score,
		"completed_tools", len(ec.CompletedTools()),
		"messages", len(messages))

	meta := resume.WorkflowMetadata{
		WorkflowID:              wf.ID(),
		WorkflowFilePath:        wf.FilePath,
		OriginalWorkflowHash:    resume.HashContent(wf.Source),
		OriginalWorkflowContent: wf.Source,
		CurrentPhase:            snap.Metadata.CurrentPhase,
		CurrentStrategy:         snap.Metadata.CurrentStrategy,
		StartTime:               ec.StartTime(),
		AvailableTools:          wf.Tools,
	}
	return o.run(ctx, wf, ec, messages, meta, started)
}

// resumeMessage synthesizes the system message that lets the model pick
// up where it left off without repeating completed work.
func (o *Orchestrator) resumeMessage(snap *resume.Snapshot, ec *state.ExecutionContext) *llm.Message {
	var sb strings.Builder
	sb.WriteString("You are resuming an interrupted task. Do not repeat work that is already done.\n")
	elapsed := time.Since(ec.StartTime()).Round(time.Second)
	fmt.Fprintf(&sb, "\nElapsed since the task started: %s\n", elapsed)

	var succeeded []string
	for _, tool := range ec.CompletedTools() {
		if tool.Success {
			succeeded = append(succeeded, tool.FunctionName)
		}
	}
	if len(succeeded) > 0 {
		fmt.Fprintf(&sb, "\nTools already completed successfully: %s\n",
			strings.Join(succeeded, ", "))
	}
	if insights := ec.KeyInsights(); len(insights) > 0 {
		sb.WriteString("\nKey insights from prior work:\n")
		for _, insight := range insights {
			fmt.Fprintf(&sb, "- %s\n", insight)
		}
	}
	if ec.Variables().Len() > 0 {
		sb.WriteString("\nCurrent workflow variables:\n")
		for pair := ec.Variables().Oldest(); pair != nil; pair = pair.Next() {
			fmt.Fprintf(&sb, "- %s: %v\n", pair.Key, pair.Value)
		}
	}
	sb.WriteString("\nContinue the task from this state.")
	return llm.NewSystemMessage(sb.String())
}

// run is the tool-calling loop shared by Execute and Resume.
func (o *Orchestrator) run(
	ctx context.Context,
	wf *Workflow,
	ec *state.ExecutionContext,
	messages []*llm.Message,
	meta resume.WorkflowMetadata,
	started time.Time,
) (*ExecutionResult, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	definitions := o.registry.Definitions(wf.Tools)
	var usage llm.Usage
	var lastCheckpoint time.Time

	for i := 0; i < o.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			ec.SetStatus(state.StatusCancelled)
			return o.fatal(wf, ec, started, usage, i, lastCheckpoint, o.loopErr(err))
		}

		ec.SetStatus(state.StatusAwaitingModel)
		opts := []llm.Option{}
		if len(definitions) > 0 {
			opts = append(opts, llm.WithTools(definitions...))
			if i == o.maxIterations-1 {
				// Last chance: force a final answer instead of more calls.
				opts = append(opts, llm.WithToolChoice("none"))
			}
		}
		response, err := o.model.Generate(ctx, messages, opts...)
		if err != nil {
			if ctx.Err() != nil {
				ec.SetStatus(state.StatusCancelled)
			} else {
				ec.SetStatus(state.StatusFailed)
			}
			return o.fatal(wf, ec, started, usage, i, lastCheckpoint, o.loopErr(err))
		}
		usage.Add(&response.Usage)
		o.logger.Debug("model response",
			"workflow_id", wf.ID(),
			"iteration", i,
			"tool_calls", len(response.FunctionCalls()),
			"input_tokens", response.Usage.InputTokens,
			"output_tokens", response.Usage.OutputTokens)

		messages = append(messages, response.Message)
		if err := o.conversations.Append(ctx, wf.ID(), response.Message); err != nil {
			o.logger.Warn("failed to record assistant message", "error", err)
		}

		calls := response.FunctionCalls()
		if len(calls) == 0 {
			ec.SetStatus(state.StatusCompleted)
			o.checkpoint(wf, ec, messages, meta, &lastCheckpoint)
			o.logger.Info("workflow completed",
				"workflow_id", wf.ID(),
				"iterations", i+1,
				"duration", time.Since(started))
			return &ExecutionResult{
				WorkflowID:  wf.ID(),
				Success:     true,
				FinalOutput: response.Text(),
				Duration:    time.Since(started),
				Iterations:  i + 1,
				Usage:       usage,
			}, nil
		}

		// Tool calls execute sequentially, in the order the model
		// requested them, so the transcript replays deterministically.
		for _, call := range calls {
			toolMessage, cancelled := o.invokeTool(ctx, wf, ec, call)
			if cancelled {
				ec.SetStatus(state.StatusCancelled)
				return o.fatal(wf, ec, started, usage, i, lastCheckpoint, o.loopErr(ctx.Err()))
			}
			messages = append(messages, toolMessage)
			if err := o.conversations.Append(ctx, wf.ID(), toolMessage); err != nil {
				o.logger.Warn("failed to record tool message", "error", err)
			}
			ec.AdvanceStep()
			o.checkpoint(wf, ec, messages, meta, &lastCheckpoint)
		}
	}

	ec.SetStatus(state.StatusFailed)
	return o.fatal(wf, ec, started, usage, o.maxIterations, lastCheckpoint,
		fmt.Errorf("%w after %d iterations", ErrMaxIterations, o.maxIterations))
}

// invokeTool runs one requested function call and returns the tool-role
// message describing its outcome. Failures are folded into the message so
// the model can react; they never abort the run. A true second return
// means the context expired while the tool was running and its result was
// discarded.
func (o *Orchestrator) invokeTool(ctx context.Context, wf *Workflow, ec *state.ExecutionContext, call *llm.FunctionCall) (*llm.Message, bool) {
	parameters := map[string]any{}
	if len(call.Arguments) > 0 {
		// Parameters are recorded best-effort; the tool re-parses its own
		// input.
		_ = json.Unmarshal(call.Arguments, &parameters)
	}
	record := &state.CompletedTool{
		FunctionName: call.Name,
		Parameters:   parameters,
		ExecutedAt:   time.Now(),
	}

	if !wf.DeclaresTool(call.Name) {
		record.Reasoning = "tool not declared by workflow"
		ec.RecordTool(record)
		o.logger.Warn("model requested undeclared tool",
			"workflow_id", wf.ID(), "tool", call.Name)
		return llm.NewToolResultMessage(call.ID, fmt.Sprintf(
			"Error: tool %q is not available in this workflow", call.Name)), false
	}
	tool, ok := o.registry.Get(call.Name)
	if !ok {
		record.Reasoning = "tool not registered"
		ec.RecordTool(record)
		return llm.NewToolResultMessage(call.ID, fmt.Sprintf(
			"Error: tool %q is not registered", call.Name)), false
	}

	ec.SetStatus(state.StatusExecutingTool)
	o.logger.Debug("executing tool call",
		"workflow_id", wf.ID(), "tool", call.Name, "call_id", call.ID)
	result, err := tool.Call(ctx, call.Arguments)
	if ctx.Err() != nil {
		// The tool may have finished anyway; its result is discarded and
		// the run is marked cancelled, not completed.
		return nil, true
	}
	if err != nil {
		record.Reasoning = err.Error()
		ec.RecordTool(record)
		o.logger.Warn("tool call failed",
			"workflow_id", wf.ID(), "tool", call.Name, "error", err)
		return llm.NewToolResultMessage(call.ID, fmt.Sprintf(
			"Error: %s", err.Error())), false
	}

	content := result.Content
	if result.IsError {
		record.Reasoning = content
	} else {
		record.Success = true
		record.Result = &content
		for key, value := range result.Variables {
			ec.SetVariable(key, value, call.Name, "tool output")
		}
	}
	ec.RecordTool(record)
	return llm.NewToolResultMessage(call.ID, content), false
}

// checkpoint persists the current state. Checkpoint failures are logged
// and do not interrupt execution; the previous checkpoint remains valid.
func (o *Orchestrator) checkpoint(wf *Workflow, ec *state.ExecutionContext, messages []*llm.Message, meta resume.WorkflowMetadata, lastCheckpoint *time.Time) {
	if o.store == nil {
		return
	}
	meta.LastActivity = time.Now()
	snap := o.codec.ToSnapshot(ec, messages, meta)
	if err := o.store.Save(wf.ID(), snap); err != nil {
		o.logger.Error("checkpoint failed",
			"workflow_id", wf.ID(), "error", err)
		return
	}
	*lastCheckpoint = meta.LastActivity
}

// Validate checks a workflow without invoking the model: the task text
// must render and every declared tool must resolve in the registry.
func (o *Orchestrator) Validate(wf *Workflow) *ValidationResult {
	result := &ValidationResult{}

	variables := wf.DefaultVariables()
	for _, input := range wf.Inputs {
		if _, ok := variables[input.Name]; !ok {
			variables[input.Name] = ""
		}
	}
	if _, err := wf.Render(variables); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	for _, name := range wf.Tools {
		if _, ok := o.registry.Get(name); !ok {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"declared tool %q is not registered", name))
		}
	}

	var referenced []string
	for _, name := range o.registry.Names() {
		if strings.Contains(wf.Task, name) && !wf.DeclaresTool(name) {
			referenced = append(referenced, name)
		}
	}
	sort.Strings(referenced)
	for _, name := range referenced {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"tool %q is referenced in the task but not declared", name))
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func (o *Orchestrator) failed(wf *Workflow, started time.Time, err error) (*ExecutionResult, error) {
	return &ExecutionResult{
		WorkflowID:   wf.ID(),
		Success:      false,
		ErrorMessage: err.Error(),
		Duration:     time.Since(started),
	}, err
}

func (o *Orchestrator) fatal(
	wf *Workflow,
	ec *state.ExecutionContext,
	started time.Time,
	usage llm.Usage,
	iteration int,
	lastCheckpoint time.Time,
	err error,
) (*ExecutionResult, error) {
	execErr := &ExecutionError{
		WorkflowID:     wf.ID(),
		Iteration:      iteration,
		LastCheckpoint: lastCheckpoint,
		Resumable:      !lastCheckpoint.IsZero(),
		Err:            err,
	}
	o.logger.Error("workflow failed",
		"workflow_id", wf.ID(),
		"iteration", iteration,
		"resumable", execErr.Resumable,
		"error", err)
	return &ExecutionResult{
		WorkflowID:   wf.ID(),
		Success:      false,
		ErrorMessage: execErr.Error(),
		Duration:     time.Since(started),
		Iterations:   iteration,
		Usage:        usage,
	}, execErr
}

// loopErr maps context expiry onto the timeout error kind.
func (o *Orchestrator) loopErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
