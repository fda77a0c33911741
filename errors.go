package taskloop

import (
	"errors"
	"fmt"
	"time"

	"github.com/deepnoodle-ai/taskloop/resume"
)

// ErrMaxIterations indicates the tool-calling loop hit its iteration
// limit without the model producing a final answer.
var ErrMaxIterations = errors.New("max iterations exceeded")

// ErrTimeout indicates the overall execution deadline expired.
var ErrTimeout = errors.New("execution timed out")

// ErrNoSnapshot indicates a resume was requested for a workflow with no
// stored checkpoint.
var ErrNoSnapshot = errors.New("no snapshot found")

// TemplateError indicates the workflow task text failed to render. Fatal
// and never retried.
type TemplateError struct {
	Workflow string
	Err      error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error in workflow %q: %v", e.Workflow, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// ExecutionError wraps a fatal orchestrator-level failure with enough
// context to decide on a manual resume.
type ExecutionError struct {
	WorkflowID     string
	Iteration      int
	LastCheckpoint time.Time
	Resumable      bool
	Err            error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("workflow %q failed at iteration %d: %v",
		e.WorkflowID, e.Iteration, e.Err)
	if e.Resumable {
		msg += fmt.Sprintf(" (checkpoint from %s exists; resume with: taskloop resume %s)",
			e.LastCheckpoint.Format(time.RFC3339), e.WorkflowID)
	} else {
		msg += " (no resumable checkpoint)"
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ResumeIncompatibleError indicates the compatibility check refused a
// resume. Callers may override with force.
type ResumeIncompatibleError struct {
	WorkflowID string
	Result     *resume.CompatibilityResult
}

func (e *ResumeIncompatibleError) Error() string {
	return fmt.Sprintf("cannot resume workflow %q: compatibility score %.2f below threshold",
		e.WorkflowID, e.Result.Score)
}
