package resume

import (
	"strings"
	"testing"
	"time"

	"github.com/deepnoodle-ai/taskloop/state"
	"github.com/stretchr/testify/require"
)

func validatorSnapshot(source string, tools ...string) *Snapshot {
	snap := &Snapshot{
		Metadata: WorkflowMetadata{
			WorkflowID:              "wf-1",
			OriginalWorkflowHash:    HashContent(source),
			OriginalWorkflowContent: source,
			AvailableTools:          tools,
			LastActivity:            time.Now(),
		},
	}
	for _, name := range tools {
		snap.CompletedTools = append(snap.CompletedTools, &state.CompletedTool{
			FunctionName: name,
			Success:      true,
		})
	}
	return snap
}

func TestValidatorIdenticalSource(t *testing.T) {
	source := "task: summarize the repository\ntools: [file_read]"
	snap := validatorSnapshot(source, "file_read")

	result := NewValidator().Validate(snap, source, []string{"file_read"})
	require.True(t, result.CanResume)
	require.Equal(t, 1.0, result.Score)
	require.Empty(t, result.Warnings)
	require.False(t, result.RequiresAdaptation)
}

func TestValidatorMinorEdit(t *testing.T) {
	source := strings.Repeat("describe the change and apply it carefully\n", 20)
	snap := validatorSnapshot(source, "file_read")

	edited := source + "one extra line\n"
	result := NewValidator().Validate(snap, edited, []string{"file_read"})
	require.True(t, result.CanResume)
	require.Greater(t, result.Score, 0.9)
	require.False(t, result.RequiresAdaptation)
}

func TestValidatorMajorEdit(t *testing.T) {
	source := strings.Repeat("alpha beta gamma delta\n", 10)
	snap := validatorSnapshot(source, "file_read")

	rewritten := strings.Repeat("zzzz yyyy xxxx wwww vvvv uuuu\n", 12)
	result := NewValidator().Validate(snap, rewritten, []string{"file_read"})
	require.False(t, result.CanResume)
	require.Less(t, result.Score, 0.5)
	require.True(t, result.RequiresAdaptation)
	require.NotEmpty(t, result.MigrationSuggestion)
	require.NotEmpty(t, result.Warnings)
}

func TestValidatorScoreMonotonicInEditDistance(t *testing.T) {
	source := strings.Repeat("do the thing with the files\n", 15)
	snap := validatorSnapshot(source, "file_read")
	v := NewValidator()

	small := source + "a\n"
	large := source + strings.Repeat("completely new instructions\n", 10)

	scoreSmall := v.Validate(snap, small, []string{"file_read"}).Score
	scoreLarge := v.Validate(snap, large, []string{"file_read"}).Score
	require.GreaterOrEqual(t, scoreSmall, scoreLarge)
}

func TestValidatorMissingTool(t *testing.T) {
	source := "task: build it"
	snap := validatorSnapshot(source, "file_read", "file_write")

	// file_write was used at checkpoint time but is no longer registered.
	result := NewValidator().Validate(snap, source, []string{"file_read"})
	require.InDelta(t, 0.7, result.Score, 1e-9)
	require.True(t, result.CanResume)
	require.Len(t, result.Warnings, 1)
	require.Contains(t, result.Warnings[0], "file_write")

	// Two missing tools compound and push the score under the threshold.
	result = NewValidator().Validate(snap, source, nil)
	require.InDelta(t, 0.49, result.Score, 1e-9)
	require.False(t, result.CanResume)
	require.Len(t, result.Warnings, 2)
}

func TestValidatorMissingToolWarnedOnce(t *testing.T) {
	source := "task: build it"
	snap := validatorSnapshot(source, "file_write")
	snap.CompletedTools = append(snap.CompletedTools, snap.CompletedTools[0])

	result := NewValidator().Validate(snap, source, nil)
	require.Len(t, result.Warnings, 1, "repeated use of one missing tool warns once")
	require.InDelta(t, 0.7, result.Score, 1e-9)
}

func TestValidatorCustomThreshold(t *testing.T) {
	source := "task: build it"
	snap := validatorSnapshot(source, "file_write")

	result := NewValidator(WithMinScore(0.75)).Validate(snap, source, nil)
	require.InDelta(t, 0.7, result.Score, 1e-9)
	require.False(t, result.CanResume)
}
