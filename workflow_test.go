package taskloop

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkflowRender(t *testing.T) {
	wf := &Workflow{
		Name: "greeting",
		Task: "Say {{.word}} to {{.who}}",
	}

	rendered, err := wf.Render(map[string]any{"word": "hello", "who": "the team"})
	require.NoError(t, err)
	require.Equal(t, "Say hello to the team", rendered)

	_, err = wf.Render(map[string]any{"word": "hello"})
	var templateErr *TemplateError
	require.ErrorAs(t, err, &templateErr)
	require.Equal(t, "greeting", templateErr.Workflow)
}

func TestWorkflowRenderBadSyntax(t *testing.T) {
	wf := &Workflow{Name: "bad", Task: "{{.unclosed"}
	_, err := wf.Render(nil)
	var templateErr *TemplateError
	require.ErrorAs(t, err, &templateErr)
}

func TestWorkflowDefaults(t *testing.T) {
	wf := &Workflow{
		Name: "wf",
		Inputs: []*Input{
			{Name: "city", Default: "Paris"},
			{Name: "required_thing", Required: true},
		},
		Tools: []string{"file_read"},
	}
	require.Equal(t, map[string]any{"city": "Paris"}, wf.DefaultVariables())
	require.True(t, wf.DeclaresTool("file_read"))
	require.False(t, wf.DeclaresTool("file_write"))
}

func TestWorkflowID(t *testing.T) {
	require.Equal(t, "wf", (&Workflow{Name: "wf"}).ID())
	require.Equal(t, "workflow", (&Workflow{}).ID())
}
