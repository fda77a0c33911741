package resume

import (
	"fmt"
	"strings"
	"time"

	"github.com/deepnoodle-ai/taskloop/llm"
	"github.com/deepnoodle-ai/taskloop/state"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	DefaultMaxCompletedTools = 50
	DefaultMaxChatMessages   = 20
	DefaultMaxVariables      = 30
	DefaultMaxInsights       = 10
)

// ImportanceScorer ranks a context variable for retention when pruning.
// Higher scores are kept preferentially. lastChanged is the zero value
// when the variable has no recorded change, and now is the snapshot's
// last-activity timestamp so scoring stays deterministic.
type ImportanceScorer func(key string, value any, lastChanged, now time.Time) float64

var criticalKeyFragments = []string{
	"path", "file", "goal", "task", "objective",
	"phase", "strategy", "plan", "target", "output",
}

// DefaultImportanceScorer favors variables with path/goal/phase-like names
// and variables changed close to the snapshot time.
func DefaultImportanceScorer(key string, value any, lastChanged, now time.Time) float64 {
	var score float64
	lower := strings.ToLower(key)
	for _, fragment := range criticalKeyFragments {
		if strings.Contains(lower, fragment) {
			score += 2
			break
		}
	}
	if !lastChanged.IsZero() {
		age := now.Sub(lastChanged)
		switch {
		case age <= 10*time.Minute:
			score += 1
		case age <= time.Hour:
			score += 0.5
		}
	}
	return score
}

// CodecOptions configures the pruning limits. Zero values take the
// package defaults.
type CodecOptions struct {
	MaxCompletedTools int
	MaxChatMessages   int
	MaxVariables      int
	MaxInsights       int
	Scorer            ImportanceScorer
}

// Codec translates between live execution state and bounded snapshots. It
// is the only component that maps between the two shapes.
type Codec struct {
	maxTools     int
	maxMessages  int
	maxVariables int
	maxInsights  int
	scorer       ImportanceScorer
}

// NewCodec creates a codec with the given limits.
func NewCodec(opts CodecOptions) *Codec {
	c := &Codec{
		maxTools:     opts.MaxCompletedTools,
		maxMessages:  opts.MaxChatMessages,
		maxVariables: opts.MaxVariables,
		maxInsights:  opts.MaxInsights,
		scorer:       opts.Scorer,
	}
	if c.maxTools <= 0 {
		c.maxTools = DefaultMaxCompletedTools
	}
	if c.maxMessages <= 0 {
		c.maxMessages = DefaultMaxChatMessages
	}
	if c.maxVariables <= 0 {
		c.maxVariables = DefaultMaxVariables
	}
	if c.maxInsights <= 0 {
		c.maxInsights = DefaultMaxInsights
	}
	if c.scorer == nil {
		c.scorer = DefaultImportanceScorer
	}
	return c
}

// ToSnapshot compresses live state into a bounded snapshot. Deterministic:
// the same inputs and limits always produce the same snapshot.
func (c *Codec) ToSnapshot(ec *state.ExecutionContext, messages []*llm.Message, meta WorkflowMetadata) *Snapshot {
	meta.CurrentStep = len(ec.Changes())
	if meta.CurrentPhase == "" {
		meta.CurrentPhase = detectPhase(messages)
	}
	if meta.CurrentStrategy == "" {
		meta.CurrentStrategy = detectStrategy(messages)
	}

	insights := append([]string(nil), ec.KeyInsights()...)
	kept, dropped := c.pruneMessages(messages)
	if len(dropped) > 0 {
		insights = append(insights, summarizeMessages(dropped))
	}
	if len(insights) > c.maxInsights {
		insights = insights[len(insights)-c.maxInsights:]
	}

	variables := c.pruneVariables(ec, meta.LastActivity)

	return &Snapshot{
		Metadata:       meta,
		CompletedTools: c.pruneTools(ec.CompletedTools()),
		ChatHistory:    copyMessages(kept),
		Evolution: &state.ContextEvolution{
			CurrentContext: orderedToMap(variables),
			KeyInsights:    insights,
			Changes:        append([]*state.ContextChange(nil), ec.Changes()...),
		},
		Variables: variables,
	}
}

// FromSnapshot rebuilds a continuable execution context and chat history.
// The reconstructed currentStep counts recorded context changes; resume is
// conversation-exact, not step-exact.
func (c *Codec) FromSnapshot(snap *Snapshot) (*state.ExecutionContext, []*llm.Message) {
	ec := state.NewExecutionContext(snap.Metadata.WorkflowID)
	var insights []string
	var changes []*state.ContextChange
	if snap.Evolution != nil {
		insights = snap.Evolution.KeyInsights
		changes = snap.Evolution.Changes
	}
	ec.Restore(
		snap.Metadata.StartTime,
		len(changes),
		snap.Variables,
		snap.CompletedTools,
		insights,
		changes,
	)
	return ec, copyMessages(snap.ChatHistory)
}

// pruneTools keeps at most maxTools entries, dropping oldest failed
// entries first, then oldest successful ones.
func (c *Codec) pruneTools(tools []*state.CompletedTool) []*state.CompletedTool {
	if len(tools) <= c.maxTools {
		return append([]*state.CompletedTool(nil), tools...)
	}
	over := len(tools) - c.maxTools
	drop := make(map[int]bool, over)
	for i := 0; over > 0 && i < len(tools); i++ {
		if !tools[i].Success {
			drop[i] = true
			over--
		}
	}
	for i := 0; over > 0 && i < len(tools); i++ {
		if !drop[i] {
			drop[i] = true
			over--
		}
	}
	kept := make([]*state.CompletedTool, 0, c.maxTools)
	for i, tool := range tools {
		if !drop[i] {
			kept = append(kept, tool)
		}
	}
	return kept
}

// pruneMessages keeps the most recent maxMessages and returns the older
// prefix so it can be summarized rather than silently discarded.
func (c *Codec) pruneMessages(messages []*llm.Message) (kept, dropped []*llm.Message) {
	if len(messages) <= c.maxMessages {
		return messages, nil
	}
	cut := len(messages) - c.maxMessages
	return messages[cut:], messages[:cut]
}

// pruneVariables keeps the highest-scoring maxVariables entries in their
// original insertion order.
func (c *Codec) pruneVariables(ec *state.ExecutionContext, now time.Time) *orderedmap.OrderedMap[string, any] {
	variables := ec.Variables()
	if variables.Len() <= c.maxVariables {
		result := orderedmap.New[string, any]()
		for pair := variables.Oldest(); pair != nil; pair = pair.Next() {
			result.Set(pair.Key, pair.Value)
		}
		return result
	}

	lastChanged := map[string]time.Time{}
	for _, change := range ec.Changes() {
		lastChanged[change.Key] = change.Timestamp
	}

	type scored struct {
		key   string
		value any
		score float64
		index int
	}
	entries := make([]scored, 0, variables.Len())
	index := 0
	for pair := variables.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, scored{
			key:   pair.Key,
			value: pair.Value,
			score: c.scorer(pair.Key, pair.Value, lastChanged[pair.Key], now),
			index: index,
		})
		index++
	}

	// Select the top maxVariables by score, later entries winning ties.
	keep := make(map[string]bool, c.maxVariables)
	remaining := append([]scored(nil), entries...)
	for len(keep) < c.maxVariables {
		best := 0
		for i := 1; i < len(remaining); i++ {
			if remaining[i].score > remaining[best].score ||
				(remaining[i].score == remaining[best].score && remaining[i].index > remaining[best].index) {
				best = i
			}
		}
		keep[remaining[best].key] = true
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	result := orderedmap.New[string, any]()
	for _, entry := range entries {
		if keep[entry.key] {
			result.Set(entry.key, entry.value)
		}
	}
	return result
}

// summarizeMessages folds truncated messages into one key insight so the
// model retains a trace of the earlier conversation.
func summarizeMessages(messages []*llm.Message) string {
	var lines []string
	for _, msg := range messages {
		lines = append(lines, msg.Summary())
		if len(lines) == 5 {
			break
		}
	}
	summary := fmt.Sprintf("Earlier conversation (%d messages truncated): %s",
		len(messages), strings.Join(lines, " | "))
	if len(messages) > 5 {
		summary += " | ..."
	}
	return summary
}

// detectPhase scans recent messages for phase-like keywords. Advisory
// metadata only; never used in resume decisions.
func detectPhase(messages []*llm.Message) string {
	text := recentText(messages)
	switch {
	case strings.Contains(text, "test"):
		return "testing"
	case strings.Contains(text, "implement") || strings.Contains(text, "writ"):
		return "implementation"
	case strings.Contains(text, "analy"):
		return "analysis"
	case strings.Contains(text, "plan"):
		return "planning"
	default:
		return "execution"
	}
}

// detectStrategy scans recent messages for strategy-like keywords.
// Advisory metadata only.
func detectStrategy(messages []*llm.Message) string {
	text := recentText(messages)
	switch {
	case strings.Contains(text, "step by step") || strings.Contains(text, "incremental"):
		return "incremental"
	case strings.Contains(text, "parallel"):
		return "parallel"
	default:
		return "tool_driven"
	}
}

func recentText(messages []*llm.Message) string {
	start := 0
	if len(messages) > 6 {
		start = len(messages) - 6
	}
	var sb strings.Builder
	for _, msg := range messages[start:] {
		sb.WriteString(strings.ToLower(msg.Content))
		sb.WriteString(" ")
	}
	return sb.String()
}

func copyMessages(messages []*llm.Message) []*llm.Message {
	result := make([]*llm.Message, len(messages))
	for i, msg := range messages {
		result[i] = msg.Copy()
	}
	return result
}

func orderedToMap(m *orderedmap.OrderedMap[string, any]) map[string]any {
	result := make(map[string]any, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		result[pair.Key] = pair.Value
	}
	return result
}
