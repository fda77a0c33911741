package resume

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/pmezard/go-difflib/difflib"
)

// DefaultMinResumeScore is the compatibility score below which resuming
// is refused. Conservative on purpose: a refused resume is recoverable, a
// silently wrong one is not.
const DefaultMinResumeScore = 0.6

// CompatibilityResult reports whether a snapshot may be resumed against
// the current workflow source.
type CompatibilityResult struct {
	CanResume           bool     `json:"can_resume"`
	Score               float64  `json:"score"`
	Warnings            []string `json:"warnings,omitempty"`
	RequiresAdaptation  bool     `json:"requires_adaptation"`
	MigrationSuggestion string   `json:"migration_suggestion,omitempty"`
}

// Validator decides whether a stored snapshot is safe to resume. Pure
// over its inputs; it performs no I/O.
type Validator struct {
	minScore float64
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithMinScore overrides the minimum score required to resume.
func WithMinScore(score float64) ValidatorOption {
	return func(v *Validator) { v.minScore = score }
}

// NewValidator creates a validator with the default resume threshold.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{minScore: DefaultMinResumeScore}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate scores the snapshot against the current workflow source and the
// currently registered tool names.
func (v *Validator) Validate(snap *Snapshot, currentSource string, registeredTools []string) *CompatibilityResult {
	result := &CompatibilityResult{Score: 1.0}

	if HashContent(currentSource) != snap.Metadata.OriginalWorkflowHash {
		similarity := contentSimilarity(snap.Metadata.OriginalWorkflowContent, currentSource)
		result.Score *= similarity
		if similarity < 0.8 {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"workflow content changed significantly (similarity %.2f)", similarity))
		}
		if similarity < 0.5 {
			result.RequiresAdaptation = true
			result.MigrationSuggestion = migrationSuggestion(
				snap.Metadata.OriginalWorkflowContent, currentSource)
		}
	}

	resolvable := map[string]bool{}
	for _, name := range snap.Metadata.AvailableTools {
		resolvable[name] = true
	}
	registered := map[string]bool{}
	for _, name := range registeredTools {
		registered[name] = true
	}
	missing := map[string]bool{}
	for _, tool := range snap.CompletedTools {
		name := tool.FunctionName
		if missing[name] {
			continue
		}
		if !resolvable[name] || !registered[name] {
			missing[name] = true
			result.Score *= 0.7
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"previously used tool %q is no longer available", name))
		}
	}

	result.CanResume = result.Score >= v.minScore
	return result
}

// contentSimilarity is 1 minus the normalized edit distance between two
// texts, clamped to [0, 1].
func contentSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1.0
	}
	distance := levenshtein.ComputeDistance(a, b)
	similarity := 1.0 - float64(distance)/float64(maxLen)
	if similarity < 0 {
		return 0
	}
	return similarity
}

// migrationSuggestion builds a unified diff of the workflow change so the
// user can see what they would need to reconcile before forcing a resume.
func migrationSuggestion(original, current string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(current),
		FromFile: "workflow (at checkpoint)",
		ToFile:   "workflow (current)",
		Context:  2,
	})
	if err != nil || strings.TrimSpace(diff) == "" {
		return "review workflow changes before resuming, or start a fresh run"
	}
	return "workflow diverged from the checkpoint; review this diff before forcing a resume:\n" + diff
}
