// Package assistant builds prompts from a user's cleaning history and turns
// model responses into habit insights and cleaning rule suggestions. The
// model itself sits behind the Invoker interface; everything here is
// prompt assembly and defensive response parsing.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/calmstack/declutter/internal/models"
	"github.com/calmstack/declutter/pkg/logger"
	"github.com/calmstack/declutter/pkg/rules"
	"github.com/sirupsen/logrus"
)

var log *logrus.Entry

func init() {
	log = logger.WithName("assistant")
}

// Invoker sends one prompt to a language model and returns its raw text
// response.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, prompt string) (string, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Insight is one observation the model made about a user's habits. Type is
// one of "habit", "suggestion", or "warning"; responses carrying a type we
// do not recognize are kept as generic notes rather than dropped.
type Insight struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Known insight types.
const (
	InsightHabit      = "habit"
	InsightSuggestion = "suggestion"
	InsightWarning    = "warning"
	InsightNote       = "note"
)

// Analysis is the parsed result of a habit analysis.
type Analysis struct {
	Summary  string    `json:"summary"`
	Insights []Insight `json:"insights"`
}

// Assistant wraps an Invoker with the prompts and parsers for the two
// operations the app exposes.
type Assistant struct {
	invoker Invoker
}

// New creates an Assistant backed by the given Invoker.
func New(invoker Invoker) *Assistant {
	return &Assistant{invoker: invoker}
}

// AnalyzeHabits asks the model to summarize a user's cleaning behavior from
// their lifetime counters, recent sessions, and learned preferences.
func (a *Assistant) AnalyzeHabits(ctx context.Context, progress *models.UserProgress,
	sessions []*models.CleaningSession, prefs []models.LearnedPreference) (*Analysis, error) {

	prompt := buildAnalysisPrompt(progress, sessions, prefs)

	raw, err := a.invoker.Invoke(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("habit analysis failed: %w", err)
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	log.WithFields(logrus.Fields{
		"user":     progress.UserEmail,
		"insights": len(analysis.Insights),
	}).Info("Habit analysis complete")

	return analysis, nil
}

// SuggestRules asks the model for cleaning rules matching the user's
// learned preferences. Suggestions that fail validation are skipped, not
// surfaced as errors; a response with zero usable rules is still an error.
func (a *Assistant) SuggestRules(ctx context.Context, prefs []models.LearnedPreference) ([]models.CleaningRule, error) {
	prompt := buildSuggestionPrompt(prefs)

	raw, err := a.invoker.Invoke(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("rule suggestion failed: %w", err)
	}

	suggested, err := parseRuleSuggestions(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule suggestions: %w", err)
	}

	now := time.Now().Unix()
	var valid []models.CleaningRule
	for _, rule := range suggested {
		rule.Active = false // suggested rules start disabled until the user confirms
		rule.CreatedAt = now
		rule.UpdatedAt = now
		if err := rules.Validate(&rule); err != nil {
			log.WithError(err).WithField("name", rule.Name).Warn("Skipping invalid suggested rule")
			continue
		}
		valid = append(valid, rule)
	}

	if len(valid) == 0 {
		return nil, fmt.Errorf("model returned no usable rules")
	}
	return valid, nil
}

func buildAnalysisPrompt(progress *models.UserProgress,
	sessions []*models.CleaningSession, prefs []models.LearnedPreference) string {

	var sb strings.Builder
	sb.WriteString("You are a digital decluttering coach. Analyze this user's cleaning history ")
	sb.WriteString("and respond with JSON only, shaped as ")
	sb.WriteString(`{"summary": "...", "insights": [{"type": "habit|suggestion|warning", "title": "...", "detail": "..."}]}.`)
	sb.WriteString("\n\nLifetime stats:\n")
	fmt.Fprintf(&sb, "- Files cleaned: %d\n", progress.TotalFilesCleaned)
	fmt.Fprintf(&sb, "- Space freed: %.1f MB\n", progress.TotalSpaceFreedMB)
	fmt.Fprintf(&sb, "- Sessions completed: %d\n", progress.SessionsCompleted)
	fmt.Fprintf(&sb, "- Folders organized: %d\n", progress.FoldersOrganized)
	fmt.Fprintf(&sb, "- Current streak: %d days (longest %d)\n", progress.CurrentStreak, progress.LongestStreak)

	if len(sessions) > 0 {
		sb.WriteString("\nRecent sessions:\n")
		for _, s := range sessions {
			fmt.Fprintf(&sb, "- %s: %d files, %.1f MB freed, categories %s\n",
				s.Action, s.FilesCleaned, s.SpaceFreedMB, strings.Join(s.Categories, ", "))
		}
	}

	writePreferences(&sb, prefs)
	return sb.String()
}

func buildSuggestionPrompt(prefs []models.LearnedPreference) string {
	var sb strings.Builder
	sb.WriteString("You are a digital decluttering coach. Based on the user's past actions, ")
	sb.WriteString("suggest cleaning rules as a JSON array only, each shaped as ")
	sb.WriteString(`{"name": "...", "file_extension": ".ext or *", "older_than_days": N, "larger_than_mb": N, "action": "delete|archive|compress"}.`)
	sb.WriteString(" Omit criteria that should not constrain the rule.\n")

	writePreferences(&sb, prefs)
	return sb.String()
}

func writePreferences(sb *strings.Builder, prefs []models.LearnedPreference) {
	if len(prefs) == 0 {
		return
	}
	sb.WriteString("\nPast actions, oldest first:\n")
	for _, p := range prefs {
		fmt.Fprintf(sb, "- %s a %s file (%s)\n", p.Action, p.FileType, p.Category)
	}
}

// parseAnalysis decodes a model response into an Analysis. Insights are
// decoded one by one so a single malformed entry does not sink the rest,
// and unknown types degrade to notes.
func parseAnalysis(raw string) (*Analysis, error) {
	payload := extractJSON(raw)

	var envelope struct {
		Summary  string            `json:"summary"`
		Insights []json.RawMessage `json:"insights"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return nil, err
	}
	if envelope.Summary == "" {
		return nil, fmt.Errorf("response has no summary")
	}

	analysis := &Analysis{Summary: envelope.Summary}
	for _, raw := range envelope.Insights {
		var insight Insight
		if err := json.Unmarshal(raw, &insight); err != nil {
			log.WithError(err).Warn("Skipping malformed insight")
			continue
		}
		switch insight.Type {
		case InsightHabit, InsightSuggestion, InsightWarning:
		default:
			log.WithField("type", insight.Type).Debug("Unrecognized insight type, keeping as note")
			insight.Type = InsightNote
		}
		analysis.Insights = append(analysis.Insights, insight)
	}

	return analysis, nil
}

func parseRuleSuggestions(raw string) ([]models.CleaningRule, error) {
	payload := extractJSON(raw)

	var suggested []models.CleaningRule
	if err := json.Unmarshal([]byte(payload), &suggested); err != nil {
		return nil, err
	}
	return suggested, nil
}

// extractJSON strips markdown fences and any prose surrounding the first
// JSON value in a model response. Models wrap JSON in commentary often
// enough that strict decoding of the whole response is a losing game.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}

	closing := byte('}')
	if s[start] == '[' {
		closing = ']'
	}
	if end := strings.LastIndexByte(s, closing); end > start {
		return s[start : end+1]
	}
	return s[start:]
}
