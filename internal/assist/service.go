// Package assist implements the three AI-assist actions: refine one
// achievement sentence, organize a season of work-log entries, and coach a
// candidate through KPI definition.
package assist

import (
	"context"
	"fmt"
	"strings"

	"evalcoach/internal/candidate"
	"evalcoach/internal/llm"
	"evalcoach/internal/logging"
	"evalcoach/internal/orchestrator"
	"evalcoach/internal/quality"
	"evalcoach/internal/worklog"
)

const (
	refineMaxTokens   = 1200
	refineMinChars    = 110
	refineOutputLimit = 2000
	organizeMaxTokens = 1400
	organizeMinChars  = 350
	coachMaxTokens    = 3072
)

// ValidationError marks a request the caller got wrong; handlers map it to a
// 400 status.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErr(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// CoachMode selects between opening a session and continuing one.
type CoachMode string

const (
	ModeKickoff CoachMode = "kickoff"
	ModeChat    CoachMode = "chat"
)

// Chat transcript roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one transcript turn included in the coach prompt.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProviderOverride carries a per-request Gemini key/model taking precedence
// over the process-wide configuration.
type ProviderOverride struct {
	GeminiAPIKey string
	GeminiModel  string
}

func (o ProviderOverride) empty() bool {
	return strings.TrimSpace(o.GeminiAPIKey) == "" && strings.TrimSpace(o.GeminiModel) == ""
}

// CoachRequest is one candidate-coach call.
type CoachRequest struct {
	Mode             CoachMode
	UserMessage      string
	Candidate        *candidate.Candidate
	Entries          []worklog.Entry
	Messages         []ChatMessage
	CurrentCardCount int
	Override         ProviderOverride
}

// CoachResult is the sanitized coaching outcome. Progress is the auto
// snapshot merged with the model's assertion; fallback replies reset it to
// all-false.
type CoachResult struct {
	Reply            string                    `json:"reply"`
	Progress         candidate.Progress        `json:"progress"`
	SuggestedUpdates *candidate.Override       `json:"suggestedUpdates,omitempty"`
	SuggestedCards   []candidate.SuggestedCard `json:"suggestedCards,omitempty"`
}

// Service runs the assist actions over a provider orchestrator.
type Service struct {
	gemini  llm.GeminiConfig
	openai  llm.OpenAIConfig
	orch    *orchestrator.Orchestrator
	metrics *orchestrator.Metrics
	logger  logging.Logger
}

// NewService wires the default provider chain: Gemini first, OpenAI fallback.
func NewService(gemini llm.GeminiConfig, openai llm.OpenAIConfig, orchConfig orchestrator.Config, metrics *orchestrator.Metrics, logger logging.Logger) (*Service, error) {
	logger = logging.OrNop(logger)
	providers := []llm.Generator{
		llm.NewGemini(gemini, logger),
		llm.NewOpenAI(openai, logger),
	}
	orch, err := orchestrator.New(providers, orchConfig, metrics, logger)
	if err != nil {
		return nil, err
	}
	return &Service{
		gemini:  gemini,
		openai:  openai,
		orch:    orch,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Configured reports whether at least one provider has an API key.
func (s *Service) Configured() bool {
	return s.gemini.APIKey != "" || s.openai.APIKey != ""
}

// runnerFor returns the default orchestrator, or a fresh uncached chain when
// the request carries its own Gemini key/model.
func (s *Service) runnerFor(override ProviderOverride) (*orchestrator.Orchestrator, error) {
	if override.empty() {
		return s.orch, nil
	}
	gemini := s.gemini
	if key := strings.TrimSpace(override.GeminiAPIKey); key != "" {
		gemini.APIKey = key
	}
	if model := strings.TrimSpace(override.GeminiModel); model != "" {
		gemini.Model = model
	}
	providers := []llm.Generator{
		llm.NewGemini(gemini, s.logger),
		llm.NewOpenAI(s.openai, s.logger),
	}
	return orchestrator.New(providers, orchestrator.Config{CacheSize: -1}, s.metrics, s.logger)
}

// Refine rewrites one achievement record into a single ERP-ready paragraph.
// A draft that is incomplete, meta-flavored, or out of the length window gets
// one strict retry preferring the provider that produced the draft; if the
// retry fails the draft stands.
func (s *Service) Refine(ctx context.Context, item candidate.Candidate) (string, error) {
	opts := llm.Options{
		MaxTokens: refineMaxTokens,
		Continue:  true,
		MinChars:  refineMinChars,
	}

	first, err := s.orch.Run(ctx, buildRefinePrompt(item), opts, "")
	if err != nil {
		return "", err
	}
	if first == nil || first.Text == "" {
		return "", llm.ErrEmptyOutput
	}

	refined := first.Text
	if quality.IsLikelyIncomplete(refined, refineMinChars) ||
		quality.IsMetaLike(refined) ||
		quality.LengthOutOfRange(refined, RefineMinLength, RefineMaxLength) {
		s.metrics.RecordRepairRetry()
		second, err := s.orch.Run(ctx, buildStrictRetryPrompt(item, refined), opts, first.Provider)
		if err != nil {
			s.logger.Warn("assist: strict retry failed, keeping first draft: %v", err)
		} else if second != nil && second.Text != "" {
			refined = second.Text
		}
	}

	return truncateRunes(refined, refineOutputLimit), nil
}

// Organize drafts the fixed 4-part season summary from the given entries. A
// draft that is cut off, meta-flavored, or far below the format's minimum
// length gets one strict retry preferring the provider that produced it; if
// the retry fails the draft stands.
func (s *Service) Organize(ctx context.Context, year int, season worklog.Season, entries []worklog.Entry) (string, error) {
	if len(entries) == 0 {
		return "", validationErr("정리할 기록이 없습니다.")
	}
	opts := llm.Options{MaxTokens: organizeMaxTokens}

	first, err := s.orch.Run(ctx, buildOrganizePrompt(year, season, entries), opts, "")
	if err != nil {
		return "", err
	}
	if first == nil || first.Text == "" {
		return "", llm.ErrEmptyOutput
	}

	draft := first.Text
	if quality.IsLikelyIncomplete(draft, organizeMinChars) || quality.IsMetaLike(draft) {
		s.metrics.RecordRepairRetry()
		second, err := s.orch.Run(ctx, buildOrganizeRetryPrompt(year, season, entries, draft), opts, first.Provider)
		if err != nil {
			s.logger.Warn("assist: organize retry failed, keeping first draft: %v", err)
		} else if second != nil && second.Text != "" {
			draft = second.Text
		}
	}
	return draft, nil
}

// Coach runs one kickoff or chat turn for a candidate. An incomplete reply
// earns one strict retry; a retry that is itself unusable leaves the first
// result in place.
func (s *Service) Coach(ctx context.Context, req CoachRequest) (CoachResult, error) {
	if req.Candidate == nil {
		return CoachResult{}, validationErr("candidate payload가 필요합니다.")
	}
	mode := ModeKickoff
	if req.Mode == ModeChat {
		mode = ModeChat
	}
	userMessage := strings.TrimSpace(req.UserMessage)
	if mode == ModeChat && userMessage == "" {
		return CoachResult{}, validationErr("chat 모드에서는 userMessage가 필요합니다.")
	}
	cardCount := req.CurrentCardCount
	if cardCount <= 0 {
		cardCount = 1
	}

	runner, err := s.runnerFor(req.Override)
	if err != nil {
		return CoachResult{}, err
	}
	opts := llm.Options{MaxTokens: coachMaxTokens, JSONResponse: true}

	prompt := buildCoachPrompt(mode, userMessage, *req.Candidate, req.Entries, req.Messages, cardCount)
	raw, err := runner.Run(ctx, prompt, opts, "")
	if err != nil {
		return CoachResult{}, err
	}
	if raw == nil || raw.Text == "" {
		return CoachResult{}, llm.ErrEmptyOutput
	}

	parsed := sanitizeCoachOutput(raw.Text)
	if quality.IsLikelyIncompleteReply(parsed.reply) {
		s.metrics.RecordRepairRetry()
		retryRaw, err := runner.Run(ctx, buildCoachRetryPrompt(mode, userMessage, *req.Candidate), opts, "")
		if err != nil {
			s.logger.Warn("assist: coach retry failed, keeping first reply: %v", err)
		} else if retryRaw != nil && retryRaw.Text != "" {
			retried := sanitizeCoachOutput(retryRaw.Text)
			if retried.reply != "" && !quality.IsLikelyIncompleteReply(retried.reply) {
				parsed = retried
			}
		}
	}
	s.metrics.RecordSanitizerFallback(parsed.stage)

	result := CoachResult{
		Reply:            parsed.reply,
		SuggestedUpdates: parsed.suggestedUpdates,
		SuggestedCards:   parsed.suggestedCards,
	}
	if parsed.stage == stageParsed || parsed.stage == stageRepaired {
		result.Progress = candidate.MergeProgress(candidate.AutoProgress(*req.Candidate), parsed.progress)
	}
	return result, nil
}

// ApplyCoachSuggestions projects suggested updates onto the active sub-task
// card, skipping it silently when locked, and appends any suggested cards.
func ApplyCoachSuggestions(cards []candidate.SubTaskCard, activeCardID string, result CoachResult) []candidate.SubTaskCard {
	out := make([]candidate.SubTaskCard, len(cards))
	copy(out, cards)

	if result.SuggestedUpdates != nil {
		for i, card := range out {
			if card.ID != activeCardID {
				continue
			}
			if updated, applied := candidate.ApplyUpdates(card, *result.SuggestedUpdates); applied {
				out[i] = updated
			}
			break
		}
	}
	for _, suggestion := range result.SuggestedCards {
		out = append(out, suggestion.Card())
	}
	return out
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
