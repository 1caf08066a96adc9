package assist

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"evalcoach/internal/candidate"
	"evalcoach/internal/quality"
)

// DefaultCoachReply is the clarifying question returned when nothing usable
// can be salvaged from the model output.
const DefaultCoachReply = "기준 수립을 위해 현재 산식/목표치 초안을 먼저 알려 주세요."

// Sanitizer fallback stages, used as metric labels.
const (
	stageParsed     = "parsed"
	stageRepaired   = "repaired"
	stageReplyRegex = "reply_regex"
	stageRawText    = "raw_text"
	stageDefault    = "default"
)

var (
	codeFenceOpen  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	codeFenceClose = regexp.MustCompile("(?i)\\s*```$")
	replyStrict    = regexp.MustCompile(`(?s)"reply"\s*:\s*"(.*?)"\s*(?:,|\})`)
	replyLoose     = regexp.MustCompile(`(?s)"reply"\s*:\s*"(.*)$`)
	trailingQuote  = regexp.MustCompile(`"\s*$`)
)

// sanitizedCoach is the sanitizer's view of one coach completion. Progress is
// a partial patch on parse success and nil on every fallback path; fallbacks
// never carry updates or cards.
type sanitizedCoach struct {
	reply            string
	progress         *candidate.ProgressPatch
	suggestedUpdates *candidate.Override
	suggestedCards   []candidate.SuggestedCard
	stage            string
}

// sanitizeCoachOutput extracts a structured result from raw model text. It
// never fails: malformed input degrades stage by stage down to a fixed
// clarifying question.
func sanitizeCoachOutput(raw string) sanitizedCoach {
	trimmed := stripCodeFence(raw)

	if jsonLike := extractJSONObject(trimmed); jsonLike != "" {
		if parsed, stage, ok := parseObject(jsonLike); ok {
			if reply := stringField(parsed, "reply"); reply != "" {
				return sanitizedCoach{
					reply:            reply,
					progress:         sanitizeProgress(parsed["progress"]),
					suggestedUpdates: sanitizeUpdates(parsed["suggestedUpdates"]),
					suggestedCards:   sanitizeCards(parsed["suggestedCards"]),
					stage:            stage,
				}
			}
		}
	}

	if reply := extractReplyFragment(trimmed); reply != "" {
		return sanitizedCoach{reply: reply, stage: stageReplyRegex}
	}
	if trimmed != "" {
		return sanitizedCoach{reply: trimmed, stage: stageRawText}
	}
	return sanitizedCoach{reply: DefaultCoachReply, stage: stageDefault}
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = codeFenceOpen.ReplaceAllString(text, "")
	text = codeFenceClose.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// parseObject decodes the candidate object, giving jsonrepair one chance to
// fix the usual LLM damage (trailing commas, unquoted keys, cut-off tails).
func parseObject(jsonLike string) (map[string]any, string, bool) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(jsonLike), &parsed); err == nil {
		return parsed, stageParsed, true
	}
	repaired, err := jsonrepair.JSONRepair(jsonLike)
	if err != nil {
		return nil, "", false
	}
	if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
		return nil, "", false
	}
	return parsed, stageRepaired, true
}

func extractReplyFragment(text string) string {
	if match := replyStrict.FindStringSubmatch(text); len(match) == 2 && match[1] != "" {
		return unescapeJSONString(match[1])
	}
	if match := replyLoose.FindStringSubmatch(text); len(match) == 2 && match[1] != "" {
		return unescapeJSONString(trailingQuote.ReplaceAllString(match[1], ""))
	}
	return ""
}

func unescapeJSONString(value string) string {
	value = strings.ReplaceAll(value, `\"`, `"`)
	value = strings.ReplaceAll(value, `\n`, "\n")
	value = strings.ReplaceAll(value, `\t`, "\t")
	value = strings.ReplaceAll(value, `\\`, `\`)
	return strings.TrimSpace(value)
}

func stringField(parsed map[string]any, key string) string {
	if value, ok := parsed[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

// sanitizeProgress keeps only keys present as real booleans, making the
// result a partial patch over the auto-computed snapshot.
func sanitizeProgress(value any) *candidate.ProgressPatch {
	record, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	patch := &candidate.ProgressPatch{}
	present := false
	read := func(key string) *bool {
		if flag, ok := record[key].(bool); ok {
			present = true
			return &flag
		}
		return nil
	}
	patch.BaselineConfirmed = read("baselineConfirmed")
	patch.FormulaConfirmed = read("formulaConfirmed")
	patch.TargetConfirmed = read("targetConfirmed")
	patch.ReadyToApply = read("readyToApply")
	if !present {
		return nil
	}
	return patch
}

// sanitizeUpdates applies the allow-list: unknown keys are dropped, numeric
// fields clamp to [0,100], the grade must belong to the closed tier set, and
// plan text loses date-like tokens. Blank strings are dropped so suggested
// updates never blank out an existing field.
func sanitizeUpdates(value any) *candidate.Override {
	record, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	out := &candidate.Override{}
	populated := false

	text := func(key string) *string {
		raw, ok := record[key].(string)
		if !ok {
			return nil
		}
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return nil
		}
		populated = true
		return &trimmed
	}
	number := func(key string) *int {
		raw, ok := record[key].(float64)
		if !ok || math.IsNaN(raw) || math.IsInf(raw, 0) {
			return nil
		}
		clamped := clampRound(raw)
		populated = true
		return &clamped
	}

	out.GoalCategory = text("goalCategory")
	out.RoleAndResponsibilities = text("roleAndResponsibilities")
	out.KpiName = text("kpiName")
	out.KpiTask = text("kpiTask")
	if plan := text("achievementPlan"); plan != nil {
		stripped := quality.StripDateLike(*plan)
		out.AchievementPlan = &stripped
	}
	out.KpiFormula = text("kpiFormula")
	out.AchievementResult = text("achievementResult")
	out.GoalTaskWeight = number("goalTaskWeight")
	out.SubTaskWeight = number("subTaskWeight")
	out.Score = number("score")

	if raw, ok := record["grade"].(string); ok {
		grade := candidate.Grade(strings.TrimSpace(raw))
		if candidate.IsValidGrade(grade) {
			out.Grade = &grade
			populated = true
		}
	}

	if !populated {
		return nil
	}
	return out
}

// sanitizeCards keeps well-formed card suggestions and skips the rest; a
// card without a KPI name is dropped, never fatal.
func sanitizeCards(value any) []candidate.SuggestedCard {
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return nil
	}
	var cards []candidate.SuggestedCard
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := strings.TrimSpace(stringOrEmpty(record["kpiName"]))
		if name == "" {
			continue
		}
		card := candidate.SuggestedCard{
			KpiName:    name,
			KpiTask:    strings.TrimSpace(stringOrEmpty(record["kpiTask"])),
			KpiFormula: strings.TrimSpace(stringOrEmpty(record["kpiFormula"])),
		}
		if plan, ok := record["achievementPlan"].(string); ok {
			card.AchievementPlan = quality.StripDateLike(plan)
		}
		if raw, ok := record["subTaskWeight"].(float64); ok && !math.IsNaN(raw) && !math.IsInf(raw, 0) {
			weight := clampRound(raw)
			card.SubTaskWeight = &weight
		}
		cards = append(cards, card)
	}
	return cards
}

func stringOrEmpty(value any) string {
	if text, ok := value.(string); ok {
		return text
	}
	return ""
}

func clampRound(value float64) int {
	rounded := int(math.Round(value))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}
