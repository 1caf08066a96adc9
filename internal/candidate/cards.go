package candidate

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"evalcoach/internal/quality"
	"evalcoach/internal/worklog"
)

// NewCardID returns a fresh sub-task card identifier.
func NewCardID() string {
	return fmt.Sprintf("card-%d-%05d", time.Now().UnixMilli(), rand.Intn(100000))
}

// SuggestedCard is one AI-proposed sub-task decomposition. Only cards with a
// non-empty KPI name survive sanitization.
type SuggestedCard struct {
	KpiName         string `json:"kpiName"`
	KpiTask         string `json:"kpiTask"`
	AchievementPlan string `json:"achievementPlan"`
	KpiFormula      string `json:"kpiFormula"`
	SubTaskWeight   *int   `json:"subTaskWeight"`
}

// Card converts the suggestion into an unlocked sub-task card.
func (s SuggestedCard) Card() SubTaskCard {
	return SubTaskCard{
		ID:              NewCardID(),
		KpiName:         s.KpiName,
		KpiTask:         s.KpiTask,
		AchievementPlan: s.AchievementPlan,
		KpiFormula:      s.KpiFormula,
		SubTaskWeight:   s.SubTaskWeight,
	}
}

// SeedCards builds the initial card set for a candidate from its source
// entries, one card per entry. Without entries a single blank card carries
// the default task formula, keeping the at-least-one-card invariant.
func SeedCards(entries []worklog.Entry) []SubTaskCard {
	if len(entries) == 0 {
		return []SubTaskCard{{
			ID:         NewCardID(),
			KpiFormula: inferKpiFormula(nil, worklog.TypeTask),
		}}
	}

	cards := make([]SubTaskCard, 0, len(entries))
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Title)
		if name == "" {
			name = fmt.Sprintf("%s 업무", entry.Type)
		}
		task := strings.TrimSpace(entry.Context)
		if task == "" {
			task = strings.TrimSpace(entry.Title)
		}
		if task == "" {
			task = "핵심 과업 실행"
		}

		formula := inferKpiFormula(nil, entry.Type)
		if metric := strings.TrimSpace(entry.Metrics); metric != "" {
			if quality.HasGradeScale(metric) {
				formula = metric
			} else {
				formula = metric + "\n" + quality.GradeScaleBlock()
			}
		}

		cards = append(cards, SubTaskCard{
			ID:              NewCardID(),
			KpiName:         name,
			KpiTask:         task,
			AchievementPlan: strings.TrimSpace(entry.Result),
			KpiFormula:      formula,
		})
	}
	return cards
}

// ApplyUpdates projects suggested field updates onto a card. Locked cards
// are skipped entirely; the second return reports whether anything applied.
func ApplyUpdates(card SubTaskCard, updates Override) (SubTaskCard, bool) {
	if card.Locked {
		return card, false
	}
	applied := false
	if updates.KpiName != nil {
		card.KpiName = *updates.KpiName
		applied = true
	}
	if updates.KpiTask != nil {
		card.KpiTask = *updates.KpiTask
		applied = true
	}
	if updates.AchievementPlan != nil {
		card.AchievementPlan = *updates.AchievementPlan
		applied = true
	}
	if updates.KpiFormula != nil {
		card.KpiFormula = *updates.KpiFormula
		applied = true
	}
	if updates.SubTaskWeight != nil {
		weight := clampPercent(*updates.SubTaskWeight)
		card.SubTaskWeight = &weight
		applied = true
	}
	return card, applied
}
