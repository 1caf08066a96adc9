package candidate

import (
	"fmt"
	"strings"

	"evalcoach/internal/quality"
)

// Progress is the 4-stage readiness checklist for one candidate.
type Progress struct {
	BaselineConfirmed bool `json:"baselineConfirmed"`
	FormulaConfirmed  bool `json:"formulaConfirmed"`
	TargetConfirmed   bool `json:"targetConfirmed"`
	ReadyToApply      bool `json:"readyToApply"`
}

// ProgressPatch is a partial readiness assertion from the coaching model.
// Nil fields keep the auto-computed value.
type ProgressPatch struct {
	BaselineConfirmed *bool `json:"baselineConfirmed,omitempty"`
	FormulaConfirmed  *bool `json:"formulaConfirmed,omitempty"`
	TargetConfirmed   *bool `json:"targetConfirmed,omitempty"`
	ReadyToApply      *bool `json:"readyToApply,omitempty"`
}

// AutoProgress derives the readiness snapshot from current candidate content.
// It is recomputed on every read, never stored.
func AutoProgress(c Candidate) Progress {
	baseline := c.SourceEntryCount > 0 && len([]rune(strings.TrimSpace(c.KpiTask))) >= 8

	formulaText := strings.TrimSpace(c.KpiFormula)
	formula := formulaText != "" && quality.HasGradeScale(formulaText)

	target := quality.HasTargetSignal(fmt.Sprintf("%s %s %d", c.KpiFormula, c.AchievementPlan, c.GoalTaskWeight))

	return Progress{
		BaselineConfirmed: baseline,
		FormulaConfirmed:  formula,
		TargetConfirmed:   target,
		ReadyToApply:      baseline && formula && target,
	}
}

// MergeProgress lays the model's assertion over the auto snapshot. A present
// patch field always wins, in either direction.
func MergeProgress(auto Progress, patch *ProgressPatch) Progress {
	if patch == nil {
		return auto
	}
	merged := auto
	if patch.BaselineConfirmed != nil {
		merged.BaselineConfirmed = *patch.BaselineConfirmed
	}
	if patch.FormulaConfirmed != nil {
		merged.FormulaConfirmed = *patch.FormulaConfirmed
	}
	if patch.TargetConfirmed != nil {
		merged.TargetConfirmed = *patch.TargetConfirmed
	}
	if patch.ReadyToApply != nil {
		merged.ReadyToApply = *patch.ReadyToApply
	}
	return merged
}
