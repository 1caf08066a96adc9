// Package candidate turns season-filtered work-log entries into achievement
// candidate drafts and tracks the coaching readiness of each one.
package candidate

// Grade is one of the five performance tiers.
type Grade string

const (
	GradeOutstanding Grade = "탁월"
	GradeExcellent   Grade = "우수"
	GradeAchieved    Grade = "달성"
	GradeEffort      Grade = "노력"
	GradePoor        Grade = "미흡"
)

// GradeScores maps each tier to its evaluation score.
var GradeScores = map[Grade]int{
	GradeOutstanding: 100,
	GradeExcellent:   90,
	GradeAchieved:    70,
	GradeEffort:      50,
	GradePoor:        40,
}

// IsValidGrade reports whether g belongs to the closed tier set.
func IsValidGrade(g Grade) bool {
	_, ok := GradeScores[g]
	return ok
}

// Candidate is one achievement candidate derived from a folder's entries.
// Candidates are recomputed from the entry set, never mutated in place;
// user edits live in a separate Override layer merged at read time.
type Candidate struct {
	ID                      string `json:"id"`
	GoalCategory            string `json:"goalCategory"`
	RoleAndResponsibilities string `json:"roleAndResponsibilities"`
	GoalTaskWeight          int    `json:"goalTaskWeight"`
	KpiName                 string `json:"kpiName"`
	KpiTask                 string `json:"kpiTask"`
	AchievementPlan         string `json:"achievementPlan"`
	KpiFormula              string `json:"kpiFormula"`
	SubTaskWeight           *int   `json:"subTaskWeight"`
	Grade                   Grade  `json:"grade"`
	Score                   int    `json:"score"`
	AchievementResult       string `json:"achievementResult"`

	SourceEntryCount  int      `json:"sourceEntryCount"`
	SourcePeriod      string   `json:"sourcePeriod"`
	SourceFolderLabel string   `json:"sourceFolderLabel"`
	SourceFolderID    string   `json:"sourceFolderId"`
	SourceEntryIDs    []string `json:"sourceEntryIds"`
	SourceType        string   `json:"sourceType"`
}

// Override is a sparse user-edit layer over one candidate, keyed by the
// candidate id in storage. Nil fields leave the base value untouched.
type Override struct {
	GoalCategory            *string `json:"goalCategory,omitempty"`
	RoleAndResponsibilities *string `json:"roleAndResponsibilities,omitempty"`
	GoalTaskWeight          *int    `json:"goalTaskWeight,omitempty"`
	KpiName                 *string `json:"kpiName,omitempty"`
	KpiTask                 *string `json:"kpiTask,omitempty"`
	AchievementPlan         *string `json:"achievementPlan,omitempty"`
	KpiFormula              *string `json:"kpiFormula,omitempty"`
	SubTaskWeight           *int    `json:"subTaskWeight,omitempty"`
	Grade                   *Grade  `json:"grade,omitempty"`
	Score                   *int    `json:"score,omitempty"`
	AchievementResult       *string `json:"achievementResult,omitempty"`
}

// Apply merges the override onto base. The grade resolves first; when the
// override carries no explicit score, the score follows the resolved grade.
func (o Override) Apply(base Candidate) Candidate {
	out := base

	if o.GoalCategory != nil {
		out.GoalCategory = *o.GoalCategory
	}
	if o.RoleAndResponsibilities != nil {
		out.RoleAndResponsibilities = *o.RoleAndResponsibilities
	}
	if o.GoalTaskWeight != nil {
		out.GoalTaskWeight = clampPercent(*o.GoalTaskWeight)
	}
	if o.KpiName != nil {
		out.KpiName = *o.KpiName
	}
	if o.KpiTask != nil {
		out.KpiTask = *o.KpiTask
	}
	if o.AchievementPlan != nil {
		out.AchievementPlan = *o.AchievementPlan
	}
	if o.KpiFormula != nil {
		out.KpiFormula = *o.KpiFormula
	}
	if o.SubTaskWeight != nil {
		weight := clampPercent(*o.SubTaskWeight)
		out.SubTaskWeight = &weight
	}
	if o.AchievementResult != nil {
		out.AchievementResult = *o.AchievementResult
	}

	grade := base.Grade
	if o.Grade != nil && IsValidGrade(*o.Grade) {
		grade = *o.Grade
	}
	out.Grade = grade
	if o.Score != nil {
		out.Score = clampPercent(*o.Score)
	} else {
		out.Score = GradeScores[grade]
	}
	return out
}

// SubTaskCard is one finer-grained KPI decomposition of a candidate. A
// locked card never takes AI-suggested patches until unlocked.
type SubTaskCard struct {
	ID              string `json:"id"`
	KpiName         string `json:"kpiName"`
	KpiTask         string `json:"kpiTask"`
	AchievementPlan string `json:"achievementPlan"`
	KpiFormula      string `json:"kpiFormula"`
	SubTaskWeight   *int   `json:"subTaskWeight"`
	Locked          bool   `json:"locked"`
}

func clampPercent(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
