package candidate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalcoach/internal/quality"
	"evalcoach/internal/worklog"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }
func gradePtr(g Grade) *Grade { return &g }

func testFolder(id, name string) worklog.Folder {
	return worklog.Folder{ID: id, Name: name}
}

func testEntry(id, folderID, title string) worklog.Entry {
	return worklog.Entry{
		ID:       id,
		FolderID: folderID,
		Title:    title,
		Type:     worklog.TypeTask,
		Date:     "2025-07-10",
	}
}

func TestBuildSingleEntryScenario(t *testing.T) {
	folders := []worklog.Folder{testFolder("f1", "시스템 개선")}
	entry := testEntry("e1", "f1", "API 마이그레이션")
	entry.Context = "v1→v2 전환"
	entry.Result = "응답속도 40% 개선"
	entry.Tags = "API,백엔드"

	candidates := Build([]worklog.Entry{entry}, folders)
	require.Len(t, candidates, 1)
	c := candidates[0]

	assert.Equal(t, "candidate-f1", c.ID)
	assert.Equal(t, "시스템 개선", c.GoalCategory)
	assert.Equal(t, 100, c.GoalTaskWeight, "a single entry owns the full weight")
	assert.Equal(t, "API 마이그레이션", c.KpiName)
	assert.Contains(t, c.KpiTask, "하위과업: API 마이그레이션")
	assert.Contains(t, c.KpiTask, "실행포인트: v1→v2 전환")
	assert.Equal(t, "API, 백엔드, API 마이그레이션", c.RoleAndResponsibilities)
	assert.True(t, quality.HasGradeScale(c.KpiFormula))
	assert.Equal(t, GradeAchieved, c.Grade)
	assert.Equal(t, 70, c.Score)

	lines := strings.Split(c.AchievementPlan, "\n")
	require.Len(t, lines, 4)
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(line, []string{"1.", "2.", "3.", "4."}[i]))
	}
	assert.False(t, quality.ContainsDateLike(c.AchievementPlan))
}

func TestBuildWeightDistribution(t *testing.T) {
	folders := []worklog.Folder{testFolder("f1", "가 운영"), testFolder("f2", "나 개발")}
	entries := []worklog.Entry{
		testEntry("e1", "f1", "업무1"),
		testEntry("e2", "f2", "업무2"),
		testEntry("e3", "f2", "업무3"),
	}

	candidates := Build(entries, folders)
	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.GreaterOrEqual(t, c.GoalTaskWeight, 5)
		assert.LessOrEqual(t, c.GoalTaskWeight, 100)
		assert.Zero(t, c.GoalTaskWeight%5)
	}
	// 1/3 of entries rounds to 35, 2/3 to 65.
	assert.Equal(t, 35, candidates[0].GoalTaskWeight)
	assert.Equal(t, 65, candidates[1].GoalTaskWeight)
}

func TestBuildSortsByCategoryThenCount(t *testing.T) {
	folders := []worklog.Folder{
		testFolder("f1", "나 운영"),
		testFolder("f2", "가 개발"),
	}
	entries := []worklog.Entry{
		testEntry("e1", "f1", "운영 업무"),
		testEntry("e2", "f2", "개발 업무"),
	}

	candidates := Build(entries, folders)
	require.Len(t, candidates, 2)
	assert.Equal(t, "가 개발", candidates[0].GoalCategory)
	assert.Equal(t, "나 운영", candidates[1].GoalCategory)
}

func TestBuildUncategorizedBucket(t *testing.T) {
	entries := []worklog.Entry{testEntry("e1", "", "무소속 업무")}

	candidates := Build(entries, nil)
	require.Len(t, candidates, 1)
	assert.Equal(t, "candidate-__uncategorized__", candidates[0].ID)
	assert.Equal(t, worklog.DefaultFolderName, candidates[0].GoalCategory)
}

func TestBuildDropsEmptyFolders(t *testing.T) {
	folders := []worklog.Folder{testFolder("f1", "빈 폴더"), testFolder("f2", "찬 폴더")}
	entries := []worklog.Entry{testEntry("e1", "f2", "업무")}

	candidates := Build(entries, folders)
	require.Len(t, candidates, 1)
	assert.Equal(t, "찬 폴더", candidates[0].GoalCategory)
}

func TestBuildDeterministic(t *testing.T) {
	folders := []worklog.Folder{testFolder("f1", "시스템 개선")}
	entries := []worklog.Entry{
		testEntry("e1", "f1", "업무1"),
		testEntry("e2", "f1", "업무2"),
	}

	first := Build(entries, folders)
	second := Build(entries, folders)
	assert.Equal(t, first, second)
}

func TestBuildPeriodLabelSpansEntries(t *testing.T) {
	folders := []worklog.Folder{testFolder("f1", "운영")}
	early := testEntry("e1", "f1", "업무1")
	early.Date = "2025-07-10"
	early.DurationWeeks = 2
	late := testEntry("e2", "f1", "업무2")
	late.Date = "2025-08-20"

	candidates := Build([]worklog.Entry{early, late}, folders)
	require.Len(t, candidates, 1)
	assert.Equal(t, "2025-06-27 ~ 2025-08-20", candidates[0].SourcePeriod)
}

func TestBuildMetricKeepsExistingScale(t *testing.T) {
	folders := []worklog.Folder{testFolder("f1", "운영")}
	entry := testEntry("e1", "f1", "업무")
	entry.Metrics = "오류율 개선\n" + quality.GradeScaleBlock()

	candidates := Build([]worklog.Entry{entry}, folders)
	require.Len(t, candidates, 1)
	assert.Equal(t, entry.Metrics, candidates[0].KpiFormula, "a metric already carrying all five tiers stays as-is")
}

func TestOverrideApply(t *testing.T) {
	base := Candidate{Grade: GradeAchieved, Score: 70, KpiName: "원래 KPI", GoalTaskWeight: 50}

	resolved := Override{
		KpiName:        strPtr("수정된 KPI"),
		GoalTaskWeight: intPtr(150),
		Grade:          gradePtr(GradeOutstanding),
	}.Apply(base)

	assert.Equal(t, "수정된 KPI", resolved.KpiName)
	assert.Equal(t, 100, resolved.GoalTaskWeight, "weights clamp to [0,100]")
	assert.Equal(t, GradeOutstanding, resolved.Grade)
	assert.Equal(t, 100, resolved.Score, "score follows the overridden grade")
}

func TestOverrideScoreWinsOverGrade(t *testing.T) {
	base := Candidate{Grade: GradeAchieved, Score: 70}

	resolved := Override{Grade: gradePtr(GradeExcellent), Score: intPtr(85)}.Apply(base)
	assert.Equal(t, 85, resolved.Score)
}

func TestOverrideInvalidGradeIgnored(t *testing.T) {
	base := Candidate{Grade: GradeAchieved, Score: 70}

	resolved := Override{Grade: gradePtr(Grade("최고"))}.Apply(base)
	assert.Equal(t, GradeAchieved, resolved.Grade)
	assert.Equal(t, 70, resolved.Score)
}

func TestAutoProgress(t *testing.T) {
	c := Candidate{
		SourceEntryCount: 2,
		KpiTask:          "하위과업: 마이그레이션 실행",
		KpiFormula:       "(완료 / 계획) * 100\n" + quality.GradeScaleBlock(),
		AchievementPlan:  "1. 착수",
		GoalTaskWeight:   40,
	}

	progress := AutoProgress(c)
	assert.True(t, progress.BaselineConfirmed)
	assert.True(t, progress.FormulaConfirmed)
	assert.True(t, progress.TargetConfirmed)
	assert.True(t, progress.ReadyToApply)
}

func TestAutoProgressShortTaskFailsBaseline(t *testing.T) {
	c := Candidate{SourceEntryCount: 1, KpiTask: "짧음"}

	progress := AutoProgress(c)
	assert.False(t, progress.BaselineConfirmed)
	assert.False(t, progress.ReadyToApply)
}

func TestMergeProgressPatchWins(t *testing.T) {
	auto := Progress{BaselineConfirmed: true, FormulaConfirmed: false}

	merged := MergeProgress(auto, &ProgressPatch{
		BaselineConfirmed: boolPtr(false),
		FormulaConfirmed:  boolPtr(true),
	})
	assert.False(t, merged.BaselineConfirmed, "patch can unset a bit")
	assert.True(t, merged.FormulaConfirmed)

	assert.Equal(t, auto, MergeProgress(auto, nil))
}

func TestSeedCardsFromEntries(t *testing.T) {
	entry := testEntry("e1", "f1", "배포 자동화")
	entry.Context = "CI 구축"
	entry.Result = "배포 시간 단축"
	entry.Metrics = "배포 소요시간"

	cards := SeedCards([]worklog.Entry{entry})
	require.Len(t, cards, 1)
	assert.Equal(t, "배포 자동화", cards[0].KpiName)
	assert.Equal(t, "CI 구축", cards[0].KpiTask)
	assert.Equal(t, "배포 시간 단축", cards[0].AchievementPlan)
	assert.True(t, strings.HasPrefix(cards[0].KpiFormula, "배포 소요시간\n"))
	assert.True(t, quality.HasGradeScale(cards[0].KpiFormula))
	assert.False(t, cards[0].Locked)
}

func TestSeedCardsWithoutEntries(t *testing.T) {
	cards := SeedCards(nil)
	require.Len(t, cards, 1, "a candidate always keeps at least one card")
	assert.Empty(t, cards[0].KpiName)
	assert.True(t, quality.HasGradeScale(cards[0].KpiFormula))
}

func TestApplyUpdatesRespectsLock(t *testing.T) {
	locked := SubTaskCard{ID: "c1", KpiName: "잠긴 카드", Locked: true}

	updated, applied := ApplyUpdates(locked, Override{KpiName: strPtr("새 이름")})
	assert.False(t, applied)
	assert.Equal(t, "잠긴 카드", updated.KpiName)

	open := SubTaskCard{ID: "c2", KpiName: "열린 카드"}
	updated, applied = ApplyUpdates(open, Override{KpiName: strPtr("새 이름"), SubTaskWeight: intPtr(120)})
	assert.True(t, applied)
	assert.Equal(t, "새 이름", updated.KpiName)
	require.NotNil(t, updated.SubTaskWeight)
	assert.Equal(t, 100, *updated.SubTaskWeight)
}

func TestSuggestedCardConversion(t *testing.T) {
	card := SuggestedCard{KpiName: "분리 KPI", SubTaskWeight: intPtr(50)}.Card()
	assert.NotEmpty(t, card.ID)
	assert.Equal(t, "분리 KPI", card.KpiName)
	assert.False(t, card.Locked)
}
