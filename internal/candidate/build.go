package candidate

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"evalcoach/internal/quality"
	"evalcoach/internal/worklog"
)

const uncategorizedKey = "__uncategorized__"

var tagSeparator = regexp.MustCompile(`[,\n/|]+`)

var koreanCollator = collate.New(language.Korean)

type group struct {
	sourceFolderID string
	goalCategory   string
	titles         []string
	contexts       []string
	results        []string
	metrics        []string
	tags           []string
	types          []worklog.EntryType
	entryCount     int
	entryIDs       []string
	minStartDate   string
	maxEndDate     string
}

// Build derives one candidate per folder holding at least one of the given
// entries, plus an uncategorized bucket for folderless entries. It is a pure
// projection: identical entries and folders always yield identical output.
// Callers pass the already season-filtered entry set.
func Build(entries []worklog.Entry, folders []worklog.Folder) []Candidate {
	groups := make(map[string]*group)
	var order []string

	seed := func(key string, g *group) *group {
		groups[key] = g
		order = append(order, key)
		return g
	}

	folderNames := make(map[string]string, len(folders))
	for _, folder := range folders {
		folderNames[folder.ID] = folder.Name
		seed(folder.ID, &group{sourceFolderID: folder.ID, goalCategory: folder.Name})
	}

	for _, entry := range entries {
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			title = fmt.Sprintf("%s 업무", entry.Type)
		}

		key := entry.FolderID
		if key == "" {
			key = uncategorizedKey
		}
		current, ok := groups[key]
		if !ok {
			name := worklog.DefaultFolderName
			if entry.FolderID != "" {
				if mapped, found := folderNames[entry.FolderID]; found {
					name = mapped
				}
			}
			current = seed(key, &group{sourceFolderID: entry.FolderID, goalCategory: name})
		}

		current.entryCount++
		current.entryIDs = append(current.entryIDs, entry.ID)
		current.titles = append(current.titles, title)
		current.types = append(current.types, entry.Type)
		if context := strings.TrimSpace(entry.Context); context != "" {
			current.contexts = append(current.contexts, context)
		}
		if result := strings.TrimSpace(entry.Result); result != "" {
			current.results = append(current.results, result)
		}
		if metric := strings.TrimSpace(entry.Metrics); metric != "" {
			current.metrics = append(current.metrics, metric)
		}
		current.tags = append(current.tags, splitTags(entry.Tags)...)

		startDate, endDate := entryDateRange(entry)
		if current.minStartDate == "" || startDate < current.minStartDate {
			current.minStartDate = startDate
		}
		if current.maxEndDate == "" || endDate > current.maxEndDate {
			current.maxEndDate = endDate
		}
	}

	total := len(entries)
	candidates := make([]Candidate, 0, len(order))
	for _, key := range order {
		g := groups[key]
		if g.entryCount == 0 {
			continue
		}

		titles := uniqueList(g.titles)
		contexts := uniqueList(g.contexts)
		metrics := uniqueList(g.metrics)
		tags := uniqueList(g.tags)

		sourceType := worklog.TypeTask
		if len(g.types) > 0 {
			sourceType = g.types[0]
		}

		periodLabel := "-"
		switch {
		case g.minStartDate != "" && g.maxEndDate != "":
			periodLabel = g.minStartDate + " ~ " + g.maxEndDate
		case g.maxEndDate != "":
			periodLabel = g.maxEndDate
		case g.minStartDate != "":
			periodLabel = g.minStartDate
		}

		kpiTask := inferKpiTask(titles, contexts)
		kpiName := fmt.Sprintf("%s 핵심 KPI", g.goalCategory)
		if len(titles) > 0 {
			kpiName = titles[0]
		}
		if kpiTask == "" {
			kpiTask = kpiName
		}

		candidates = append(candidates, Candidate{
			ID:                      "candidate-" + key,
			GoalCategory:            g.goalCategory,
			RoleAndResponsibilities: inferRole(tags, titles, g.goalCategory),
			GoalTaskWeight:          goalTaskWeight(g.entryCount, total),
			KpiName:                 kpiName,
			KpiTask:                 kpiTask,
			AchievementPlan:         inferAchievementPlan(titles, contexts),
			KpiFormula:              inferKpiFormula(metrics, sourceType),
			Grade:                   GradeAchieved,
			Score:                   GradeScores[GradeAchieved],
			SourceEntryCount:        g.entryCount,
			SourcePeriod:            periodLabel,
			SourceFolderLabel:       g.goalCategory,
			SourceFolderID:          g.sourceFolderID,
			SourceEntryIDs:          uniqueList(g.entryIDs),
			SourceType:              string(sourceType),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].GoalCategory != candidates[j].GoalCategory {
			return koreanCollator.CompareString(candidates[i].GoalCategory, candidates[j].GoalCategory) < 0
		}
		return candidates[i].SourceEntryCount > candidates[j].SourceEntryCount
	})
	return candidates
}

// entryDateRange resolves an entry's working period, falling back to the
// bare completion date (or today) when the duration cannot be computed.
func entryDateRange(entry worklog.Entry) (string, string) {
	if period, ok := worklog.CalcPeriod(entry.Date, entry.DurationWeeks, entry.DurationDays); ok {
		return period.StartDate, period.EndDate
	}
	date := entry.Date
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	return date, date
}

func splitTags(raw string) []string {
	var tags []string
	for _, token := range tagSeparator.Split(strings.TrimSpace(raw), -1) {
		if token = strings.TrimSpace(token); token != "" {
			tags = append(tags, token)
		}
	}
	return tags
}

// uniqueList trims and deduplicates while preserving first-seen order.
func uniqueList(values []string) []string {
	var out []string
	seen := make(map[string]bool, len(values))
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}

func goalTaskWeight(entryCount, total int) int {
	if total <= 0 {
		return 5
	}
	weight := int(math.Round(float64(entryCount)/float64(total)*100/5)) * 5
	if weight < 5 {
		weight = 5
	}
	if weight > 100 {
		weight = 100
	}
	return weight
}

func inferRole(tags, titles []string, folderName string) string {
	merged := make([]string, 0, len(tags)+len(titles))
	merged = append(merged, tags...)
	for _, title := range titles {
		merged = append(merged, strings.Join(strings.Fields(title), " "))
	}
	top := uniqueList(merged)
	if len(top) > 3 {
		top = top[:3]
	}
	if len(top) > 0 {
		return strings.Join(top, ", ")
	}
	return fmt.Sprintf("%s 관련 운영 및 실행", folderName)
}

func inferKpiTask(titles, contexts []string) string {
	subTasks := titles
	if len(subTasks) > 4 {
		subTasks = subTasks[:4]
	}
	contextTop := contexts
	if len(contextTop) > 2 {
		contextTop = contextTop[:2]
	}
	contextSummary := strings.Join(contextTop, " / ")
	if len(subTasks) > 0 {
		task := "하위과업: " + strings.Join(subTasks, ", ")
		if contextSummary != "" {
			task += " | 실행포인트: " + contextSummary
		}
		return task
	}
	if contextSummary != "" {
		return contextSummary
	}
	return "핵심 과업 실행 및 품질 유지"
}

// DefaultFormula returns the type-specific ratio formula without the tier
// scale appended.
func DefaultFormula(entryType worklog.EntryType) string {
	switch entryType {
	case worklog.TypeEvent:
		return "(기한 내 완료 건수 / 계획 건수) * 100"
	case worklog.TypeProject:
		return "(완료 마일스톤 수 / 계획 마일스톤 수) * 100"
	case worklog.TypeTask:
		return "(주간 완료 건수 / 주간 목표 건수) * 100"
	default:
		return "(완료 업무 수 / 계획 업무 수) * 100"
	}
}

// inferKpiFormula uses the first distinct metric when present, appending the
// five-tier scale unless the metric already enumerates every tier.
func inferKpiFormula(metrics []string, entryType worklog.EntryType) string {
	if len(metrics) > 0 {
		base := metrics[0]
		if quality.HasGradeScale(base) {
			return base
		}
		return base + "\n" + quality.GradeScaleBlock()
	}
	return DefaultFormula(entryType) + "\n" + quality.GradeScaleBlock()
}

// inferAchievementPlan slots the top titles and contexts into four fixed
// milestone templates. Plan text never carries date or duration tokens.
func inferAchievementPlan(titles, contexts []string) string {
	milestone := func(values []string, index int, fallback string) string {
		if index < len(values) {
			return values[index]
		}
		return fallback
	}
	first := milestone(titles, 0, "핵심 과업 착수")
	second := milestone(titles, 1, "중간 산출물 제작")
	third := milestone(contexts, 0, "품질 검수 및 피드백 반영")
	fourth := milestone(contexts, 1, "성과 지표 점검 및 운영 안정화")

	return strings.Join([]string{
		fmt.Sprintf("1. %s 수행 및 1차 산출물 확보", first),
		fmt.Sprintf("2. %s 실행으로 일정/품질 리스크를 선제적으로 보완", second),
		fmt.Sprintf("3. %s를 통해 완성도와 재작업률을 관리", third),
		fmt.Sprintf("4. %s 기반으로 KPI 결과값을 주기적으로 점검", fourth),
	}, "\n")
}
