package assist

import (
	"fmt"
	"strings"

	"evalcoach/internal/candidate"
	"evalcoach/internal/worklog"
)

// Refined text targets one ERP paragraph of this length.
const (
	RefineMinLength = 150
	RefineMaxLength = 200
)

var gradeToneGuides = map[candidate.Grade]string{
	candidate.GradeOutstanding: "탁월 등급: 성과의 파급효과, 난이도 높은 과제 완수, 조직 기여를 자신감 있게 강조하되 과장하지 않는다.",
	candidate.GradeExcellent:   "우수 등급: 목표를 안정적으로 상회 달성한 점과 실행력, 협업 기여를 분명히 강조한다.",
	candidate.GradeAchieved:    "달성 등급: 목표를 충실히 달성한 사실 중심으로 작성하고, 과도한 수사는 피한다.",
	candidate.GradeEffort:      "노력 등급: 성과와 한계를 함께 서술하고, 개선 시도와 향후 보완 계획을 균형 있게 담는다.",
	candidate.GradePoor:        "미흡 등급: 미달 원인, 반성 포인트, 재발 방지 및 개선 계획을 명확하고 책임감 있게 작성한다.",
}

func gradeToneGuide(grade candidate.Grade) string {
	if guide, ok := gradeToneGuides[grade]; ok {
		return guide
	}
	return gradeToneGuides[candidate.GradeAchieved]
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func percentOrDash(value *int) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%d%%", *value)
}

func buildRefinePrompt(item candidate.Candidate) string {
	return strings.Join([]string{
		"당신은 사내 성과평가 문장 교정 전문가입니다.",
		"아래 입력을 바탕으로 ERP 붙여넣기용 '달성실적' 문장을 한국어로 다듬어 주세요.",
		"규칙:",
		"1) 사실 범위를 벗어난 과장 금지",
		"2) 한 단락으로 작성",
		fmt.Sprintf("3) %d~%d자 내외", RefineMinLength, RefineMaxLength),
		"4) 한국어만 사용 (영문 체크리스트/평가 코멘트 금지)",
		"5) 출력은 본문만, 제목/머리말/불릿/번호/메타설명 금지",
		"6) 등급별 문체 가이드: " + gradeToneGuide(item.Grade),
		"",
		"목표구분: " + orDash(item.GoalCategory),
		"R&R: " + orDash(item.RoleAndResponsibilities),
		fmt.Sprintf("목표과업 비중: %d%%", item.GoalTaskWeight),
		"KPI명: " + orDash(item.KpiName),
		"KPI과제: " + orDash(item.KpiTask),
		"달성계획: " + orDash(item.AchievementPlan),
		"KPI산식: " + orDash(item.KpiFormula),
		"하위과업 비중: " + percentOrDash(item.SubTaskWeight),
		fmt.Sprintf("자가 평가: %s (%d점)", item.Grade, item.Score),
		"",
		"원문 달성실적:",
		firstNonEmpty(item.AchievementResult, "(원문 없음)"),
	}, "\n")
}

func buildStrictRetryPrompt(item candidate.Candidate, draft string) string {
	return strings.Join([]string{
		"아래 초안을 ERP용 달성실적으로 다시 작성하세요.",
		"절대 규칙:",
		fmt.Sprintf("1) 정확히 %d~%d자", RefineMinLength, RefineMaxLength),
		"2) 한국어 본문 한 단락만 출력",
		"3) 불릿, 번호, 체크리스트, 'Good', 'Final', 'Review' 같은 메타 문구 금지",
		"4) 문장 중간 끊김 없이 완결형 종결어미로 마무리",
		"5) 등급별 문체 가이드: " + gradeToneGuide(item.Grade),
		"",
		"초안:",
		draft,
	}, "\n")
}

func buildOrganizePrompt(year int, season worklog.Season, entries []worklog.Entry) string {
	serialized := make([]string, 0, len(entries))
	for i, entry := range entries {
		serialized = append(serialized, strings.Join([]string{
			fmt.Sprintf("[기록 %d]", i+1),
			"- 폴더ID: " + orDash(entry.FolderID),
			"- 완료일: " + entry.Date,
			"- 기간: " + worklog.PeriodLabel(entry),
			"- 유형: " + string(entry.Type),
			"- 제목: " + orDash(entry.Title),
			"- 맥락: " + orDash(entry.Context),
			"- 결과: " + orDash(entry.Result),
			"- 지표: " + orDash(entry.Metrics),
			"- 태그: " + orDash(entry.Tags),
		}, "\n"))
	}

	return strings.Join([]string{
		"당신은 인사평가 시즌 정리 코치입니다.",
		"아래 상시 업무 기록을 바탕으로 시즌 평가 작성을 위한 초안을 작성하세요.",
		"규칙:",
		"1) 입력 기록에 없는 사실을 추가하지 말 것",
		"2) 한국어만 사용",
		"3) 지나친 수사 없이 ERP 복붙 가능한 문체",
		"4) 반드시 아래 출력 형식을 그대로 유지",
		"",
		"[출력 형식]",
		"1) 시즌 핵심 요약 (2~3문장)",
		"2) 업적평가 후보 (3개 문장, 각 문장 120~180자)",
		"3) 역량평가 행동사례 후보 (4개 문장, 키워드: 도전/협업/성장/규정준수)",
		"4) 작성자 종합 의견 초안 (1개 문단, 300~500자)",
		"",
		fmt.Sprintf("대상 시즌: %d년 %s", year, season.Label()),
		fmt.Sprintf("기록 개수: %d", len(entries)),
		"",
		"[기록 원문]",
		strings.Join(serialized, "\n\n"),
	}, "\n")
}

func buildOrganizeRetryPrompt(year int, season worklog.Season, entries []worklog.Entry, draft string) string {
	return strings.Join([]string{
		"아래 초안을 시즌 평가 초안으로 다시 작성하세요.",
		"절대 규칙:",
		"1) 아래 출력 형식의 4개 항목을 모두 포함",
		"2) 업적평가 후보는 3개 문장, 각 문장 120~180자",
		"3) 종합 의견은 한 문단, 300~500자",
		"4) 한국어 본문만 출력, 메타 문구 금지",
		"5) 문장 중간 끊김 없이 완결형 종결어미로 마무리",
		"",
		"[출력 형식]",
		"1) 시즌 핵심 요약 (2~3문장)",
		"2) 업적평가 후보 (3개 문장, 각 문장 120~180자)",
		"3) 역량평가 행동사례 후보 (4개 문장, 키워드: 도전/협업/성장/규정준수)",
		"4) 작성자 종합 의견 초안 (1개 문단, 300~500자)",
		"",
		fmt.Sprintf("대상 시즌: %d년 %s", year, season.Label()),
		fmt.Sprintf("기록 개수: %d", len(entries)),
		"",
		"초안:",
		draft,
	}, "\n")
}

// summarizeEntries renders at most 15 entries for the coach prompt.
func summarizeEntries(entries []worklog.Entry) string {
	if len(entries) > 15 {
		entries = entries[:15]
	}
	blocks := make([]string, 0, len(entries))
	for i, entry := range entries {
		blocks = append(blocks, strings.Join([]string{
			fmt.Sprintf("[기록 %d]", i+1),
			"- 완료일: " + orDash(entry.Date),
			"- 유형: " + orDash(string(entry.Type)),
			"- 제목: " + orDash(entry.Title),
			"- 맥락: " + orDash(entry.Context),
			"- 결과: " + orDash(entry.Result),
			"- 지표: " + orDash(entry.Metrics),
			"- 태그: " + orDash(entry.Tags),
		}, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func buildCoachPrompt(mode CoachMode, userMessage string, c candidate.Candidate, entries []worklog.Entry, messages []ChatMessage, cardCount int) string {
	recent := messages
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	lines := make([]string, 0, len(recent))
	for i, message := range recent {
		speaker := "USER"
		if message.Role == RoleAssistant {
			speaker = "AI"
		}
		lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, speaker, message.Content))
	}
	conversation := strings.Join(lines, "\n")
	if conversation == "" {
		conversation = "-"
	}

	return strings.Join([]string{
		"당신은 사내 평가작성 KPI 코치입니다.",
		"목표: 사용자의 실적을 과장 없이 잘 드러내면서, 실무적으로 유리한 KPI 기준(달성 가능 + 도전성)을 함께 설계한다.",
		"중요 원칙:",
		"1) 사실 기반만 사용, 허위/과장 금지",
		"2) 모호하면 먼저 질문하고, 질문은 1~2개만 핵심적으로",
		"3) KPI 산식/목표치 확정이 우선",
		"4) 사용자 편의: 바로 반영 가능한 수정안을 함께 제시",
		"5) 달성계획은 반드시 3~4개의 마일스톤 번호형 목록으로 작성 (1., 2., 3.)",
		"6) KPI산식은 반드시 탁월/우수/달성/노력/미흡 5단계 기준값이 모두 포함되어야 함",
		"7) 달성계획에는 날짜/기간 표기(YYYY-MM-DD, n월 n일, n주, n일)를 넣지 말 것",
		"8) 사용자가 하위과업 분리/나누기/구분을 요청하면 반드시 suggestedCards 배열에 2~3개의 완전한 카드를 포함하여 반환해야 한다. reply에 분리안을 텍스트로 설명하는 것만으로는 부족하다. 반드시 suggestedCards JSON 배열에 각 카드의 kpiName, kpiTask, achievementPlan, kpiFormula, subTaskWeight를 모두 채워서 반환한다. subTaskWeight 합계는 100이 되도록 한다. suggestedCards를 반환하면 자동으로 카드가 생성된다.",
		"",
		"모드: " + string(mode),
		"사용자 최근 입력: " + orDash(userMessage),
		"",
		"[현재 후보 카드]",
		"- 목표구분: " + orDash(c.GoalCategory),
		"- R&R: " + orDash(c.RoleAndResponsibilities),
		fmt.Sprintf("- 목표과업 비중: %d%%", c.GoalTaskWeight),
		"- KPI명: " + orDash(c.KpiName),
		"- KPI과제: " + orDash(c.KpiTask),
		"- 달성계획: " + orDash(c.AchievementPlan),
		"- KPI산식: " + orDash(c.KpiFormula),
		"- 하위과업 비중: " + percentOrDash(c.SubTaskWeight),
		fmt.Sprintf("- 등급/점수: %s %d점", c.Grade, c.Score),
		"- 달성실적: " + orDash(c.AchievementResult),
		fmt.Sprintf("- 소스: %d건 / %s / %s", c.SourceEntryCount, orDash(c.SourcePeriod), orDash(c.SourceFolderLabel)),
		fmt.Sprintf("- 현재 하위과업 카드 수: %d개", cardCount),
		"",
		"[관련 기록]",
		summarizeEntries(entries),
		"",
		"[대화 히스토리]",
		conversation,
		"",
		"출력은 반드시 JSON 하나만 반환:",
		"{",
		`  "reply": "사용자에게 보일 상담 답변. 4~8문장, 중간에 끊기지 않게 완결형으로 작성. 모드 kickoff면 먼저 핵심 질문 1~2개를 제시",`,
		`  "progress": {`,
		`    "baselineConfirmed": boolean,`,
		`    "formulaConfirmed": boolean,`,
		`    "targetConfirmed": boolean,`,
		`    "readyToApply": boolean`,
		"  },",
		`  "suggestedUpdates": {`,
		`    "goalCategory": "string",`,
		`    "roleAndResponsibilities": "string optional",`,
		`    "kpiName": "string optional",`,
		`    "goalTaskWeight": 0,`,
		`    "kpiTask": "string optional",`,
		`    "achievementPlan": "string optional",`,
		`    "kpiFormula": "string optional",`,
		`    "achievementResult": "string optional"`,
		"  },",
		`  "suggestedCards": [`,
		"    {",
		`      "kpiName": "string",`,
		`      "kpiTask": "string",`,
		`      "achievementPlan": "string",`,
		`      "kpiFormula": "string",`,
		`      "subTaskWeight": 50`,
		"    }",
		"  ]",
		"}",
		"규칙: JSON 외 텍스트 금지, 코드블록 금지, reply 키 이름 노출 금지.",
		"추가 규칙: suggestedUpdates는 goalCategory, kpiName, roleAndResponsibilities, kpiTask, achievementPlan, kpiFormula, achievementResult를 반드시 채운다.",
		"achievementPlan은 줄바꿈 포함 번호형 3~4개 마일스톤으로 채운다.",
		"achievementPlan에는 날짜/기간 수치를 쓰지 않는다.",
		"kpiFormula는 산식 본문 + 탁월/우수/달성/노력/미흡 기준값 5줄을 함께 채운다.",
		"중요: 사용자가 '나눠', '분리', '하위과업', '구분' 등 분리를 요청하면 suggestedCards 배열에 2~3개 카드를 반드시 포함한다. reply에서 분리를 설명만 하고 suggestedCards를 비우면 안 된다. 분리 요청이 없으면 suggestedCards는 빈 배열로 둔다.",
	}, "\n")
}

func buildCoachRetryPrompt(mode CoachMode, userMessage string, c candidate.Candidate) string {
	return strings.Join([]string{
		"아래 정보로 KPI 코칭 답변을 다시 작성하세요.",
		"직전 답변이 중간에 끊겼으므로 반드시 완결형 문장으로 마무리해야 합니다.",
		"달성계획은 반드시 3~4개의 번호형 마일스톤(1., 2., 3.)으로 작성하세요.",
		"달성계획에는 날짜/기간 표기(YYYY-MM-DD, n월 n일, n주, n일)를 넣지 마세요.",
		"KPI산식은 반드시 탁월/우수/달성/노력/미흡의 5단계 기준값이 모두 포함되게 작성하세요.",
		"출력은 반드시 JSON 하나:",
		"{",
		`  "reply": "한국어 3~5문장, 마크다운/불릿 없이 완결형",`,
		`  "progress": {`,
		`    "baselineConfirmed": boolean,`,
		`    "formulaConfirmed": boolean,`,
		`    "targetConfirmed": boolean,`,
		`    "readyToApply": boolean`,
		"  },",
		`  "suggestedUpdates": {`,
		`    "goalCategory": "string",`,
		`    "kpiName": "string",`,
		`    "roleAndResponsibilities": "string",`,
		`    "kpiTask": "string",`,
		`    "achievementPlan": "string",`,
		`    "kpiFormula": "string",`,
		`    "achievementResult": "string"`,
		"  }",
		"}",
		"",
		"모드: " + string(mode),
		"사용자 최근 입력: " + orDash(userMessage),
		"목표구분: " + orDash(c.GoalCategory),
		"KPI명: " + orDash(c.KpiName),
		"KPI과제: " + orDash(c.KpiTask),
		"달성계획: " + orDash(c.AchievementPlan),
		"KPI산식: " + orDash(c.KpiFormula),
		"달성실적: " + orDash(c.AchievementResult),
	}, "\n")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
