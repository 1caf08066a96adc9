// Package quality holds the Korean text-quality predicates shared by the
// assist pipeline: completeness heuristics, meta-leak detection, length
// windows, and date-token stripping.
//
// Every predicate here is tuned to Korean sentence-final grammar. Targeting
// another language means replacing this package, not patching call sites.
package quality

import (
	"regexp"
	"strings"
)

var (
	wrappingQuotes = regexp.MustCompile("^[\"'`]+|[\"'`]+$")

	danglingPunct      = regexp.MustCompile("[,\\-/:;(\"'`]\\s*$")
	danglingPunctReply = regexp.MustCompile("[,\\-/:;(\"'`*]\\s*$")
	bareConjunction    = regexp.MustCompile(`(및|또는|그리고)\s*$`)
	terminalPunct      = regexp.MustCompile(`[.?!]$`)
	sentenceFinal      = regexp.MustCompile(`(다|니다|합니다|였습니다)$`)
	sentenceFinalReply = regexp.MustCompile(`(다|요|니다|합니다|됩니다|였습니다)$`)

	markdownMarkers = regexp.MustCompile(`(?m)(\*{1,2}|^\d+\.)`)
	englishMetaWord = regexp.MustCompile(`(?i)(Final Polish|Enhancement|Good\.|No bullets|guide followed|characters)`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}[-./]\d{1,2}[-./]\d{1,2}`),
		regexp.MustCompile(`\d{1,2}월\s*\d{1,2}일`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}\b`),
		regexp.MustCompile(`\d{4}년\s*\d{1,2}월`),
		regexp.MustCompile(`\d{1,2}주`),
		regexp.MustCompile(`\d{1,2}일`),
	}
	multiSpace       = regexp.MustCompile(`\s{2,}`)
	trailingLineWS   = regexp.MustCompile(`[ \t]+\n`)
	collapseInternal = regexp.MustCompile(`\s+`)
)

// GradeKeywords lists the five performance tiers every KPI formula must enumerate.
var GradeKeywords = []string{"탁월", "우수", "달성", "노력", "미흡"}

// Cleanup trims surrounding whitespace and wrapping quote characters from
// provider output before it is surfaced or validated.
func Cleanup(text string) string {
	return strings.TrimSpace(wrappingQuotes.ReplaceAllString(strings.TrimSpace(text), ""))
}

// CollapseSpaces rewrites any whitespace run as a single space.
func CollapseSpaces(text string) string {
	return strings.TrimSpace(collapseInternal.ReplaceAllString(text, " "))
}

// IsLikelyIncomplete reports whether a free-text response looks cut off:
// empty, below the minimum length, dangling on punctuation or a bare
// conjunction, or missing a sentence-final closure.
func IsLikelyIncomplete(text string, minLen int) bool {
	normalized := strings.TrimSpace(text)
	if normalized == "" {
		return true
	}
	if len([]rune(normalized)) < minLen {
		return true
	}
	if danglingPunct.MatchString(normalized) {
		return true
	}
	if bareConjunction.MatchString(normalized) {
		return true
	}
	if !terminalPunct.MatchString(normalized) && !sentenceFinal.MatchString(normalized) {
		return true
	}
	return false
}

// IsLikelyIncompleteReply is the coach-reply variant: shorter floor, a wider
// dangling-character class, and an unbalanced-bold check for replies that were
// truncated inside markdown emphasis.
func IsLikelyIncompleteReply(text string) bool {
	normalized := strings.TrimSpace(text)
	if normalized == "" {
		return true
	}
	if len([]rune(normalized)) < 24 {
		return true
	}
	if danglingPunctReply.MatchString(normalized) {
		return true
	}
	if strings.Count(normalized, "**")%2 == 1 {
		return true
	}
	if !terminalPunct.MatchString(normalized) && !sentenceFinalReply.MatchString(normalized) {
		return true
	}
	return false
}

// IsMetaLike reports whether the text leaks generation process artifacts:
// markdown bullets or numbering, or stray English review vocabulary.
func IsMetaLike(text string) bool {
	normalized := strings.TrimSpace(text)
	if normalized == "" {
		return true
	}
	if markdownMarkers.MatchString(normalized) {
		return true
	}
	return englishMetaWord.MatchString(normalized)
}

// LengthOutOfRange reports whether the trimmed rune count falls outside [min, max].
func LengthOutOfRange(text string, min, max int) bool {
	n := len([]rune(strings.TrimSpace(text)))
	return n < min || n > max
}

// StripDateLike removes date and duration tokens (YYYY-MM-DD, N월 N일, N/N,
// YYYY년 N월, N주, N일) from plan text, then normalizes leftover whitespace.
func StripDateLike(text string) string {
	out := text
	for _, pattern := range datePatterns {
		out = pattern.ReplaceAllString(out, "")
	}
	out = multiSpace.ReplaceAllString(out, " ")
	out = trailingLineWS.ReplaceAllString(out, "\n")
	return strings.TrimSpace(out)
}

// ContainsDateLike reports whether any date or duration token survives in text.
func ContainsDateLike(text string) bool {
	for _, pattern := range datePatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// HasGradeScale reports whether the text enumerates all five grade tiers.
func HasGradeScale(text string) bool {
	for _, keyword := range GradeKeywords {
		if !strings.Contains(text, keyword) {
			return false
		}
	}
	return true
}

// GradeScaleBlock returns the canonical five-tier threshold block appended to
// KPI formulas that do not enumerate the scale themselves.
func GradeScaleBlock() string {
	return strings.Join([]string{
		"탁월: 120% 이상",
		"우수: 110% 이상",
		"달성: 100% 이상",
		"노력: 80% 이상",
		"미흡: 80% 미만",
	}, "\n")
}

// HasTargetSignal reports whether the text carries at least one digit,
// which the readiness checklist treats as a concrete target value.
func HasTargetSignal(text string) bool {
	return strings.ContainsAny(text, "0123456789")
}
