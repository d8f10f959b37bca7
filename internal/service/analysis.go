package service

import (
	"math"
	"regexp"
	"strings"

	"quillscribe/internal/domain/model"
)

// Heuristic text analysis backing the mode-suggestion surface. These are
// coarse, dependency-free signals for the UI, not a grammar checker; the
// actual rewriting is the engine's job.

var (
	commonMisspellings = []string{"teh", "recieve", "occured", "seperate", "definately"}

	reTeh     = regexp.MustCompile(`\bteh\b`)
	reItsOwn  = regexp.MustCompile(`\bit's\s+own\b`)
	rePassive = regexp.MustCompile(`\b(was|were)\s+\w+ed\b`)
)

func countSentences(text string) int {
	return strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
}

// grammarQuality scores down 0.1 per misspelling found, floor 0.
func grammarQuality(text string) float64 {
	lower := strings.ToLower(text)
	issues := 0
	for _, w := range commonMisspellings {
		if strings.Contains(lower, w) {
			issues++
		}
	}
	return math.Max(0, 1-float64(issues)/10)
}

// styleQuality scores sentence length against an optimal average of
// 17.5 words. Text with no sentence punctuation scores a neutral 0.5.
func styleQuality(text string) float64 {
	sentences := countSentences(text)
	if sentences == 0 {
		return 0.5
	}
	avg := float64(model.WordCount(text)) / float64(sentences)
	return clamp01(1 - math.Abs(avg-17.5)/17.5)
}

// clarityQuality scores average word length against an optimum of 5
// characters. Empty text scores a neutral 0.5.
func clarityQuality(text string) float64 {
	words := model.WordCount(text)
	if words == 0 {
		return 0.5
	}
	avg := float64(len(text)) / float64(words)
	return clamp01(1 - math.Abs(avg-5)/5)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// DetectLanguage guesses the language of text. The heuristic is biased
// to English, matching the transcription default; callers needing real
// detection pass an explicit Language on the request instead.
func (s *EnhancementService) DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return "en"
}

// AssessTextQuality returns a 0..1 heuristic quality score, weighting
// grammar 40%, sentence style 30% and word-level clarity 30%.
func (s *EnhancementService) AssessTextQuality(text string) float64 {
	return grammarQuality(text)*0.4 + styleQuality(text)*0.3 + clarityQuality(text)*0.3
}

// IdentifyIssues lists coarse writing problems found in text, one entry
// per occurrence, prefixed by category.
func (s *EnhancementService) IdentifyIssues(text string) []string {
	var issues []string
	lower := strings.ToLower(text)

	if reTeh.MatchString(lower) {
		issues = append(issues, "Spelling: 'teh' should be 'the'")
	}
	if reItsOwn.MatchString(lower) {
		issues = append(issues, "Grammar: consider 'its own' instead of 'it's own'")
	}
	for _, sentence := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		if model.WordCount(sentence) > 25 {
			issues = append(issues, "Style: consider breaking up long sentences")
		}
	}
	if rePassive.MatchString(lower) {
		issues = append(issues, "Readability: consider using active voice")
	}
	return issues
}

// SuggestBestMode picks the enhancement mode most likely to help text:
// grammar-dominant issues suggest a grammar pass, long texts a summary,
// low overall quality a style rewrite, and clean text formalization.
func (s *EnhancementService) SuggestBestMode(text string) model.EnhancementMode {
	grammarIssues, styleIssues := 0, 0
	for _, issue := range s.IdentifyIssues(text) {
		l := strings.ToLower(issue)
		if strings.Contains(l, "grammar") || strings.Contains(l, "spelling") {
			grammarIssues++
		} else {
			styleIssues++
		}
	}

	switch {
	case grammarIssues > styleIssues*2:
		return model.ModeGrammarOnly
	case model.WordCount(text) > 500:
		return model.ModeSummarization
	case s.AssessTextQuality(text) < 0.6:
		return model.ModeStyle
	default:
		return model.ModeFormalization
	}
}
