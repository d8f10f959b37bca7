// Package ai implements the remote LLM enhancement engines and their
// shared prompt construction and error mapping.
package ai

import (
	"fmt"
	"strings"

	"quillscribe/internal/domain/model"
)

// buildPrompt renders the system instruction and user payload for one
// enhancement pass. The system part carries the mode contract; the user
// part is the raw text, untouched.
func buildPrompt(req model.EnhancementRequest) (system, user string) {
	st := req.Settings
	var b strings.Builder

	switch st.Mode {
	case model.ModeGrammarOnly:
		b.WriteString("Fix grammar, spelling and punctuation in the text. " +
			"Do not change wording, tone or structure.")
	case model.ModeStyle:
		b.WriteString("Improve the clarity and flow of the text while " +
			"preserving its meaning and voice.")
	case model.ModeSummarization:
		b.WriteString("Summarize the text, keeping the key points and " +
			"dropping repetition and filler.")
	case model.ModeFormalization:
		b.WriteString("Rewrite the text in a professional, formal register " +
			"suitable for business communication.")
	case model.ModeCustom:
		b.WriteString(strings.TrimSpace(st.CustomPrompt))
	default:
		b.WriteString("Fix grammar, spelling and punctuation in the text.")
	}

	if st.PreserveFormatting {
		b.WriteString(" Preserve the original line breaks and paragraph structure.")
	}
	if st.TargetAudience != "" && st.TargetAudience != "general" {
		fmt.Fprintf(&b, " The target audience is: %s.", st.TargetAudience)
	}
	if st.Tone != "" {
		fmt.Fprintf(&b, " Use a %s tone.", st.Tone)
	}
	if len(st.PreserveTerms) > 0 {
		fmt.Fprintf(&b, " Keep these terms exactly as written: %s.",
			strings.Join(st.PreserveTerms, ", "))
	}
	if st.MaxOutputLength > 0 {
		fmt.Fprintf(&b, " Keep the output under %d characters.", st.MaxOutputLength)
	}
	if req.Language != "" && req.Language != "auto" {
		fmt.Fprintf(&b, " The text language is %s; respond in the same language.", req.Language)
	}
	b.WriteString(" Return only the rewritten text, with no preamble or commentary.")

	return b.String(), req.Text
}

// improvementScore estimates how much of the text changed, 0..1. It is a
// coarse signal for the UI, not a quality metric.
func improvementScore(original, enhanced string) float64 {
	if original == enhanced {
		return 0
	}
	ow := strings.Fields(original)
	ew := strings.Fields(enhanced)
	if len(ow) == 0 || len(ew) == 0 {
		return 0
	}
	set := make(map[string]int, len(ow))
	for _, w := range ow {
		set[w]++
	}
	common := 0
	for _, w := range ew {
		if set[w] > 0 {
			set[w]--
			common++
		}
	}
	longer := len(ow)
	if len(ew) > longer {
		longer = len(ew)
	}
	score := 1 - float64(common)/float64(longer)
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	return score
}
