package model

import (
	"strings"
	"time"
)

// EnhancementMode selects how the language model rewrites the text.
type EnhancementMode string

const (
	ModeGrammarOnly   EnhancementMode = "grammar"
	ModeStyle         EnhancementMode = "style"
	ModeSummarization EnhancementMode = "summarize"
	ModeFormalization EnhancementMode = "formalize"
	ModeCustom        EnhancementMode = "custom"
)

// EnhancementProvider identifies a remote language-model backend.
type EnhancementProvider string

const (
	GeminiPro   EnhancementProvider = "gemini-pro"
	GeminiFlash EnhancementProvider = "gemini-flash"
	LocalLLM    EnhancementProvider = "local-llm"
)

// EnhancementSettings tune a single enhancement pass.
type EnhancementSettings struct {
	Mode               EnhancementMode
	CustomPrompt       string // required when Mode == ModeCustom
	PreserveFormatting bool
	MaxOutputLength    int
	Creativity         float64 // 0.0 conservative .. 1.0 creative
	TargetAudience     string
	Tone               string
	PreserveTerms      []string
}

// EnhancementRequest describes one text to enhance. Immutable after submission.
type EnhancementRequest struct {
	Text          string
	Settings      EnhancementSettings
	Provider      EnhancementProvider
	Language      string
	CorrelationID string
	Timeout       time.Duration
	MaxRetries    int
}

// EnhancedText is the result of a completed enhancement job.
type EnhancedText struct {
	ID               string
	Original         string
	Enhanced         string
	Mode             EnhancementMode
	Provider         EnhancementProvider
	ProcessingTime   time.Duration
	ImprovementScore float64 // 0..1 quality delta estimate
	Metadata         map[string]string
}

func (e *EnhancedText) SizeBytes() int {
	n := len(e.Original) + len(e.Enhanced) + len(e.ID)
	for k, v := range e.Metadata {
		n += len(k) + len(v)
	}
	return n
}

// DefaultSettings returns the per-mode defaults the original UI offers.
func DefaultSettings(mode EnhancementMode) EnhancementSettings {
	s := EnhancementSettings{
		Mode:               mode,
		PreserveFormatting: true,
		MaxOutputLength:    10000,
		Creativity:         0.3,
		TargetAudience:     "general",
		Tone:               "professional",
	}
	switch mode {
	case ModeGrammarOnly:
		s.Creativity = 0.1
	case ModeSummarization:
		s.Creativity = 0.2
		s.MaxOutputLength = 2000
	case ModeStyle:
		s.Creativity = 0.5
	}
	return s
}

// ModeDescription is used by provider/mode introspection surfaces.
func ModeDescription(mode EnhancementMode) string {
	switch mode {
	case ModeGrammarOnly:
		return "Fix grammar and punctuation only"
	case ModeStyle:
		return "Improve clarity and flow"
	case ModeSummarization:
		return "Condense key points"
	case ModeFormalization:
		return "Make more professional and formal"
	case ModeCustom:
		return "Apply a user-defined instruction"
	default:
		return "Unknown mode"
	}
}

// WordCount counts whitespace-separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
