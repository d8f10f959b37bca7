package model

import "time"

// TranscriptionProvider identifies a local speech-to-text model variant.
type TranscriptionProvider string

const (
	WhisperTiny   TranscriptionProvider = "whisper-tiny"
	WhisperBase   TranscriptionProvider = "whisper-base"
	WhisperSmall  TranscriptionProvider = "whisper-small"
	WhisperMedium TranscriptionProvider = "whisper-medium"
	WhisperLarge  TranscriptionProvider = "whisper-large"
)

// TranscriptionRequest describes one audio file to transcribe.
// It is immutable after submission.
type TranscriptionRequest struct {
	AudioFilePath string
	Language      string // "auto" enables detection
	Provider      TranscriptionProvider
	CorrelationID string // e.g. recording id, used for the best-effort store push
	Timeout       time.Duration
	MaxRetries    int
}

type WordTimestamp struct {
	Word  string
	Start time.Duration
	End   time.Duration
}

// Transcription is the result of a completed transcription job.
type Transcription struct {
	ID             string
	Text           string
	Confidence     float64 // 0..1
	Language       string
	Provider       TranscriptionProvider
	ProcessingTime time.Duration
	WordTimestamps []WordTimestamp
	Metadata       map[string]string
}

func (t *Transcription) SizeBytes() int {
	n := len(t.Text) + len(t.ID) + len(t.Language) + len(string(t.Provider))
	for _, w := range t.WordTimestamps {
		n += len(w.Word) + 16
	}
	for k, v := range t.Metadata {
		n += len(k) + len(v)
	}
	return n
}
