package model

import (
	"time"

	"quillscribe/internal/domain"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether no further transition can occur from s.
// A failed job with retry budget left is resurrected by the retry
// scheduler through an explicit failed->pending transition, so "failed"
// is only conditionally terminal; that decision lives with the caller.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Result is the payload a completed job carries. Implementations also
// feed the result cache, which budgets by approximate in-memory size.
type Result interface {
	SizeBytes() int
}

// Job is the ledger's record of one submitted unit of work.
// All mutation happens inside the ledger under its lock; reads outside
// the ledger always see a copy.
type Job struct {
	ID            string
	CorrelationID string
	Provider      string
	Fingerprint   string

	Status  JobStatus
	Result  Result
	ErrKind domain.ErrorKind
	ErrMsg  string

	Retries    int
	MaxRetries int
	Timeout    time.Duration

	SubmittedAt      time.Time
	LastTransitionAt time.Time
}
