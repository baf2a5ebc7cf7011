package models

import (
	"errors"
	"time"

	"golang.org/x/xerrors"
)

var (
	ErrInvalidTransition = errors.New("invalid job transition")
	ErrAlreadyClaimed    = errors.New("job already claimed")
)

type JobStatus int

const (
	JobStatusOpen JobStatus = iota
	JobStatusClaimed
	JobStatusCompleted
	JobStatusCancelled
)

func (s JobStatus) String() string {
	switch s {
	case JobStatusOpen:
		return "Open"
	case JobStatusClaimed:
		return "Claimed"
	case JobStatusCompleted:
		return "Completed"
	case JobStatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transition may leave this status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// GPU mirrors the registry contract record. Field names follow the
// contract's wire encoding.
type GPU struct {
	ID           int64  `json:"id"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	VramGB       int64  `json:"vram_gb"`
	PricePerHour int64  `json:"price_per_hour"`
	Available    bool   `json:"available"`
	TotalJobs    int64  `json:"total_jobs"`
	RegisteredAt int64  `json:"registered_at"`
}

// Job mirrors the marketplace contract record. Provider is empty until the
// job is claimed; ResultHash is empty until it is completed. PaymentAmount
// is fixed by the ledger at post time and never recomputed.
type Job struct {
	ID            int64     `json:"id"`
	Consumer      string    `json:"consumer"`
	Provider      string    `json:"provider,omitempty"`
	GpuID         int64     `json:"gpu_id"`
	Description   string    `json:"description"`
	ComputeHours  int64     `json:"compute_hours"`
	PaymentAmount int64     `json:"payment_amount"`
	Status        JobStatus `json:"status"`
	CreatedAt     int64     `json:"created_at"`
	ClaimedAt     int64     `json:"claimed_at,omitempty"`
	CompletedAt   int64     `json:"completed_at,omitempty"`
	ResultHash    string    `json:"result_hash,omitempty"`
}

// EnsureTransition rejects any lifecycle move the marketplace does not
// allow. Legal moves are Open->Claimed, Open->Cancelled, Claimed->Completed.
func EnsureTransition(from, to JobStatus) error {
	switch {
	case from == JobStatusOpen && to == JobStatusClaimed:
		return nil
	case from == JobStatusOpen && to == JobStatusCancelled:
		return nil
	case from == JobStatusClaimed && to == JobStatusCompleted:
		return nil
	}
	return xerrors.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition)
}

// EnsureClaimable is the claim-specific guard; a non-Open job fails with
// ErrAlreadyClaimed so callers can distinguish losing a claim race from a
// plainly illegal move.
func (j *Job) EnsureClaimable() error {
	if j.Status != JobStatusOpen {
		return xerrors.Errorf("job %d is %s: %w", j.ID, j.Status, ErrAlreadyClaimed)
	}
	return nil
}

// EnsureCancellable allows cancellation only while the job is still Open.
func (j *Job) EnsureCancellable() error {
	return EnsureTransition(j.Status, JobStatusCancelled)
}

// EnsureCompletable allows completion only from Claimed.
func (j *Job) EnsureCompletable() error {
	return EnsureTransition(j.Status, JobStatusCompleted)
}

// Notification is one entry of the bounded status feed.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkerRequest is the payload posted to the execution worker.
type WorkerRequest struct {
	JobID   int64  `json:"jobId"`
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

// WorkerResponse is the worker's verdict. Result may already be a
// content-store locator when the worker uploaded the artifact itself.
type WorkerResponse struct {
	Success    bool   `json:"success"`
	Transcript string `json:"transcript"`
	Result     string `json:"result"`
	Error      string `json:"error,omitempty"`
}
