package domain

import "time"

type Status string

const (
	StatusPending      Status = "pending"
	StatusCompiling    Status = "compiling"
	StatusCompileError Status = "compile_error"
	StatusJudging      Status = "judging"
	StatusDone         Status = "done"
	StatusError        Status = "error"
)

// Terminal reports whether the status ends the submission lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompileError || s == StatusDone || s == StatusError
}

// InFlight reports whether a crash could have left the submission mid-pipeline.
func (s Status) InFlight() bool {
	return s == StatusCompiling || s == StatusJudging
}

type Submission struct {
	ID      string    `json:"id"` // "{user}/{uuid}", globally unique
	User    string    `json:"user"`
	Role    string    `json:"role"`
	Time    time.Time `json:"time"`
	Status  Status    `json:"status"`
	Message string    `json:"message"`

	// UpdatedAt is set on every status transition.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Slot is the per-user-per-role pointer to the current submission.
// A zero Time means the rate limit does not apply to the next attempt.
type Slot struct {
	User         string    `json:"user"`
	Role         string    `json:"role"`
	SubmissionID string    `json:"submissionId"`
	Time         time.Time `json:"time"`
}

// QueueEntry is one element of the durable judging queue.
type QueueEntry struct {
	Role         string `json:"role"`
	User         string `json:"user"`
	SubmissionID string `json:"submissionId"`
}
