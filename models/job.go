package models

import (
	"strconv"
	"time"
)

// JobStatus represents the current state of a comparison job in the job log
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusExtracting JobStatus = "extracting"
	StatusDiffing    JobStatus = "diffing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusSuperseded JobStatus = "superseded"
)

// JobRecord is the log entry for one comparison job. It never carries diff content.
type JobRecord struct {
	SessionID    string    `json:"session_id" db:"session_id"`
	JobID        int64     `json:"job_id" db:"job_id"`
	Baseline     string    `json:"baseline" db:"baseline"`
	Revised      string    `json:"revised" db:"revised"`
	Status       JobStatus `json:"status" db:"status"`
	Mode         string    `json:"mode,omitempty" db:"mode"`
	Advisory     string    `json:"advisory,omitempty" db:"advisory"`
	ErrorKind    string    `json:"error_kind,omitempty" db:"error_kind"`
	ErrorMessage string    `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Key identifies the record across sessions.
func (r JobRecord) Key() string {
	return r.SessionID + "-" + strconv.FormatInt(r.JobID, 10)
}
