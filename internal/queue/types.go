package queue

import "time"

// ProgressSnapshot is published after every reconciled page so pollers can
// watch a run without hitting the task store.
type ProgressSnapshot struct {
	TaskID    string    `json:"task_id"`
	Source    string    `json:"source"`
	Page      int       `json:"page"`
	Collected int       `json:"collected"`
	Updated   int       `json:"updated"`
	Errors    int       `json:"errors"`
	Timestamp time.Time `json:"timestamp"`
}

// LinkReport is a user-reported dead playback link, queued for the validator's
// immediate single-record path.
type LinkReport struct {
	VideoID    string    `json:"vod_id"`
	VideoName  string    `json:"vod_name,omitempty"`
	PlayURL    string    `json:"play_url"`
	ErrorType  string    `json:"error_type,omitempty"`
	ReportedAt time.Time `json:"reported_at"`
}
