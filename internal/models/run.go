package models

import "time"

// RunOutcome summarizes how a notification run ended.
type RunOutcome string

const (
	OutcomeSent          RunOutcome = "sent"
	OutcomePartial       RunOutcome = "partial"
	OutcomeNothingToSend RunOutcome = "nothing_to_send"
	OutcomeDryRun        RunOutcome = "dry_run"
	OutcomeFailed        RunOutcome = "failed"
	// notifications were due but the directory listed nobody
	OutcomeNoRecipients RunOutcome = "no_recipients"
)

// RunResult is the outcome of one notification run for one team.
type RunResult struct {
	RunID         string         `json:"runId"`
	TeamID        int64          `json:"teamId"`
	TeamName      string         `json:"teamName"`
	Channel       string         `json:"channel"`
	Outcome       RunOutcome     `json:"outcome"`
	Notifications []Notification `json:"notifications"`
	Deliveries    []Delivery     `json:"deliveries,omitempty"`
	Sent          int            `json:"sent"`
	Failed        int            `json:"failed"`
	Warnings      []string       `json:"warnings,omitempty"`
	StartedAt     time.Time      `json:"startedAt"`
	FinishedAt    time.Time      `json:"finishedAt"`
}

func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
