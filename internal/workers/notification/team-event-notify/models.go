package teameventnotify

import "team-notifier/internal/models"

type Input struct {
	TeamName string `json:"teamName"`
	DryRun   bool   `json:"dryRun"`
}

// Output is written back to the process instance.
type Output struct {
	RunID         string            `json:"runId"`
	TeamID        int64             `json:"teamId"`
	Outcome       models.RunOutcome `json:"outcome"`
	Notifications int               `json:"notifications"`
	Sent          int               `json:"sent"`
	Failed        int               `json:"failed"`
	Warnings      []string          `json:"warnings,omitempty"`
	DurationMs    int64             `json:"durationMs"`
}

func newOutput(r *models.RunResult) *Output {
	return &Output{
		RunID:         r.RunID,
		TeamID:        r.TeamID,
		Outcome:       r.Outcome,
		Notifications: len(r.Notifications),
		Sent:          r.Sent,
		Failed:        r.Failed,
		Warnings:      r.Warnings,
		DurationMs:    r.Duration().Milliseconds(),
	}
}
