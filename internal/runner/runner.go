// Package runner executes one notification run for a team: fetch events,
// decide and compose notifications, dispatch them and record the outcome.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "team-notifier/internal/common/errors"
	"team-notifier/internal/common/logger"
	"team-notifier/internal/common/metrics"
	"team-notifier/internal/common/observability"
	"team-notifier/internal/messaging"
	"team-notifier/internal/models"
	"team-notifier/internal/runstate"
	"team-notifier/internal/source"
)

// Recorder persists the result of a run.
type Recorder interface {
	Record(ctx context.Context, run *models.RunResult) error
}

type Options struct {
	// DryRun composes every message but only logs it; nothing is persisted.
	DryRun bool
}

type Runner struct {
	TeamName   string
	Source     source.EventSource
	Directory  messaging.RecipientDirectory
	Sender     messaging.Sender
	State      runstate.Store
	Recorders  []Recorder
	Classifier messaging.Classifier
	Templates  messaging.TemplateBuilder
	Logger     logger.Logger
	Obs        *observability.Observability

	Now   func() time.Time
	NewID func() string
}

// Preview is a dry run together with the text each recipient would get.
type Preview struct {
	Result   *models.RunResult       `json:"result"`
	Messages []messaging.SentMessage `json:"messages"`
}

// Run performs one notification run. Team lookup, event fetch and recipient
// listing failures abort the run with an error. Individual send failures do
// not; they are counted in the result, and only a run where every send
// failed returns an error.
func (r *Runner) Run(ctx context.Context, opts Options) (*models.RunResult, error) {
	sender := r.Sender
	if opts.DryRun {
		sender = messaging.NewLogSender(r.Logger)
	}
	return r.run(ctx, opts, sender)
}

// Preview performs a dry run and returns the composed messages.
func (r *Runner) Preview(ctx context.Context) (*Preview, error) {
	sender := messaging.NewLogSender(r.Logger)
	result, err := r.run(ctx, Options{DryRun: true}, sender)
	if err != nil {
		return nil, err
	}
	return &Preview{Result: result, Messages: sender.Messages()}, nil
}

func (r *Runner) run(ctx context.Context, opts Options, sender messaging.Sender) (*models.RunResult, error) {
	now := r.now()
	result := &models.RunResult{
		RunID:     r.newID(),
		TeamName:  r.TeamName,
		Channel:   sender.Channel(),
		StartedAt: now,
	}
	log := r.Logger.WithFields(map[string]interface{}{
		"runId":  result.RunID,
		"team":   r.TeamName,
		"dryRun": opts.DryRun,
	})
	log.Info("Notification run started", nil)

	ctx, span := r.Obs.StartSpan(ctx, "notifier.run",
		attribute.String("team", r.TeamName),
		attribute.Bool("dryRun", opts.DryRun),
	)
	defer span.End()

	fail := func(err error) (*models.RunResult, error) {
		result.Outcome = models.OutcomeFailed
		result.FinishedAt = r.now()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.observe(ctx, result)
		log.Error("Notification run failed", map[string]interface{}{"error": err})
		return result, err
	}

	events, err := r.fetch(ctx, result)
	if err != nil {
		return fail(err)
	}

	classifier := r.Classifier
	if r.State != nil {
		lastRun, ok, err := r.State.LastRun(ctx, result.TeamID)
		switch {
		case err != nil:
			result.Warnings = append(result.Warnings, err.Error())
			log.Warn("Last run unavailable, using rolling edit window", map[string]interface{}{"error": err})
		case ok:
			classifier = classifier.WithLastRun(lastRun)
		}
	}

	_, evalSpan := r.Obs.StartSpan(ctx, "notifier.evaluate", attribute.Int("events", len(events)))
	evaluator := &messaging.Evaluator{Classifier: classifier, Templates: r.Templates, NewID: r.NewID}
	result.Notifications = evaluator.Evaluate(events, now)
	evalSpan.End()

	for _, n := range result.Notifications {
		metrics.NotificationsTotal.WithLabelValues(string(n.Reason), string(n.EventType)).Inc()
	}

	if len(result.Notifications) == 0 {
		log.Info("No upcoming team events scheduled", map[string]interface{}{"events": len(events)})
		result.Outcome = models.OutcomeNothingToSend
		if opts.DryRun {
			result.Outcome = models.OutcomeDryRun
		}
	} else {
		if err := r.dispatch(ctx, result, sender); err != nil {
			return fail(err)
		}
		if result.Sent == 0 && result.Failed == 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("no recipients for %d notifications", len(result.Notifications)))
			log.Warn("Recipient directory is empty", map[string]interface{}{
				"notifications": len(result.Notifications),
			})
		}
		result.Outcome = outcome(result, opts.DryRun)
	}
	result.FinishedAt = r.now()

	if !opts.DryRun {
		r.persist(ctx, result, log)
	}
	r.observe(ctx, result)

	log.Info("Notification run finished", map[string]interface{}{
		"outcome":       result.Outcome,
		"notifications": len(result.Notifications),
		"sent":          result.Sent,
		"failed":        result.Failed,
		"durationMs":    result.Duration().Milliseconds(),
	})

	if result.Outcome == models.OutcomeFailed {
		err := apperrors.NewNotificationSendFailedError(sender.Channel(), "*",
			fmt.Errorf("all %d sends failed", result.Failed))
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	return result, nil
}

func (r *Runner) fetch(ctx context.Context, result *models.RunResult) ([]models.Event, error) {
	ctx, span := r.Obs.StartSpan(ctx, "notifier.fetch")
	defer span.End()

	teamID, err := r.Source.ResolveTeamID(ctx, r.TeamName)
	if err != nil {
		return nil, err
	}
	result.TeamID = teamID
	span.SetAttributes(attribute.Int64("teamId", teamID))

	events, err := r.Source.ListEvents(ctx, teamID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("events", len(events)))
	return events, nil
}

func (r *Runner) dispatch(ctx context.Context, result *models.RunResult, sender messaging.Sender) error {
	ctx, span := r.Obs.StartSpan(ctx, "notifier.dispatch",
		attribute.Int("notifications", len(result.Notifications)),
		attribute.String("channel", sender.Channel()),
	)
	defer span.End()

	d := &messaging.Dispatcher{
		Directory:  r.Directory,
		Attendance: r.Source,
		Sender:     sender,
		Logger:     r.Logger,
		Now:        r.Now,
	}
	report, err := d.Dispatch(ctx, result.Notifications)
	if report != nil {
		result.Deliveries = report.Deliveries
		result.Warnings = append(result.Warnings, report.Warnings...)
		result.Sent = report.Sent
		result.Failed = report.Failed
		for _, dl := range report.Deliveries {
			metrics.SendsTotal.WithLabelValues(sender.Channel(), dl.Status).Inc()
		}
	}
	if err == nil {
		return nil
	}
	if apperrors.HasCode(err, apperrors.ErrCodeRosterFetchFailed) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	// send failures are already recorded per delivery
	return nil
}

// persist writes the run to every recorder and advances the team's last run.
// These are best effort: the messages have already gone out.
func (r *Runner) persist(ctx context.Context, result *models.RunResult, log logger.Logger) {
	for _, rec := range r.Recorders {
		if err := rec.Record(ctx, result); err != nil {
			result.Warnings = append(result.Warnings, err.Error())
			log.Error("Failed to record run", map[string]interface{}{"error": err})
		}
	}

	// nobody was told, so pending edits must still count as unseen next run
	if r.State == nil || result.Outcome == models.OutcomeFailed || result.Outcome == models.OutcomeNoRecipients {
		return
	}
	if err := r.State.SaveLastRun(ctx, result.TeamID, result.StartedAt); err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		log.Error("Failed to save last run", map[string]interface{}{"error": err})
	}
}

func (r *Runner) observe(ctx context.Context, result *models.RunResult) {
	metrics.RunsTotal.WithLabelValues(string(result.Outcome)).Inc()
	metrics.RunDuration.Observe(result.Duration().Seconds())
	r.Obs.RecordRun(ctx, string(result.Outcome), result.Duration())
}

func outcome(result *models.RunResult, dryRun bool) models.RunOutcome {
	switch {
	case dryRun:
		return models.OutcomeDryRun
	case result.Sent == 0 && result.Failed == 0:
		return models.OutcomeNoRecipients
	case result.Failed > 0 && result.Sent == 0:
		return models.OutcomeFailed
	case result.Failed > 0:
		return models.OutcomePartial
	default:
		return models.OutcomeSent
	}
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Runner) newID() string {
	if r.NewID == nil {
		return uuid.NewString()
	}
	return r.NewID()
}
