package teameventnotify

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "team-notifier/internal/common/errors"
	"team-notifier/internal/common/logger"
	"team-notifier/internal/common/metrics"
	"team-notifier/internal/models"
	"team-notifier/internal/runner"
	"team-notifier/pkg/registry"
)

const (
	TaskType = "team-event-notify"
)

// Notifier performs one notification run.
type Notifier interface {
	Run(ctx context.Context, opts runner.Options) (*models.RunResult, error)
}

// NotifierFactory returns the notifier for a team.
type NotifierFactory func(teamName string) (Notifier, error)

type Handler struct {
	config    *Config
	activity  *registry.Activity
	notifiers NotifierFactory
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, activity *registry.Activity, notifiers NotifierFactory, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		activity:  activity,
		notifiers: notifiers,
		errors:    apperrors.NewErrorHandler(log),
		logger:    log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("Processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
		"retries":     job.Retries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.handle(ctx, job)
	if err != nil {
		code := apperrors.Normalize(err).Code
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(code)).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) handle(ctx context.Context, job entities.Job) (*Output, error) {
	vars, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, apperrors.NewInvalidJobInputError(fmt.Sprintf("parse variables: %v", err))
	}
	input, err := h.ParseInput(vars)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, input)
}

// ParseInput validates job variables against the activity's input schema.
func (h *Handler) ParseInput(vars map[string]interface{}) (*Input, error) {
	if _, ok := vars["teamName"]; !ok && h.config.DefaultTeam != "" {
		vars["teamName"] = h.config.DefaultTeam
	}
	if h.activity != nil {
		if err := h.activity.ValidateInput(vars); err != nil {
			return nil, apperrors.NewInvalidJobInputError(err.Error())
		}
	}

	input := &Input{}
	input.TeamName, _ = vars["teamName"].(string)
	input.DryRun, _ = vars["dryRun"].(bool)
	if input.TeamName == "" {
		return nil, apperrors.NewInvalidJobInputError("teamName is required")
	}
	return input, nil
}

// Execute runs the notifier for the input's team.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	n, err := h.notifiers(input.TeamName)
	if err != nil {
		return nil, apperrors.NewInvalidConfigError(err.Error())
	}

	result, err := n.Run(ctx, runner.Options{DryRun: input.DryRun})
	if err != nil {
		return nil, err
	}
	return newOutput(result), nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("Job completed", map[string]interface{}{
		"jobKey":  job.Key,
		"outcome": output.Outcome,
		"sent":    output.Sent,
		"failed":  output.Failed,
	})
}
