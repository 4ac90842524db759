package teameventnotify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "team-notifier/internal/common/errors"
	"team-notifier/internal/common/logger"
	"team-notifier/internal/models"
	"team-notifier/internal/runner"
	"team-notifier/pkg/registry"
)

// ==========================
// Mocks
// ==========================

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Run(ctx context.Context, opts runner.Options) (*models.RunResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RunResult), args.Error(1)
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "team-notifications",
		CustomHeaders:      "{}",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func createTestHandler(t *testing.T, notifier Notifier, teams *[]string) *Handler {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	activity, ok := reg.Find(TaskType)
	require.True(t, ok)

	cfg := &Config{Timeout: 10 * time.Second}
	return NewHandler(cfg, activity, func(teamName string) (Notifier, error) {
		if teams != nil {
			*teams = append(*teams, teamName)
		}
		return notifier, nil
	}, logger.NewTestLogger(t))
}

func sampleResult() *models.RunResult {
	started := time.Date(2024, time.June, 10, 18, 0, 0, 0, time.UTC)
	return &models.RunResult{
		RunID:         "run-1",
		TeamID:        7,
		TeamName:      "Trouble Blueing",
		Outcome:       models.OutcomePartial,
		Notifications: []models.Notification{{ID: "n1"}, {ID: "n2"}},
		Sent:          5,
		Failed:        1,
		Warnings:      []string{"ATTENDANCE_FETCH_FAILED: timeout"},
		StartedAt:     started,
		FinishedAt:    started.Add(1500 * time.Millisecond),
	}
}

// ==========================
// Input
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := createTestHandler(t, &MockNotifier{}, nil)

	tests := []struct {
		name     string
		vars     map[string]interface{}
		want     *Input
		wantCode apperrors.ErrorCode
	}{
		{
			name: "team and dry run",
			vars: map[string]interface{}{"teamName": "Trouble Blueing", "dryRun": true},
			want: &Input{TeamName: "Trouble Blueing", DryRun: true},
		},
		{
			name: "other process variables ignored",
			vars: map[string]interface{}{"teamName": "Trouble Blueing", "season": "fall"},
			want: &Input{TeamName: "Trouble Blueing"},
		},
		{
			name:     "missing team",
			vars:     map[string]interface{}{},
			wantCode: apperrors.ErrCodeInvalidJobInput,
		},
		{
			name:     "wrong type",
			vars:     map[string]interface{}{"teamName": 42},
			wantCode: apperrors.ErrCodeInvalidJobInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.ParseInput(tt.vars)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandler_ParseInput_DefaultTeam(t *testing.T) {
	h := createTestHandler(t, &MockNotifier{}, nil)
	h.config.DefaultTeam = "Trouble Blueing"

	got, err := h.ParseInput(map[string]interface{}{"dryRun": true})
	require.NoError(t, err)
	assert.Equal(t, "Trouble Blueing", got.TeamName)
	assert.True(t, got.DryRun)
}

// ==========================
// Execution
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	n := &MockNotifier{}
	n.On("Run", mock.Anything, runner.Options{DryRun: true}).Return(sampleResult(), nil)

	var teams []string
	h := createTestHandler(t, n, &teams)

	out, err := h.Execute(context.Background(), &Input{TeamName: "Trouble Blueing", DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"Trouble Blueing"}, teams)
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, models.OutcomePartial, out.Outcome)
	assert.Equal(t, 2, out.Notifications)
	assert.Equal(t, 5, out.Sent)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, int64(1500), out.DurationMs)
	n.AssertExpectations(t)

	// the output must satisfy the registry's output schema
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.NoError(t, h.activity.ValidateOutput(doc))
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    apperrors.ErrorCode
		wantRetries int
	}{
		{"unknown team is a business error", apperrors.NewTeamNotFoundError("Nobody"), apperrors.ErrCodeTeamNotFound, 0},
		{"bad credentials", apperrors.NewSourceAuthFailedError(errors.New("401")), apperrors.ErrCodeSourceAuthFailed, 0},
		{"source outage is retried", apperrors.NewEventFetchFailedError(7, errors.New("timeout")), apperrors.ErrCodeEventFetchFailed, 3},
		{"all sends failed is retried", apperrors.NewNotificationSendFailedError("twilio", "*", errors.New("down")), apperrors.ErrCodeNotificationSend, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &MockNotifier{}
			n.On("Run", mock.Anything, runner.Options{}).Return(nil, tt.err)
			h := createTestHandler(t, n, nil)

			_, err := h.Execute(context.Background(), &Input{TeamName: "Trouble Blueing"})
			require.Error(t, err)

			bpmn := apperrors.ConvertToBPMNError(apperrors.Normalize(err))
			assert.Equal(t, string(tt.wantCode), bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)
		})
	}
}

func TestHandler_Execute_FactoryError(t *testing.T) {
	h := createTestHandler(t, &MockNotifier{}, nil)
	h.notifiers = func(string) (Notifier, error) { return nil, errors.New("postgres recipients need database.postgres.enabled") }

	_, err := h.Execute(context.Background(), &Input{TeamName: "Trouble Blueing"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidConfig))
}

func TestHandler_HandleJobVariables(t *testing.T) {
	n := &MockNotifier{}
	n.On("Run", mock.Anything, runner.Options{}).Return(sampleResult(), nil)
	h := createTestHandler(t, n, nil)

	out, err := h.handle(context.Background(), createMockJob(1, map[string]interface{}{"teamName": "Trouble Blueing"}))
	require.NoError(t, err)
	assert.Equal(t, "run-1", out.RunID)

	_, err = h.handle(context.Background(), createMockJob(2, map[string]interface{}{"dryRun": "yes"}))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidJobInput))
}
