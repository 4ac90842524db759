package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("run failed: %w", NewTeamNotFoundError("Trouble Blueing"))

	assert.True(t, HasCode(err, ErrCodeTeamNotFound))
	assert.False(t, HasCode(err, ErrCodeEventFetchFailed))
	assert.False(t, HasCode(stderrors.New("plain"), ErrCodeTeamNotFound))
}

func TestStandardError_UnwrapsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewEventFetchFailedError(42, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "connection refused", err.Details)
	assert.Equal(t, int64(42), err.Metadata["teamId"])
	assert.Contains(t, err.Error(), "EVENT_FETCH_FAILED")
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantRetries int
	}{
		{"team not found is terminal", NewTeamNotFoundError("x"), 0},
		{"event fetch retries", NewEventFetchFailedError(1, stderrors.New("boom")), 3},
		{"attendance fetch retries less", NewAttendanceFetchFailedError(1, stderrors.New("boom")), 2},
		{"auth failure is terminal", NewSourceAuthFailedError(stderrors.New("bad key")), 0},
		{"invalid input is terminal", NewInvalidJobInputError("teamName missing"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, string(tt.err.Code), bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)
			assert.Equal(t, string(tt.err.Code), bpmn.ErrorVariables["originalErrorCode"])

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, bpmn.Code, vars["errorCode"])
		})
	}
}

func TestNormalize(t *testing.T) {
	std := Normalize(stderrors.New("unexpected"))
	require.NotNil(t, std)
	assert.Equal(t, ErrCodeInternal, std.Code)
	assert.False(t, std.Retryable)

	orig := NewRosterFetchFailedError(stderrors.New("timeout"))
	assert.Same(t, orig, Normalize(fmt.Errorf("wrapped: %w", orig)))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "SOURCE", GetErrorCategory(ErrCodeTeamNotFound))
	assert.Equal(t, "SOURCE", GetErrorCategory(ErrCodeAttendanceFetch))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeNotificationSend))
	assert.Equal(t, "STORAGE", GetErrorCategory(ErrCodeRunStateFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidJobInput))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
