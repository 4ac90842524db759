package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "team-notifier/internal/common/errors"
	"team-notifier/internal/models"
)

var finished = time.Date(2024, time.June, 10, 18, 0, 5, 0, time.UTC)

func testRun() *models.RunResult {
	return &models.RunResult{
		RunID:    "run-1",
		TeamID:   7,
		TeamName: "Trouble Blueing",
		Channel:  "twilio",
		Outcome:  models.OutcomePartial,
		Notifications: []models.Notification{
			{ID: "n1", Reason: models.ReasonReminder, EventID: 55},
		},
		Deliveries: []models.Delivery{
			{NotificationID: "n1", EventID: 55, Reason: models.ReasonReminder, RecipientID: "101", Address: "+15550000101",
				Status: models.DeliverySent, ProviderID: "SM1", SentAt: "2024-06-10T18:00:01Z"},
			{NotificationID: "n1", EventID: 55, Reason: models.ReasonReminder, RecipientID: "102", Address: "+15550000102",
				Status: models.DeliveryFailed, Error: "carrier rejected", SentAt: "2024-06-10T18:00:02Z"},
		},
		Sent:       1,
		Failed:     1,
		StartedAt:  finished.Add(-5 * time.Second),
		FinishedAt: finished,
	}
}

// ==========================
// Postgres delivery log
// ==========================

func TestPostgresLog_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO notification_deliveries"))
	prep.ExpectExec().
		WithArgs("run-1", "n1", int64(7), int64(55), "reminder", "101", "+15550000101", "twilio", "sent", "SM1", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs("run-1", "n1", int64(7), int64(55), "reminder", "102", "+15550000102", "twilio", "failed", nil, "carrier rejected", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, NewPostgresLog(db).Record(context.Background(), testRun()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLog_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO notification_deliveries")
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = NewPostgresLog(db).Record(context.Background(), testRun())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDeliveryLogFailed))
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLog_NothingToRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewPostgresLog(db).Record(context.Background(), &models.RunResult{RunID: "run-2"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Elasticsearch run index
// ==========================

func newESClient(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestRunIndex_Record(t *testing.T) {
	var got runDocument
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/team-notifier-runs/_doc/run-1", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created","_id":"run-1"}`))
	})

	require.NoError(t, NewRunIndex(client, "team-notifier-runs").Record(context.Background(), testRun()))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, models.OutcomePartial, got.Outcome)
	assert.Equal(t, 1, got.Notifications)
	assert.Equal(t, []models.Reason{models.ReasonReminder}, got.Reasons)
	assert.Equal(t, 1, got.Failed)
	assert.True(t, got.FinishedAt.Equal(finished))
}

func TestRunIndex_RecordError(t *testing.T) {
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"type":"security_exception"}}`))
	})

	err := NewRunIndex(client, "team-notifier-runs").Record(context.Background(), testRun())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDeliveryLogFailed))
	assert.ErrorContains(t, err, "security_exception")
}
