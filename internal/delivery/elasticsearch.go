package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	apperrors "team-notifier/internal/common/errors"
	"team-notifier/internal/models"
)

type runDocument struct {
	RunID         string            `json:"runId"`
	TeamID        int64             `json:"teamId"`
	TeamName      string            `json:"teamName"`
	Outcome       models.RunOutcome `json:"outcome"`
	Channel       string            `json:"channel"`
	Notifications int               `json:"notifications"`
	Reasons       []models.Reason   `json:"reasons,omitempty"`
	Sent          int               `json:"sent"`
	Failed        int               `json:"failed"`
	Warnings      []string          `json:"warnings,omitempty"`
	StartedAt     time.Time         `json:"startedAt"`
	FinishedAt    time.Time         `json:"finishedAt"`
}

// RunIndex writes one summary document per run, keyed by run id.
type RunIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewRunIndex(client *elasticsearch.Client, index string) *RunIndex {
	return &RunIndex{client: client, index: index}
}

func newRunDocument(run *models.RunResult) runDocument {
	doc := runDocument{
		RunID:         run.RunID,
		TeamID:        run.TeamID,
		TeamName:      run.TeamName,
		Outcome:       run.Outcome,
		Channel:       run.Channel,
		Notifications: len(run.Notifications),
		Sent:          run.Sent,
		Failed:        run.Failed,
		Warnings:      run.Warnings,
		StartedAt:     run.StartedAt.UTC(),
		FinishedAt:    run.FinishedAt.UTC(),
	}
	for _, n := range run.Notifications {
		doc.Reasons = append(doc.Reasons, n.Reason)
	}
	return doc
}

func (x *RunIndex) Record(ctx context.Context, run *models.RunResult) error {
	body, err := json.Marshal(newRunDocument(run))
	if err != nil {
		return apperrors.NewDeliveryLogFailedError(fmt.Errorf("marshal run: %w", err))
	}

	res, err := x.client.Index(x.index, bytes.NewReader(body),
		x.client.Index.WithContext(ctx),
		x.client.Index.WithDocumentID(run.RunID),
	)
	if err != nil {
		return apperrors.NewDeliveryLogFailedError(fmt.Errorf("index run: %w", err))
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return apperrors.NewDeliveryLogFailedError(fmt.Errorf("index run: %s: %s", res.Status(), msg))
	}
	return nil
}
