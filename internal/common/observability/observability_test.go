package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestObservability_MetricsOnly(t *testing.T) {
	o, err := New(Config{ServiceName: "team-notifier-test"})
	require.NoError(t, err)
	defer o.Shutdown()

	assert.Nil(t, o.tracerProvider, "tracing stays off without a jaeger endpoint")

	ctx, span := o.StartSpan(context.Background(), "evaluate", attribute.Int64("teamId", 7))
	assert.NotNil(t, ctx)
	span.End()

	o.RecordRun(ctx, "sent", 1500*time.Millisecond)
}

func TestObservability_Noop(t *testing.T) {
	o := NewNoop()
	_, span := o.StartSpan(context.Background(), "dispatch")
	span.End()
	o.RecordRun(context.Background(), "dry_run", time.Second)
	o.Shutdown()

	var nilObs *Observability
	_, span = nilObs.StartSpan(context.Background(), "fetch")
	span.End()
	nilObs.RecordRun(context.Background(), "sent", time.Second)
}
