package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"team-notifier/internal/common/config"
	"team-notifier/internal/common/logger"
	"team-notifier/internal/common/observability"
	"team-notifier/internal/delivery"
	"team-notifier/internal/messaging"
	"team-notifier/internal/models"
	"team-notifier/internal/recipients"
	"team-notifier/internal/runner"
	"team-notifier/internal/runstate"
)

const emptyFeed = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//team-notifier//test//EN\r\nEND:VCALENDAR\r\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Team.Name = "Trouble Blueing"
	cfg.Team.DisplayName = "Trouble Blueing (Sun)"
	cfg.Team.Timezone = "America/Los_Angeles"
	cfg.Source.Kind = config.SourceICS
	cfg.Source.ICSURL = writeFile(t, "team.ics", emptyFeed)
	cfg.Source.ICSTeamID = 7
	cfg.Notifications.Channel = config.ChannelLog
	cfg.Notifications.EditStrategy = string(messaging.EditWindowSinceLastRun)
	cfg.Notifications.StaleEditCheck = string(messaging.StaleEditBeforeWindow)
	cfg.Notifications.EditWindowHours = 12
	cfg.Recipients.Source = config.RecipientsStatic
	cfg.Recipients.File = writeFile(t, "recipients.yaml", "recipients:\n  - id: \"1\"\n    address: \"+15550000001\"\n")
	return cfg
}

func TestNew_OfflineStack(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), logger.NewTestLogger(t), observability.NewNoop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &messaging.LogSender{}, a.sender)
	assert.IsType(t, &runstate.MemoryStore{}, a.state)
	assert.Empty(t, a.recorders)
	assert.Empty(t, a.Checks())

	r, err := a.Runner("")
	require.NoError(t, err)
	assert.Equal(t, "Trouble Blueing", r.TeamName)
	assert.Equal(t, "Trouble Blueing (Sun)", r.Templates.TeamName)
	assert.Equal(t, "America/Los_Angeles", r.Classifier.Location.String())
	assert.Equal(t, messaging.EditWindowSinceLastRun, r.Classifier.EditStrategy)
	assert.Equal(t, int64(12), int64(r.Classifier.EditWindow.Hours()))
	assert.IsType(t, &recipients.Static{}, r.Directory)

	result, err := r.Run(context.Background(), runner.Options{})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNothingToSend, result.Outcome)
	assert.Equal(t, int64(7), result.TeamID)
}

func TestRunner_OtherTeamUsesOwnName(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), logger.NewTestLogger(t), observability.NewNoop())
	require.NoError(t, err)
	defer a.Close()

	r, err := a.Runner("Second Team")
	require.NoError(t, err)
	assert.Equal(t, "Second Team", r.Templates.TeamName)
}

func TestNew_RedisRunState(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Database.Redis.Enabled = true
	cfg.Database.Redis.Address = mr.Addr()
	cfg.Database.Redis.KeyPrefix = "tn"

	a, err := New(context.Background(), cfg, logger.NewTestLogger(t), observability.NewNoop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &runstate.RedisStore{}, a.state)
	checks := a.Checks()
	require.Contains(t, checks, "redis")
	assert.NoError(t, checks["redis"](context.Background()))
}

func TestNew_KafkaRunPublisher(t *testing.T) {
	cfg := testConfig(t)
	cfg.Events.Kafka.Enabled = true
	cfg.Events.Kafka.Brokers = []string{"127.0.0.1:9092"}
	cfg.Events.Kafka.Topic = "team-notifier.runs"

	a, err := New(context.Background(), cfg, logger.NewTestLogger(t), observability.NewNoop())
	require.NoError(t, err)
	defer a.Close()

	require.Len(t, a.recorders, 1)
	assert.IsType(t, &delivery.RunPublisher{}, a.recorders[0])
	assert.Equal(t, "team-notifier.runs", a.kafka.Topic)
}

func TestDirectory_Errors(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, logger.NewTestLogger(t), observability.NewNoop())
	require.NoError(t, err)
	defer a.Close()

	cfg.Recipients.Source = config.RecipientsRoster
	_, err = a.Directory("Trouble Blueing")
	assert.Error(t, err, "roster needs the Team Cowboy source")

	cfg.Recipients.Source = config.RecipientsPostgres
	_, err = a.Directory("Trouble Blueing")
	assert.Error(t, err)
}

func TestNew_MissingRecipientsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recipients.File = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(context.Background(), cfg, logger.NewTestLogger(t), observability.NewNoop())
	assert.Error(t, err)
}

func TestNewSender(t *testing.T) {
	cfg := testConfig(t)

	cfg.Notifications.Channel = config.ChannelTwilio
	_, err := NewSender(context.Background(), cfg, logger.NewNoOpLogger())
	assert.Error(t, err, "twilio requires credentials")

	cfg.Twilio.AccountSID = "AC123"
	cfg.Twilio.AuthToken = "secret"
	cfg.Twilio.FromNumber = "+15550009999"
	s, err := NewSender(context.Background(), cfg, logger.NewNoOpLogger())
	require.NoError(t, err)
	assert.Equal(t, "twilio", s.Channel())

	cfg.Notifications.Channel = "pigeon"
	_, err = NewSender(context.Background(), cfg, logger.NewNoOpLogger())
	assert.Error(t, err)
}
