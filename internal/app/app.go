// Package app builds the notifier's collaborators from configuration. The
// command-line tool and the worker manager share it.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	"team-notifier/internal/common/aws"
	"team-notifier/internal/common/config"
	"team-notifier/internal/common/database"
	"team-notifier/internal/common/logger"
	"team-notifier/internal/common/observability"
	"team-notifier/internal/common/teamcowboy"
	"team-notifier/internal/common/twilio"
	"team-notifier/internal/delivery"
	"team-notifier/internal/messaging"
	"team-notifier/internal/recipients"
	"team-notifier/internal/runner"
	"team-notifier/internal/runstate"
	"team-notifier/internal/server"
	"team-notifier/internal/source"
)

// App holds the long-lived collaborators of one process.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	obs    *observability.Observability

	teamCowboy *teamcowboy.Client
	source     source.EventSource
	sender     messaging.Sender
	state      runstate.Store
	recorders  []runner.Recorder
	static     *recipients.Static

	postgres *database.PostgresClient
	redis    *database.RedisClient
	es       *database.ElasticsearchClient
	kafka    *kafka.Writer

	stopWatch func()
}

// New connects every configured backend. Storage that is configured but
// unreachable at startup is logged; runs then report it as warnings.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, obs *observability.Observability) (*App, error) {
	a := &App{cfg: cfg, logger: log, obs: obs}

	if err := a.buildSource(); err != nil {
		return nil, err
	}
	sender, err := NewSender(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.sender = sender

	if err := a.buildStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildStaticDirectory(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) buildSource() error {
	loc, err := a.cfg.Team.Location()
	if err != nil {
		return err
	}

	switch a.cfg.Source.Kind {
	case config.SourceICS:
		a.source = source.NewICS(source.ICSConfig{
			URL:       a.cfg.Source.ICSURL,
			TeamName:  a.cfg.Team.Name,
			TeamID:    a.cfg.Source.ICSTeamID,
			Location:  loc,
			Lookahead: a.cfg.Source.ICSLookahead(),
		}, nil, a.logger)
	default:
		tc := a.cfg.TeamCowboy
		a.teamCowboy = teamcowboy.NewClient(teamcowboy.Config{
			BaseURL:    tc.BaseURL,
			PublicKey:  tc.PublicKey,
			PrivateKey: tc.PrivateKey,
			Username:   tc.Username,
			Password:   tc.Password,
			Timeout:    config.GetDuration(tc.Timeout),
		})
		a.source = source.NewTeamCowboy(a.teamCowboy, a.logger)
	}
	return nil
}

// NewSender returns the sender for the configured notification channel.
func NewSender(ctx context.Context, cfg *config.Config, log logger.Logger) (messaging.Sender, error) {
	switch cfg.Notifications.Channel {
	case config.ChannelSNS:
		return aws.NewSNSClient(ctx, aws.SNSConfig{
			Region:   cfg.AWS.Region,
			SenderID: cfg.AWS.SNS.SenderID,
			SMSType:  cfg.AWS.SNS.SMSType,
		})
	case config.ChannelSES:
		return aws.NewSESClient(ctx, aws.SESConfig{
			Region:    cfg.AWS.Region,
			FromEmail: cfg.AWS.SES.FromEmail,
			Subject:   cfg.AWS.SES.Subject,
		})
	case config.ChannelLog:
		return messaging.NewLogSender(log), nil
	case config.ChannelTwilio:
		return twilio.NewSender(twilio.Config{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			FromNumber: cfg.Twilio.FromNumber,
		})
	default:
		return nil, fmt.Errorf("unknown notification channel %q", cfg.Notifications.Channel)
	}
}

func (a *App) buildStorage(ctx context.Context) error {
	db := a.cfg.Database

	if db.Postgres.Enabled {
		pg, err := database.NewPostgres(db.Postgres)
		if err != nil {
			return err
		}
		a.postgres = pg
		if err := pg.EnsureSchema(ctx); err != nil {
			a.logger.Warn("Postgres schema setup failed", map[string]interface{}{"error": err.Error()})
		}
		a.recorders = append(a.recorders, delivery.NewPostgresLog(pg.DB))
	}

	if db.Elasticsearch.Enabled {
		es, err := database.NewElasticsearch(db.Elasticsearch)
		if err != nil {
			return err
		}
		a.es = es
		if err := es.EnsureRunIndex(ctx, db.Elasticsearch.Index); err != nil {
			a.logger.Warn("Elasticsearch index setup failed", map[string]interface{}{"error": err.Error()})
		}
		a.recorders = append(a.recorders, delivery.NewRunIndex(es.Client, db.Elasticsearch.Index))
	}

	if k := a.cfg.Events.Kafka; k.Enabled {
		a.kafka = delivery.NewKafkaWriter(delivery.KafkaConfig{Brokers: k.Brokers, Topic: k.Topic}, a.logger)
		a.recorders = append(a.recorders, delivery.NewRunPublisher(a.kafka))
	}

	if db.Redis.Enabled {
		a.redis = database.NewRedis(db.Redis)
		a.state = runstate.NewRedisStore(a.redis)
	} else {
		a.state = runstate.NewMemoryStore()
	}
	return nil
}

func (a *App) buildStaticDirectory() error {
	if a.cfg.Recipients.Source != config.RecipientsStatic {
		return nil
	}
	st, err := recipients.NewStatic(a.cfg.Recipients.File, a.logger)
	if err != nil {
		return err
	}
	a.static = st
	if a.cfg.Recipients.Watch {
		stop, err := st.Watch()
		if err != nil {
			a.logger.Warn("Recipients file watch unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			a.stopWatch = stop
		}
	}
	return nil
}

// Directory returns the recipient directory for a team.
func (a *App) Directory(teamName string) (messaging.RecipientDirectory, error) {
	switch a.cfg.Recipients.Source {
	case config.RecipientsStatic:
		return a.static, nil
	case config.RecipientsRoster:
		if a.teamCowboy == nil {
			return nil, fmt.Errorf("roster recipients need the teamcowboy source")
		}
		return recipients.NewRoster(a.teamCowboy, recipients.RosterConfig{
			TeamName:   teamName,
			MemberType: a.cfg.Recipients.MemberType,
			Email:      a.cfg.Notifications.Channel == config.ChannelSES,
		}, a.logger), nil
	case config.RecipientsPostgres:
		if a.postgres == nil {
			return nil, fmt.Errorf("postgres recipients need database.postgres.enabled")
		}
		return recipients.NewPostgres(a.postgres.DB, teamName), nil
	default:
		return nil, fmt.Errorf("unknown recipients source %q", a.cfg.Recipients.Source)
	}
}

// Runner returns a runner for teamName. The configured team keeps its
// display name; any other team is addressed by its own name.
func (a *App) Runner(teamName string) (*runner.Runner, error) {
	if teamName == "" {
		teamName = a.cfg.Team.Name
	}
	dir, err := a.Directory(teamName)
	if err != nil {
		return nil, err
	}
	loc, err := a.cfg.Team.Location()
	if err != nil {
		return nil, err
	}

	display := teamName
	if strings.EqualFold(teamName, a.cfg.Team.Name) && a.cfg.Team.DisplayName != "" {
		display = a.cfg.Team.DisplayName
	}

	n := a.cfg.Notifications
	return &runner.Runner{
		TeamName:  teamName,
		Source:    a.source,
		Directory: dir,
		Sender:    a.sender,
		State:     a.state,
		Recorders: a.recorders,
		Classifier: messaging.Classifier{
			Location:       loc,
			EditWindow:     n.EditWindow(),
			EditStrategy:   messaging.EditStrategy(n.EditStrategy),
			StaleEditCheck: messaging.StaleEditCheck(n.StaleEditCheck),
		},
		Templates: messaging.TemplateBuilder{TeamName: display},
		Logger:    a.logger,
		Obs:       a.obs,
	}, nil
}

// Checks returns a readiness check per configured backend.
func (a *App) Checks() map[string]server.Check {
	checks := make(map[string]server.Check)
	if a.postgres != nil {
		checks["postgres"] = a.postgres.Ping
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Ping
	}
	if a.es != nil {
		checks["elasticsearch"] = a.es.Ping
	}
	return checks
}

func (a *App) Close() {
	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.postgres != nil {
		_ = a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.kafka != nil {
		_ = a.kafka.Close()
	}
}
