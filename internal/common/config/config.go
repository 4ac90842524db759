// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Team          TeamConfig              `mapstructure:"team"`
	TeamCowboy    TeamCowboyConfig        `mapstructure:"teamcowboy"`
	Source        SourceConfig            `mapstructure:"source"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Twilio        TwilioConfig            `mapstructure:"twilio"`
	AWS           AWSConfig               `mapstructure:"aws"`
	Recipients    RecipientsConfig        `mapstructure:"recipients"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Events        EventsConfig            `mapstructure:"events"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Server        ServerConfig            `mapstructure:"server"`
	Schedule      ScheduleConfig          `mapstructure:"schedule"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Tracing       TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// TeamConfig identifies the team a run notifies.
type TeamConfig struct {
	Name string `mapstructure:"name"`
	// DisplayName is used in message banners; defaults to Name.
	DisplayName string `mapstructure:"display_name"`
	Timezone    string `mapstructure:"timezone"`
}

// Location resolves the team time zone used to compute "today".
func (t TeamConfig) Location() (*time.Location, error) {
	if t.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return nil, fmt.Errorf("team.timezone %q: %w", t.Timezone, err)
	}
	return loc, nil
}

type TeamCowboyConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	PrivateKey string `mapstructure:"private_key"`
	PublicKey  string `mapstructure:"public_key"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
}

// Event source kinds
const (
	SourceTeamCowboy = "teamcowboy"
	SourceICS        = "ics"
)

type SourceConfig struct {
	Kind string `mapstructure:"kind"`
	// ICSURL is an http(s) URL or a local file path.
	ICSURL    string `mapstructure:"ics_url"`
	ICSTeamID int64  `mapstructure:"ics_team_id"`

	// ICSLookaheadDays bounds recurring event expansion; 0 means 90 days.
	ICSLookaheadDays int `mapstructure:"ics_lookahead_days"`
}

// ICSLookahead returns the recurrence expansion horizon, zero for the default.
func (s SourceConfig) ICSLookahead() time.Duration {
	return time.Duration(s.ICSLookaheadDays) * 24 * time.Hour
}

// Notification channels
const (
	ChannelTwilio = "twilio"
	ChannelSNS    = "sns"
	ChannelSES    = "ses"
	ChannelLog    = "log"
)

type NotificationConfig struct {
	Channel         string `mapstructure:"channel"`
	EditStrategy    string `mapstructure:"edit_strategy"`    // rolling | since_last_run
	StaleEditCheck  string `mapstructure:"stale_edit_check"` // before_window | within_window
	EditWindowHours int    `mapstructure:"edit_window_hours"`
}

// EditWindow returns the edit window as a duration.
func (n NotificationConfig) EditWindow() time.Duration {
	return time.Duration(n.EditWindowHours) * time.Hour
}

type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	SNS    struct {
		SenderID string `mapstructure:"sender_id"`
		SMSType  string `mapstructure:"sms_type"`
	} `mapstructure:"sns"`
	SES struct {
		FromEmail string `mapstructure:"from_email"`
		Subject   string `mapstructure:"subject"`
	} `mapstructure:"ses"`
}

// Recipient directory sources
const (
	RecipientsStatic   = "static"
	RecipientsRoster   = "roster"
	RecipientsPostgres = "postgres"
)

type RecipientsConfig struct {
	Source     string `mapstructure:"source"`
	File       string `mapstructure:"file"`
	Watch      bool   `mapstructure:"watch"`
	MemberType string `mapstructure:"member_type"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// EventsConfig configures where finished runs are published.
type EventsConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
}

// Credentials are the secrets accepted on the command line.
type Credentials struct {
	TeamName         string
	PrivateKey       string
	PublicKey        string
	Username         string
	Password         string
	TwilioAccountSID string
	TwilioAuthToken  string
	FromNumber       string
}

// ApplyCredentials overrides configuration with every non-empty credential.
func (c *Config) ApplyCredentials(creds Credentials) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	if creds.TeamName != "" && creds.TeamName != c.Team.Name {
		// a display name configured for another team does not carry over
		c.Team.Name = creds.TeamName
		c.Team.DisplayName = creds.TeamName
	}
	set(&c.TeamCowboy.PrivateKey, creds.PrivateKey)
	set(&c.TeamCowboy.PublicKey, creds.PublicKey)
	set(&c.TeamCowboy.Username, creds.Username)
	set(&c.TeamCowboy.Password, creds.Password)
	set(&c.Twilio.AccountSID, creds.TwilioAccountSID)
	set(&c.Twilio.AuthToken, creds.TwilioAuthToken)
	set(&c.Twilio.FromNumber, creds.FromNumber)
	if c.Team.DisplayName == "" {
		c.Team.DisplayName = c.Team.Name
	}
}
