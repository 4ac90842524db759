// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads config.yaml and config.<APP_ENVIRONMENT>.yaml from the usual
// search paths. A missing base file is not an error.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	bindEnv(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func bindEnv(v *viper.Viper) {
	// TEAMCOWBOY_PRIVATE_KEY overrides teamcowboy.private_key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars replaces ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from their conventional env names.
func overrideEmptyConfig(cfg *Config) {
	fromEnv := func(dst *string, name string) {
		if *dst == "" {
			if val := os.Getenv(name); val != "" {
				*dst = val
			}
		}
	}

	fromEnv(&cfg.TeamCowboy.PrivateKey, "TEAMCOWBOY_PRIVATE_KEY")
	fromEnv(&cfg.TeamCowboy.PublicKey, "TEAMCOWBOY_PUBLIC_KEY")
	fromEnv(&cfg.TeamCowboy.Username, "TEAMCOWBOY_USERNAME")
	fromEnv(&cfg.TeamCowboy.Password, "TEAMCOWBOY_PASSWORD")

	fromEnv(&cfg.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	fromEnv(&cfg.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	fromEnv(&cfg.Twilio.FromNumber, "TWILIO_FROM_NUMBER")

	fromEnv(&cfg.Database.Postgres.User, "DB_USER")
	fromEnv(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	fromEnv(&cfg.Database.Redis.Password, "REDIS_PASSWORD")
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "team-notifier"
	}
	if cfg.Team.DisplayName == "" {
		cfg.Team.DisplayName = cfg.Team.Name
	}

	if cfg.TeamCowboy.BaseURL == "" {
		cfg.TeamCowboy.BaseURL = "https://api.teamcowboy.com/v1/"
	}
	if cfg.TeamCowboy.Timeout == 0 {
		cfg.TeamCowboy.Timeout = 15000
	}
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = SourceTeamCowboy
	}

	if cfg.Notifications.Channel == "" {
		cfg.Notifications.Channel = ChannelTwilio
	}
	if cfg.Notifications.EditStrategy == "" {
		cfg.Notifications.EditStrategy = "rolling"
	}
	if cfg.Notifications.StaleEditCheck == "" {
		cfg.Notifications.StaleEditCheck = "before_window"
	}
	if cfg.Notifications.EditWindowHours == 0 {
		cfg.Notifications.EditWindowHours = 24
	}

	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.AWS.SNS.SMSType == "" {
		cfg.AWS.SNS.SMSType = "Transactional"
	}
	if cfg.AWS.SES.Subject == "" {
		cfg.AWS.SES.Subject = "Team event update"
	}

	if cfg.Recipients.Source == "" {
		cfg.Recipients.Source = RecipientsStatic
	}
	if cfg.Recipients.MemberType == "" {
		cfg.Recipients.MemberType = "Full-time Team Member"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 5
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.KeyPrefix == "" {
		cfg.Database.Redis.KeyPrefix = "team-notifier"
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "team-notifier-runs"
	}
	if cfg.Events.Kafka.Topic == "" {
		cfg.Events.Kafka.Topic = "team-notifier.runs"
	}

	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.App.Name
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 1
		}
		if worker.Timeout == 0 {
			worker.Timeout = 120000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig checks enumerated settings. Credentials may still arrive on
// the command line, so they are checked later by Validate.
func validateConfig(cfg *Config) error {
	switch cfg.Source.Kind {
	case SourceTeamCowboy:
	case SourceICS:
		if cfg.Source.ICSURL == "" {
			return fmt.Errorf("source.ics_url is required for source.kind=ics")
		}
		if cfg.Source.ICSLookaheadDays < 0 {
			return fmt.Errorf("source.ics_lookahead_days must not be negative")
		}
	default:
		return fmt.Errorf("unknown source.kind %q", cfg.Source.Kind)
	}

	switch cfg.Notifications.Channel {
	case ChannelTwilio, ChannelSNS, ChannelSES, ChannelLog:
	default:
		return fmt.Errorf("unknown notifications.channel %q", cfg.Notifications.Channel)
	}

	switch cfg.Notifications.EditStrategy {
	case "rolling", "since_last_run":
	default:
		return fmt.Errorf("unknown notifications.edit_strategy %q", cfg.Notifications.EditStrategy)
	}
	switch cfg.Notifications.StaleEditCheck {
	case "before_window", "within_window":
	default:
		return fmt.Errorf("unknown notifications.stale_edit_check %q", cfg.Notifications.StaleEditCheck)
	}

	switch cfg.Recipients.Source {
	case RecipientsStatic:
		if cfg.Recipients.File == "" {
			return fmt.Errorf("recipients.file is required for recipients.source=static")
		}
	case RecipientsRoster:
		if cfg.Source.Kind != SourceTeamCowboy {
			return fmt.Errorf("recipients.source=roster requires source.kind=teamcowboy")
		}
	case RecipientsPostgres:
		if !cfg.Database.Postgres.Enabled {
			return fmt.Errorf("recipients.source=postgres requires database.postgres.enabled")
		}
	default:
		return fmt.Errorf("unknown recipients.source %q", cfg.Recipients.Source)
	}

	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.Database.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required")
	}
	if cfg.Database.Postgres.Enabled && cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Events.Kafka.Enabled && len(cfg.Events.Kafka.Brokers) == 0 {
		return fmt.Errorf("events.kafka.brokers is required")
	}
	return nil
}

// Validate checks the settings a run needs once command-line credentials
// have been applied.
func (c *Config) Validate() error {
	if c.Team.Name == "" {
		return fmt.Errorf("team.name is required")
	}
	if _, err := c.Team.Location(); err != nil {
		return err
	}
	if c.Source.Kind == SourceTeamCowboy {
		tc := c.TeamCowboy
		if tc.PrivateKey == "" || tc.PublicKey == "" || tc.Username == "" || tc.Password == "" {
			return fmt.Errorf("teamcowboy private_key, public_key, username and password are required")
		}
	}
	switch c.Notifications.Channel {
	case ChannelTwilio:
		if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" || c.Twilio.FromNumber == "" {
			return fmt.Errorf("twilio account_sid, auth_token and from_number are required")
		}
	case ChannelSES:
		if c.AWS.SES.FromEmail == "" {
			return fmt.Errorf("aws.ses.from_email is required")
		}
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 1,
		Timeout:       120000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
