package teameventnotify

import "time"

type Config struct {
	Timeout time.Duration
	// DefaultTeam is used when a job carries no teamName.
	DefaultTeam string
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 2 * time.Minute,
	}
}
