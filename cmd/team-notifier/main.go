// Command team-notifier texts a team about today's and upcoming events.
//
//	team-notifier [flags] <teamName> <privateKey> <publicKey> <username> <password> <accountSid> <authToken> <fromNumber>
//
// Positional arguments override the configuration file; trailing ones may be
// omitted when the configuration already provides them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"team-notifier/internal/app"
	"team-notifier/internal/common/config"
	"team-notifier/internal/common/logger"
	"team-notifier/internal/common/observability"
	"team-notifier/internal/models"
	"team-notifier/internal/runner"
	"team-notifier/internal/scheduler"
	"team-notifier/internal/server"
)

var positional = []string{
	"teamName", "privateKey", "publicKey", "username", "password",
	"accountSid", "authToken", "fromNumber",
}

type options struct {
	configPath string
	dryRun     bool
	schedule   string
	listen     string
	jsonOut    bool
	creds      config.Credentials
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer func() { _ = zapLog.Sync() }()
	log := logger.NewZapAdapter(zapLog)

	obs, err := observability.New(observability.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
	})
	if err != nil {
		zapLog.Error("observability setup failed", zap.Error(err))
		return 1
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, obs)
	if err != nil {
		zapLog.Error("notifier setup failed", zap.Error(err))
		return 1
	}
	defer a.Close()

	r, err := a.Runner(cfg.Team.Name)
	if err != nil {
		zapLog.Error("runner setup failed", zap.Error(err))
		return 1
	}

	if opts.schedule != "" {
		if err := serve(ctx, cfg, opts, a, r, log); err != nil {
			zapLog.Error("scheduler stopped", zap.Error(err))
			return 1
		}
		return 0
	}

	result, err := r.Run(ctx, runner.Options{DryRun: opts.dryRun})
	if opts.jsonOut && result != nil {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	}
	if err != nil {
		return 1
	}
	return 0
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("team-notifier", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "path to config file (default: configs/config.yaml search)")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "compose messages and log them without sending or persisting")
	fs.StringVar(&opts.schedule, "schedule", "", "cron spec; keep running and notify on this schedule")
	fs.StringVar(&opts.listen, "listen", "", "health/metrics/preview address in schedule mode (default: server.listen)")
	fs.BoolVar(&opts.jsonOut, "json", false, "print the run result as JSON")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: team-notifier [flags] %s\n\nFlags:\n", placeholders())
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	rest := fs.Args()
	if len(rest) > len(positional) {
		return nil, fmt.Errorf("expected at most %d arguments, got %d", len(positional), len(rest))
	}
	get := func(i int) string {
		if i < len(rest) {
			return rest[i]
		}
		return ""
	}
	opts.creds = config.Credentials{
		TeamName:         get(0),
		PrivateKey:       get(1),
		PublicKey:        get(2),
		Username:         get(3),
		Password:         get(4),
		TwilioAccountSID: get(5),
		TwilioAuthToken:  get(6),
		FromNumber:       get(7),
	}
	return opts, nil
}

func placeholders() string {
	s := ""
	for i, p := range positional {
		if i > 0 {
			s += " "
		}
		s += "<" + p + ">"
	}
	return s
}

func loadConfig(opts *options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFromFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	cfg.ApplyCredentials(opts.creds)
	if opts.schedule != "" {
		cfg.Schedule.Cron = opts.schedule
	}
	if opts.listen != "" {
		cfg.Server.Listen = opts.listen
	}
	if opts.dryRun && cfg.Notifications.Channel == config.ChannelTwilio &&
		(cfg.Twilio.AccountSID == "" || cfg.Twilio.AuthToken == "" || cfg.Twilio.FromNumber == "") {
		// dry runs never reach twilio
		cfg.Notifications.Channel = config.ChannelLog
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// serve runs on the cron schedule and exposes the HTTP endpoints until ctx
// is cancelled.
func serve(ctx context.Context, cfg *config.Config, opts *options, a *app.App, r *runner.Runner, log logger.Logger) error {
	loc, err := cfg.Team.Location()
	if err != nil {
		return err
	}

	sched, err := scheduler.New(scheduler.Config{Spec: cfg.Schedule.Cron, Location: loc}, func(ctx context.Context) error {
		result, err := r.Run(ctx, runner.Options{DryRun: opts.dryRun})
		if err == nil && result.Outcome == models.OutcomeNothingToSend {
			log.Debug("Nothing to send this tick", nil)
		}
		return err
	}, log)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop(context.Background())

	srv := server.New(cfg.Server.Listen, r, a.Checks(), log)
	return srv.ListenAndServe(ctx)
}
