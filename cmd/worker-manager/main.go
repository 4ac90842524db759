package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"team-notifier/internal/app"
	"team-notifier/internal/common/camunda"
	"team-notifier/internal/common/config"
	"team-notifier/internal/common/logger"
	"team-notifier/internal/common/observability"
	"team-notifier/internal/server"
	ten "team-notifier/internal/workers/notification/team-event-notify"
	"team-notifier/pkg/registry"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: configs/config.yaml search)")
	registryPath := flag.String("registry", "", "path to activity registry (default: built-in)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer func() { _ = zapLog.Sync() }()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	obs, err := observability.New(observability.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
	})
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := loadRegistry(*registryPath)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	activity, ok := reg.Find(ten.TaskType)
	if !ok {
		zapLog.Fatal("activity registry has no entry", zap.String("taskType", ten.TaskType))
	}

	notifier, err := app.New(ctx, cfg, log, obs)
	if err != nil {
		zapLog.Fatal("notifier setup failed", zap.Error(err))
	}
	defer notifier.Close()

	zc, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer func() { _ = zc.Close() }()
	zapLog.Info("Zeebe client connected successfully")

	if config.IsWorkerEnabled(cfg, ten.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, ten.TaskType)
		handler := ten.NewHandler(&ten.Config{
			Timeout:     activity.TimeoutDuration(config.GetDuration(wcfg.Timeout)),
			DefaultTeam: cfg.Team.Name,
		}, activity, func(teamName string) (ten.Notifier, error) {
			return notifier.Runner(teamName)
		}, log)

		w := camunda.NewWorker(zc.Zeebe(), camunda.WorkerOptions{
			TaskType:       ten.TaskType,
			MaxJobsActive:  wcfg.MaxJobsActive,
			Timeout:        config.GetDuration(wcfg.Timeout),
			RequestTimeout: config.GetDuration(cfg.Camunda.RequestTimeout),
		}, handler, log)
		defer w.Close()
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", ten.TaskType))
	}

	preview, err := notifier.Runner("")
	if err != nil {
		zapLog.Fatal("preview runner setup failed", zap.Error(err))
	}
	checks := notifier.Checks()
	checks["zeebe"] = zc.HealthCheck

	srv := server.New(cfg.Server.Listen, preview, checks, log)
	if err := srv.ListenAndServe(ctx); err != nil {
		zapLog.Error("Health/Metrics server failed", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func loadRegistry(path string) (*registry.ActivityRegistry, error) {
	var (
		reg *registry.ActivityRegistry
		err error
	)
	if path != "" {
		reg, err = registry.LoadRegistry(path)
	} else {
		reg, err = registry.Default()
	}
	if err != nil {
		return nil, err
	}
	return reg, reg.Validate()
}
