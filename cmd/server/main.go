package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aeolun/teamline/pkg/gateway"
	"github.com/aeolun/teamline/pkg/notify"
	"github.com/aeolun/teamline/pkg/reminder"
	"github.com/aeolun/teamline/pkg/store"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "~/.teamline/config.toml", "Path to config file")
	port := flag.Int("port", 0, "HTTP port to listen on (overrides config)")
	dbPath := flag.String("db", "", "Path to SQLite database (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("Teamline Server %s\n", Version)
		os.Exit(0)
	}

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	config, err := gateway.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	serverConfig := config.ToServerConfig()
	if *port != 0 {
		serverConfig.Port = *port
	}

	if config.Auth.TokenSecret == "" {
		logger.Fatal("auth.token_secret must be set in the config file")
	}

	databasePath := *dbPath
	if databasePath == "" {
		databasePath, err = config.GetDatabasePath()
		if err != nil {
			logger.Fatal("failed to resolve database path", zap.Error(err))
		}
	}

	db, err := store.Open(databasePath)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("path", databasePath), zap.Error(err))
	}
	defer db.Close()

	verifier := gateway.NewJWTVerifier(config.Auth.TokenSecret)
	notifier := notify.NewWebhookNotifier(db, logger)
	metrics := gateway.NewMetrics()

	srv := gateway.New(serverConfig, db, verifier, notifier, logger, metrics)
	if err := srv.Start(); err != nil {
		logger.Fatal("failed to start gateway", zap.Error(err))
	}

	schedulers := []*reminder.Scheduler{
		reminder.NewTaskScheduler(db, srv,
			time.Duration(config.Reminders.TaskIntervalMinutes)*time.Minute, logger),
		reminder.NewMeetingScheduler(db, srv,
			time.Duration(config.Reminders.MeetingIntervalSeconds)*time.Second, logger),
		reminder.NewTodoScheduler(db, srv,
			time.Duration(config.Reminders.TodoIntervalMinutes)*time.Minute, logger),
	}
	for _, sched := range schedulers {
		// A scheduler that cannot resolve the system identity stays down;
		// the gateway and the other schedulers keep running.
		if err := sched.Start(); err != nil {
			logger.Error("reminder scheduler did not start", zap.Error(err))
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	for _, sched := range schedulers {
		sched.Stop()
	}
	if err := srv.Stop(); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
