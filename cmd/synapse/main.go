package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/fluentvoice/synapse/internal/config"
	"github.com/fluentvoice/synapse/internal/session"
	"github.com/fluentvoice/synapse/internal/srs"
	"github.com/fluentvoice/synapse/internal/storage"
	"github.com/fluentvoice/synapse/internal/syncer"
	"github.com/fluentvoice/synapse/internal/web"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("synapse failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("synapse", pflag.ExitOnError)
	configPath := flags.String("config", "", "Path to a YAML config file")
	addSource := flags.String("add-source", "", "Register a content source (local path or git URL) and exit")
	doSync := flags.Bool("sync", false, "Sync all registered sources and exit")
	serve := flags.Bool("serve", false, "Start the HTTP API server")

	defaults := config.Default()
	flags.String("db", defaults.DB, "Path to the SQLite database file")
	flags.String("addr", defaults.Addr, "Address for the HTTP API server")
	flags.String("learner", defaults.Learner, "Learner whose deck to operate on")
	flags.String("log_level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("repos_dir", defaults.ReposDir, "Directory where git sources are mirrored")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	db, err := storage.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("opening database %s: %w", cfg.DB, err)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DB)

	switch {
	case *addSource != "":
		return runAddSource(db, *addSource)
	case *doSync:
		return runSync(db, cfg)
	case *serve:
		return runServe(db, cfg)
	default:
		flags.Usage()
		return fmt.Errorf("one of --add-source, --sync or --serve is required")
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func runAddSource(db *storage.DB, path string) error {
	sourceType := syncer.DetectType(path)
	id, err := db.InsertSource(path, sourceType)
	if err != nil {
		return fmt.Errorf("registering source %s: %w", path, err)
	}
	slog.Info("source registered", "id", id, "path", path, "type", sourceType)
	return nil
}

func runSync(db *storage.DB, cfg config.Config) error {
	clock := session.SystemClock{}
	return syncer.Run(db, syncer.Options{
		ReposDir:  cfg.ReposDir,
		Learner:   cfg.Learner,
		EaseStart: cfg.Scheduler.EaseStart,
		Now:       clock.Now(),
	})
}

func runServe(db *storage.DB, cfg config.Config) error {
	sched, err := srs.NewScheduler(cfg.SchedulerParams())
	if err != nil {
		return fmt.Errorf("building scheduler: %w", err)
	}

	clock := session.SystemClock{}
	runner := session.NewRunner(db, sched, clock)
	server := web.NewServer(db, runner, web.Options{
		Learner:   cfg.Learner,
		ReposDir:  cfg.ReposDir,
		EaseStart: cfg.Scheduler.EaseStart,
		Clock:     clock,
	})

	slog.Info("starting server", "addr", cfg.Addr, "learner", cfg.Learner)
	return http.ListenAndServe(cfg.Addr, server)
}
