package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/danielhkuo/eventroll/cliparse"
	"github.com/danielhkuo/eventroll/db"
	"github.com/danielhkuo/eventroll/middleware"
	"github.com/danielhkuo/eventroll/notify"
	"github.com/danielhkuo/eventroll/reconcile"
	"github.com/danielhkuo/eventroll/repository"
	"github.com/danielhkuo/eventroll/router"
	"github.com/danielhkuo/eventroll/store"
	"github.com/danielhkuo/eventroll/store/mongostore"
	"github.com/danielhkuo/eventroll/store/sqlstore"
)

func main() {
	var err error

	setupLogging()

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the document store
	docs, err := openStore(cfg)
	if err != nil {
		slog.Error("database connection failed", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer docs.Close()
	slog.Info("Document store ready", "type", cfg.DatabaseType)

	repo := repository.New(docs)

	// Attendance sessions
	sessions := reconcile.NewManager(repo, reconcile.Config{Debounce: cfg.DebounceInterval})

	// Reminders
	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.SendgridAPIKey != "" {
		notifier = notify.NewSendgridNotifier(cfg.SendgridAPIKey, cfg.ReminderFromName, cfg.ReminderFromEmail)
	}
	scheduler := notify.NewScheduler(repo, notifier, cfg.ReminderOffset)
	if err := scheduler.Start(cfg.ReminderSchedule); err != nil {
		slog.Error("reminder scheduler failed to start", "error", err)
		os.Exit(1)
	}

	// Create router
	mux := router.NewRouter(repo, sessions, scheduler, cfg)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}

	sessions.StopAll()
	scheduler.Stop()
}

// setupLogging uses readable text on a terminal and JSON otherwise.
func setupLogging() {
	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level:       slog.LevelDebug,
			ReplaceAttr: middleware.FlattenErrors,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level:       slog.LevelInfo,
			ReplaceAttr: middleware.FlattenErrors,
		})
	}
	slog.SetDefault(slog.New(handler))
}

func openStore(cfg cliparse.Config) (store.DocumentStore, error) {
	if cfg.DatabaseType == "mongo" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		ms, err := mongostore.Connect(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return ms, nil
	}

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	// Create schema (tables)
	if err := db.CreateSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return sqlstore.New(conn), nil
}
