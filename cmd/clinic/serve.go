package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pediclinic/internal/api"
	"pediclinic/internal/availability"
	"pediclinic/internal/config"
	"pediclinic/internal/database"
	"pediclinic/internal/directory"
	"pediclinic/internal/events"
	"pediclinic/internal/lock"
	"pediclinic/internal/metrics"
	"pediclinic/internal/model"
	"pediclinic/internal/scheduling"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the scheduling API together with the health and metrics endpoints.

The roster file is synced into the database on start and reloaded when it changes.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	hours, err := cfg.OperatingHours()
	if err != nil {
		return fmt.Errorf("operating hours: %w", err)
	}

	db, err := database.Open(cfg.Database.Path, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	var dir *directory.Cached
	if rdb != nil {
		dir = directory.NewCached(db, rdb, cfg.CacheTTL(), &logger)
	} else {
		dir = directory.NewCached(db, nil, 0, &logger)
	}

	err = config.WatchRoster(ctx, cfg.Roster.Path, cfg.RosterReloadInterval(), &logger, func(r *config.Roster) {
		if err := db.SyncRoster(ctx, r); err != nil {
			logger.Error().Err(err).Msg("roster sync failed")
			return
		}
		if err := dir.Invalidate(ctx); err != nil {
			logger.Warn().Err(err).Msg("directory cache invalidate failed")
		}
		logger.Info().Msg(r.String())
	})
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}

	var locker lock.Locker = lock.NewLocal(cfg.LockWait())
	if cfg.Locks.Backend == "redis" {
		if rdb == nil {
			return errors.New("locks.backend=redis requires redis.address")
		}
		locker = lock.NewRedis(rdb, cfg.Locks.Prefix, cfg.LockTTL(), cfg.LockWait(), &logger)
	}

	bus := events.NewEventBus()
	subscribeEventLog(bus, &logger)

	engine := scheduling.NewEngine(
		db, dir,
		availability.NewChecker(hours, cfg.Center.MaxSessionsPerSlot),
		locker, &logger,
		scheduling.WithPublisher(bus),
		scheduling.WithSessionDuration(cfg.Center.SessionMinutes),
		scheduling.WithMaxSeriesLength(cfg.Center.MaxSeriesLength),
	)

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, database.BackupConfig{
			Enabled:       true,
			Interval:      cfg.BackupInterval(),
			StoragePath:   cfg.Backup.Path,
			RetentionDays: cfg.Backup.RetentionDays,
		}, &logger)
		go backups.Start(ctx)
	}

	server := api.NewHTTPServer(api.Config{
		Port:      cfg.API.Port,
		RateLimit: cfg.API.RateLimit,
		RateBurst: cfg.API.RateBurst,
	}, engine, db, &logger)

	logger.Info().Int("slots_per_day", hours.Len()).Int("capacity", cfg.Center.MaxSessionsPerSlot).Msg("clinic scheduler started")
	return server.Start(ctx)
}

func subscribeEventLog(bus *events.EventBus, logger *zerolog.Logger) {
	l := logger.With().Str("component", "events").Logger()

	bus.Subscribe(events.SessionBooked, func(e events.Event) error {
		s, ok := e.Payload.(model.Session)
		if !ok {
			return fmt.Errorf("unexpected payload %T", e.Payload)
		}
		l.Info().Str("session_id", s.ID).Str("therapist_id", s.TherapistID).Msg("session booked")
		return nil
	})
	bus.Subscribe(events.SessionRescheduled, func(e events.Event) error {
		ev, ok := e.Payload.(scheduling.RescheduledEvent)
		if !ok {
			return fmt.Errorf("unexpected payload %T", e.Payload)
		}
		l.Info().Str("session_id", ev.Session.ID).Str("from", ev.From.Key()).Msg("session rescheduled")
		return nil
	})
	bus.Subscribe(events.SeriesCreated, func(e events.Event) error {
		batch, ok := e.Payload.([]model.Session)
		if !ok {
			return fmt.Errorf("unexpected payload %T", e.Payload)
		}
		l.Info().Int("sessions", len(batch)).Msg("series created")
		return nil
	})
	bus.Subscribe(events.BookingConflict, func(e events.Event) error {
		ev, ok := e.Payload.(scheduling.ConflictEvent)
		if !ok {
			return fmt.Errorf("unexpected payload %T", e.Payload)
		}
		l.Info().Str("operation", ev.Operation).Str("slot", ev.Slot.Key()).Str("reason", string(ev.Reason)).Msg("booking rejected")
		return nil
	})
	bus.OnError(func(e events.Event, err error) {
		l.Warn().Err(err).Str("event", e.Type).Msg("event handler failed")
	})
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	serve(ctx, port, mux, "health", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serve(ctx, port, mux, "metrics", logger)
}

func serve(ctx context.Context, port int, handler http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}
