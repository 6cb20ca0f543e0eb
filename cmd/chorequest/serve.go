package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/chorequest/internal/backup"
	"github.com/dukerupert/chorequest/internal/calendar"
	"github.com/dukerupert/chorequest/internal/database"
	"github.com/dukerupert/chorequest/internal/gateway"
	"github.com/dukerupert/chorequest/internal/metrics"
	"github.com/dukerupert/chorequest/internal/middleware"
	"github.com/dukerupert/chorequest/internal/push"
	"github.com/dukerupert/chorequest/internal/scheduler"
	"github.com/dukerupert/chorequest/internal/server"
	"github.com/dukerupert/chorequest/internal/store"
	"github.com/dukerupert/chorequest/internal/tracker"
	ws "github.com/dukerupert/chorequest/internal/websocket"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	kv, closeKV, err := openDocumentStore(ctx, cfg, db)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	defer closeKV()

	hub := ws.NewHub(logger.With("component", "websocket"))
	metrics.RegisterGauge("websocket", "clients", "Open realtime connections.", func() float64 {
		return float64(hub.ClientCount())
	})

	pushStore := store.NewPushStore(db)
	pushSvc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber)

	archives := backup.NewManager(cfg.Archive(), store.NewArchiveStore(db), logger.With("component", "archive"), func(s backup.Status) {
		hub.Broadcast(ws.NewMessage("archive", string(s.State), "", map[string]any{
			"week":  s.LastWeek,
			"error": s.Error,
		}))
	})

	opts := tracker.Options{
		Store:       gateway.New(kv),
		Clock:       calendar.SystemClock{Location: loc},
		Broadcaster: hub,
		Logger:      logger.With("component", "tracker"),
	}
	if pushSvc.Enabled() {
		opts.Notifier = push.NewNotifier(pushSvc, pushStore, logger.With("component", "push"))
	} else {
		logger.Info("push notifications disabled, no VAPID keys configured")
	}
	if archives.Enabled() {
		opts.Archiver = archives
	} else {
		logger.Info("weekly archive disabled, no S3 bucket or passphrase configured")
	}

	tr, err := tracker.Open(ctx, opts)
	if err != nil {
		return err
	}
	defer tr.Close()

	pinLimiter := middleware.NewRateLimiter(cfg.PINWindow/time.Duration(cfg.PINAttempts), cfg.PINAttempts)
	srv := server.New(server.Deps{
		Tracker:     tr,
		Hub:         hub,
		PINLimiter:  pinLimiter,
		TrustProxy:  cfg.TrustProxy,
		PushStore:   pushStore,
		PushService: pushSvc,
		Archives:    archives,
		Logger:      logger,
	})

	sched, err := scheduler.New(loc, logger.With("component", "scheduler"),
		scheduler.Job{
			Name:     "week-rollover",
			Schedule: cfg.WeekCheckSchedule,
			Run: func() {
				if tr.ResolveWeek() {
					logger.Info("week rolled over", "week", tr.Document().WeekStart)
				}
			},
		},
		scheduler.Job{
			Name:     "pin-limiter-cleanup",
			Schedule: "@every 10m",
			Run:      srv.PINLimiter().Cleanup,
		},
	)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("chorequest running", "addr", "http://localhost:"+cfg.Port, "store", cfg.Store)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
