package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oakhollow/hearth/internal/database"
	"github.com/oakhollow/hearth/internal/logging"
	"github.com/oakhollow/hearth/internal/push"
	"github.com/oakhollow/hearth/internal/server"
	"github.com/oakhollow/hearth/internal/storage"
)

func main() {
	logger := logging.Setup(os.Getenv("HEARTH_LOG_LEVEL"))

	port := os.Getenv("HEARTH_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("HEARTH_DB_PATH")
	if dbPath == "" {
		dbPath = "hearth.db"
	}

	secret := os.Getenv("HEARTH_TOKEN_SECRET")
	if secret == "" {
		logger.Error("HEARTH_TOKEN_SECRET is required")
		os.Exit(1)
	}

	tz := os.Getenv("HEARTH_TIMEZONE")
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.Error("invalid timezone", "tz", tz, "error", err)
		os.Exit(1)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cfg := server.Config{
		TokenSecret: secret,
		Timezone:    loc,
		S3: storage.S3Config{
			Endpoint:  os.Getenv("HEARTH_S3_ENDPOINT"),
			Bucket:    os.Getenv("HEARTH_S3_BUCKET"),
			Region:    os.Getenv("HEARTH_S3_REGION"),
			AccessKey: os.Getenv("HEARTH_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("HEARTH_S3_SECRET_KEY"),
		},
		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("HEARTH_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("HEARTH_VAPID_PRIVATE_KEY"),
		},
	}

	srv := server.New(db, cfg, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// Daily chore instance generation. Generation is idempotent, so running
	// hourly just catches schedules activated mid-day.
	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				generateChores(srv, logger)
			}
		}
	})

	// Rate limiter table cleanup.
	g.Go(func() error {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func generateChores(srv *server.Server, logger *slog.Logger) {
	familyIDs, err := srv.MemberStore().FamilyIDs()
	if err != nil {
		logger.Error("list families", "error", err)
		return
	}
	for _, id := range familyIDs {
		created, err := srv.ChoreService().GenerateForDate(id, time.Now())
		if err != nil {
			logger.Error("generate chores", "family_id", id, "error", err)
			continue
		}
		if created > 0 {
			logger.Info("generated chores", "family_id", id, "created", created)
			if n := srv.Notifier(); n != nil {
				n.ChoresGenerated(id, created)
			}
		}
	}
}
