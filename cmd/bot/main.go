package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invoicedrop/internal/allowlist"
	"invoicedrop/internal/batch"
	"invoicedrop/internal/bot"
	"invoicedrop/internal/config"
	"invoicedrop/internal/handler"
	"invoicedrop/internal/quota"
	"invoicedrop/internal/redis"
	"invoicedrop/internal/server"
	"invoicedrop/internal/service"
	"invoicedrop/internal/session"
	"invoicedrop/internal/storage"
	"invoicedrop/internal/storage/memstore"
	"invoicedrop/internal/storage/s3store"
	"invoicedrop/internal/uploader"
	"invoicedrop/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == "production" {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	if cfg.Telegram.Token == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := buildStorage(ctx, cfg, l)

	// Startup self-check: fail fast on unreachable storage or bad credentials.
	pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		cancel()
		l.Errorf("storage self-check failed: %v", err)
		os.Exit(1)
	}
	cancel()
	l.Infof("storage reachable, base folder %q", cfg.Storage.BaseFolder)

	allow := buildAllowlist(ctx, cfg, l)

	tracker := quota.NewTracker(quota.Ceilings{
		Photos:    cfg.Quota.MaxPhotos,
		Videos:    cfg.Quota.MaxVideos,
		Documents: cfg.Quota.MaxDocuments,
	})
	sessions := session.NewStore(tracker)
	staging := uploader.NewStagingArea(cfg.Storage.StagingDir)
	orch := uploader.NewOrchestrator(store, tracker, l, cfg.Storage.BaseFolder, cfg.Storage.ProbeWrites)

	svc := service.New(
		allow,
		sessions,
		tracker,
		orch,
		staging,
		l,
		service.Limits{
			MaxBytes: map[quota.Category]int64{
				quota.CategoryPhoto:    cfg.Media.MaxPhotoBytes,
				quota.CategoryVideo:    cfg.Media.MaxVideoBytes,
				quota.CategoryDocument: cfg.Media.MaxDocumentBytes,
			},
			Extensions: map[quota.Category][]string{
				quota.CategoryPhoto:    cfg.Media.PhotoExtensions,
				quota.CategoryVideo:    cfg.Media.VideoExtensions,
				quota.CategoryDocument: cfg.Media.DocumentExtensions,
			},
		},
		batch.Bounds{MinLen: cfg.Batch.MinIdentifierLen, MaxLen: cfg.Batch.MaxIdentifierLen},
		cfg.Batch.IdleTimeout,
	)

	b, err := bot.New(bot.Config{
		Token:          cfg.Telegram.Token,
		PollTimeoutSec: cfg.Telegram.PollTimeoutSec,
	}, svc, l)
	if err != nil {
		l.Errorf("failed to start telegram bot: %v", err)
		os.Exit(1)
	}
	l.Infof("bot authorized as @%s", b.Username())

	var srv *server.Server
	if cfg.Admin.Enabled {
		srv = server.New(cfg.AppMode, cfg.Admin.Port, l)
		srv.SetupRoutes(handler.NewAdminHandler(allow, tracker, store))
		go func() {
			if err := srv.Start(); err != nil {
				l.Errorf("admin server failed: %v", err)
				stop()
			}
		}()
	}

	if err := b.Run(ctx); err != nil && err != context.Canceled {
		l.Errorf("bot stopped: %v", err)
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Errorf("admin server shutdown: %v", err)
		}
	}
	l.Infof("shut down cleanly")
}

func buildStorage(ctx context.Context, cfg *config.Config, l *logger.Logger) storage.RemoteStore {
	if cfg.Storage.Bucket == "" {
		l.Warnf("S3_BUCKET not set, using in-memory storage (uploads are not persisted)")
		return memstore.New()
	}
	store, err := s3store.New(ctx, s3store.Config{
		Region:      cfg.Storage.Region,
		Bucket:      cfg.Storage.Bucket,
		AccessKey:   cfg.Storage.AccessKey,
		SecretKey:   cfg.Storage.SecretKey,
		Endpoint:    cfg.Storage.Endpoint,
		CallTimeout: cfg.Storage.CallTimeout,
	})
	if err != nil {
		l.Errorf("failed to configure s3 storage: %v", err)
		os.Exit(1)
	}
	return store
}

func buildAllowlist(ctx context.Context, cfg *config.Config, l *logger.Logger) allowlist.Allowlist {
	switch cfg.Allowlist.Backend {
	case "redis":
		client := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			l.Errorf("redis unreachable: %v", err)
			os.Exit(1)
		}
		return allowlist.NewRedis(client)
	case "postgres":
		db, err := sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			l.Errorf("failed to open postgres: %v", err)
			os.Exit(1)
		}
		pg := allowlist.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			l.Errorf("failed to prepare allowlist schema: %v", err)
			os.Exit(1)
		}
		return pg
	default:
		if len(cfg.Allowlist.Seed) == 0 {
			l.Warnf("memory allowlist with no ALLOWED_USERS configured, nobody can use the bot")
		}
		return allowlist.NewMemory(cfg.Allowlist.Seed)
	}
}
