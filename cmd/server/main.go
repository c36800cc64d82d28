package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Blunt0FF/Krealgram-sub001/internal/middleware"
	"github.com/Blunt0FF/Krealgram-sub001/internal/repositories"
	"github.com/Blunt0FF/Krealgram-sub001/internal/router"
	"github.com/Blunt0FF/Krealgram-sub001/internal/validators"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/blobstore"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/config"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/firebase"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/logger"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/metrics"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/realtime"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, ServiceName: "krealgram-api"})
	log := logger.L()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to initialize store")
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.BlobDriver).Msg("failed to initialize blob storage")
	}

	var fbApp *firebase.App
	if cfg.AuthProvider == "firebase" || cfg.FCMEnabled {
		fbApp, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Firebase")
		}
	}

	notifier, err := openNotifier(ctx, cfg, fbApp)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize realtime delivery")
	}

	auth := middleware.JWTAuthMiddleware(cfg.JWTSecret)
	if cfg.AuthProvider == "firebase" {
		auth = middleware.FirebaseAuthMiddleware(fbApp.AuthClient)
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e)
	if local, ok := blobs.(*blobstore.LocalStore); ok {
		e.Static(cfg.BlobPublicURL, local.BasePath())
	}

	router.SetupRoutes(e, router.Dependencies{
		Store:           store,
		Blobs:           blobs,
		Notifier:        notifier,
		Auth:            auth,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		MaxImageEdge:    cfg.MaxImageEdge,
		OnlineThreshold: cfg.OnlineThreshold,
	})

	go func() {
		if err := metrics.Serve(ctx, ":"+cfg.MetricsPort); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("server started")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (*repositories.Store, error) {
	if cfg.StoreDriver == "postgres" {
		db, err := config.InitPostgres(cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := repositories.AutoMigrate(db); err != nil {
			return nil, err
		}
		return repositories.NewPostgresStore(db), nil
	}

	client, err := config.InitMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDatabase)
	if err := repositories.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return repositories.NewMongoStore(client, db), nil
}

func openBlobs(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	if cfg.BlobDriver == "s3" {
		s3Store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			UsePathStyle:    cfg.S3PathStyle,
			PublicURL:       cfg.BlobPublicURL,
		})
		if err != nil {
			return nil, err
		}
		return s3Store, nil
	}
	local, err := blobstore.NewLocalStore(cfg.BlobLocalDir, cfg.BlobPublicURL)
	if err != nil {
		return nil, err
	}
	return local, nil
}

// openNotifier fans realtime events out to Redis pub/sub and FCM, whichever
// are configured. With neither, events are dropped.
func openNotifier(ctx context.Context, cfg *config.Config, fbApp *firebase.App) (realtime.Notifier, error) {
	var out realtime.Multi
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		out = append(out, realtime.NewRedisNotifier(rdb))
	}
	if cfg.FCMEnabled {
		client, err := fbApp.Messaging(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, realtime.NewFCMNotifier(client))
	}
	if len(out) == 0 {
		return realtime.Noop{}, nil
	}
	return out, nil
}
