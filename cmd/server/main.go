package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/clock"
	"github.com/Nixie-Tech-LLC/irrigo/internal/db"
	"github.com/Nixie-Tech-LLC/irrigo/internal/device"
	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
	"github.com/Nixie-Tech-LLC/irrigo/internal/notify"
	"github.com/Nixie-Tech-LLC/irrigo/internal/redis"
	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func main() {
	env := LoadEnvironment()
	configureLogging(env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// initialize PostgreSQL when configured; it holds the save log and
	// optionally the drafts
	var store db.Store
	if env.DatabaseURL != "" {
		if err := db.Init(env.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("db init")
		}
		if err := db.RunMigrations(env.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("db migrate")
		}
		store = db.NewStore(nil)
	}

	var rdb *goredis.Client
	if env.RedisAddress != "" {
		rdb = redis.InitRedis(env.RedisAddress, env.RedisUsername, env.RedisPassword)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("address", env.RedisAddress).Msg("redis not reachable yet")
		}
	}

	client := device.NewClient(env.DeviceURL, nil).WithTimeout(env.DeviceTimeout)
	var gateway scheduler.Gateway = client
	archive := InitArchive(env)
	if archive != nil || store != nil {
		rec := &device.Recorder{Store: client}
		if archive != nil {
			rec.Archive = archive
		}
		if store != nil {
			rec.Log = store
		}
		gateway = rec
	}

	notifiers := InitNotifiers(env, rdb)
	var registry *scheduler.Registry
	local := notify.Func(func(ctx context.Context, n model.Notice) error {
		registry.HandleNotice(ctx, n)
		return nil
	})
	registry = scheduler.NewRegistry(scheduler.Dependencies{
		Gateway:       gateway,
		Drafts:        InitDrafts(env, store, rdb),
		Notifier:      notifiers.Publisher(local),
		ReloadTimeout: env.ReloadTimeout,
	})
	notifiers.Listen(ctx, func(n model.Notice) {
		registry.HandleNotice(ctx, n)
	})
	go registry.RunEviction(ctx, time.Minute, env.SessionIdle)

	marker, err := scheduler.NewMarker(env.MarkerInterval, clock.Local{}, notifiers.Hub.Marker)
	if err != nil {
		log.Fatal().Err(err).Msg("marker")
	}
	go marker.Run(ctx)

	if !env.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	svc := Services{
		Registry: registry,
		Gateway:  gateway,
		Device:   client,
		Marker:   marker,
		Hub:      notifiers.Hub,
	}
	if store != nil {
		svc.Saves = store
	}
	if archive != nil {
		svc.Archive = archive
	}
	RegisterRoutes(r, svc)

	srv := &http.Server{Addr: env.ServerAddress, Handler: r}
	go func() {
		log.Info().Str("address", env.ServerAddress).Str("device", env.DeviceURL).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	notifiers.Close()
	registry.Wait()
	if rdb != nil {
		_ = rdb.Close()
	}
	if db.DB != nil {
		_ = db.DB.Close()
	}
}

func configureLogging(env Environment) {
	level, err := zerolog.ParseLevel(env.LogLevel)
	if err != nil || env.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if env.Development() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
