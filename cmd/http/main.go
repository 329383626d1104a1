package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"codepair/internal/infrastructure/configs"
	"codepair/internal/infrastructure/events"
	"codepair/internal/infrastructure/logging"
	"codepair/internal/infrastructure/messaging"
	"codepair/internal/infrastructure/metrics"
	"codepair/internal/infrastructure/ratelimiter"
	"codepair/internal/infrastructure/repository"
	"codepair/internal/infrastructure/tracing"
	"codepair/internal/infrastructure/ws"
	"codepair/internal/presentation/api"
	"codepair/internal/presentation/handler/health"
	"codepair/internal/presentation/handler/rooms"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	serviceName = "codepair-api"
)

func main() {
	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	logger := logging.NewLogger(logging.NewDefaultConfig())

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	registry := repository.NewRoomRegistry(cfg.Room.DefaultLanguage)

	var rabbitmq *messaging.RabbitMQ
	if cfg.Events.Enabled {
		rabbitmq, err = messaging.NewRabbitMQ(cfg.Events.AmqpURL, cfg.Events.Exchange)
		if err != nil {
			log.Fatal(err)
		}
		defer rabbitmq.Close()

		logger.Info(logging.RabbitMQ, logging.Startup, "RabbitMQ connection established", nil)
	}
	roomPublisher := events.NewRoomPublisher(rabbitmq)

	reaper := repository.NewReaper(registry, cfg.Room.GraceWindow, func(roomID string) {
		m.RoomsReclaimed.Inc()
		m.ActiveRooms.Dec()

		if err := roomPublisher.PublishRoomReclaimed(context.Background(), roomID); err != nil {
			logger.Error(logging.RabbitMQ, logging.ExternalService, "failed to publish room reclaimed event", map[logging.ExtraKey]any{
				logging.RoomId:       roomID,
				logging.ErrorMessage: err.Error(),
			})
		}

		logger.Info(logging.Registry, logging.RoomReclaimed, "room reclaimed", map[logging.ExtraKey]any{
			logging.RoomId: roomID,
		})
	})
	defer reaper.Stop()

	roomManager := ws.NewRoomManager()
	wsCore := ws.NewCore(registry, roomManager, reaper, m)
	go wsCore.Run()
	defer wsCore.Stop()

	roomHandler := rooms.NewHandler(registry, roomManager, wsCore, roomPublisher, m)
	healthHandler := health.NewHandler()

	rateLimiter := ratelimiter.NewFixedWindowRateLimiter(cfg.RateLimiter.MaxRequests, cfg.RateLimiter.Window)
	defer rateLimiter.Close()

	app := api.NewApplication(*cfg, roomHandler, healthHandler, metrics.Handler(), logger, rateLimiter)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}
