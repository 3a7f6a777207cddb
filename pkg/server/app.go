package server

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PricePulse/internal/handler/ws"
	mid "PricePulse/internal/middleware"
	"PricePulse/internal/usecase"
	pkgch "PricePulse/pkg/clickhouse"
	"PricePulse/pkg/config"
	xhttp "PricePulse/pkg/http"
	pkgkafka "PricePulse/pkg/kafka"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/queue"
)

// App encapsulates the application lifecycle: the HTTP API, the price
// monitor, the Kafka ingest consumer, the notification queue workers and
// the dashboard websocket hub.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	handler  xhttp.Handler
	monitor  *usecase.Monitor
	consumer *pkgkafka.Consumer
	ingest   pkgkafka.MessageHandler
	pipeline *mid.ObservationPipeline
	notifyQ  *queue.RedisQueue
	hub      *ws.Hub

	chClient *pkgch.Client
	pgDB     *sql.DB
	producer *pkgkafka.Producer

	httpServer *xhttp.Server
	hubCancel  context.CancelFunc
}

// New creates the App. consumer, ingest, notifyQ and hub may be nil when
// the corresponding subsystem is disabled by configuration.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	monitor *usecase.Monitor,
	consumer *pkgkafka.Consumer,
	ingest pkgkafka.MessageHandler,
	pipeline *mid.ObservationPipeline,
	notifyQ *queue.RedisQueue,
	hub *ws.Hub,
	chClient *pkgch.Client,
	pgDB *sql.DB,
	producer *pkgkafka.Producer,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		handler:  handler,
		monitor:  monitor,
		consumer: consumer,
		ingest:   ingest,
		pipeline: pipeline,
		notifyQ:  notifyQ,
		hub:      hub,
		chClient: chClient,
		pgDB:     pgDB,
		producer: producer,
	}
}

// kafkaLogPublisher adapts the Kafka producer to the log collector's
// publisher interface. Aggregated log batches are not keyed.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (k kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.producer.Publish(ctx, topic, nil, payload)
}

// Run starts all subsystems and blocks until an interrupt signal.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsEndpoint(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
		xhttp.WithLogger(a.log),
	)

	if a.cfg.Kafka.LogsTopic != "" && a.producer != nil {
		a.log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          a.cfg.Kafka.LogsTopic,
			Publisher:      kafkaLogPublisher{producer: a.producer},
		})
		a.log.Info("log collector started", applogger.String("topic", a.cfg.Kafka.LogsTopic))
	}

	if a.pipeline != nil {
		a.pipeline.Start(ctx)
	}

	if a.hub != nil {
		hubCtx, hubCancel := context.WithCancel(ctx)
		a.hubCancel = hubCancel
		go a.hub.Run(hubCtx)
		a.log.Info("websocket hub started")
	}

	if a.notifyQ != nil {
		if err := a.notifyQ.Start(); err != nil {
			a.log.Error("notification queue start error", applogger.Error(err))
			return err
		}
		a.log.Info("notification queue started")
	}

	if a.consumer != nil && a.ingest != nil {
		a.consumer.RegisterHandler(a.ingest)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.ingest.Topic()))
	}

	if a.cfg.Monitor.Enabled {
		if err := a.monitor.Start(ctx); err != nil {
			a.log.Error("price monitor start error", applogger.Error(err))
			return err
		}
		a.log.Info("price monitor started",
			applogger.String("default_interval", a.cfg.Monitor.DefaultInterval))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops subsystems in reverse start order: stop producing work
// first (monitor, consumer), then drain (queue, pipeline), then close
// infrastructure clients.
func (a *App) shutdown(ctx context.Context) error {
	if a.cfg.Monitor.Enabled {
		a.monitor.Stop()
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.notifyQ != nil {
		if err := a.notifyQ.Stop(shutdownCtx); err != nil {
			a.log.Warn("notification queue stop error", applogger.Error(err))
		}
	}

	if a.pipeline != nil {
		a.pipeline.Stop()
	}
	if a.hubCancel != nil {
		a.hubCancel()
	}

	// Flush aggregated logs before the producer goes away.
	a.log.RemoveCollector()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.pgDB != nil {
		if err := a.pgDB.Close(); err != nil {
			a.log.Warn("postgres close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
