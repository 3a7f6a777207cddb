package di

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"PricePulse/internal/domain/repository"
	domsvc "PricePulse/internal/domain/service"
	"PricePulse/internal/handler/api"
	"PricePulse/internal/handler/ws"
	mid "PricePulse/internal/middleware"
	internalrepo "PricePulse/internal/repository"
	icache "PricePulse/internal/service/cache"
	"PricePulse/internal/service/notify"
	"PricePulse/internal/service/search"
	"PricePulse/internal/services/analysis"
	"PricePulse/internal/services/ml"
	"PricePulse/internal/usecase"
	pkgcache "PricePulse/pkg/cache"
	pkgch "PricePulse/pkg/clickhouse"
	"PricePulse/pkg/config"
	xhttp "PricePulse/pkg/http"
	pkgkafka "PricePulse/pkg/kafka"
	applogger "PricePulse/pkg/logger"
	"PricePulse/pkg/metrics"
	"PricePulse/pkg/queue"
	"PricePulse/pkg/server"
)

// ProvideLogger creates the application logger. Development gets a
// human-readable console at debug level, everything else JSON at info.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{Level: "info", Format: "json", Output: "stdout"}
	if cfg.Environment == "development" {
		lc.Level = "debug"
		lc.Format = "console"
	}
	return applogger.New(lc)
}

// ProvidePostgres opens the relational store and applies pending
// migrations when a migrations path is configured.
func ProvidePostgres(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s connect_timeout=%d",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Database,
		cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.SSLMode,
		int(cfg.Postgres.ConnectTimeout.Seconds()),
	)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if cfg.Postgres.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	}
	if cfg.Postgres.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	if cfg.Postgres.MigrationsPath != "" {
		if err := runMigrations(db, cfg.Postgres.MigrationsPath); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func runMigrations(db *sql.DB, path string) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+path, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// ProvideClickHouseClient creates the time-series client and ensures the
// price tables exist. History retention lives in the table TTL, not in
// application code.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.price_history (
			product_id String,
			price Float64,
			old_price Float64,
			discount_pct Float64,
			rating Float64,
			reviews_count Int64,
			prime UInt8,
			observed_at DateTime64(3)
		) ENGINE=MergeTree ORDER BY (product_id, observed_at)
		TTL toDateTime(observed_at) + INTERVAL 90 DAY`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.price_predictions (
			product_id String,
			days_ahead Int32,
			predicted_price Float64,
			confidence Float64,
			lower_bound Nullable(Float64),
			upper_bound Nullable(Float64),
			trend_direction String,
			created_at DateTime64(3)
		) ENGINE=MergeTree ORDER BY (product_id, created_at)`, db),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideRedisClient connects the shared Redis used by the artifact
// store option, the analysis cache and the notification queue.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideKafkaProducer creates the Kafka producer for alert/prediction
// events.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the observations-ingest consumer, or nil
// when disabled by configuration.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger, m repository.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		Err: func(_ context.Context, topic string, _ kafka.Message, _ []byte, err error) {
			m.RecordError("consume:" + topic)
			log.Warn("kafka message error", applogger.String("topic", topic), applogger.Error(err))
		},
	})
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClock supplies the wall clock; tests substitute fakes.
func ProvideClock() repository.Clock {
	return repository.SystemClock{}
}

// ProvidePriceHistory creates the ClickHouse observation store.
func ProvidePriceHistory(chClient *pkgch.Client, cfg *config.Config, log *applogger.Logger) *internalrepo.CHPriceHistory {
	store := internalrepo.NewCHPriceHistory(chClient, cfg.ClickHouse.Database+".price_history")
	store.SetLogger(log)
	return store
}

// ProvidePredictionSink creates the ClickHouse prediction recorder.
func ProvidePredictionSink(chClient *pkgch.Client, cfg *config.Config, log *applogger.Logger) repository.PredictionSink {
	sink := internalrepo.NewCHPredictionSink(chClient, cfg.ClickHouse.Database+".price_predictions")
	sink.SetLogger(log)
	return sink
}

// ProvideProductStore creates the Postgres product repository.
func ProvideProductStore(db *sql.DB) repository.ProductStore {
	return internalrepo.NewPGProductStore(db)
}

// ProvideAlertStore creates the Postgres alert repository.
func ProvideAlertStore(db *sql.DB) repository.AlertStore {
	return internalrepo.NewPGAlertStore(db)
}

// ProvideEventPublisher creates the Kafka event bus.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	return internalrepo.NewKafkaEventBus(producer, cfg.Kafka.AlertsTopic, cfg.Kafka.PredictionsTopic)
}

// ProvideArtifactStore picks the model-artifact backend: Redis when
// configured, the local filesystem otherwise.
func ProvideArtifactStore(cfg *config.Config, rdb *redis.Client, clock repository.Clock) (repository.ArtifactStore, error) {
	if cfg.Engine.ArtifactStore == "redis" {
		return internalrepo.NewRedisArtifactStore(rdb, cfg.Redis.Prefix, clock), nil
	}
	dir := cfg.Engine.ModelDir
	if dir == "" {
		dir = "models"
	}
	store, err := internalrepo.NewFSArtifactStore(dir)
	if err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}
	return store, nil
}

// ProvideModelStore assembles trainer and artifact store into the
// get-or-train model resolver.
func ProvideModelStore(
	artifacts repository.ArtifactStore,
	clock repository.Clock,
	m repository.Metrics,
	cfg *config.Config,
	log *applogger.Logger,
) domsvc.ModelStore {
	trainer := ml.NewTrainer(ml.DefaultForestParams(), log)
	maxAge := cfg.Engine.ModelMaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	return ml.NewArtifactModelStore(artifacts, trainer, clock, maxAge, log, m)
}

// ProvideAnalyzer creates the statistical trend analyzer.
func ProvideAnalyzer(log *applogger.Logger) domsvc.TrendAnalyzer {
	return analysis.NewAnalyzer(log)
}

// ProvideEngine creates the prediction engine usecase.
func ProvideEngine(
	history *internalrepo.CHPriceHistory,
	store domsvc.ModelStore,
	analyzer domsvc.TrendAnalyzer,
	sink repository.PredictionSink,
	events repository.EventPublisher,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.Engine {
	return usecase.NewEngine(
		history, store, analyzer, sink, events, m, log,
		cfg.Engine.MinDataPoints,
		cfg.Engine.LookbackDays,
		cfg.Engine.Horizons,
	)
}

// ProvideSearchClient creates the shopping-search API client.
func ProvideSearchClient(cfg *config.Config, log *applogger.Logger) repository.SearchClient {
	return search.New(search.Config{
		BaseURL:     cfg.Search.BaseURL,
		APIKey:      cfg.Search.APIKey,
		Engine:      cfg.Search.Engine,
		Domain:      cfg.Search.Domain,
		Language:    cfg.Search.Language,
		Timeout:     cfg.Search.Timeout,
		RetryMax:    cfg.Search.RetryMax,
		MinInterval: cfg.Search.MinInterval,
	}, log)
}

// ProvideNotifyQueue creates the Redis-backed delivery queue with one
// job per channel. Channels disabled in config still get a job so a
// stray message fails loudly instead of silently vanishing.
func ProvideNotifyQueue(cfg *config.Config, rdb *redis.Client, log *applogger.Logger) *queue.RedisQueue {
	workers := cfg.Notifications.Workers
	if workers <= 0 {
		workers = 2
	}
	jobs := []queue.Job{
		notify.NewSlackJob(notify.NewSlackSender(notify.SlackConfig{
			WebhookURL: cfg.Notifications.Slack.WebhookURL,
			Channel:    cfg.Notifications.Slack.Channel,
			Username:   cfg.Notifications.Slack.Username,
		}, log)),
		notify.NewEmailJob(notify.NewEmailSender(notify.EmailConfig{
			Host:     cfg.Notifications.Email.SMTPHost,
			Port:     cfg.Notifications.Email.SMTPPort,
			Username: cfg.Notifications.Email.Username,
			Password: cfg.Notifications.Email.Password,
			From:     cfg.Notifications.Email.From,
			To:       cfg.Notifications.Email.To,
		}, log)),
		notify.NewDesktopJob(log),
	}
	return queue.New(log, &queue.QueueConfig{
		Workers:    workers,
		RetryLimit: 3,
		RetryDelay: 30 * time.Second,
	}, rdb, jobs, queue.WithKeyPrefix(cfg.Redis.Prefix))
}

// ProvideNotifier creates the cooldown-aware notification manager.
func ProvideNotifier(q *queue.RedisQueue, clock repository.Clock, cfg *config.Config, log *applogger.Logger) *notify.Manager {
	return notify.NewManager(q, clock, log, cfg.Notifications.Cooldown)
}

// ProvideHub creates the dashboard websocket hub.
func ProvideHub(cfg *config.Config, log *applogger.Logger) *ws.Hub {
	return ws.NewHub(cfg.Server.WSAllowedOrigins, log)
}

// ProvidePipeline creates the ingest pipeline in front of the history
// store.
func ProvidePipeline(history *internalrepo.CHPriceHistory, m repository.Metrics) *mid.ObservationPipeline {
	return mid.NewObservationPipeline(history, m,
		mid.WithBufferSize(2000),
	)
}

// ProvideIngestHandler registers the observations topic handler.
func ProvideIngestHandler(pipe *mid.ObservationPipeline, m repository.Metrics, cfg *config.Config) *usecase.ObservationsHandler {
	return usecase.NewObservationsHandler(cfg.Kafka.IngestTopic, pipe, m)
}

// ProvideMonitor creates the periodic price monitor.
func ProvideMonitor(
	products repository.ProductStore,
	history *internalrepo.CHPriceHistory,
	alerts repository.AlertStore,
	searchClient repository.SearchClient,
	events repository.EventPublisher,
	notifier *notify.Manager,
	hub *ws.Hub,
	m repository.Metrics,
	clock repository.Clock,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.Monitor {
	return usecase.NewMonitor(
		products, history, alerts, searchClient, events, notifier, hub, m, clock, log,
		usecase.MonitorConfig{
			DefaultInterval:    cfg.Monitor.DefaultInterval,
			PriceDropThreshold: cfg.Monitor.PriceDropThreshold,
			DealThreshold:      cfg.Monitor.DealThreshold,
			CheckTimeout:       cfg.Monitor.CheckTimeout,
			MaxConcurrent:      cfg.Monitor.MaxConcurrent,
		},
	)
}

// ProvideProducts creates the product CRUD usecase with the monitor as
// the on-create checker. Search results are cached through a layered
// memory+Redis cache when Redis is reachable, memory-only otherwise.
func ProvideProducts(
	store repository.ProductStore,
	history *internalrepo.CHPriceHistory,
	alerts repository.AlertStore,
	searchClient repository.SearchClient,
	monitor *usecase.Monitor,
	cfg *config.Config,
	log *applogger.Logger,
) *usecase.Products {
	products := usecase.NewProducts(store, history, history, alerts, searchClient, monitor, log)

	var searchCache pkgcache.Service = pkgcache.NewMemoryCache()
	if cfg.Redis.Host != "" {
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(cfg.Redis.Host),
			pkgcache.WithRedisPort(cfg.Redis.Port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
			pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			log.Warn("search cache falling back to memory", applogger.Error(err))
		} else {
			searchCache = pkgcache.NewLayeredCache(rc)
		}
	}
	products.SetSearchCache(searchCache, 0)
	return products
}

// ProvideReports creates the xlsx report usecase.
func ProvideReports(store repository.ProductStore, history *internalrepo.CHPriceHistory) *usecase.Reports {
	return usecase.NewReports(store, history)
}

// ProvideHTTPHandler composes the route registrars. The analysis cache
// goes to Redis so replicas share entries; a process-local TTL cache
// backs it in environments without Redis configured.
func ProvideHTTPHandler(
	engine *usecase.Engine,
	reports *usecase.Reports,
	products *usecase.Products,
	monitor *usecase.Monitor,
	history *internalrepo.CHPriceHistory,
	searchClient repository.SearchClient,
	notifier *notify.Manager,
	hub *ws.Hub,
	cfg *config.Config,
	log *applogger.Logger,
) xhttp.Handler {
	eh := api.NewEngineHandler(engine, reports, log)
	var responseCache icache.BytesCache
	if cfg.Redis.Host != "" {
		responseCache = icache.NewRedisCache(icache.RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	} else {
		responseCache = icache.NewTTLCache()
	}
	eh.SetCache(responseCache, cfg.Engine.AnalysisTTL)

	ph := api.NewProductsHandler(products, monitor, log)
	sh := api.NewSystemHandler(products, monitor, history, searchClient, notifier, hub, log)
	return api.NewRouter(eh, ph, sh)
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	monitor *usecase.Monitor,
	consumer *pkgkafka.Consumer,
	ingest *usecase.ObservationsHandler,
	pipeline *mid.ObservationPipeline,
	notifyQ *queue.RedisQueue,
	hub *ws.Hub,
	chClient *pkgch.Client,
	pgDB *sql.DB,
	producer *pkgkafka.Producer,
) *server.App {
	var mh pkgkafka.MessageHandler
	if ingest != nil {
		mh = ingest
	}
	return server.New(cfg, log, handler, monitor, consumer, mh, pipeline, notifyQ, hub, chClient, pgDB, producer)
}
