package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"SellingView/internal/domain/repository"
	mid "SellingView/internal/middleware"
	internalrepo "SellingView/internal/repository"
	"SellingView/internal/service/crm"
	"SellingView/internal/service/ratelimit"
	"SellingView/internal/usecase"
	pkgcache "SellingView/pkg/cache"
	pkgch "SellingView/pkg/clickhouse"
	"SellingView/pkg/config"
	pkgkafka "SellingView/pkg/kafka"
	applogger "SellingView/pkg/logger"
	"SellingView/pkg/metrics"
	"SellingView/pkg/server"
)

// ProvideClickHouseClient creates a ClickHouse client.
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

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if db == "" {
		db = "sellingview"
	}
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".orders_raw (" +
			"shipped_at DateTime, order_id String, account_id String, account_name String, " +
			"product_id String, product_name String, amount Float64, quantity Float64, " +
			"unit_price Float64, source String, event_id String" +
			") ENGINE=ReplacingMergeTree ORDER BY (account_id, shipped_at, event_id)",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
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

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideLogger creates the shared structured logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	return applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stdout"})
}

// ProvideOrderStorage creates ClickHouse storage repository.
func ProvideOrderStorage(chClient *pkgch.Client, cfg *config.Config) repository.Storage {
	return internalrepo.NewClickHouseStorage(chClient.DB(), cfg.ClickHouse.Database+".orders_raw")
}

// ProvideOrderPublisher creates Kafka publisher repository.
func ProvideOrderPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideReportPublisher creates the Kafka publisher used for finished reports.
func ProvideReportPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ReportPublisher {
	topic := cfg.Analysis.ReportTopic
	if topic == "" {
		topic = "sales.reports"
	}
	return internalrepo.NewKafkaReportPublisher(producer, topic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaOrdersHandler registers handler for the orders topic.
func ProvideKafkaOrdersHandler(store repository.Storage, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaOrdersHandler {
	return usecase.NewKafkaOrdersHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideOrderStream creates the CRM WebSocket order stream.
func ProvideOrderStream(cfg *config.Config) repository.OrderStream {
	return crm.NewStream(
		cfg.CRM.Token,
		cfg.CRM.WebSocketURL,
		cfg.CRM.AccountIDs,
		cfg.CRM.ReconnectDelay,
		cfg.CRM.PingInterval,
	)
}

// ProvideOrderSource selects where report orders come from. "crm" pulls
// through the REST API; "storage" replays orders already persisted by the
// realtime pipeline, which lets reports run without CRM access.
func ProvideOrderSource(cfg *config.Config, store repository.Storage, l *applogger.Logger) repository.OrderSource {
	if cfg.Analysis.Source == "storage" {
		return internalrepo.NewStorageOrderSource(store)
	}
	client := crm.NewClient(
		cfg.CRM.BaseURL,
		cfg.CRM.Token,
		cfg.CRM.Timeout,
		ratelimit.New(),
		cfg.CRM.RateCapacity,
		cfg.CRM.RateRefill,
		l,
	)
	if cfg.Analysis.Redis.Enabled {
		cache, err := providePricebookCache(cfg)
		if err != nil {
			l.Warn("pricebook redis cache unavailable, keeping in-memory cache", applogger.Error(err))
		} else {
			client.SetPriceCache(cache)
		}
	}
	return client
}

// providePricebookCache builds the layered memory+Redis cache shared by
// CRM pricebook lookups across instances.
func providePricebookCache(cfg *config.Config) (pkgcache.Service, error) {
	host, portStr, err := net.SplitHostPort(cfg.Analysis.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr %q: %w", cfg.Analysis.Redis.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port %q: %w", portStr, err)
	}
	redisCache, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Analysis.Redis.Password),
		pkgcache.WithRedisDB(cfg.Analysis.Redis.DB),
		pkgcache.WithRedisPrefix("pricebook"),
	)
	if err != nil {
		return nil, err
	}
	return pkgcache.NewLayeredCache(redisCache, pkgcache.WithLayeredMemorySize(4096)), nil
}

// ProvideOrderProcessor creates the order processor use case.
func ProvideOrderProcessor(
	pub repository.Publisher,
	store repository.Storage,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.OrderProcessor {
	return usecase.NewOrderProcessor(
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideOrderCollector creates the order collector use case.
func ProvideOrderCollector(
    stream repository.OrderStream,
    processor *usecase.OrderProcessor,
    metrics repository.Metrics,
) *usecase.OrderCollector {
    // Build middleware pipeline between WebSocket and backend
    pipe := mid.NewRealtimePipeline(processor, metrics,
        mid.WithMaxRPS(50),
        mid.WithBufferSize(2000),
    )
    return usecase.NewOrderCollector(stream, processor, metrics, pipe)
}

// ProvideReportGenerator creates the report generation use case.
func ProvideReportGenerator(
	source repository.OrderSource,
	pub repository.ReportPublisher,
	metrics repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.ReportGenerator {
	c := cfg.Normalized()
	return usecase.NewReportGenerator(
		source,
		pub,
		metrics,
		l,
		c.Analysis.LumpPrefix,
		c.Analysis.IgnoreTerms,
		c.Analysis.MALength,
	)
}

// ProvideApp creates the application server.
func ProvideApp(
    cfg *config.Config,
    collector *usecase.OrderCollector,
    gen *usecase.ReportGenerator,
    consumer *pkgkafka.Consumer,
    kh *usecase.KafkaOrdersHandler,
    chClient *pkgch.Client,
    l *applogger.Logger,
) *server.App {
    // Attach hook to consumer: example NoopHook for now; can be replaced via config
    if consumer != nil {
        consumer.WithConsumerHook(pkgkafka.NoopHook{})
    }
    app := server.New(cfg, collector, gen, consumer, kh, chClient, l)
    // attach processor to app for closing resources via collector
    if collector != nil {
        app.OrderProc = collector.Processor()
    }
    return app
}
