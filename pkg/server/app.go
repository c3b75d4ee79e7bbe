package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SellingView/internal/handler/api"
	icache "SellingView/internal/service/cache"
	"SellingView/internal/usecase"
	pkgch "SellingView/pkg/clickhouse"
	"SellingView/pkg/config"
	xhttp "SellingView/pkg/http"
	pkgkafka "SellingView/pkg/kafka"
	applogger "SellingView/pkg/logger"
	"SellingView/pkg/queue"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	collector   *usecase.OrderCollector
	gen         *usecase.ReportGenerator
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	l           *applogger.Logger
	jobQueue    *queue.RedisQueue
	OrderProc   *usecase.OrderProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	collector *usecase.OrderCollector,
	gen *usecase.ReportGenerator,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	l *applogger.Logger,
) *App {
	return &App{
		cfg:       cfg,
		collector: collector,
		gen:       gen,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
		l:         l,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.l
	if l == nil {
		l, _ = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	}

	// Setup Echo HTTP server using pkg/http and register routes via handler
	var httpHandler xhttp.Handler
	if a.httpHandler != nil {
		httpHandler = a.httpHandler
	} else if a.gen != nil {
		he := api.NewReportsEchoHandler(l, a.gen)
		httpHandler = he
	}

	a.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Plain handler on the same Echo instance, with shared-cache variants of
	// the endpoints. Used by dashboard pollers that want HTTP caching semantics.
	if a.gen != nil {
		hp := api.NewReportsHandler(a.gen)
		hp.SetLogger(l)
		if a.cfg.Analysis.Redis.Enabled {
			hp.SetCache(icache.NewRedisCache(icache.RedisConfig{
				Addr:     a.cfg.Analysis.Redis.Addr,
				Password: a.cfg.Analysis.Redis.Password,
				DB:       a.cfg.Analysis.Redis.DB,
			}))
		} else {
			hp.SetCache(icache.NewTTLCache())
		}
		e := a.httpServer.Echo()
		e.GET("/cached/report", echo.WrapHandler(hp.Report()))
		e.GET("/cached/candles", echo.WrapHandler(hp.Candles()))
	}

	// Async report requests come through a Redis-backed job queue when Redis
	// is configured. HTTP stays the synchronous path.
	if a.gen != nil && a.cfg.Analysis.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Analysis.Redis.Addr,
			Password: a.cfg.Analysis.Redis.Password,
			DB:       a.cfg.Analysis.Redis.DB,
		})
		a.jobQueue = queue.NewRedisConsumer(l, &queue.QueueConfig{
			Workers:    2,
			QueueSize:  100,
			RetryLimit: 3,
			RetryDelay: 30 * time.Second,
		}, rdb, []queue.Job{usecase.NewReportJob(a.gen)})
		if err := a.jobQueue.Start(); err != nil {
			l.Error("job queue start error", applogger.Error(err))
		} else {
			a.jobQueue.StartRetryProcessor()
			l.Info("report job queue started")
		}

		// Aggregate repeated error logs and ship them through Redis so a
		// noisy CRM outage does not flood the log sink.
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "logs.aggregated",
			Publisher:      queue.NewRedisPublisher(l, rdb),
		})
	}

	// Start collector
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector error", applogger.Error(err))
		}
	}()
	l.Info("collector started", applogger.Strings("accounts", a.cfg.CRM.AccountIDs))

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.l
	if l == nil {
		var err error
		l, err = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
		if err != nil {
			log.Printf("failed to create logger: %v", err)
			return err
		}
	}
	l.Info("shutting down...")

	// Stop collector (pipeline + stream)
	if err := a.collector.Shutdown(ctx); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// Stop job queue
	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(ctx); err != nil {
			l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close processor resources (publisher/storage)
	if a.OrderProc != nil {
		a.OrderProc.Close()
	}

	l.RemoveCollector()

	l.Info("shutdown complete")
	return nil
}
