package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/atinyakov/kv-url-shortener/internal/app/handler"
	"github.com/atinyakov/kv-url-shortener/internal/app/server"
	grpcserver "github.com/atinyakov/kv-url-shortener/internal/app/server/grpc"
	"github.com/atinyakov/kv-url-shortener/internal/app/service"
	"github.com/atinyakov/kv-url-shortener/internal/config"
	"github.com/atinyakov/kv-url-shortener/internal/lifecycle"
	"github.com/atinyakov/kv-url-shortener/internal/logger"
	"github.com/atinyakov/kv-url-shortener/internal/metrics"
	"github.com/atinyakov/kv-url-shortener/internal/repository"
	"github.com/atinyakov/kv-url-shortener/internal/storage"
	"github.com/atinyakov/kv-url-shortener/internal/tracing"
	"github.com/atinyakov/kv-url-shortener/internal/validator"

	_ "net/http/pprof"
)

const serviceName = "kv-url-shortener"

// traceOutput receives exported spans; stdout carries the JSON logs.
var traceOutput io.Writer = os.Stderr

var buildVersion = "1.0.0"
var buildDate string
var buildCommit string

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	options, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	log.SetFile(options.LogFile)
	defer log.Sync()

	log.Info("starting",
		"version", buildVersion,
		"date", buildDate,
		"commit", buildCommit,
	)
	zapLogger := log.Log

	a, err := newApp(options, zapLogger)
	if err != nil {
		zapLogger.Error("bootstrap failed", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.serve(ctx); err != nil {
		zapLogger.Error("shutdown finished with error", zap.Error(err))
		return 1
	}
	zapLogger.Info("shutdown complete")
	return 0
}

// app holds the wired components of one server process.
type app struct {
	options *config.Options
	logger  *zap.Logger
	store   service.Store
	manager *lifecycle.Manager
	metrics *metrics.Metrics
	handler http.Handler
	grpc    *grpcserver.Server
	tracer  *tracing.Tracer
}

func newApp(options *config.Options, zapLogger *zap.Logger) (*app, error) {
	store, err := openStore(options, zapLogger)
	if err != nil {
		return nil, err
	}

	a := &app{
		options: options,
		logger:  zapLogger,
		store:   store,
		metrics: metrics.New(),
	}

	if options.EnableTracing {
		a.tracer, err = tracing.New(serviceName, buildVersion, traceOutput)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("tracing: %w", err)
		}
		a.tracer.Install()
	}

	lifecycleOpts := lifecycle.DefaultOptions()
	lifecycleOpts.TrackReconnects = options.TrackReconnects
	lifecycleOpts.MonitorInterval = options.MonitorInterval
	a.manager = lifecycle.NewManager(store, zapLogger, lifecycleOpts)
	a.manager.OnStateChange(func(s lifecycle.State) {
		a.metrics.SetStoreConnected(s == lifecycle.Connected)
	})

	if options.GRPCAddress != "" {
		a.grpc = grpcserver.New(zapLogger)
		a.manager.OnStateChange(func(s lifecycle.State) {
			a.grpc.SetServing(s == lifecycle.Connected)
		})
	}

	serviceOpts := []service.Option{
		service.WithStoreTimeout(options.StoreTimeout),
		service.WithMetrics(a.metrics),
	}
	if a.tracer != nil {
		serviceOpts = append(serviceOpts, service.WithTracer(a.tracer.Tracer()))
	}

	urlService := service.NewURL(
		store,
		service.NewIDGenerator(service.DefaultIDLength),
		validator.NewURLValidator(options.ProbeTimeout, zapLogger),
		a.manager,
		zapLogger,
		options.ResultHostname,
		serviceOpts...,
	)

	r, err := server.Init(
		urlService,
		handler.NewHealth(a.manager, buildVersion, zapLogger),
		a.metrics,
		zapLogger,
		server.Options{
			EnableList:    options.EnableList,
			TrustedSubnet: options.TrustedSubnet,
		},
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a.handler = r
	if a.tracer != nil {
		a.handler = a.tracer.Handler(r)
	}
	return a, nil
}

func openStore(options *config.Options, zapLogger *zap.Logger) (service.Store, error) {
	switch options.StoreBackend {
	case config.BackendRedis:
		cfg := storage.RedisConfig{
			Host:     options.RedisHost,
			Port:     options.RedisPort,
			Password: options.RedisPassword,
			DB:       options.RedisDB,
		}
		zapLogger.Info("using redis", zap.String("addr", cfg.Addr()), zap.Int("db", cfg.DB))
		return storage.NewRedisStore(cfg, zapLogger), nil
	case config.BackendPostgres:
		zapLogger.Info("using postgres")
		db, err := repository.InitDB(options.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return repository.CreateKVRepository(db, zapLogger), nil
	case config.BackendMemory:
		zapLogger.Info("using in memory storage")
		return storage.CreateMemoryStorage()
	default:
		return nil, fmt.Errorf("unknown store backend %q", options.StoreBackend)
	}
}

// serve starts the listeners and blocks until ctx is cancelled, then shuts
// everything down and returns the store close error.
func (a *app) serve(ctx context.Context) error {
	if a.options.EnablePprof {
		go func() {
			a.logger.Info("Starting pprof server", zap.String("addr", "localhost:6060"))
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				a.logger.Error("pprof server error", zap.Error(err))
			}
		}()
	}

	a.manager.Start(ctx)

	httpServer := &http.Server{
		Addr:    a.options.Port,
		Handler: a.handler,
	}

	errCh := make(chan error, 2)
	go func() {
		var err error
		if a.options.EnableHTTPS {
			manager := &autocert.Manager{
				Cache:  autocert.DirCache("cache-dir"),
				Prompt: autocert.AcceptTOS,
			}
			httpServer.Addr = ":443"
			httpServer.TLSConfig = manager.TLSConfig()
			a.logger.Info("Server is running with TLS", zap.String("addr", httpServer.Addr))
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			a.logger.Info("Server is running", zap.String("addr", httpServer.Addr))
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.grpc != nil {
		go func() {
			if err := a.grpc.Start(a.options.GRPCAddress); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case serveErr = <-errCh:
		a.logger.Error("server stopped unexpectedly", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.options.ShutdownTimeout)
	defer cancel()

	if err := a.shutdown(shutdownCtx, httpServer.Shutdown); err != nil {
		return err
	}
	return serveErr
}

// shutdown drains the given HTTP server, then gRPC, then closes the store
// and flushes spans.
func (a *app) shutdown(ctx context.Context, drainHTTP func(context.Context) error) error {
	drains := []func(context.Context) error{drainHTTP}
	if a.grpc != nil {
		drains = append(drains, a.grpc.Shutdown)
	}

	err := a.manager.Shutdown(ctx, drains...)

	if a.tracer != nil {
		if terr := a.tracer.Shutdown(ctx); terr != nil {
			a.logger.Error("flush traces", zap.Error(terr))
		}
	}
	return err
}
