// Package main runs the reasoning orchestration engine: a knowledge store,
// a reasoning service, the change-driven scheduler and the operator API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/semreason/config"
	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/gateway"
	gwhttp "github.com/c360/semreason/gateway/http"
	"github.com/c360/semreason/health"
	"github.com/c360/semreason/metric"
	"github.com/c360/semreason/natsclient"
	"github.com/c360/semreason/pkg/tlsutil"
	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/reasoner/factory"
	"github.com/c360/semreason/reasoner/remote"
	"github.com/c360/semreason/scheduler"
	"github.com/c360/semreason/store"
	"github.com/c360/semreason/store/kvstore"
	"github.com/c360/semreason/store/memstore"
	"github.com/c360/semreason/triple"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semreason"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cliCfg, err := parseFlags(args, stderr)
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		return nil
	}

	logger := setupLogger(stdout, cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		logger.Info("Configuration is valid", "config_path", cliCfg.ConfigPath)
		return nil
	}

	logger.Info("Starting semreason",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"backend", cfg.Reasoner.Backend,
		"store", cfg.Store.Type)

	a, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
		defer cancel()
		a.close(shutdownCtx)
		logger.Info("semreason shutdown complete")
	}()

	return a.serve(ctx)
}

// loadConfig layers path, when given, over the defaults and applies the
// SEMREASON_ environment overrides.
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader.AddLayer(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// app holds the running engine.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	nats     *natsclient.Client
	store    store.KnowledgeStore
	service  *reasoner.Service
	sched    *scheduler.Scheduler
	reports  *scheduler.InconsistencyPublisher
	hub      *gwhttp.Hub
	monitor  *health.Monitor
	server   *gwhttp.Server
}

// build wires every component. On error everything already created is
// closed.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (a *app, err error) {
	a = &app{
		cfg:      cfg,
		logger:   logger,
		registry: metric.NewMetricsRegistry(),
		monitor:  health.NewMonitor(5 * time.Second),
	}
	defer func() {
		if err != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			a.close(closeCtx)
			a = nil
		}
	}()

	if cfg.NeedsNATS() {
		if a.nats, err = connectNATS(ctx, cfg.NATS, a.registry, logger); err != nil {
			return a, err
		}
		a.monitor.Register("nats", health.NATSCheck(a.nats))
	}

	if a.store, err = openStore(ctx, cfg.Store, a.nats, logger); err != nil {
		return a, err
	}
	a.monitor.Register("store", health.StoreCheck(a.store))

	deps := factory.Deps{Metrics: a.registry, Logger: logger}
	if a.nats != nil {
		deps.Requester = a.nats
	}
	if a.service, err = factory.NewService(ctx, cfg.Reasoner, cfg.Cache, deps); err != nil {
		return a, fmt.Errorf("create reasoning service: %w", err)
	}

	if cfg.Reasoner.Remote.Serve {
		if err = serveBackend(ctx, cfg.Reasoner, a.nats, deps); err != nil {
			return a, err
		}
	}

	a.hub = gwhttp.NewHub(logger, cfg.Gateway.CORSOrigins...)
	opts := []scheduler.Option{
		scheduler.WithConfig(scheduler.Config{
			AutoReasoning:  cfg.Scheduler.AutoReasoning,
			BatchSize:      cfg.Scheduler.BatchSize,
			ReasoningDelay: cfg.Scheduler.ReasoningDelay,
			EscapeDelay:    cfg.Scheduler.EscapeDelay,
		}),
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(a.registry),
		scheduler.WithObserver(a.hub),
	}
	if subject := cfg.Scheduler.PublishSubject; subject != "" && a.nats != nil {
		if a.reports, err = scheduler.NewInconsistencyPublisher(a.nats, subject,
			scheduler.WithPublisherLogger(logger),
			scheduler.WithPublisherMetrics(a.registry)); err != nil {
			return a, err
		}
		if err = a.reports.Start(ctx); err != nil {
			return a, err
		}
		opts = append(opts, scheduler.WithObserver(a.reports))
	}
	if a.sched, err = scheduler.New(a.store, a.service, opts...); err != nil {
		return a, fmt.Errorf("create scheduler: %w", err)
	}
	a.monitor.Register("scheduler", health.SchedulerCheck(a.sched))

	// Seeding after the scheduler subscribes lets the first pass cover it.
	if cfg.Store.SeedFile != "" {
		if err = seedStore(ctx, a.store, cfg.Store.SeedFile, logger); err != nil {
			return a, err
		}
	}

	if cfg.Gateway.Enabled {
		serverTLS, tlsErr := tlsutil.ServerConfig(cfg.Gateway.TLS)
		if tlsErr != nil {
			return a, tlsErr
		}
		a.server, err = gwhttp.New(a.sched,
			gwhttp.WithTLS(serverTLS),
			gwhttp.WithCache(a.service),
			gwhttp.WithMonitor(a.monitor),
			gwhttp.WithMetrics(a.registry),
			gwhttp.WithBackends(cfg.Reasoner.Backend, backendInfos(cfg.Reasoner.Backend)),
			gwhttp.WithRateLimit(cfg.Gateway.RateLimit, cfg.Gateway.Burst),
			gwhttp.WithHub(a.hub),
			gwhttp.WithCORS(cfg.Gateway.CORSOrigins),
			gwhttp.WithLogger(logger))
		if err != nil {
			return a, fmt.Errorf("create gateway: %w", err)
		}
	}
	return a, nil
}

// serve blocks until ctx is cancelled or the gateway fails.
func (a *app) serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			return a.server.ListenAndServe(gctx, a.cfg.Gateway.Addr)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Received shutdown signal")
		return nil
	})

	a.logger.Info("semreason started",
		"auto_reasoning", a.sched.Enabled(),
		"gateway", a.server != nil)
	return g.Wait()
}

// close stops components in reverse start order.
func (a *app) close(ctx context.Context) {
	if a.sched != nil {
		if err := a.sched.Close(); err != nil {
			a.logger.Warn("Failed to close scheduler", "error", err)
		}
	}
	if a.reports != nil {
		if err := a.reports.Stop(5 * time.Second); err != nil {
			a.logger.Warn("Failed to deliver queued inconsistency reports", "error", err)
		}
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.service != nil {
		if err := a.service.Close(); err != nil {
			a.logger.Warn("Failed to close reasoning service", "error", err)
		}
	}
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.logger.Warn("Failed to close store", "error", err)
		}
	}
	if a.nats != nil {
		if err := a.nats.Close(ctx); err != nil {
			a.logger.Warn("Failed to close NATS client", "error", err)
		}
	}
}

// natsOptions translates the NATS section into client options.
func natsOptions(
	cfg config.NATSConfig,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) ([]natsclient.ClientOption, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(registry),
		natsclient.WithMaxReconnects(cfg.MaxReconnects),
		natsclient.WithReconnectWait(cfg.ReconnectWait),
		natsclient.WithPingInterval(cfg.PingInterval),
		natsclient.WithDrainTimeout(cfg.DrainTimeout),
		natsclient.WithHandlerTimeout(cfg.HandlerTimeout),
	}
	if cfg.Name != "" {
		opts = append(opts, natsclient.WithName(cfg.Name))
	}
	if cfg.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.Token))
	}
	tlsConfig, err := tlsutil.ClientConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}
	return append(opts, natsclient.WithTLSConfig(tlsConfig)), nil
}

func connectNATS(
	ctx context.Context,
	cfg config.NATSConfig,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*natsclient.Client, error) {
	opts, err := natsOptions(cfg, registry, logger)
	if err != nil {
		return nil, err
	}
	client, err := natsclient.NewClient(strings.Join(cfg.URLs, ","), opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	logger.Info("Connecting to NATS", "urls", cfg.URLs)
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("NATS connection timeout: %w", err)
	}
	return client, nil
}

func openStore(
	ctx context.Context,
	cfg config.StoreConfig,
	client *natsclient.Client,
	logger *slog.Logger,
) (store.KnowledgeStore, error) {
	switch cfg.Type {
	case config.StoreTypeKV:
		st, err := kvstore.Open(ctx, client, cfg.Bucket,
			kvstore.WithLogger(logger),
			kvstore.WithRetry(cfg.Retry.ToRetryConfig()),
		)
		if err != nil {
			return nil, fmt.Errorf("open kv store %s: %w", cfg.Bucket, err)
		}
		return st, nil
	default:
		return memstore.New(memstore.WithLogger(logger)), nil
	}
}

// seedStore inserts the JSON triple array at path.
func seedStore(ctx context.Context, st store.KnowledgeStore, path string, logger *slog.Logger) error {
	data, err := config.ReadSeedFile(path)
	if err != nil {
		return errors.WrapInvalid(err, "main", "seedStore", "read "+path)
	}
	var ds triple.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return errors.WrapInvalid(err, "main", "seedStore", "decode "+path)
	}
	if err := st.Insert(ctx, ds); err != nil {
		return fmt.Errorf("seed store: %w", err)
	}
	logger.Info("Seeded knowledge store", "path", path, "triples", ds.Len())
	return nil
}

// serveBackend answers remote reasoning requests with a local rules
// backend, so this process can act as the server for other instances.
func serveBackend(ctx context.Context, rc config.ReasonerConfig, client *natsclient.Client, deps factory.Deps) error {
	local := rc
	local.Backend = config.BackendRules
	backend, err := factory.NewBackend(local, deps)
	if err != nil {
		return fmt.Errorf("create served backend: %w", err)
	}
	if err := remote.Serve(ctx, client, rc.Remote.Prefix, rc.Remote.Queue, backend, deps.Logger); err != nil {
		return fmt.Errorf("serve backend on %s: %w", rc.Remote.Prefix, err)
	}
	return nil
}

func backendInfos(active string) []gateway.BackendInfo {
	supported := factory.SupportedBackends()
	out := make([]gateway.BackendInfo, 0, len(supported))
	for _, b := range supported {
		out = append(out, gateway.BackendInfo{
			Name:        b.Name,
			Description: b.Description,
			Kinds:       b.Kinds,
			NeedsNATS:   b.NeedsNATS,
			Active:      b.Name == active,
		})
	}
	return out
}
