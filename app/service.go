// Package app wires configuration, stores, transports and the dispatch
// orchestrator into a runnable service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apidispatch "github.com/platewire/platewire/api/dispatch"
	apiprinters "github.com/platewire/platewire/api/printers"
	"github.com/platewire/platewire/config"
	"github.com/platewire/platewire/core/assign"
	"github.com/platewire/platewire/core/dispatch"
	"github.com/platewire/platewire/core/dispatch/logging"
	coremetrics "github.com/platewire/platewire/core/metrics"
	"github.com/platewire/platewire/core/printerstatus"
	"github.com/platewire/platewire/core/queue"
	"github.com/platewire/platewire/core/validate"
	"github.com/platewire/platewire/infra/configstore"
	infraevents "github.com/platewire/platewire/infra/events"
	"github.com/platewire/platewire/infra/logger"
	"github.com/platewire/platewire/infra/metrics"
	"github.com/platewire/platewire/infra/relay"
	"github.com/platewire/platewire/infra/transport"
	"github.com/platewire/platewire/internal/eventbus"
)

// Service orchestrates the dispatch manager, retry queue and relay agent.
type Service struct {
	Manager *dispatch.Manager
	Queue   *queue.Queue
	Status  *printerstatus.MemoryStore
	Store   *configstore.FileStore

	cfg      *config.Config
	bus      *eventbus.Bus
	audit    logging.LogStore
	agent    *relay.Agent
	statuses *relay.StatusPoller
	nats     *infraevents.NATSPublisher
	bridge   *metrics.Bridge
	log      logger.Logger
}

// New creates a Service from the configuration. orders is the
// order-management collaborator dispatch commits sent flags through.
func New(cfg *config.Config, orders dispatch.OrderStore) (*Service, error) {
	logg := logger.New("service")

	store, err := configstore.NewFileStore(cfg.Store.PrintersPath, logg)
	if err != nil {
		return nil, fmt.Errorf("printer config store: %w", err)
	}
	if cfg.Store.Watch {
		if err := store.Watch(); err != nil {
			return nil, fmt.Errorf("printer config watch: %w", err)
		}
	}

	resolver := assign.NewResolver(store)
	tcp := transport.NewTCPSender()
	gate := validate.NewGate(store, resolver, tcp)

	var relayClient *relay.Client
	if cfg.Relay.Enabled {
		relayClient = relay.NewClient(cfg.Relay, logger.New("relay-client"))
	}
	var router dispatch.Transport
	if relayClient != nil {
		router = transport.NewRouter(tcp, relayClient)
	} else {
		router = transport.NewRouter(tcp, nil)
	}

	bus := eventbus.New()

	q := queue.New(queue.Config{
		Interval:     time.Duration(cfg.Retry.IntervalSeconds) * time.Second,
		SendTimeout:  time.Duration(cfg.Retry.SendTimeoutSeconds) * time.Second,
		BaseBackoff:  time.Duration(cfg.Retry.BaseBackoffSeconds) * time.Second,
		MaxBackoff:   time.Duration(cfg.Retry.MaxBackoffSeconds) * time.Second,
		MaxAttempts:  cfg.Retry.MaxAttempts,
		SnapshotPath: cfg.Retry.SnapshotPath,
	}, router, logger.New("retry-queue"))
	q.SetBus(bus)

	mgr, err := dispatch.NewManager(
		store,
		resolver,
		gate,
		orders,
		router,
		q,
		time.Duration(cfg.Dispatch.TimeoutSeconds)*time.Second,
		time.Duration(cfg.Dispatch.TargetGapMillis)*time.Millisecond,
		logger.New("dispatch"),
	)
	if err != nil {
		return nil, fmt.Errorf("dispatch manager: %w", err)
	}
	mgr.SetBus(bus)

	status := printerstatus.NewMemoryStore()
	mgr.SetStatusStore(status)

	audit, err := newAuditStore(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}
	mgr.SetAuditStore(audit)

	svc := &Service{
		Manager: mgr,
		Queue:   q,
		Status:  status,
		Store:   store,
		cfg:     cfg,
		bus:     bus,
		audit:   audit,
		log:     logg,
	}

	if relayClient != nil {
		svc.statuses = relay.NewStatusPoller(relayClient,
			time.Duration(cfg.Relay.StatusPollSeconds)*time.Second,
			status, bus, logger.New("relay-status"))
	}
	if cfg.Relay.Enabled && cfg.Relay.PrinterID != "" {
		addr := ""
		if t, ok := store.TargetByID(cfg.Relay.PrinterID); ok {
			addr = t.Addr()
		}
		svc.agent = relay.NewAgent(cfg.Relay, relayClient, tcp, addr, logger.New("relay-agent"))
		svc.agent.SetBus(bus)
	}

	if sink := buildSink(cfg.Metrics); sink != nil {
		svc.bridge = metrics.NewBridge(bus, sink, logger.New("metrics-bridge"))
	}
	if cfg.Events.NATSEnabled {
		pub, err := infraevents.NewNATSPublisher(cfg.Events.NATSURL, bus, logger.New("nats-events"))
		if err != nil {
			return nil, fmt.Errorf("nats publisher: %w", err)
		}
		svc.nats = pub
	}
	return svc, nil
}

func newAuditStore(cfg config.AuditConfig) (logging.LogStore, error) {
	switch cfg.Backend {
	case "sqlite":
		return logging.NewSQLiteStore(cfg.Path)
	default:
		return logging.NewJSONLStore(cfg.Path)
	}
}

func buildSink(cfg coremetrics.Config) coremetrics.MetricsSink {
	var sinks []coremetrics.MetricsSink
	if cfg.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket))
	}
	if cfg.LogEnabled {
		sinks = append(sinks, metrics.NewLogSink(logger.New("metrics")))
	}
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	}
	return metrics.NewMultiSink(sinks...)
}

// Run starts the background loops and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.Queue.Run(ctx)
	if s.bridge != nil {
		go s.bridge.Run(ctx)
	}
	if s.nats != nil {
		go s.nats.Run(ctx)
	}
	if s.statuses != nil {
		go s.statuses.Run(ctx)
	}
	if s.agent != nil {
		go func() {
			if err := s.agent.Run(ctx); err != nil {
				s.log.Errorf("relay agent stopped: %v", err)
			}
		}()
	}
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.API.Enabled {
		go func() {
			if err := s.serveAPI(ctx); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}
	<-ctx.Done()
	return nil
}

// serveAPI exposes the operator endpoints until the context is cancelled.
func (s *Service) serveAPI(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/api/dispatch/logs", apidispatch.NewLogHandler(s.audit, s.cfg.API.Token))
	mux.Handle("/api/printers/status", apiprinters.NewStatusHandler(s.Status, s.Queue))
	mux.Handle("/api/queue/revive", apiprinters.NewReviveHandler(s.Queue))
	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.nats != nil {
		_ = s.nats.Close()
	}
	if err := s.Store.Close(); err != nil {
		return err
	}
	return s.Manager.Close()
}
