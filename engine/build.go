package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gelsogrove/shopME-sub006/cartstate"
	"github.com/gelsogrove/shopME-sub006/config"
	"github.com/gelsogrove/shopME-sub006/contextstore"
	"github.com/gelsogrove/shopME-sub006/events"
	"github.com/gelsogrove/shopME-sub006/lock"
	"github.com/gelsogrove/shopME-sub006/logger"
	"github.com/gelsogrove/shopME-sub006/metrics/prometheus"
	"github.com/gelsogrove/shopME-sub006/storage"
)

// System is a fully wired engine: the router facade plus the collaborators a
// host application needs to hold on to.
type System struct {
	Router   *SmartCartRouter
	Bus      *events.EventBus
	Contexts *contextstore.Service
	Locks    *lock.Manager
	States   *cartstate.Synchronizer

	// Metrics is non-nil when metrics are enabled. Start serves it on the
	// configured address; hosts with their own HTTP server can mount
	// Metrics.Handler() instead and skip Start's listener.
	Metrics *prometheus.Exporter

	redis *redis.Client
}

// BuildSystem assembles an engine from configuration. With no Redis address
// and no database DSN everything runs in process memory, which is the
// single-node deployment; pointing either at real infrastructure swaps the
// backend without touching the rest of the wiring.
func BuildSystem(cfg *config.Config) (*System, error) {
	bus := events.NewEventBus()
	var exporter *prometheus.Exporter
	if cfg.Metrics.Enabled {
		bus.SubscribeAll(prometheus.NewMetricsListener().Listener())
		exporter = prometheus.NewExporter(cfg.Metrics.Addr)
	}

	var (
		store   storage.CartStorage
		catalog storage.CatalogSearch
	)
	if cfg.Database.DSN != "" {
		db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		gs, err := storage.NewGormStore(db)
		if err != nil {
			return nil, fmt.Errorf("initialize cart storage: %w", err)
		}
		store, catalog = gs, gs
	} else {
		ms := storage.NewMemoryStore()
		store, catalog = ms, ms
	}

	var (
		backend contextstore.Backend = contextstore.NewMemoryBackend()
		cache   cartstate.CacheStore = cartstate.NewMemoryCache()
		rdb     *redis.Client
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		backend = contextstore.NewRedisBackend(rdb)
		cache = cartstate.NewRedisCache(rdb)
	}

	contexts := contextstore.NewService(backend,
		contextstore.WithDisambiguationTTL(cfg.Context.DisambiguationTTL),
		contextstore.WithGeneralTTL(cfg.Context.GeneralTTL),
		contextstore.WithSweepInterval(cfg.Context.SweepInterval),
	)

	locks := lock.NewManager(
		lock.WithTTL(cfg.Lock.TTL),
		lock.WithSweepInterval(cfg.Lock.SweepInterval),
		lock.WithMaxQueue(cfg.Lock.MaxQueue),
		lock.WithMaxRetries(cfg.Lock.MaxRetries),
		lock.WithBackoffBase(cfg.Lock.BackoffBase),
		lock.WithEventBus(bus),
	)

	states := cartstate.NewSynchronizer(store, cache, locks,
		cartstate.WithCacheTTL(cfg.Cache.TTL),
		cartstate.WithValidateInterval(cfg.Cache.ValidateInterval),
		cartstate.WithContextStore(contexts),
		cartstate.WithEventBus(bus),
	)

	router := NewSmartCartRouter(store, catalog, contexts, locks, states,
		WithEventBus(bus),
		WithSearchLimit(cfg.Search.Limit),
	)

	return &System{
		Router:   router,
		Bus:      bus,
		Contexts: contexts,
		Locks:    locks,
		States:   states,
		Metrics:  exporter,
		redis:    rdb,
	}, nil
}

// Start launches the background workers: the lock sweep, the context sweep,
// the cache validator and, when metrics are enabled, the Prometheus
// exporter. The workers stop when ctx is cancelled; the exporter stops on
// Close.
func (s *System) Start(ctx context.Context) {
	s.Locks.StartSweeper(ctx)
	s.Contexts.StartSweeper(ctx)
	s.States.StartValidator(ctx)

	if s.Metrics != nil {
		go func() {
			if err := s.Metrics.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics exporter stopped", "error", err)
			}
		}()
	}
}

// Close stops the metrics exporter and releases held connections.
func (s *System) Close() error {
	var errs []error
	if s.Metrics != nil {
		errs = append(errs, s.Metrics.Shutdown(context.Background()))
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	return errors.Join(errs...)
}
