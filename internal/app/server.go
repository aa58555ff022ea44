// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"salescoach-service/internal/config"
	"salescoach-service/internal/db"
	billingHandler "salescoach-service/internal/handlers/billing"
	callHandler "salescoach-service/internal/handlers/call"
	usageHandler "salescoach-service/internal/handlers/usage"
	wsHandler "salescoach-service/internal/handlers/websocket"
	"salescoach-service/internal/middleware"
	"salescoach-service/internal/pkg/jwt"
	"salescoach-service/internal/pkg/session"
	"salescoach-service/internal/repository/memory"
	"salescoach-service/internal/repository/postgres"
	"salescoach-service/internal/service/calls"
	"salescoach-service/internal/service/catalog"
	"salescoach-service/internal/service/entitlement"
	"salescoach-service/internal/service/outcome"
	"salescoach-service/internal/service/overview"
	"salescoach-service/internal/service/subscription"
	"salescoach-service/internal/service/usage"
	"salescoach-service/internal/websocket"
	wsHandlers "salescoach-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	httpServer *http.Server

	// mu guards the resources Start acquires and Shutdown releases.
	mu        sync.Mutex
	pool      *pgxpool.Pool
	redis     redis.UniversalClient
	cancelHub context.CancelFunc
}

// callStore is the call persistence shared by the outcome recorder and the
// call read service.
type callStore interface {
	calls.Store
	outcome.Store
}

type stores struct {
	orgs          overview.OrganizationStore
	subscriptions subscription.Store
	usage         usage.Store
	calls         callStore
}

func NewServer(cfg config.AppConfig) (*Server, error) {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	return &Server{
		cfg:    cfg,
		engine: engine,
		logger: logger,
		httpServer: &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: engine,
		},
	}, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func (s *Server) openStores(ctx context.Context) (*stores, error) {
	switch s.cfg.StorageDriver {
	case config.StorageDriverMemory:
		s.logger.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return &stores{orgs: store, subscriptions: store, usage: store, calls: store}, nil

	case config.StorageDriverPostgres:
		pool, err := db.ConnectDB(ctx, db.PostgresConfig{URL: s.cfg.DatabaseURL, MaxConns: s.cfg.DBMaxConns})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		s.mu.Lock()
		s.pool = pool
		s.mu.Unlock()
		s.logger.Info("connected to PostgreSQL")

		return &stores{
			orgs:          postgres.NewOrganizationRepository(pool),
			subscriptions: postgres.NewSubscriptionRepository(pool),
			usage:         postgres.NewUsageRepository(pool),
			calls:         postgres.NewCallRepository(pool),
		}, nil

	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", s.cfg.StorageDriver)
	}
}

// Start wires every component and blocks serving HTTP until Shutdown.
// Resources are released when serving stops, also when Shutdown ran first.
func (s *Server) Start(ctx context.Context) error {
	logger := s.logger
	defer s.release()

	// ----- Storage -----
	st, err := s.openStores(ctx)
	if err != nil {
		return err
	}

	// ----- Redis -----
	redisClient, err := db.NewRedis(db.RedisConfig{
		ClusterMode: s.cfg.RedisCluster,
		Addresses:   s.cfg.RedisAddrs,
		Password:    s.cfg.RedisPass,
		PoolSize:    10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s.mu.Lock()
	s.redis = redisClient
	s.mu.Unlock()
	logger.Info("connected to Redis", zap.Strings("addrs", s.cfg.RedisAddrs))

	// ----- JWT Verifier -----
	verifier, err := jwt.LoadVerifier(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT verifier: %w", err)
	}

	// ----- Session Manager & Rate Limiter -----
	sessionManager := session.NewManager(redisClient)
	rateLimiter := session.NewRateLimiter(redisClient)

	// ----- Services -----
	plans := catalog.New()
	resolver := subscription.NewResolver(st.subscriptions, logger)
	counter := usage.NewCounter(st.usage, logger)
	gate := entitlement.NewGate(resolver, counter, plans, s.cfg.BillingBypass, logger)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(verifier, sessionManager, logger)
	hub.RegisterHandler(wsHandlers.NewUsageHandler(counter))

	hubCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancelHub = cancel
	s.mu.Unlock()
	go hub.Run(hubCtx)

	tracker := entitlement.NewTracker(gate, counter, hub, logger)
	recorder := outcome.NewRecorder(st.calls, logger)
	callService := calls.NewService(st.calls, logger)
	overviewService := overview.NewService(st.orgs, resolver, counter, plans, logger)

	// ----- Middlewares -----
	s.engine.Use(middleware.Global(logger, s.cfg.CORSAllowedOrigins)...)

	// ----- Router -----
	SetupRouter(s.engine, logger, &Handlers{
		UsageHandler:   usageHandler.NewUsageHandler(gate, tracker, counter),
		BillingHandler: billingHandler.NewBillingHandler(overviewService, plans),
		CallHandler:    callHandler.NewCallHandler(recorder, callService),
		WSHandler:      wsHandler.NewWebSocketHandler(hub, s.cfg.CORSAllowedOrigins, logger),
		AuthMiddleware: middleware.NewAuthMiddleware(verifier, sessionManager, logger),
		RateLimiter:    rateLimiter,
		RatePerMinute:  s.cfg.RateLimitPerMinute,
	})

	// ----- Start HTTP -----
	logger.Info("server running",
		zap.String("addr", s.cfg.HTTPAddr),
		zap.String("storage", s.cfg.StorageDriver),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP connections, stops the hub and closes the pools.
// Calling it before Start makes Start return without serving.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownErr := s.httpServer.Shutdown(ctx)
	s.release()
	_ = s.logger.Sync()
	return shutdownErr
}

// release stops whatever Start has acquired so far. Safe to call twice.
func (s *Server) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelHub != nil {
		s.cancelHub()
		s.cancelHub = nil
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("failed to close Redis client", zap.Error(err))
		}
		s.redis = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

func (s *Server) Logger() *zap.Logger {
	return s.logger
}
