package http

import (
	"context"
	"net/http"
	"time"

	"warehouse/internal/config"
	"warehouse/internal/domain"
	"warehouse/internal/infra/auth/oidc"
	"warehouse/internal/infra/auth/revocation"
	"warehouse/internal/infra/db"
	"warehouse/internal/infra/memstore"
	"warehouse/internal/infra/metrics"
	"warehouse/internal/infra/policyopa"
	"warehouse/internal/infra/ratelimit"
	"warehouse/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.Config
	store  *db.Store
	r      *gin.Engine
	logger *zap.Logger

	pipeline    *usecase.AuthPipeline
	authInitErr error
	policyGate  domain.Gate

	accounts  *usecase.AccountService
	products  *usecase.ProductService
	inventory *usecase.InventoryService
	orders    *usecase.OrderService

	rateLimiter     domain.RateLimiter
	rateLimitWindow time.Duration

	metrics *metrics.Metrics
	redis   redis.UniversalClient
	started time.Time
}

type ServerDeps struct {
	Pipeline    *usecase.AuthPipeline
	AuthInitErr error
	PolicyGate  domain.Gate
	Accounts    *usecase.AccountService
	Products    *usecase.ProductService
	Inventory   *usecase.InventoryService
	Orders      *usecase.OrderService
	RateLimiter domain.RateLimiter
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	Store       *db.Store
}

// NewServer wires repositories, the token verifier and the rate limiter from
// cfg. A nil or disabled store selects the in-memory repositories.
func NewServer(cfg config.Config, store *db.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := ServerDeps{
		Store:   store,
		Logger:  logger,
		Metrics: metrics.New(cfg.MetricsEnabled),
	}

	var redisClient redis.UniversalClient
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}

	var (
		accountRepo   usecase.AccountRepository
		productRepo   usecase.ProductRepository
		inventoryRepo usecase.InventoryRepository
		orderRepo     usecase.OrderRepository
	)
	if store.Enabled() {
		accountRepo = db.NewAccountRepository(store.DB)
		productRepo = db.NewProductRepository(store.DB)
		inventoryRepo = db.NewInventoryRepository(store.DB)
		orderRepo = db.NewOrderRepository(store.DB)
	} else {
		accountRepo = memstore.NewAccounts()
		productRepo = memstore.NewProducts()
		inventoryRepo = memstore.NewInventory()
		orderRepo = memstore.NewOrders()
	}

	revocations := revocation.NewMemoryList()
	if redisClient != nil {
		if list, err := revocation.NewRedisList(redisClient); err == nil {
			revocations = list
		}
	}

	verifier, err := oidc.NewVerifier(cfg, oidc.WithRevocations(revocations))
	if err != nil {
		logger.Error("token verifier unavailable; protected routes will fail", zap.Error(err))
		deps.AuthInitErr = err
	} else {
		deps.Pipeline = usecase.NewAuthPipeline(verifier, accountRepo)
	}

	if cfg.AuthzPolicyPath != "" {
		gate, err := policyopa.NewGateFromPath(context.Background(), cfg.AuthzPolicyPath)
		if err != nil {
			logger.Error("authz policy failed to load", zap.String("path", cfg.AuthzPolicyPath), zap.Error(err))
			deps.AuthInitErr = err
		} else {
			deps.PolicyGate = gate
		}
	}

	deps.Accounts = usecase.NewAccountService(accountRepo, revocations)
	deps.Products = usecase.NewProductService(productRepo)
	deps.Inventory = usecase.NewInventoryService(inventoryRepo, productRepo)
	deps.Orders = usecase.NewOrderService(orderRepo, productRepo)

	if redisClient != nil {
		if limiter, err := ratelimit.NewRedisLimiter(redisClient, nil); err == nil {
			deps.RateLimiter = limiter
		}
	}

	s := NewServerWithDeps(cfg, deps)
	s.redis = redisClient
	return s
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New(false)
	}
	s := &Server{
		cfg:         cfg,
		store:       deps.Store,
		r:           r,
		logger:      logger,
		pipeline:    deps.Pipeline,
		authInitErr: deps.AuthInitErr,
		policyGate:  deps.PolicyGate,
		accounts:    deps.Accounts,
		products:    deps.Products,
		inventory:   deps.Inventory,
		orders:      deps.Orders,
		metrics:     m,
		started:     time.Now(),
	}
	if s.pipeline == nil && s.authInitErr == nil {
		s.authInitErr = errAuthNotConfigured
	}
	s.initRateLimit(deps.RateLimiter)
	r.Use(s.requestLogger())
	s.routes()
	return s
}

func (s *Server) initRateLimit(limiter domain.RateLimiter) {
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	if limiter == nil {
		limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{MaxKeys: s.cfg.RateLimitMaxKeys})
	}
	s.rateLimiter = limiter
}

func (s *Server) routes() {
	s.r.GET("/", s.handleRoot)
	s.r.GET("/healthz", s.handleHealth)
	if s.metrics.Enabled() {
		s.r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := s.r.Group("/api", s.rateLimit(s.generalRate()))

	auth := api.Group("/auth", s.rateLimit(s.authRate()))
	auth.GET("", s.handleAuthInfo)
	auth.POST("/register", s.handleRegister)
	auth.POST("/login", s.guard(s.policy("auth:login"), nil), s.handleLogin)

	products := api.Group("/products", s.rateLimit(s.productRate()))
	products.GET("", s.handleListProducts)
	products.GET("/search/:query", s.handleSearchProducts)
	products.GET("/:id", s.handleGetProduct)
	adminProducts := s.adminOnly("products:write")
	products.POST("", append(adminProducts, s.handleCreateProduct)...)
	products.PUT("/:id", append(adminProducts, s.handleUpdateProduct)...)
	products.DELETE("/:id", append(adminProducts, s.handleDeleteProduct)...)

	inventory := api.Group("/inventory", s.adminOnly("inventory")...)
	inventory.GET("", s.handleListInventory)
	inventory.POST("/update", s.handleUpdateInventory)
	inventory.GET("/low-stock", s.handleLowStock)
	inventory.DELETE("/:id", s.handleDeleteInventory)

	orders := api.Group("/orders")
	orders.GET("", append(s.adminOnly("orders:list"), s.handleListOrders)...)
	orders.POST("", s.guard(s.policy("orders:create", customerGate()), nil), s.handleCreateOrder)
	orders.GET("/:id", s.guard(s.policy("orders:read", customerGate(), ownerGate()), s.orderOwner), s.handleGetOrder)
	orders.PUT("/:id", append(s.adminOnly("orders:update"), s.handleUpdateOrderStatus)...)
	orders.DELETE("/:id", append(s.adminOnly("orders:delete"), s.handleDeleteOrder)...)

	users := api.Group("/users")
	users.GET("", append(s.adminOnly("users:list"), s.handleListUsers)...)
	users.GET("/:id", s.guard(s.policy("users:read", ownerGate()), pathOwner("id")), s.handleGetUser)
	users.PUT("/:id", s.guard(s.policy("users:update", ownerGate()), pathOwner("id")), s.handleUpdateUser)
	users.DELETE("/:id", append(s.adminOnly("users:delete"), s.handleDeleteUser)...)
	users.GET("/:id/orders", s.guard(s.policy("users:orders", ownerGate()), pathOwner("id")), s.handleListUserOrders)
	users.POST("/:id/revoke-tokens", append(s.adminOnly("users:revoke"), s.handleRevokeTokens)...)

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Handler() http.Handler {
	return s.r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if s.redis != nil {
		_ = s.redis.Close()
	}
	return err
}
