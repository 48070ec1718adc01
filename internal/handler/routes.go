package handler

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aidevelo/voice-gateway/internal/cache"
	"github.com/aidevelo/voice-gateway/internal/config"
	"github.com/aidevelo/voice-gateway/internal/elevenlabs"
	"github.com/aidevelo/voice-gateway/internal/repository"
	"github.com/aidevelo/voice-gateway/internal/twilio"
	"github.com/aidevelo/voice-gateway/pkg/logger"
	"github.com/aidevelo/voice-gateway/pkg/redis"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandlerManager manages all handlers and their initialization
type HandlerManager struct {
	config      *config.Config
	repoManager repository.RepositoryManager
	redisSvc    *redis.RedisService
	tenants     repository.TenantRepository
	verifier    *twilio.Verifier
	engine      *elevenlabs.Client
}

// NewHandlerManager creates and initializes all handlers and services
func NewHandlerManager(cfg *config.Config) (*HandlerManager, error) {
	repoManager, err := repository.NewRepositoryManager()
	if err != nil {
		logger.Base().Error("failed to connect to database", zap.Error(err))
		return nil, err
	}

	var tenants repository.TenantRepository = repoManager.Tenant()

	// Redis is optional. Without it tenant resolution hits the
	// database on every webhook.
	var redisSvc *redis.RedisService
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		redisPort := os.Getenv("REDIS_PORT")
		if redisPort == "" {
			redisPort = "6379"
		}
		redisDB := 0
		if raw := os.Getenv("REDIS_DB"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				redisDB = n
			}
		}
		redisSvc, err = redis.NewRedisService(&redis.RedisConfig{
			Host:     redisHost,
			Port:     redisPort,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		})
		if err != nil {
			logger.Base().Warn("redis unavailable, tenant cache disabled", zap.Error(err))
			redisSvc = nil
		}
	}
	if redisSvc != nil {
		tenants = cache.NewCachedTenantRepository(tenants, redisSvc)
	}

	engine := elevenlabs.NewClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsBaseURL, cfg.RegisterCallTimeout)
	verifier := twilio.NewVerifier(cfg.TwilioAuthToken, cfg.IsProduction())

	return &HandlerManager{
		config:      cfg,
		repoManager: repoManager,
		redisSvc:    redisSvc,
		tenants:     tenants,
		verifier:    verifier,
		engine:      engine,
	}, nil
}

// SetupAllRoutes sets up all routes with middleware
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	// Apply global middleware
	router.Use(CORSMiddleware)
	router.Use(GlobalLoggingMiddleware)

	hm.SetupWebhookRoutes(router)
	hm.SetupAPIRoutes(router)

	router.HandleFunc("/healthz", hm.handleHealthz).Methods("GET")

	logger.Base().Info("all application routes registered")
}

// SetupWebhookRoutes registers the signature-verified Twilio webhook routes
func (hm *HandlerManager) SetupWebhookRoutes(router *mux.Router) {
	webhookRouter := router.PathPrefix("/api/twilio/voice").Subrouter()
	webhookRouter.Use(hm.verifier.Middleware)

	inboundHandler := NewInboundCallHandler(hm.config, hm.tenants, hm.repoManager.CallLog(), hm.engine)
	webhookRouter.HandleFunc("/inbound", inboundHandler.HandleInboundCall).Methods("POST")

	statusHandler := NewStatusCallbackHandler(hm.tenants, hm.repoManager.CallLog())
	webhookRouter.HandleFunc("/status", statusHandler.HandleStatusCallback).Methods("POST")

	logger.Base().Info("twilio webhook routes registered")
}

// SetupAPIRoutes sets up the dashboard API routes and middleware
func (hm *HandlerManager) SetupAPIRoutes(router *mux.Router) {
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(LoggingMiddleware)

	callsHandler := NewCallsHandler(hm.repoManager.CallLog())
	apiRouter.HandleFunc("/calls/recent", callsHandler.HandleRecentCalls).Methods("GET")

	if !hm.config.IsProduction() {
		devHandler := NewDevHandler(hm.config, hm.tenants)
		apiRouter.HandleFunc("/dev/twilio/test-webhook", devHandler.HandleTestWebhook).Methods("POST")
		logger.Base().Info("dev routes registered")
	}
}

func (hm *HandlerManager) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := hm.repoManager.Ping(ctx); err != nil {
		logger.Base().Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "degraded",
			"error":  "database unreachable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

// Close releases database and cache connections.
func (hm *HandlerManager) Close() {
	if hm.redisSvc != nil {
		if err := hm.redisSvc.Close(); err != nil {
			logger.Base().Warn("failed to close redis connection", zap.Error(err))
		}
	}
	if err := hm.repoManager.Close(); err != nil {
		logger.Base().Warn("failed to close database connection", zap.Error(err))
	}
}
