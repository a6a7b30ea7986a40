package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/posting_backend/config"
	"github.com/mmdatafocus/posting_backend/corebank"
	"github.com/mmdatafocus/posting_backend/middlewares"
	"github.com/mmdatafocus/posting_backend/models"
	"github.com/mmdatafocus/posting_backend/utils"
	"github.com/mmdatafocus/posting_backend/workflow"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("posting-backend")

type postingProcessor interface {
	ProcessPosting(ctx context.Context, req workflow.PostingRequest) workflow.Outcome
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// app holds the posting workflow once its dependencies are connected.
type app struct {
	processor atomic.Pointer[postingProcessor]
}

func (a *app) setProcessor(p postingProcessor) {
	a.processor.Store(&p)
}

func (a *app) ready() bool {
	return a.processor.Load() != nil
}

// postingHandler answers 200 for every business outcome; the outcome code is in the body.
func (a *app) postingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := a.processor.Load()
		if p == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}

		var req workflow.PostingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusBadRequest, errorResponse{Error: utils.ErrorInvalidRequest.Error()})
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{
				Error:  utils.ErrorInvalidRequest.Error(),
				Fields: utils.ProcessValidationErrors(err),
			})
			return
		}
		req.CorrelationId, _ = utils.GetCorrelationIdFromContext(c.Request.Context())

		ctx, span := tracer.Start(c.Request.Context(), "POST /v1/postings")
		defer span.End()
		c.JSON(http.StatusOK, (*p).ProcessPosting(ctx, req))
	}
}

func newRouter(a *app, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(middlewares.ReadinessGate(a.ready))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production origins must be listed in CORS_ALLOWED_ORIGINS; otherwise all are allowed.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = utils.SplitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", middlewares.CorrelationHeader)
	corsConfig.AddExposeHeaders("Content-Length", middlewares.CorrelationHeader)
	r.Use(cors.New(corsConfig))

	// Optional rate limiting.
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		limit := int64FromEnv("RATE_LIMIT_MAX_REQUESTS", 600)
		windowSec := int64FromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)
		rateLimiter := middlewares.NewRateLimiter(config.GetRedisDB, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(middlewares.CustomErrorLogger(logger))
	r.Use(gin.Recovery())
	r.POST("/v1/postings", a.postingHandler())
	r.NoRoute(middlewares.CustomNotFoundHandler)
	return r
}

func int64FromEnv(key string, def int64) int64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Fail fast on routing configuration; nothing can be posted without it.
	postingCfg, err := config.LoadPostingConfig()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "config"}).Fatal(err.Error())
	}
	caller, err := corebank.NewClientFromEnv()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "config"}).Fatal(err.Error())
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start listening before dependencies are up; app endpoints answer 503 until ready.
	a := &app{}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: newRouter(a, logger),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate runs DDL; production can run it as a separate job instead.
	if !config.SkipMigrations() {
		if err := models.MigrateTable(db); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	cacheTTL := time.Duration(int64FromEnv("LOOKUP_CACHE_TTL_SECONDS", 300)) * time.Second
	if strings.TrimSpace(os.Getenv("LOOKUP_CACHE_TTL_SECONDS")) == "0" {
		cacheTTL = 0
	}
	lookups := models.NewCachedLookupRepository(models.NewGormLookupRepository(db), config.GetRedisDB(), cacheTTL, logger)

	a.setProcessor(workflow.NewPostingWorkflow(workflow.WorkflowDeps{
		Reservations: models.NewGormReservationRepository(db),
		Lookups:      lookups,
		Caller:       caller,
		Logger:       logger,
	}, postingCfg))

	// Outbox rows are only written when a topic is configured.
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	if postingCfg.EventsTopic != "" {
		go workflow.NewOutboxDispatcher(db, config.GetRedisLock(), postingCfg.EventsTopic, logger).Run(dispatcherCtx)
	}

	logger.WithFields(logrus.Fields{
		"info":    "Connection Established",
		"profile": postingCfg.Profile,
		"library": postingCfg.Library,
	}).Info("posting service listening on :", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
