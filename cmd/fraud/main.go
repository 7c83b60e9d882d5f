package main

import (
	"net/http"
	"strings"
	"time"

	sentry "github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/richxcame/lead-intake/internal/fraud"
	"github.com/richxcame/lead-intake/pkg/common"
	"github.com/richxcame/lead-intake/pkg/config"
	"github.com/richxcame/lead-intake/pkg/database"
	"github.com/richxcame/lead-intake/pkg/health"
	"github.com/richxcame/lead-intake/pkg/logger"
	"github.com/richxcame/lead-intake/pkg/middleware"
	"github.com/richxcame/lead-intake/pkg/redis"
)

const serviceName = "fraud"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	if cfg.Sentry.Enabled && cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Server.Environment,
		}); err != nil {
			logger.Warn("failed to initialize sentry", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(pool)
	logger.Info("connected to PostgreSQL")

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	// Rule lists: built-in defaults unless an override file is configured.
	rules := fraud.DefaultRuleConfig()
	if cfg.Fraud.RulesPath != "" {
		rules, err = fraud.LoadRuleConfig(cfg.Fraud.RulesPath)
		if err != nil {
			logger.Fatal("failed to load fraud rules", zap.String("path", cfg.Fraud.RulesPath), zap.Error(err))
		}
		logger.Info("loaded fraud rules", zap.String("path", cfg.Fraud.RulesPath))
	}

	engineOpts := []fraud.EngineOption{}
	if cfg.Fraud.VoIPLookupURL != "" {
		engineOpts = append(engineOpts, fraud.WithVoIPDetector(
			fraud.NewHTTPVoIPDetector(cfg.Fraud.VoIPLookupURL, cfg.Fraud.VoIPLookupKey)))
	}
	engine := fraud.NewEngine(rules, engineOpts...)

	serviceOpts := []fraud.ServiceOption{
		fraud.WithCache(fraud.NewRedisResultCache(redisClient, time.Duration(cfg.Fraud.CacheTTLSeconds)*time.Second)),
		fraud.WithHistoryLimit(cfg.Fraud.HistoryLimit),
	}

	if cfg.NATS.Enabled {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			logger.Warn("failed to connect to NATS, alerts will not be published", zap.Error(err))
		} else {
			defer nc.Close()
			serviceOpts = append(serviceOpts, fraud.WithAlertPublisher(fraud.NewNATSAlertPublisher(nc)))
			logger.Info("connected to NATS")
		}
	}

	repo := fraud.NewRepository(pool)
	service := fraud.NewService(engine, repo, serviceOpts...)
	handler := fraud.NewHandler(service)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics(serviceName))
	router.Use(middleware.SecurityHeaders())

	if cfg.Sentry.Enabled {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Correlation-ID"}
	router.Use(cors.New(corsConfig))

	router.Use(timeout.New(
		timeout.WithTimeout(time.Duration(cfg.Server.RequestTimeout)*time.Second),
		timeout.WithResponse(func(c *gin.Context) {
			common.ErrorResponse(c, http.StatusRequestTimeout, "request timed out")
		}),
	))

	router.GET("/healthz", common.HealthCheckWithDeps(serviceName, "1.0.0", map[string]func() error{
		"postgres": health.DatabaseChecker(pool),
		"redis":    health.RedisChecker(redisClient.Client),
	}))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	handler.RegisterRoutes(api, cfg.JWT.Secret)

	addr := ":" + cfg.Server.Port
	logger.Info("fraud service starting", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
