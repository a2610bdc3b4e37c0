package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/signup-activation/internal/config"
	"github.com/iliyamo/signup-activation/internal/database"
	"github.com/iliyamo/signup-activation/internal/handler"
	"github.com/iliyamo/signup-activation/internal/notifier"
	"github.com/iliyamo/signup-activation/internal/queue"
	"github.com/iliyamo/signup-activation/internal/repository"
	"github.com/iliyamo/signup-activation/internal/router"
	"github.com/iliyamo/signup-activation/internal/service"
	"github.com/iliyamo/signup-activation/internal/utils"
	"github.com/iliyamo/signup-activation/internal/worker"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg := config.Load()
	rlCfg := config.LoadRateLimitConfig()

	logger := log.New("signup")
	logger.SetHeader(`{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}"}`)
	logger.SetLevel(parseLevel(cfg.LogLevel))
	if rlCfg.Debug {
		logger.SetLevel(log.DEBUG)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatalf("db migrate: %v", err)
	}

	signups := repository.NewSignupRepo(db)
	counters := counterStore(ctx, rlCfg, db, logger)
	limiter := service.NewLimiter(counters, logger, cfg.DBTimeout)
	janitor := worker.NewRateLimitJanitor(counters, rlCfg.Retention(), rlCfg.JanitorInterval, logger)

	signupSvc := service.NewSignupService(signups, utils.NewTokenGenerator(), newNotifier(cfg.Mail, logger), logger, cfg.ActivationURL, cfg.DBTimeout)
	activationSvc := service.NewActivationService(signups, logger, cfg.DBTimeout)

	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.HTTPErrorHandler = handler.HTTPErrorHandler(logger)
	if cfg.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())
	e.Use(echomw.BodyLimit("64K"))
	router.UseCORS(e, cfg.AllowedOrigins)

	router.RegisterRoutes(e, handler.ReadyHandler{DB: db})
	router.RegisterSignup(e,
		handler.NewSignupHandler(signupSvc),
		handler.NewActivationHandler(activationSvc),
		limiter, rlCfg)
	router.RegisterAdmin(e, handler.NewAdminHandler(signups, janitor, logger), cfg.JWTSecret)
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set; /admin routes disabled")
	}

	go janitor.Run(ctx)

	addr := ":" + cfg.Port
	go func() {
		logger.Infof("listening on %s (env=%s, notifier=%s, ratelimit=%s)", addr, cfg.Env, cfg.Mail.Notifier, rlCfg.Backend)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// counterStore picks the rate-limit backend.  Redis is preferred; when it is
// unreachable the counters live in MySQL instead.
func counterStore(ctx context.Context, cfg config.RateLimitConfig, db *sql.DB, logger *log.Logger) service.CounterStore {
	if cfg.Backend == config.BackendRedis {
		client, err := config.NewRedisClient(ctx)
		if err == nil {
			return repository.NewRedisRateLimitStore(client, cfg.Prefix)
		}
		logger.Warnf("redis unavailable, using mysql rate limit counters: %v", err)
	}
	return repository.NewRateLimitRepo(db)
}

func newNotifier(cfg config.MailConfig, logger *log.Logger) notifier.Notifier {
	switch cfg.Notifier {
	case "sendgrid":
		return notifier.NewSendGrid(cfg.SendGridAPIKey, cfg.SendGridURL, cfg.FromEmail, cfg.FromName)
	case "amqp":
		return queue.NewPublisher(cfg.AMQPURL, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

func parseLevel(s string) log.Lvl {
	switch s {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
