package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arklim/menu-accounts/internal/core/port"
	"github.com/arklim/menu-accounts/internal/infra/config"
	"github.com/arklim/menu-accounts/internal/infra/database"
	kafkainfra "github.com/arklim/menu-accounts/internal/infra/kafka"
	"github.com/arklim/menu-accounts/internal/infra/logger"
	"github.com/arklim/menu-accounts/internal/infra/mail"
	"github.com/arklim/menu-accounts/internal/infra/payment"
	redisinfra "github.com/arklim/menu-accounts/internal/infra/redis"
	"github.com/arklim/menu-accounts/internal/infra/security"
	"github.com/arklim/menu-accounts/internal/infra/telemetry"
	postgresrepo "github.com/arklim/menu-accounts/internal/repository/postgres"
	redisrepo "github.com/arklim/menu-accounts/internal/repository/redis"
	"github.com/arklim/menu-accounts/internal/transport/http/middleware"
	"github.com/arklim/menu-accounts/internal/transport/http/routes"
	"github.com/arklim/menu-accounts/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	if cfg.Telemetry.OTLPEndpoint != "" {
		tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, cfg.App.Env, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		a.tracer = tp
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	a.pool = pool

	if cfg.Postgres.AutoMigrate {
		if err := database.Migrate(ctx, pool, log); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	store := postgresrepo.NewStore(pool)

	// Rate limiting fails open while Redis is unreachable and resumes once it answers.
	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	a.redis = redisClient
	limitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), cfg.Redis.KeyPrefix)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			a.producer = kafkaProducer
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var mailer port.EmailSender
	if cfg.Mail.Host != "" {
		smtp, err := mail.NewSMTPSender(cfg.Mail, log)
		if err != nil {
			return nil, fmt.Errorf("init mail: %w", err)
		}
		mailer = smtp
	} else {
		log.Info("mail host not configured, logging outgoing email")
		mailer = mail.NewLogSender(log)
	}

	payments, err := payment.NewStripeProvider(cfg.Payment, log)
	if err != nil {
		return nil, fmt.Errorf("init payments: %w", err)
	}

	metrics, err := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	hasher, err := security.NewArgon2Hasher(port.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	credentialPolicy := security.DefaultCredentialValidator()

	codec, err := security.NewSignedTokenCodec(cfg.Security.SignupSecret)
	if err != nil {
		return nil, fmt.Errorf("init token codec: %w", err)
	}

	signer, err := security.NewSessionSigner(cfg.Session.Secret, cfg.App.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("init session signer: %w", err)
	}

	sessions, err := usecase.NewSessionManager(signer, store, cfg.Session.TTL)
	if err != nil {
		return nil, fmt.Errorf("init session manager: %w", err)
	}

	policies := usecase.PoliciesFromConfig(cfg.RateLimit)
	limiter := usecase.NewRateLimiter(limitStore, cfg.RateLimit.StoreTimeout, metrics, log)

	authService, err := usecase.NewAuthService(store, hasher, credentialPolicy, sessions, limiter, policies, metrics, log)
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}

	signupService, err := usecase.NewSignupService(usecase.SignupSettings{
		BaseURL:     cfg.App.BaseURL,
		Prices:      cfg.Payment.Prices,
		TokenTTL:    cfg.Security.SignupTokenTTL,
		RequestTTL:  cfg.Security.SignupRequestTTL,
		SuccessPath: cfg.Payment.SuccessPath,
		CancelPath:  cfg.Payment.CancelPath,
		VerifyCode:  policies.VerifyCode,
	}, usecase.SignupDependencies{
		Store:    store,
		Hasher:   hasher,
		Policy:   credentialPolicy,
		Codec:    codec,
		Digester: security.NewCodeDigester(cfg.Security.SignupSecret),
		Mailer:   mailer,
		Payments: payments,
		Events:   eventPublisher,
		Limiter:  limiter,
		Metrics:  metrics,
		Logger:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("init signup service: %w", err)
	}

	tenantService, err := usecase.NewTenantService(store, cfg.App.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("init tenant service: %w", err)
	}

	adminService, err := usecase.NewAdminService(store, hasher, credentialPolicy, cfg.App.BaseURL, metrics, log)
	if err != nil {
		return nil, fmt.Errorf("init admin service: %w", err)
	}
	if cfg.Admin.Enabled() {
		if _, err := adminService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	deps := routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: limiter,
		Policies:    policies,
		HTTPMetrics: httpMetrics,
		Tracer:      telemetry.Tracer(),
		Database:    pool,
		Services: routes.ServiceSet{
			Auth:     authService,
			Signup:   signupService,
			Tenants:  tenantService,
			Admin:    adminService,
			Sessions: sessions,
		},
		Cache: a.redis,
	}
	a.engine = routes.Register(deps)

	ok = true
	return a, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting menu accounts API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
		zap.Strings("plans", a.cfg.Payment.Plans()),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// close releases resources in reverse order of acquisition.
func (a *Application) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			a.logger.Warn("shutdown tracer", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
