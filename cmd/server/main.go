package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatforge/entitlement/modules/usage"
	"github.com/chatforge/entitlement/pkg/billing"
	"github.com/chatforge/entitlement/pkg/config"
	"github.com/chatforge/entitlement/pkg/email"
	"github.com/chatforge/entitlement/pkg/entitlement"
	"github.com/chatforge/entitlement/pkg/httpserver"
	"github.com/chatforge/entitlement/pkg/logger"
	"github.com/chatforge/entitlement/pkg/pg"
	"github.com/chatforge/entitlement/pkg/redis"
)

const serviceName = "entitlement"

type appConfig struct {
	BillingProvider string        `env:"BILLING_PROVIDER" envDefault:"stripe"` // stripe or paddle
	SyncCooldown    time.Duration `env:"SYNC_COOLDOWN" envDefault:"10m"`       // per-user throttle on provider sync; 0 disables
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		appCfg   appConfig
		logCfg   logger.Config
		pgCfg    pg.Config
		httpCfg  httpserver.Config
		sweepCfg entitlement.SweeperConfig
		emailCfg email.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&logCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&sweepCfg)
	config.MustLoad(&emailCfg)

	log := logger.NewFromConfig(logCfg, serviceName)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	provider, err := newProvider(appCfg.BillingProvider)
	if err != nil {
		return err
	}

	opts := []entitlement.ServiceOption{
		entitlement.WithLogger(log),
		entitlement.WithNotifier(newNotifier(emailCfg, pool, log)),
	}

	if appCfg.SyncCooldown > 0 {
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)

		rdb, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() { _ = rdb.Close() }()

		opts = append(opts,
			entitlement.WithSyncCooldown(entitlement.NewRedisCooldown(rdb, appCfg.SyncCooldown)))
	}

	store := entitlement.NewPostgresStore(pool)
	svc := entitlement.NewService(store, provider, opts...)

	sweeper := entitlement.NewSweeper(svc, sweepCfg, log)
	go func() { _ = sweeper.Start(ctx) }()

	r := chi.NewRouter()
	r.Get("/health", httpserver.HealthCheckHandler(log, pg.Healthcheck(pool)))
	r.Mount("/", usage.Router(svc, usage.RouterOptions{Logger: log}))

	srv := httpserver.New(httpCfg, log)
	return srv.Run(ctx, r)
}

func newProvider(name string) (billing.Provider, error) {
	switch name {
	case "stripe":
		var stripeCfg billing.StripeConfig
		config.MustLoad(&stripeCfg)
		return billing.NewStripeProvider(stripeCfg)
	case "paddle":
		var paddleCfg billing.PaddleConfig
		config.MustLoad(&paddleCfg)
		return billing.NewPaddleProvider(paddleCfg)
	}
	return nil, fmt.Errorf("unknown billing provider: %s", name)
}

// newNotifier wires the revert-to-free email. Account emails live in the
// product's users table in the same database. Without Postmark credentials
// the dev sender logs instead of delivering.
func newNotifier(cfg email.Config, pool *pgxpool.Pool, log *slog.Logger) entitlement.Notifier {
	var sender email.EmailSender
	if cfg.PostmarkServerToken != "" {
		s, err := email.NewPostmarkClient(cfg)
		if err != nil {
			log.Warn("postmark misconfigured, falling back to dev sender", logger.Error(err))
			s = email.NewDevSender(log)
		}
		sender = s
	} else {
		sender = email.NewDevSender(log)
	}

	resolve := func(ctx context.Context, userID uuid.UUID) (string, error) {
		var addr string
		err := pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&addr)
		if err != nil {
			return "", fmt.Errorf("look up email for user %s: %w", userID, err)
		}
		return addr, nil
	}

	return entitlement.NewEmailNotifier(sender, resolve)
}
