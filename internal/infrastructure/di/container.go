// Package di wires repositories, services, and workers into one container
// built at startup.
package di

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/royal-empire/club_service/internal/domain/services/account"
	"github.com/royal-empire/club_service/internal/domain/services/ledger"
	"github.com/royal-empire/club_service/internal/domain/services/lifecycle"
	"github.com/royal-empire/club_service/internal/domain/services/referral"
	"github.com/royal-empire/club_service/internal/infrastructure/cache"
	"github.com/royal-empire/club_service/internal/infrastructure/config"
	"github.com/royal-empire/club_service/internal/infrastructure/database"
	"github.com/royal-empire/club_service/internal/infrastructure/repositories"
	"github.com/royal-empire/club_service/internal/infrastructure/storage"
	"github.com/royal-empire/club_service/internal/workers/profit_accrual_worker"
	"github.com/royal-empire/club_service/internal/workers/settlement_worker"
	"github.com/royal-empire/club_service/pkg/logger"
)

// Container holds every long-lived component of the application.
type Container struct {
	Config *config.Config
	Logger *logger.Logger

	DB    *sqlx.DB
	Cache cache.RedisClient

	AccountRepo     *repositories.AccountRepository
	TransactionRepo *repositories.TransactionRepository
	InvestmentRepo  *repositories.InvestmentRepository
	LedgerStore     *repositories.PostgresLedgerStore
	ProofStore      storage.ProofStore

	AccountService   *account.Service
	LedgerService    *ledger.Service
	LifecycleService *lifecycle.Service
	ReferralService  *referral.Service

	SettlementWorker    *settlement_worker.Worker
	ProfitAccrualWorker *profit_accrual_worker.Worker
}

// NewContainer builds the full dependency graph. Redis being down is logged
// and tolerated; Postgres being down is fatal.
func NewContainer(cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: log,
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	redisClient, err := cache.NewRedisClient(&cfg.Redis, log.Zap())
	if err != nil {
		log.Warn("Redis unavailable, profile cache disabled", "error", err)
	} else {
		c.Cache = redisClient
	}

	proofStore, err := storage.NewDiskProofStore(cfg.Uploads, log.Zap())
	if err != nil {
		return nil, fmt.Errorf("failed to init proof store: %w", err)
	}
	c.ProofStore = proofStore

	c.AccountRepo = repositories.NewAccountRepository(db, log.Zap())
	c.TransactionRepo = repositories.NewTransactionRepository(db, log.Zap())
	c.InvestmentRepo = repositories.NewInvestmentRepository(db, log.Zap())
	c.LedgerStore = repositories.NewPostgresLedgerStore(
		db,
		c.AccountRepo,
		c.TransactionRepo,
		c.InvestmentRepo,
		time.Duration(cfg.Database.QueryTimeout)*time.Second,
		log.Zap(),
	)

	c.AccountService = account.NewService(c.AccountRepo, c.Cache, account.Config{
		JWTSecret: cfg.JWT.Secret,
		JWTIssuer: cfg.JWT.Issuer,
		JWTTTL:    time.Duration(cfg.JWT.AccessTTL) * time.Second,
	}, log.Zap())

	c.LedgerService = ledger.NewService(
		c.LedgerStore,
		c.AccountRepo,
		c.TransactionRepo,
		c.AccountService,
		ledger.Config{
			ReferralBonusRate: decimal.NewFromFloat(cfg.Referral.BonusRate),
			DailyProfitRate:   decimal.NewFromFloat(cfg.Accrual.DailyRate),
			AccrualPeriod:     cfg.Accrual.Period,
			VerificationDelay: cfg.Settlement.VerificationDelay,
		},
		log.Zap(),
	)

	c.LifecycleService = lifecycle.NewService(c.LedgerStore, c.TransactionRepo, c.LedgerService, log.Zap())
	c.ReferralService = referral.NewService(c.AccountRepo, cfg.Referral.MaxLevels, log.Zap())

	c.SettlementWorker = settlement_worker.NewWorker(
		c.TransactionRepo,
		c.LedgerService,
		&settlement_worker.Config{
			PollInterval: cfg.Settlement.PollInterval,
			BatchSize:    cfg.Settlement.BatchSize,
			MaxRetries:   cfg.Database.MaxRetries,
		},
		log.Zap(),
	)

	c.ProfitAccrualWorker = profit_accrual_worker.NewWorker(
		c.LedgerService,
		&profit_accrual_worker.Config{
			CronSpec:  cfg.Accrual.CronSpec,
			BatchSize: 100,
		},
		log.Zap(),
	)

	return c, nil
}

// Close releases every held resource.
func (c *Container) Close() error {
	var firstErr error

	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.DB != nil {
		if err := c.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
