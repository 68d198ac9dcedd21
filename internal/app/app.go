// Package app assembles stores, repositories and services from config. Every
// entry point (HTTP server, CLI commands, workers) builds on it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/worktimer/internal/command"
	"github.com/jmehdipour/worktimer/internal/config"
	"github.com/jmehdipour/worktimer/internal/db"
	"github.com/jmehdipour/worktimer/internal/devops"
	"github.com/jmehdipour/worktimer/internal/logger"
	"github.com/jmehdipour/worktimer/internal/repository"
	"github.com/jmehdipour/worktimer/internal/service/bonus"
	"github.com/jmehdipour/worktimer/internal/service/devsync"
	"github.com/jmehdipour/worktimer/internal/service/ledger"
	"github.com/jmehdipour/worktimer/internal/service/report"
	"github.com/jmehdipour/worktimer/internal/service/versions"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Cfg   config.Config
	Log   *zap.Logger
	DB    *sqlx.DB
	Redis *redis.Client // nil when not configured

	Customers repository.CustomersRepository
	Projects  repository.ProjectsRepository
	Entries   repository.LedgerRepository
	Rates     repository.BonusRepository
	Outbox    repository.OutboxRepository
	Items     repository.WorkItemsRepository

	Ledger   *ledger.Service
	Versions *versions.Service
	Bonus    *bonus.Service
	Report   *report.Service
	Sync     *devsync.Service

	Bus *command.Bus
}

// New opens the store (migrating it when configured), connects redis if an
// address is set, and builds every service.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	dbx, err := db.Open(cfg.Store.Driver, cfg.Store.DSN, db.PoolOpts{
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
		PingTimeout:     cfg.Store.PingTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if cfg.Store.MigrateOnStart {
		applied, err := db.Migrate(ctx, dbx)
		if err != nil {
			_ = dbx.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("store migrated", zap.String("driver", cfg.Store.Driver), zap.Int("applied", applied))
	}

	rdb, err := db.NewRedisClient(db.RedisOpts{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err != nil {
		_ = dbx.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	a := &App{
		Cfg:       cfg,
		Log:       log,
		DB:        dbx,
		Redis:     rdb,
		Customers: repository.NewCustomersRepository(dbx),
		Projects:  repository.NewProjectsRepository(dbx),
		Entries:   repository.NewLedgerRepository(dbx),
		Rates:     repository.NewBonusRepository(dbx),
		Outbox:    repository.NewOutboxRepository(dbx),
		Items:     repository.NewWorkItemsRepository(dbx),
	}

	topic := cfg.Kafka.Topic
	if topic == "" {
		topic = ledger.DefaultTopic
	}
	a.Ledger = ledger.New(dbx, a.Customers, a.Projects, a.Entries, a.Rates, a.Outbox, log, ledger.WithTopic(topic))
	a.Versions = versions.New(dbx, a.Customers, a.Projects, a.Entries, log)
	a.Bonus = bonus.New(dbx, a.Rates, log)
	a.Report = report.New(repository.NewReportsRepository(dbx))
	a.Sync = devsync.New(a.Customers, a.Items, a.connector(), a.statusStore(), log,
		devsync.WithConcurrency(cfg.Sync.Concurrency))

	a.Bus = command.New(command.Services{
		Ledger:   a.Ledger,
		Versions: a.Versions,
		Bonus:    a.Bonus,
		Report:   a.Report,
		Sync:     a.Sync,
	}, log)

	return a, nil
}

func (a *App) connector() *devops.HTTPConnector {
	c := a.Cfg.DevOps
	return devops.NewHTTPConnector(devops.Options{
		BaseURL:       c.BaseURL,
		APIVersion:    c.APIVersion,
		Timeout:       time.Duration(c.TimeoutMs) * time.Millisecond,
		BatchSize:     c.BatchSize,
		FailThreshold: c.Breaker.FailThreshold,
		OpenFor:       time.Duration(c.Breaker.OpenForMs) * time.Millisecond,
	}, a.Log)
}

// statusStore shares sync status through redis when available so every
// process sees the same picture.
func (a *App) statusStore() devsync.StatusStore {
	if a.Redis != nil {
		return devsync.NewRedisStatusStore(a.Redis, "", a.Cfg.Sync.StaleTTL)
	}
	return devsync.NewMemoryStatusStore()
}

// Scheduler builds the periodic sync driver from the sync config.
func (a *App) Scheduler() *devsync.Scheduler {
	return devsync.NewScheduler(a.Sync, devsync.SchedulerConfig{
		IncrementalInterval: a.Cfg.Sync.IncrementalInterval,
		FullRefreshHour:     a.Cfg.Sync.FullRefreshHour,
		RetryDelay:          a.Cfg.Sync.RetryDelay,
	}, a.Log)
}

func (a *App) Close() error {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	return a.DB.Close()
}

// Load reads config from path (embedded defaults when empty), builds the
// logger and assembles the App.
func Load(ctx context.Context, path string) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return New(ctx, cfg, log)
}
