package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MattewMattew/ManagmentBoard/internal/client/redmine"
	"github.com/MattewMattew/ManagmentBoard/internal/config"
	"github.com/MattewMattew/ManagmentBoard/internal/credentials"
	"github.com/MattewMattew/ManagmentBoard/internal/db"
	"github.com/MattewMattew/ManagmentBoard/internal/lock"
	"github.com/MattewMattew/ManagmentBoard/internal/logger"
	gormrepository "github.com/MattewMattew/ManagmentBoard/internal/repository/gorm"
	"github.com/MattewMattew/ManagmentBoard/internal/service"
)

// app holds the handles every subcommand shares. Fields past DB are filled
// by wire.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	db     *db.DB

	store   *gormrepository.Store
	keys    *credentials.FileKeyStore
	client  *redmine.Client
	locker  lock.Locker
	sync    *service.IssueSyncService
	query   *service.IssueQueryService
	apiKeys *service.APIKeyService
	closers []func() error
}

func loadApp() (*app, error) {
	cfg, err := config.Load(configPath, envOnly)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &app{cfg: cfg, logger: log}, nil
}

// openStore opens the DB handle and blocks until the store answers. The
// handle is registered with the closers before the wait, so callers that
// defer close release it on failure too.
func (a *app) openStore(ctx context.Context) error {
	conn, err := db.Open(a.cfg.DB)
	if err != nil {
		a.logger.Error("db open failed", zap.Error(err))
		return fmt.Errorf("open db: %w", err)
	}
	a.db = conn
	a.closers = append(a.closers, func() error { return db.Close(conn) })

	policy := db.RetryPolicyFromConfig(a.cfg.DB.Bootstrap)
	if err := db.NewBootstrapper(conn, policy, a.cfg.DB.ProbeTimeout, a.logger).WaitReady(ctx); err != nil {
		a.logger.Error("store not reachable", zap.Error(err))
		return err
	}
	if err := db.SetTimezone(conn, a.cfg.DB.Timezone); err != nil {
		a.logger.Warn("failed to set timezone", zap.Error(err))
	}
	return nil
}

func (a *app) migrate() error {
	if err := db.AutoMigrate(a.db); err != nil {
		a.logger.Error("auto-migrate failed", zap.Error(err))
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

func (a *app) wire() error {
	a.store = gormrepository.New(a.db.Gorm)
	a.keys = credentials.NewFileKeyStore(a.cfg.Credentials.APIKeysFile)
	a.client = redmine.NewClient(&http.Client{Timeout: a.cfg.Redmine.Timeout}, a.cfg.Redmine.BaseURL)

	switch strings.ToLower(strings.TrimSpace(a.cfg.Sync.LockBackend)) {
	case "", "memory":
		a.locker = lock.NewMemoryLocker()
	case "redis":
		rl := lock.NewRedisLocker(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		a.locker = rl
		a.closers = append(a.closers, rl.Close)
	default:
		return fmt.Errorf("unsupported sync.lock_backend: %s", a.cfg.Sync.LockBackend)
	}

	filter := a.cfg.Redmine.Filter
	a.sync = &service.IssueSyncService{
		Fetcher: &service.IssueFetcher{
			Client:   a.client,
			Keys:     a.keys,
			Logger:   a.logger,
			MaxPages: a.cfg.Redmine.MaxPages,
		},
		Committer: &service.IssueCommitter{
			Store:  a.store,
			Logger: a.logger,
		},
		Runs:   a.store,
		Locker: a.locker,
		Logger: a.logger,
		Filter: redmine.ListIssuesRequest{
			Status:            filter.Status,
			ExcludeProjectIDs: filter.ExcludeProjectIDs,
			CreatedSince:      filter.CreatedSince,
		},
		PageSize:      a.cfg.Redmine.PageSize,
		BatchSize:     a.cfg.Sync.BatchSize,
		LockTTL:       a.cfg.Sync.LockTTL,
		CommitPartial: a.cfg.Sync.CommitPartial,
	}
	a.query = &service.IssueQueryService{Repo: a.store}
	a.apiKeys = &service.APIKeyService{Keys: a.keys, Client: a.client}
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
