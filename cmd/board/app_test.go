package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MattewMattew/ManagmentBoard/internal/config"
	"github.com/MattewMattew/ManagmentBoard/internal/db"
)

func TestOpenStore_UnreachableReturnsErrorAndKeepsCloser(t *testing.T) {
	a := &app{
		logger: zap.NewNop(),
		cfg: config.Config{DB: config.DBConfig{
			Driver:       db.DriverPostgres,
			DSN:          "host=127.0.0.1 port=1 user=board password=board dbname=board sslmode=disable connect_timeout=1",
			ProbeTimeout: time.Second,
			Bootstrap:    config.RetryConfig{MaxAttempts: 2, Delay: time.Millisecond},
		}},
	}

	err := a.openStore(context.Background())
	if !errors.Is(err, db.ErrStoreUnavailable) {
		t.Fatalf("err=%v want ErrStoreUnavailable", err)
	}
	if a.db == nil || len(a.closers) != 1 {
		t.Fatalf("db=%v closers=%d want handle registered for close", a.db, len(a.closers))
	}
	a.close()
	if err := a.db.SQL.Ping(); err == nil {
		t.Fatalf("handle still open after close")
	}
}

func TestOpenStore_SQLiteThenMigrate(t *testing.T) {
	a := &app{
		logger: zap.NewNop(),
		cfg: config.Config{DB: config.DBConfig{
			Driver:       db.DriverSQLite,
			DSN:          filepath.Join(t.TempDir(), "board.db"),
			ProbeTimeout: time.Second,
			Bootstrap:    config.RetryConfig{MaxAttempts: 1, Delay: time.Millisecond},
		}},
	}
	defer a.close()

	if err := a.openStore(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := a.migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !a.db.Gorm.Migrator().HasTable("issues") {
		t.Fatalf("issues table missing after migrate")
	}
}
