package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/normabase/normabase/pkg/logger"

	// database/sql access for goose goes through the pgx stdlib driver.
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose configuration is process-global; serialize access to it.
var gooseMu sync.Mutex

// Advisory lock identity. hashtext keeps the two-key form readable in
// pg_locks instead of a bare magic number.
const (
	migrationLockScope = "normabase"
	migrationLockName  = "migrations"
	migrationLockWait  = 45 * time.Second
)

// ApplyMigrations brings the schema up to date from the embedded SQL files.
// dsn must be acceptable to the pgx stdlib driver.
func ApplyMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("store: open db for migrations: %w", err)
	}
	defer db.Close()
	return runMigrations(ctx, db)
}

// ApplyMigrationsWithLock serializes schema changes across concurrent ingest
// runners with a session advisory lock, then migrates. The lock lives on a
// dedicated connection and is released even when ctx is already canceled.
func ApplyMigrationsWithLock(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("store: open db for migrations: %w", err)
	}
	defer db.Close()

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("store: acquire migration connection: %w", err)
	}
	defer conn.Close()

	if err := acquireMigrationLock(ctx, conn); err != nil {
		return err
	}
	defer releaseMigrationLock(ctx, conn)

	return runMigrations(ctx, db)
}

func acquireMigrationLock(ctx context.Context, conn *sql.Conn) error {
	lockCtx, cancel := context.WithTimeout(ctx, migrationLockWait)
	defer cancel()
	_, err := conn.ExecContext(
		lockCtx,
		"select pg_advisory_lock(hashtext($1), hashtext($2))",
		migrationLockScope, migrationLockName,
	)
	if err != nil {
		return fmt.Errorf("store: acquire migration advisory lock: %w", err)
	}
	return nil
}

func releaseMigrationLock(ctx context.Context, conn *sql.Conn) {
	_, err := conn.ExecContext(
		context.WithoutCancel(ctx),
		"select pg_advisory_unlock(hashtext($1), hashtext($2))",
		migrationLockScope, migrationLockName,
	)
	if err != nil {
		logger.FromContext(ctx).Warn("migration advisory lock not released", "error", err)
	}
}

func runMigrations(_ context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("store: set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}
