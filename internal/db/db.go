// Package db opens the relational store and runs schema migrations.
// Both postgres and mysql are supported; repositories write queries with
// `?` placeholders and rebind per driver.
package db

import (
	"embed"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"rbeam/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Open connects to the configured database and verifies the connection.
func Open(cfg config.DBConfig) (*sqlx.DB, error) {
	database, err := sqlx.Connect(cfg.Type, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Type, err)
	}

	database.SetMaxOpenConns(25)
	database.SetMaxIdleConns(5)
	database.SetConnMaxLifetime(5 * time.Minute)

	return database, nil
}

// Migrate applies pending schema migrations.
func Migrate(database *sqlx.DB, dialect string) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(database.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
