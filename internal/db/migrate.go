package db

import (
	"context"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate runs the embedded migrations up to the latest version. goose
// needs a database/sql handle, so it opens its own short-lived connection
// through the pgx stdlib driver rather than borrowing from the pool.
func Migrate(ctx context.Context, databaseURL string) error {
	goose.SetBaseFS(migrationsFS)

	sqlDB, err := goose.OpenDBWithDriver("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("goose: open DB: %w", err)
	}
	defer sqlDB.Close()

	if err := goose.RunContext(ctx, "up", sqlDB, "migrations"); err != nil {
		return fmt.Errorf("goose: up: %w", err)
	}
	return nil
}
