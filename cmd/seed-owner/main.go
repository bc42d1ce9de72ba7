// Command seed-owner creates the single platform OWNER account. It refuses
// to run when an owner already exists; owner accounts are never created
// through the signup endpoint.
package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/talimuddin/roomhub/internal/config"
	"github.com/talimuddin/roomhub/internal/db"
	"github.com/talimuddin/roomhub/internal/models"
	"github.com/talimuddin/roomhub/internal/observ"
	"github.com/talimuddin/roomhub/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	email := os.Getenv("OWNER_EMAIL")
	password := os.Getenv("OWNER_PASSWORD")
	if email == "" || password == "" {
		return fmt.Errorf("OWNER_EMAIL and OWNER_PASSWORD must be set")
	}

	ctx := context.Background()
	if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	users := postgres.NewUserStore(database.Pool())

	existing, err := users.FindByRole(ctx, models.RoleOwner)
	if err != nil {
		return fmt.Errorf("check for existing owner: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("owner already exists: %s", existing.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	owner := &models.User{
		Email:        email,
		UserName:     config.GetEnv("OWNER_USERNAME", "owner"),
		FullName:     config.GetEnv("OWNER_NAME", "Platform Owner"),
		PasswordHash: string(hash),
		Role:         models.RoleOwner,
	}
	if err := users.Create(ctx, owner); err != nil {
		return fmt.Errorf("create owner: %w", err)
	}

	fmt.Printf("owner created: %s (%s)\n", owner.Email, owner.ID)
	return nil
}
