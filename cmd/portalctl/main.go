package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/noah-isme/agent-portal-api/internal/cli"
	"github.com/noah-isme/agent-portal-api/internal/repository"
	"github.com/noah-isme/agent-portal-api/pkg/config"
	"github.com/noah-isme/agent-portal-api/pkg/database"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(newApp()).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Connect: func(ctx context.Context) (*cli.Backend, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, fmt.Errorf("load config: %w", err)
			}
			db, err := database.Open(cfg.Database)
			if err != nil {
				return nil, fmt.Errorf("open %s database: %w", cfg.Database.Driver, err)
			}
			return &cli.Backend{
				Processes:    repository.NewProcessRepository(db),
				Applications: repository.NewApplicationRepository(db),
				Migrate: func(ctx context.Context) error {
					return database.Migrate(ctx, db)
				},
				Close: db.Close,
			}, nil
		},
	}
}
