package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/agent-portal-api/internal/models"
)

// ProcessStore persists process definitions.
type ProcessStore interface {
	GetProcess(ctx context.Context, id string) (*models.Process, error)
	Upsert(ctx context.Context, process *models.Process) error
}

// ApplicationStore seeds applications and their completion flags.
type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	UpdateFlags(ctx context.Context, id string, flags models.CompletionFlags, at time.Time) error
}

// Backend is an open database connection and the stores built on it.
type Backend struct {
	Processes    ProcessStore
	Applications ApplicationStore
	Migrate      func(ctx context.Context) error
	Close        func() error
}

// App holds what the commands need. Connect is only called by commands that touch the database.
type App struct {
	Connect func(ctx context.Context) (*Backend, error)
	Now     func() time.Time
}

// NewRootCmd creates the top-level "portalctl" command.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Operator tooling for the agent portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCmd(app),
		newProcessCmd(app),
		newBookingCmd(),
		newApplicationCmd(app),
	)

	return root
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

// withBackend opens the backend, runs fn and closes the connection.
func (a *App) withBackend(ctx context.Context, fn func(*Backend) error) error {
	backend, err := a.Connect(ctx)
	if err != nil {
		return err
	}
	if backend.Close != nil {
		defer backend.Close() //nolint:errcheck
	}
	return fn(backend)
}

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the portal schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withBackend(cmd.Context(), func(b *Backend) error {
				if err := b.Migrate(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
				return nil
			})
		},
	}
}
