package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/agent-portal-api/internal/models"
)

// ProcessRepository stores process definitions as JSON documents.
type ProcessRepository struct {
	db *sqlx.DB
}

// NewProcessRepository constructs the repository.
func NewProcessRepository(db *sqlx.DB) *ProcessRepository {
	return &ProcessRepository{db: db}
}

type processRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Definition string    `db:"definition"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type processDefinition struct {
	Stages []models.Stage `json:"stages"`
}

// GetProcess loads a process and decodes its stage tree. Missing rows yield sql.ErrNoRows.
func (r *ProcessRepository) GetProcess(ctx context.Context, id string) (*models.Process, error) {
	query := r.db.Rebind(`SELECT id, name, definition, updated_at FROM processes WHERE id = ?`)
	var row processRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	var def processDefinition
	if err := json.Unmarshal([]byte(row.Definition), &def); err != nil {
		return nil, fmt.Errorf("decode process %s definition: %w", id, err)
	}
	return &models.Process{ID: row.ID, Name: row.Name, Stages: def.Stages, UpdatedAt: row.UpdatedAt}, nil
}

// List returns process ids and names ordered by name.
func (r *ProcessRepository) List(ctx context.Context) ([]models.Process, error) {
	const query = `SELECT id, name, updated_at FROM processes ORDER BY name`
	var processes []models.Process
	if err := r.db.SelectContext(ctx, &processes, query); err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	return processes, nil
}

// Upsert inserts or replaces a process definition.
func (r *ProcessRepository) Upsert(ctx context.Context, process *models.Process) error {
	payload, err := json.Marshal(processDefinition{Stages: process.Stages})
	if err != nil {
		return fmt.Errorf("encode process %s definition: %w", process.ID, err)
	}
	if process.UpdatedAt.IsZero() {
		process.UpdatedAt = time.Now().UTC()
	}
	query := r.db.Rebind(`INSERT INTO processes (id, name, definition, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET name = excluded.name, definition = excluded.definition, updated_at = excluded.updated_at`)
	if _, err := r.db.ExecContext(ctx, query, process.ID, process.Name, string(payload), process.UpdatedAt); err != nil {
		return fmt.Errorf("upsert process %s: %w", process.ID, err)
	}
	return nil
}
