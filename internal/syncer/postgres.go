package syncer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"opschart/pkg/domain"
)

const (
	pgDriver   = "pgx"
	defaultDSN = "postgres://localhost/opschart?sslmode=disable"
)

// entityTables maps change entity types to their mirror tables. Rows are
// stored as JSON payloads keyed by workspace and entity id, which keeps the
// remote schema stable while the entity shapes evolve.
var entityTables = map[domain.EntityType]string{
	domain.EntityFunction:            "functions",
	domain.EntitySubFunction:         "sub_functions",
	domain.EntityCoreActivity:        "core_activities",
	domain.EntitySubFunctionActivity: "sub_function_activities",
	domain.EntityWorkflow:            "workflows",
	domain.EntityPhase:               "phases",
	domain.EntityStep:                "steps",
	domain.EntityStepActivity:        "step_activities",
	domain.EntityPerson:              "people",
	domain.EntityRole:                "roles",
	domain.EntitySoftware:            "software",
	domain.EntityChecklistItem:       "checklist_items",
	domain.EntityWorkspace:           "workspaces",
}

// PostgresRemote mirrors change records into per-entity Postgres tables.
type PostgresRemote struct {
	db *sql.DB
}

var _ RemoteStore = (*PostgresRemote)(nil)

// NewPostgresRemote opens the remote database (falling back to a local
// default DSN) and ensures the mirror tables exist.
func NewPostgresRemote(ctx context.Context, dsn string) (*PostgresRemote, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open(pgDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	r := &PostgresRemote{db: db}
	if err := r.ensureTables(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *PostgresRemote) ensureTables(ctx context.Context) error {
	for _, table := range entityTables {
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			payload JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, table)
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure table %s: %w", table, err)
		}
	}
	return nil
}

// Apply upserts or deletes the mirrored row for one change record.
func (r *PostgresRemote) Apply(ctx context.Context, workspaceID string, change domain.Change) error {
	table, ok := entityTables[change.Entity]
	if !ok {
		return fmt.Errorf("no mirror table for entity %s", change.Entity)
	}
	id := ChangeEntityID(change)
	if id == "" {
		return fmt.Errorf("change for %s carries no entity id", change.Entity)
	}

	if change.Action == domain.ActionDelete {
		query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND workspace_id = $2`, table)
		if _, err := r.db.ExecContext(ctx, query, id, workspaceID); err != nil {
			return fmt.Errorf("delete %s/%s: %w", table, id, err)
		}
		return nil
	}

	payload, err := json.Marshal(change.After)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", table, id, err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, workspace_id, payload, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET workspace_id = excluded.workspace_id, payload = excluded.payload, updated_at = now()`, table)
	if _, err := r.db.ExecContext(ctx, query, id, workspaceID, payload); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", table, id, err)
	}
	return nil
}

// Close closes the database handle.
func (r *PostgresRemote) Close() error { return r.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (r *PostgresRemote) DB() *sql.DB { return r.db }
