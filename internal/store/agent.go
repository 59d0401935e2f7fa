package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkale-dev/swarmd/internal/domain"
)

// AgentStore is the Postgres system of record for agents. Rows are
// soft-deleted: a deleted agent keeps its row so the id can never be
// assigned again, which prevents log/output cross-talk between an old
// and a new agent of the same name.
type AgentStore struct {
	db *pgxpool.Pool
}

func NewAgentStore(db *pgxpool.Pool) *AgentStore {
	return &AgentStore{db: db}
}

func (s *AgentStore) Create(ctx context.Context, a *domain.Agent) error {
	bp, err := json.Marshal(a.Blueprint)
	if err != nil {
		return err
	}
	schema, err := json.Marshal(a.InputSchema)
	if err != nil {
		return err
	}
	err = s.db.QueryRow(ctx,
		`INSERT INTO agents (id, name, description, state, trigger_type, blueprint, input_schema)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		a.ID, a.Name, a.Description, a.State, a.TriggerType, bp, schema,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *AgentStore) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	return scanAgent(s.db.QueryRow(ctx,
		`SELECT id, name, description, state, trigger_type, blueprint, input_schema, created_at, updated_at
		 FROM agents WHERE id = $1 AND deleted_at IS NULL`,
		id,
	))
}

func (s *AgentStore) Update(ctx context.Context, a *domain.Agent) error {
	bp, err := json.Marshal(a.Blueprint)
	if err != nil {
		return err
	}
	schema, err := json.Marshal(a.InputSchema)
	if err != nil {
		return err
	}
	err = s.db.QueryRow(ctx,
		`UPDATE agents
		 SET name = $2, description = $3, blueprint = $4, input_schema = $5, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL
		 RETURNING updated_at`,
		a.ID, a.Name, a.Description, bp, schema,
	).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *AgentStore) UpdateState(ctx context.Context, id string, state domain.AgentState) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE agents SET state = $2, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, state,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete retires the id. The row stays behind the unique constraint
// so Create with the same id reports ErrConflict forever after.
func (s *AgentStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE agents SET deleted_at = now(), updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *AgentStore) List(ctx context.Context) ([]*domain.Agent, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, description, state, trigger_type, blueprint, input_schema, created_at, updated_at
		 FROM agents WHERE deleted_at IS NULL
		 ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	a := &domain.Agent{}
	var bp, schema []byte
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.State, &a.TriggerType, &bp, &schema, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(bp, &a.Blueprint); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(schema, &a.InputSchema); err != nil {
		return nil, err
	}
	return a, nil
}
