package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProvider reads policy values from the point_policies table.
type PostgresProvider struct {
	db *pgxpool.Pool
}

// NewPostgresProvider builds a provider backed by PostgreSQL.
func NewPostgresProvider(db *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{db: db}
}

// Get returns the configured value for key.
func (p *PostgresProvider) Get(ctx context.Context, key Key) (int64, error) {
	var value int64
	err := p.db.QueryRow(ctx,
		`SELECT policy_value FROM point_policies WHERE policy_key = $1`, string(key)).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return 0, err
	}
	return value, nil
}
