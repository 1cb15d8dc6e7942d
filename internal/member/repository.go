package member

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the member does not exist.
var ErrNotFound = errors.New("member not found")

// Repository persists member records.
type Repository interface {
	Create(ctx context.Context, m Member) error
	Get(ctx context.Context, id string) (Member, error)
}

// PostgresRepository stores members in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a member record.
func (r *PostgresRepository) Create(ctx context.Context, m Member) error {
	memberID, err := uuid.Parse(m.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO members (id, point_balance, created_at)
        VALUES ($1, $2, $3)`, memberID, m.Balance, m.CreatedAt.UTC())
	return err
}

// Get fetches a member by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Member, error) {
	memberID, err := uuid.Parse(id)
	if err != nil {
		return Member{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, point_balance, created_at
        FROM members WHERE id = $1`, memberID)
	var m Member
	var idVal uuid.UUID
	var createdAt time.Time
	if err := row.Scan(&idVal, &m.Balance, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, ErrNotFound
		}
		return Member{}, err
	}
	m.ID = idVal.String()
	m.CreatedAt = createdAt.UTC()
	return m, nil
}
