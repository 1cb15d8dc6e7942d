package points

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pointbank/pointbank/internal/ledger"
	"github.com/pointbank/pointbank/internal/member"
	"github.com/pointbank/pointbank/internal/wallet"
)

const lotColumns = `id, member_id, issued_amount, used_amount, status, source, expires_on, created_at`

// PostgresStore implements Store on PostgreSQL. The exclusive-access window
// is a transaction opened with `SELECT ... FOR UPDATE` on the member row, so
// two operations on the same member serialize at the database while
// operations on different members share nothing.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// InMemberTx locks the member row and runs fn inside the transaction.
func (s *PostgresStore) InMemberTx(ctx context.Context, memberID string, fn func(tx Tx) error) error {
	memberUUID, err := uuid.Parse(memberID)
	if err != nil {
		return member.ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var balance int64
	if err := tx.QueryRow(ctx,
		`SELECT point_balance FROM members WHERE id = $1 FOR UPDATE`, memberUUID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return member.ErrNotFound
		}
		return err
	}

	if err := fn(&pgTx{tx: tx, memberID: memberUUID, balance: balance}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Lots returns all of the member's lots, newest first.
func (s *PostgresStore) Lots(ctx context.Context, memberID string) ([]wallet.Lot, error) {
	memberUUID, err := uuid.Parse(memberID)
	if err != nil {
		return nil, member.ErrNotFound
	}
	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM members WHERE id = $1)`, memberUUID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, member.ErrNotFound
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+lotColumns+` FROM point_wallets WHERE member_id = $1 ORDER BY created_at DESC`, memberUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLots(rows)
}

type pgTx struct {
	tx       pgx.Tx
	memberID uuid.UUID
	balance  int64
}

func (t *pgTx) Balance(_ context.Context) (int64, error) {
	return t.balance, nil
}

func (t *pgTx) AddBalance(ctx context.Context, delta int64) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE members SET point_balance = point_balance + $2 WHERE id = $1`, t.memberID, delta)
	if err != nil {
		return err
	}
	t.balance += delta
	return nil
}

func (t *pgTx) Lot(ctx context.Context, lotID string) (wallet.Lot, error) {
	lotUUID, err := uuid.Parse(lotID)
	if err != nil {
		return wallet.Lot{}, wallet.ErrNotFound
	}
	row := t.tx.QueryRow(ctx,
		`SELECT `+lotColumns+` FROM point_wallets WHERE id = $1 AND member_id = $2`, lotUUID, t.memberID)
	lot, err := scanLot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return wallet.Lot{}, wallet.ErrNotFound
		}
		return wallet.Lot{}, err
	}
	return lot, nil
}

func (t *pgTx) UsableLots(ctx context.Context, asOf time.Time) ([]wallet.Lot, error) {
	rows, err := t.tx.Query(ctx, `
        SELECT `+lotColumns+`
        FROM point_wallets
        WHERE member_id = $1
          AND status = 'normal'
          AND issued_amount > used_amount
          AND expires_on >= $2
        ORDER BY
          CASE WHEN source = 'grant' THEN 0 ELSE 1 END ASC,
          expires_on ASC,
          created_at ASC`,
		t.memberID, wallet.DateOf(asOf))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLots(rows)
}

func (t *pgTx) RestorableLots(ctx context.Context) ([]wallet.Lot, error) {
	rows, err := t.tx.Query(ctx, `
        SELECT `+lotColumns+`
        FROM point_wallets
        WHERE member_id = $1
          AND status = 'normal'
          AND used_amount > 0
        ORDER BY expires_on DESC, created_at DESC`,
		t.memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLots(rows)
}

func (t *pgTx) AddLotUsed(ctx context.Context, lotID string, delta int64) error {
	lotUUID, err := uuid.Parse(lotID)
	if err != nil {
		return wallet.ErrNotFound
	}
	tag, err := t.tx.Exec(ctx,
		`UPDATE point_wallets SET used_amount = used_amount + $3 WHERE id = $1 AND member_id = $2`,
		lotUUID, t.memberID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return wallet.ErrNotFound
	}
	return nil
}

func (t *pgTx) SetLotStatus(ctx context.Context, lotID string, status wallet.Status) error {
	lotUUID, err := uuid.Parse(lotID)
	if err != nil {
		return wallet.ErrNotFound
	}
	tag, err := t.tx.Exec(ctx,
		`UPDATE point_wallets SET status = $3 WHERE id = $1 AND member_id = $2`,
		lotUUID, t.memberID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return wallet.ErrNotFound
	}
	return nil
}

func (t *pgTx) CreateLot(ctx context.Context, lot wallet.Lot) error {
	lotUUID, err := uuid.Parse(lot.ID)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `
        INSERT INTO point_wallets (id, member_id, issued_amount, used_amount, status, source, expires_on, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		lotUUID, t.memberID, lot.Issued, lot.Used, string(lot.Status), string(lot.Source),
		lot.ExpiresOn, lot.CreatedAt.UTC())
	return err
}

func (t *pgTx) AppendEntry(ctx context.Context, e ledger.Entry) error {
	entryUUID, err := uuid.Parse(e.ID)
	if err != nil {
		return err
	}
	var orderRef *string
	if e.OrderRef != "" {
		orderRef = &e.OrderRef
	}
	_, err = t.tx.Exec(ctx, `
        INSERT INTO point_ledger (id, member_id, event_type, amount, order_ref, event_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entryUUID, t.memberID, string(e.Type), e.Amount, orderRef, e.EventAt.UTC(), e.CreatedAt.UTC())
	return err
}

func (t *pgTx) SpendEntry(ctx context.Context, orderRef string) (ledger.Entry, error) {
	row := t.tx.QueryRow(ctx, `
        SELECT id, member_id, event_type, amount, order_ref, event_at, created_at
        FROM point_ledger
        WHERE order_ref = $1 AND event_type = $2
        FOR UPDATE`,
		orderRef, string(ledger.EventSpend))
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Entry{}, ledger.ErrEntryNotFound
		}
		return ledger.Entry{}, err
	}
	return entry, nil
}

func (t *pgTx) ReversedTotal(ctx context.Context, orderRef string) (int64, error) {
	var total int64
	err := t.tx.QueryRow(ctx, `
        SELECT COALESCE(SUM(amount), 0)
        FROM point_ledger
        WHERE order_ref = $1 AND event_type = $2`,
		orderRef, string(ledger.EventSpendReversal)).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (t *pgTx) CreateSpendDetail(ctx context.Context, d ledger.SpendDetail) error {
	detailUUID, err := uuid.Parse(d.ID)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `
        INSERT INTO spend_details (id, order_ref, amount, created_at)
        VALUES ($1, $2, $3, $4)`,
		detailUUID, d.OrderRef, d.Amount, d.CreatedAt.UTC())
	return err
}

func scanLots(rows pgx.Rows) ([]wallet.Lot, error) {
	var out []wallet.Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lot)
	}
	return out, rows.Err()
}

func scanLot(row pgx.Row) (wallet.Lot, error) {
	var (
		lot            wallet.Lot
		id, memberID   uuid.UUID
		status, source string
	)
	if err := row.Scan(&id, &memberID, &lot.Issued, &lot.Used, &status, &source, &lot.ExpiresOn, &lot.CreatedAt); err != nil {
		return wallet.Lot{}, err
	}
	lot.ID = id.String()
	lot.MemberID = memberID.String()
	lot.Status = wallet.Status(status)
	lot.Source = wallet.Source(source)
	lot.ExpiresOn = wallet.DateOf(lot.ExpiresOn)
	lot.CreatedAt = lot.CreatedAt.UTC()
	return lot, nil
}

func scanEntry(row pgx.Row) (ledger.Entry, error) {
	var (
		e            ledger.Entry
		id, memberID uuid.UUID
		eventType    string
		orderRef     *string
	)
	if err := row.Scan(&id, &memberID, &eventType, &e.Amount, &orderRef, &e.EventAt, &e.CreatedAt); err != nil {
		return ledger.Entry{}, err
	}
	e.ID = id.String()
	e.MemberID = memberID.String()
	e.Type = ledger.EventType(eventType)
	if orderRef != nil {
		e.OrderRef = *orderRef
	}
	e.EventAt = e.EventAt.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}
