package points

import (
	"context"
	"time"

	"github.com/pointbank/pointbank/internal/ledger"
	"github.com/pointbank/pointbank/internal/wallet"
)

// Tx is one member's exclusive-access window. All reads and writes inside it
// are serialized against every other operation on the same member, and all
// mutations commit or roll back together. It satisfies allocation.WalletTx.
type Tx interface {
	// Balance returns the member's current point balance as seen by this
	// transaction, including uncommitted deltas.
	Balance(ctx context.Context) (int64, error)
	// AddBalance applies a signed delta to the member's balance.
	AddBalance(ctx context.Context, delta int64) error

	// Lot fetches one of the member's lots by id.
	Lot(ctx context.Context, lotID string) (wallet.Lot, error)
	// UsableLots returns effective-normal lots with usable capacity as of
	// the given instant, in draw order.
	UsableLots(ctx context.Context, asOf time.Time) ([]wallet.Lot, error)
	// RestorableLots returns stored-normal lots with used capacity, in
	// restore order, lapsed lots included.
	RestorableLots(ctx context.Context) ([]wallet.Lot, error)
	AddLotUsed(ctx context.Context, lotID string, delta int64) error
	SetLotStatus(ctx context.Context, lotID string, status wallet.Status) error
	CreateLot(ctx context.Context, lot wallet.Lot) error

	// AppendEntry writes one immutable ledger row.
	AppendEntry(ctx context.Context, e ledger.Entry) error
	// SpendEntry returns the spend entry for an order reference, acquiring
	// exclusive access to it so concurrent reversals of the same order
	// serialize on the over-reversal check.
	SpendEntry(ctx context.Context, orderRef string) (ledger.Entry, error)
	// ReversedTotal sums prior spend-reversal amounts for an order reference.
	ReversedTotal(ctx context.Context, orderRef string) (int64, error)
	CreateSpendDetail(ctx context.Context, d ledger.SpendDetail) error
}

// Store provides member-scoped transactions over the point tables plus the
// lock-free audit reads.
type Store interface {
	// InMemberTx runs fn inside the member's exclusive-access window.
	// Returns member.ErrNotFound when the member does not exist. Any error
	// from fn rolls back every mutation made through the Tx.
	InMemberTx(ctx context.Context, memberID string, fn func(tx Tx) error) error

	// Lots returns all of the member's lots, newest first. Audit read.
	Lots(ctx context.Context, memberID string) ([]wallet.Lot, error)
}
