package allocation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pointbank/pointbank/internal/ledger"
	"github.com/pointbank/pointbank/internal/wallet"
)

var (
	// ErrSpendShortfall means the member's lots could not cover a spend the
	// coordinator had already balance-checked. This signals a consistency
	// violation between the aggregate balance and the lot states, not an
	// expected user error.
	ErrSpendShortfall = errors.New("usable lots cannot cover spend amount")

	// ErrRestoreShortfall means a spend reversal found less used capacity
	// across lots than the amount being reversed. Reversal amounts are
	// bounded by the order's remaining approved amount, so this too signals
	// corrupted lot state.
	ErrRestoreShortfall = errors.New("used lots cannot cover reversal amount")
)

// resavedLotTTL is how far out re-issued capacity expires.
const resavedLotTTL = 1 // years

// WalletTx is the slice of a member-scoped transaction the engine draws on.
// All methods operate under the caller's exclusive-access window.
type WalletTx interface {
	// UsableLots returns effective-normal lots with usable capacity as of
	// the given instant, in draw order.
	UsableLots(ctx context.Context, asOf time.Time) ([]wallet.Lot, error)
	// RestorableLots returns stored-normal lots with used capacity, in
	// restore order. Lapsed lots are included; the engine decides how to
	// restore them.
	RestorableLots(ctx context.Context) ([]wallet.Lot, error)
	AddLotUsed(ctx context.Context, lotID string, delta int64) error
	CreateLot(ctx context.Context, lot wallet.Lot) error
	CreateSpendDetail(ctx context.Context, d ledger.SpendDetail) error
}

// Engine walks a member's point lots to apply spends and spend reversals.
// It never touches the aggregate balance; that stays with the coordinator.
type Engine struct {
	logger *slog.Logger
	newID  func() string
}

// NewEngine constructs an allocation engine.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger, newID: uuid.NewString}
}

// Spend consumes amount across the member's usable lots, soonest-expiring
// grant lots first, partially filling across lots as needed, and records the
// per-order spend detail. The caller must have verified the balance covers
// amount; a shortfall here is reported as ErrSpendShortfall.
func (e *Engine) Spend(ctx context.Context, tx WalletTx, amount int64, orderRef string, at time.Time) error {
	lots, err := tx.UsableLots(ctx, at)
	if err != nil {
		return err
	}

	remaining := amount
	for _, lot := range lots {
		if remaining <= 0 {
			break
		}
		usable := lot.Usable()
		if usable <= 0 {
			continue
		}
		target := min64(usable, remaining)
		if err := tx.AddLotUsed(ctx, lot.ID, target); err != nil {
			return err
		}
		remaining -= target
	}

	if remaining > 0 {
		e.logger.Error("spend allocation shortfall",
			slog.String("order_ref", orderRef),
			slog.Int64("amount", amount),
			slog.Int64("uncovered", remaining))
		return ErrSpendShortfall
	}

	return tx.CreateSpendDetail(ctx, ledger.SpendDetail{
		ID:        e.newID(),
		OrderRef:  orderRef,
		Amount:    amount,
		CreatedAt: at,
	})
}

// ReverseSpend restores amount across the member's used lots in reverse
// draw order. Lots still in their validity window get their used amount
// decremented in place; lapsed capacity is never written back into the
// expired lot but reborn as a fresh resaving lot expiring one year out.
func (e *Engine) ReverseSpend(ctx context.Context, tx WalletTx, memberID string, amount int64, at time.Time) error {
	lots, err := tx.RestorableLots(ctx)
	if err != nil {
		return err
	}

	remaining := amount
	for _, lot := range lots {
		if remaining <= 0 {
			break
		}
		if lot.Used <= 0 {
			continue
		}
		target := min64(lot.Used, remaining)

		if lot.EffectiveStatus(at) == wallet.StatusExpired {
			reborn := wallet.Lot{
				ID:        e.newID(),
				MemberID:  memberID,
				Issued:    target,
				Used:      0,
				Status:    wallet.StatusNormal,
				Source:    wallet.SourceResaving,
				ExpiresOn: wallet.DateOf(at).AddDate(resavedLotTTL, 0, 0),
				CreatedAt: at,
			}
			if err := tx.CreateLot(ctx, reborn); err != nil {
				return err
			}
			e.logger.Info("re-issued lapsed capacity",
				slog.String("member_id", memberID),
				slog.String("lapsed_lot_id", lot.ID),
				slog.String("new_lot_id", reborn.ID),
				slog.Int64("amount", target))
		} else {
			if err := tx.AddLotUsed(ctx, lot.ID, -target); err != nil {
				return err
			}
		}

		remaining -= target
	}

	if remaining > 0 {
		e.logger.Error("reversal allocation shortfall",
			slog.String("member_id", memberID),
			slog.Int64("amount", amount),
			slog.Int64("unrestored", remaining))
		return ErrRestoreShortfall
	}

	return nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
