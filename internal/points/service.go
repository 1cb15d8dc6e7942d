package points

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/pointbank/pointbank/internal/allocation"
	"github.com/pointbank/pointbank/internal/ledger"
	"github.com/pointbank/pointbank/internal/member"
	"github.com/pointbank/pointbank/internal/notification"
	"github.com/pointbank/pointbank/internal/orderref"
	"github.com/pointbank/pointbank/internal/policy"
	"github.com/pointbank/pointbank/internal/wallet"
)

// Grant expiry must land in [event date + 1 day, event date + 5 years).
// Unset expiry defaults to one year after the event date.
const (
	defaultExpiryYears = 1
	maxExpiryYears     = 5
)

// Service is the balance coordinator. Every operation runs inside the
// member's exclusive-access window: policy and balance checks, lot work via
// the allocation engine, the ledger append, and the balance update all
// commit or fail together.
type Service struct {
	store    Store
	policies policy.Provider
	refs     orderref.Generator
	engine   *allocation.Engine
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the balance coordinator.
func NewService(store Store, policies policy.Provider, refs orderref.Generator, engine *allocation.Engine, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		policies: policies,
		refs:     refs,
		engine:   engine,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// GrantInput captures a grant approval request.
type GrantInput struct {
	MemberID  string
	Amount    int64
	ExpiresOn time.Time // zero value: defaults to one year after EventAt
	EventAt   time.Time // zero value: now
}

// ReverseGrantInput captures a grant reversal against a specific lot.
type ReverseGrantInput struct {
	MemberID string
	WalletID string
	Amount   int64
	EventAt  time.Time
}

// SpendInput captures a spend approval request.
type SpendInput struct {
	MemberID string
	Amount   int64
	EventAt  time.Time
}

// ReverseSpendInput captures a spend reversal keyed by order reference.
type ReverseSpendInput struct {
	MemberID string
	OrderRef string
	Amount   int64
	EventAt  time.Time
}

// Result describes an approved operation. OrderRef is set for spends and
// spend reversals, WalletID for grants.
type Result struct {
	MemberID string
	Amount   int64
	OrderRef string
	WalletID string
}

// Grant validates the amount against grant and holding-cap policy, appends
// the grant entry, raises the balance, and creates a fresh lot.
func (s *Service) Grant(ctx context.Context, in GrantInput) (Result, error) {
	if in.Amount <= 0 {
		return Result{}, ErrMalformedRequest
	}
	eventAt := s.resolveEventAt(in.EventAt)
	expiresOn := in.ExpiresOn
	if expiresOn.IsZero() {
		expiresOn = wallet.DateOf(eventAt).AddDate(defaultExpiryYears, 0, 0)
	} else {
		expiresOn = wallet.DateOf(expiresOn)
	}

	lotID := uuid.NewString()
	err := s.store.InMemberTx(ctx, in.MemberID, func(tx Tx) error {
		if err := s.validateGrantAmount(ctx, in.Amount); err != nil {
			return err
		}
		balance, err := tx.Balance(ctx)
		if err != nil {
			return err
		}
		if err := s.validateBalanceCap(ctx, balance, in.Amount); err != nil {
			return err
		}
		if err := validateExpiry(expiresOn, eventAt); err != nil {
			return err
		}

		if err := tx.AppendEntry(ctx, ledger.Entry{
			ID:        uuid.NewString(),
			MemberID:  in.MemberID,
			Type:      ledger.EventGrant,
			Amount:    in.Amount,
			EventAt:   eventAt,
			CreatedAt: s.now().UTC(),
		}); err != nil {
			return err
		}
		if err := tx.AddBalance(ctx, in.Amount); err != nil {
			return err
		}
		return tx.CreateLot(ctx, wallet.Lot{
			ID:        lotID,
			MemberID:  in.MemberID,
			Issued:    in.Amount,
			Used:      0,
			Status:    wallet.StatusNormal,
			Source:    wallet.SourceGrant,
			ExpiresOn: expiresOn,
			CreatedAt: s.now().UTC(),
		})
	})
	if err != nil {
		return Result{}, s.translate(err, "grant", in.MemberID)
	}

	s.notify(ctx, notification.KindPointsGranted, in.MemberID, in.Amount)
	return Result{MemberID: in.MemberID, Amount: in.Amount, WalletID: lotID}, nil
}

// ReverseGrant cancels an unused lot, appending the reversal entry and
// lowering the balance by the lot's issued amount.
func (s *Service) ReverseGrant(ctx context.Context, in ReverseGrantInput) (Result, error) {
	if in.Amount <= 0 {
		return Result{}, ErrMalformedRequest
	}
	eventAt := s.resolveEventAt(in.EventAt)

	err := s.store.InMemberTx(ctx, in.MemberID, func(tx Tx) error {
		lot, err := tx.Lot(ctx, in.WalletID)
		if err != nil {
			if errors.Is(err, wallet.ErrNotFound) {
				return ErrWalletNotFound
			}
			return err
		}
		if lot.Used > 0 {
			return ErrWalletAlreadyUsed
		}
		if lot.EffectiveStatus(eventAt) != wallet.StatusNormal {
			return ErrWalletTerminal
		}
		// The aggregate balance only stays equal to the sum of lot
		// capacity if the reversal retracts exactly what the lot issued.
		if in.Amount != lot.Issued {
			return ErrMalformedRequest
		}

		balance, err := tx.Balance(ctx)
		if err != nil {
			return err
		}
		if balance < in.Amount {
			return ErrInsufficientBalance
		}

		if err := tx.AppendEntry(ctx, ledger.Entry{
			ID:        uuid.NewString(),
			MemberID:  in.MemberID,
			Type:      ledger.EventGrantReversal,
			Amount:    in.Amount,
			EventAt:   eventAt,
			CreatedAt: s.now().UTC(),
		}); err != nil {
			return err
		}
		if err := tx.AddBalance(ctx, -in.Amount); err != nil {
			return err
		}
		return tx.SetLotStatus(ctx, in.WalletID, wallet.StatusCancelled)
	})
	if err != nil {
		return Result{}, s.translate(err, "grant_reversal", in.MemberID)
	}

	s.notify(ctx, notification.KindGrantReversed, in.MemberID, in.Amount)
	return Result{MemberID: in.MemberID, Amount: in.Amount, WalletID: in.WalletID}, nil
}

// Spend draws the amount from the member's usable lots, soonest expiry
// first, appends the spend entry under a fresh order reference, and lowers
// the balance.
func (s *Service) Spend(ctx context.Context, in SpendInput) (Result, error) {
	if in.Amount <= 0 {
		return Result{}, ErrMalformedRequest
	}
	eventAt := s.resolveEventAt(in.EventAt)
	orderRef := s.refs.Next()

	err := s.store.InMemberTx(ctx, in.MemberID, func(tx Tx) error {
		balance, err := tx.Balance(ctx)
		if err != nil {
			return err
		}
		if balance < in.Amount {
			return ErrInsufficientBalance
		}

		if err := s.engine.Spend(ctx, tx, in.Amount, orderRef, eventAt); err != nil {
			return err
		}
		if err := tx.AppendEntry(ctx, ledger.Entry{
			ID:        uuid.NewString(),
			MemberID:  in.MemberID,
			Type:      ledger.EventSpend,
			Amount:    in.Amount,
			OrderRef:  orderRef,
			EventAt:   eventAt,
			CreatedAt: s.now().UTC(),
		}); err != nil {
			return err
		}
		return tx.AddBalance(ctx, -in.Amount)
	})
	if err != nil {
		return Result{}, s.translate(err, "spend", in.MemberID)
	}

	s.notify(ctx, notification.KindPointsSpent, in.MemberID, in.Amount)
	return Result{MemberID: in.MemberID, Amount: in.Amount, OrderRef: orderRef}, nil
}

// ReverseSpend restores part or all of a prior spend. The original spend
// entry is locked for the duration so concurrent reversals of the same order
// serialize on the over-reversal check.
func (s *Service) ReverseSpend(ctx context.Context, in ReverseSpendInput) (Result, error) {
	if in.Amount <= 0 || in.OrderRef == "" {
		return Result{}, ErrMalformedRequest
	}
	eventAt := s.resolveEventAt(in.EventAt)

	err := s.store.InMemberTx(ctx, in.MemberID, func(tx Tx) error {
		spend, err := tx.SpendEntry(ctx, in.OrderRef)
		if err != nil {
			if errors.Is(err, ledger.ErrEntryNotFound) {
				return ErrSpendNotFound
			}
			return err
		}
		if spend.MemberID != in.MemberID {
			return ErrSpendNotFound
		}
		if in.Amount > spend.Amount {
			return ErrOverReversal
		}
		reversed, err := tx.ReversedTotal(ctx, in.OrderRef)
		if err != nil {
			return err
		}
		if in.Amount > spend.Amount-reversed {
			return ErrOverReversal
		}

		if err := s.engine.ReverseSpend(ctx, tx, in.MemberID, in.Amount, eventAt); err != nil {
			return err
		}
		if err := tx.AppendEntry(ctx, ledger.Entry{
			ID:        uuid.NewString(),
			MemberID:  in.MemberID,
			Type:      ledger.EventSpendReversal,
			Amount:    in.Amount,
			OrderRef:  in.OrderRef,
			EventAt:   eventAt,
			CreatedAt: s.now().UTC(),
		}); err != nil {
			return err
		}
		return tx.AddBalance(ctx, in.Amount)
	})
	if err != nil {
		return Result{}, s.translate(err, "spend_reversal", in.MemberID)
	}

	s.notify(ctx, notification.KindSpendReversed, in.MemberID, in.Amount)
	return Result{MemberID: in.MemberID, Amount: in.Amount, OrderRef: in.OrderRef}, nil
}

// Lots exposes the member's lots for the audit view.
func (s *Service) Lots(ctx context.Context, memberID string) ([]wallet.Lot, error) {
	lots, err := s.store.Lots(ctx, memberID)
	if err != nil {
		return nil, s.translate(err, "lots", memberID)
	}
	return lots, nil
}

func (s *Service) validateGrantAmount(ctx context.Context, amount int64) error {
	minAmount, err := s.policies.Get(ctx, policy.KeyGrantMin)
	if err != nil {
		return err
	}
	maxAmount, err := s.policies.Get(ctx, policy.KeyGrantMax)
	if err != nil {
		return err
	}
	if amount < minAmount {
		return ErrBelowMinimum
	}
	if amount > maxAmount {
		return ErrAboveMaximum
	}
	return nil
}

func (s *Service) validateBalanceCap(ctx context.Context, balance, amount int64) error {
	maxBalance, err := s.policies.Get(ctx, policy.KeyBalanceMax)
	if err != nil {
		return err
	}
	if amount > math.MaxInt64-balance {
		return ErrBalanceCapExceeded
	}
	if balance+amount > maxBalance {
		return ErrBalanceCapExceeded
	}
	return nil
}

func validateExpiry(expiresOn, eventAt time.Time) error {
	eventDate := wallet.DateOf(eventAt)
	if expiresOn.Before(eventDate.AddDate(0, 0, 1)) {
		return ErrExpiryTooSoon
	}
	if !expiresOn.Before(eventDate.AddDate(maxExpiryYears, 0, 0)) {
		return ErrExpiryTooFar
	}
	return nil
}

func (s *Service) resolveEventAt(at time.Time) time.Time {
	if at.IsZero() {
		return s.now().UTC()
	}
	return at.UTC()
}

// translate converts internal conditions into the typed error taxonomy.
// Typed errors pass through; anything else is logged with full context and
// surfaced opaquely.
func (s *Service) translate(err error, op, memberID string) error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	if errors.Is(err, member.ErrNotFound) {
		return ErrMemberNotFound
	}
	s.logger.Error("point operation failed",
		slog.String("op", op),
		slog.String("member_id", memberID),
		slog.Any("error", err))
	return err
}

func (s *Service) notify(ctx context.Context, kind, memberID string, amount int64) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		Destination: memberID,
		Amount:      amount,
	})
}
