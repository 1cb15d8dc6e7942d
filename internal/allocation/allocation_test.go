package allocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pointbank/pointbank/internal/ledger"
	"github.com/pointbank/pointbank/internal/logging"
	"github.com/pointbank/pointbank/internal/wallet"
)

type fakeTx struct {
	lots    []wallet.Lot
	created []wallet.Lot
	details []ledger.SpendDetail
}

func (f *fakeTx) UsableLots(_ context.Context, asOf time.Time) ([]wallet.Lot, error) {
	var out []wallet.Lot
	for _, lot := range f.lots {
		if lot.EffectiveStatus(asOf) == wallet.StatusNormal && lot.Usable() > 0 {
			out = append(out, lot)
		}
	}
	wallet.SortDrawOrder(out)
	return out, nil
}

func (f *fakeTx) RestorableLots(_ context.Context) ([]wallet.Lot, error) {
	var out []wallet.Lot
	for _, lot := range f.lots {
		if lot.Status == wallet.StatusNormal && lot.Used > 0 {
			out = append(out, lot)
		}
	}
	wallet.SortRestoreOrder(out)
	return out, nil
}

func (f *fakeTx) AddLotUsed(_ context.Context, lotID string, delta int64) error {
	for i := range f.lots {
		if f.lots[i].ID == lotID {
			f.lots[i].Used += delta
			return nil
		}
	}
	return wallet.ErrNotFound
}

func (f *fakeTx) CreateLot(_ context.Context, lot wallet.Lot) error {
	f.lots = append(f.lots, lot)
	f.created = append(f.created, lot)
	return nil
}

func (f *fakeTx) CreateSpendDetail(_ context.Context, d ledger.SpendDetail) error {
	f.details = append(f.details, d)
	return nil
}

func (f *fakeTx) lot(t *testing.T, id string) wallet.Lot {
	t.Helper()
	for _, lot := range f.lots {
		if lot.ID == id {
			return lot
		}
	}
	t.Fatalf("lot %s not found", id)
	return wallet.Lot{}
}

var at = time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return wallet.DateOf(at).AddDate(0, 0, offset)
}

func newEngine() *Engine {
	return NewEngine(logging.Discard())
}

func TestSpendDrawsSoonestExpiryFirst(t *testing.T) {
	tx := &fakeTx{lots: []wallet.Lot{
		{ID: "w2", MemberID: "m", Issued: 100, Status: wallet.StatusNormal, Source: wallet.SourceGrant, ExpiresOn: day(30)},
		{ID: "w1", MemberID: "m", Issued: 50, Status: wallet.StatusNormal, Source: wallet.SourceGrant, ExpiresOn: day(10)},
	}}

	if err := newEngine().Spend(context.Background(), tx, 80, "ORD-1", at); err != nil {
		t.Fatalf("spend: %v", err)
	}

	if got := tx.lot(t, "w1").Used; got != 50 {
		t.Fatalf("w1 used: expected 50, got %d", got)
	}
	if got := tx.lot(t, "w2").Used; got != 30 {
		t.Fatalf("w2 used: expected 30, got %d", got)
	}
	if len(tx.details) != 1 || tx.details[0].Amount != 80 || tx.details[0].OrderRef != "ORD-1" {
		t.Fatalf("expected one spend detail for ORD-1/80, got %+v", tx.details)
	}
}

func TestSpendDrawsGrantLotsBeforeResavedOnes(t *testing.T) {
	tx := &fakeTx{lots: []wallet.Lot{
		{ID: "resaved", MemberID: "m", Issued: 40, Status: wallet.StatusNormal, Source: wallet.SourceResaving, ExpiresOn: day(5)},
		{ID: "granted", MemberID: "m", Issued: 40, Status: wallet.StatusNormal, Source: wallet.SourceGrant, ExpiresOn: day(60)},
	}}

	if err := newEngine().Spend(context.Background(), tx, 50, "ORD-1", at); err != nil {
		t.Fatalf("spend: %v", err)
	}

	if got := tx.lot(t, "granted").Used; got != 40 {
		t.Fatalf("granted used: expected 40, got %d", got)
	}
	if got := tx.lot(t, "resaved").Used; got != 10 {
		t.Fatalf("resaved used: expected 10, got %d", got)
	}
}

func TestSpendIgnoresLapsedAndDrainedLots(t *testing.T) {
	tx := &fakeTx{lots: []wallet.Lot{
		{ID: "lapsed", MemberID: "m", Issued: 100, Status: wallet.StatusNormal, Source: wallet.SourceGrant, ExpiresOn: day(-1)},
		{ID: "drained", MemberID: "m", Issued: 30, Used: 30, Status: wallet.StatusNormal, Source: wallet.SourceGrant, ExpiresOn: day(10)},
		{ID: "live", MemberID: "m", Issued: 30, Status: wallet.StatusNormal, Source: wallet.SourceGrant, ExpiresOn: day(10)},
	}}

	if err := newEngine().Spend(context.Background(), tx, 20, "ORD-1", at); err != nil {
		t.Fatalf("spend: %v", err)
	}

	if got := tx.lot(t, "lapsed").Used; got != 0 {
		t.Fatalf("lapsed lot must not be drawn, used=%d", got)
	}
	if got := tx.lot(t, "live").Used; got != 20 {
		t.Fatalf("live used: expected 20, got %d", got)
	}
}

func TestSpendShortfallIsAnError(t *testing.T) {
	tx := &fakeTx{lots: []wallet.Lot{
		{ID: "w", MemberID: "m", Issued: 30, Status: wallet.StatusNormal, Source: wallet.SourceGrant, ExpiresOn: day(10)},
	}}

	err := newEngine().Spend(context.Background(), tx, 50, "ORD-1", at)
	if !errors.Is(err, ErrSpendShortfall) {
		t.Fatalf("expected ErrSpendShortfall, got %v", err)
	}
	if len(tx.details) != 0 {
		t.Fatalf("no spend detail on failure, got %+v", tx.details)
	}
}

func TestReverseSpendRestoresInReverseDrawOrder(t *testing.T) {
	tx := &fakeTx{lots: []wallet.Lot{
		{ID: "w1", MemberID: "m", Issued: 50, Used: 50, Status: wallet.StatusNormal, Source: wallet.SourceGrant, ExpiresOn: day(10)},
		{ID: "w2", MemberID: "m", Issued: 100, Used: 30, Status: wallet.StatusNormal, Source: wallet.SourceGrant, ExpiresOn: day(30)},
	}}

	if err := newEngine().ReverseSpend(context.Background(), tx, "m", 80, at); err != nil {
		t.Fatalf("reverse: %v", err)
	}

	if got := tx.lot(t, "w1").Used; got != 0 {
		t.Fatalf("w1 used: expected 0, got %d", got)
	}
	if got := tx.lot(t, "w2").Used; got != 0 {
		t.Fatalf("w2 used: expected 0, got %d", got)
	}
	if len(tx.created) != 0 {
		t.Fatalf("no lots should be created, got %+v", tx.created)
	}
}

func TestReverseSpendPartialHitsLatestExpiryFirst(t *testing.T) {
	tx := &fakeTx{lots: []wallet.Lot{
		{ID: "w1", MemberID: "m", Issued: 50, Used: 50, Status: wallet.StatusNormal, Source: wallet.SourceGrant, ExpiresOn: day(10)},
		{ID: "w2", MemberID: "m", Issued: 100, Used: 30, Status: wallet.StatusNormal, Source: wallet.SourceGrant, ExpiresOn: day(30)},
	}}

	if err := newEngine().ReverseSpend(context.Background(), tx, "m", 20, at); err != nil {
		t.Fatalf("reverse: %v", err)
	}

	if got := tx.lot(t, "w2").Used; got != 10 {
		t.Fatalf("w2 used: expected 10, got %d", got)
	}
	if got := tx.lot(t, "w1").Used; got != 50 {
		t.Fatalf("w1 used: expected 50 untouched, got %d", got)
	}
}

func TestReverseSpendRebirthsLapsedCapacity(t *testing.T) {
	tx := &fakeTx{lots: []wallet.Lot{
		{ID: "lapsed", MemberID: "m", Issued: 60, Used: 40, Status: wallet.StatusNormal, Source: wallet.SourceGrant, ExpiresOn: day(-3)},
	}}

	if err := newEngine().ReverseSpend(context.Background(), tx, "m", 25, at); err != nil {
		t.Fatalf("reverse: %v", err)
	}

	// The lapsed lot is never written back into.
	if got := tx.lot(t, "lapsed").Used; got != 40 {
		t.Fatalf("lapsed lot must not be mutated, used=%d", got)
	}

	if len(tx.created) != 1 {
		t.Fatalf("expected one reborn lot, got %d", len(tx.created))
	}
	reborn := tx.created[0]
	if reborn.Issued != 25 || reborn.Used != 0 {
		t.Fatalf("reborn lot: expected issued=25 used=0, got issued=%d used=%d", reborn.Issued, reborn.Used)
	}
	if reborn.Source != wallet.SourceResaving {
		t.Fatalf("reborn lot source: expected resaving, got %s", reborn.Source)
	}
	if reborn.MemberID != "m" {
		t.Fatalf("reborn lot member: expected m, got %s", reborn.MemberID)
	}
	wantExpiry := wallet.DateOf(at).AddDate(1, 0, 0)
	if !reborn.ExpiresOn.Equal(wantExpiry) {
		t.Fatalf("reborn lot expiry: expected %s, got %s", wantExpiry, reborn.ExpiresOn)
	}
}

func TestReverseSpendSkipsUntouchedLots(t *testing.T) {
	tx := &fakeTx{lots: []wallet.Lot{
		{ID: "untouched", MemberID: "m", Issued: 50, Used: 0, Status: wallet.StatusNormal, Source: wallet.SourceGrant, ExpiresOn: day(40)},
		{ID: "used", MemberID: "m", Issued: 50, Used: 20, Status: wallet.StatusNormal, Source: wallet.SourceGrant, ExpiresOn: day(10)},
	}}

	if err := newEngine().ReverseSpend(context.Background(), tx, "m", 20, at); err != nil {
		t.Fatalf("reverse: %v", err)
	}

	if got := tx.lot(t, "used").Used; got != 0 {
		t.Fatalf("used lot: expected fully restored, got %d", got)
	}
}

func TestReverseSpendShortfallIsAnError(t *testing.T) {
	tx := &fakeTx{lots: []wallet.Lot{
		{ID: "w", MemberID: "m", Issued: 50, Used: 10, Status: wallet.StatusNormal, Source: wallet.SourceGrant, ExpiresOn: day(10)},
	}}

	err := newEngine().ReverseSpend(context.Background(), tx, "m", 30, at)
	if !errors.Is(err, ErrRestoreShortfall) {
		t.Fatalf("expected ErrRestoreShortfall, got %v", err)
	}
}
