package points

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pointbank/pointbank/internal/ledger"
	"github.com/pointbank/pointbank/internal/member"
	"github.com/pointbank/pointbank/internal/wallet"
)

// MemoryStore is a concurrency-safe in-memory implementation of Store used
// in development mode and tests. It doubles as a member.Repository so the
// balance seen through member reads is the same one the coordinator mutates.
//
// Exclusive access is a per-member mutex held for the whole transaction;
// mutations are staged on copies and only written back on commit, so a
// failed operation leaves no partial state.
type MemoryStore struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	members map[string]member.Member
	lots    map[string][]wallet.Lot
	entries []ledger.Entry
	details []ledger.SpendDetail
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:   make(map[string]*sync.Mutex),
		members: make(map[string]member.Member),
		lots:    make(map[string][]wallet.Lot),
	}
}

// Create inserts a member record. Implements member.Repository.
func (s *MemoryStore) Create(_ context.Context, m member.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.members[m.ID]; exists {
		return errors.New("member exists")
	}
	s.members[m.ID] = m
	return nil
}

// Get fetches a member by identifier. Implements member.Repository.
func (s *MemoryStore) Get(_ context.Context, id string) (member.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return member.Member{}, member.ErrNotFound
	}
	return m, nil
}

// InMemberTx serializes on the member's mutex, runs fn against staged
// copies, and writes the staged state back only when fn succeeds.
func (s *MemoryStore) InMemberTx(_ context.Context, memberID string, fn func(tx Tx) error) error {
	lock := s.memberLock(memberID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	m, ok := s.members[memberID]
	if !ok {
		s.mu.Unlock()
		return member.ErrNotFound
	}
	staged := make([]wallet.Lot, len(s.lots[memberID]))
	copy(staged, s.lots[memberID])
	s.mu.Unlock()

	tx := &memoryTx{store: s, memberID: memberID, balance: m.Balance, lots: staged}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m = s.members[memberID]
	m.Balance = tx.balance
	s.members[memberID] = m
	s.lots[memberID] = tx.lots
	s.entries = append(s.entries, tx.newEntries...)
	s.details = append(s.details, tx.newDetails...)
	return nil
}

// Lots returns all of the member's lots, newest first.
func (s *MemoryStore) Lots(_ context.Context, memberID string) ([]wallet.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[memberID]; !ok {
		return nil, member.ErrNotFound
	}
	src := s.lots[memberID]
	out := make([]wallet.Lot, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
	}
	return out, nil
}

func (s *MemoryStore) memberLock(memberID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[memberID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[memberID] = lock
	}
	return lock
}

type memoryTx struct {
	store      *MemoryStore
	memberID   string
	balance    int64
	lots       []wallet.Lot
	newEntries []ledger.Entry
	newDetails []ledger.SpendDetail
}

func (t *memoryTx) Balance(_ context.Context) (int64, error) {
	return t.balance, nil
}

func (t *memoryTx) AddBalance(_ context.Context, delta int64) error {
	t.balance += delta
	return nil
}

func (t *memoryTx) Lot(_ context.Context, lotID string) (wallet.Lot, error) {
	for _, lot := range t.lots {
		if lot.ID == lotID {
			return lot, nil
		}
	}
	return wallet.Lot{}, wallet.ErrNotFound
}

func (t *memoryTx) UsableLots(_ context.Context, asOf time.Time) ([]wallet.Lot, error) {
	var out []wallet.Lot
	for _, lot := range t.lots {
		if lot.EffectiveStatus(asOf) == wallet.StatusNormal && lot.Usable() > 0 {
			out = append(out, lot)
		}
	}
	wallet.SortDrawOrder(out)
	return out, nil
}

func (t *memoryTx) RestorableLots(_ context.Context) ([]wallet.Lot, error) {
	var out []wallet.Lot
	for _, lot := range t.lots {
		if lot.Status == wallet.StatusNormal && lot.Used > 0 {
			out = append(out, lot)
		}
	}
	wallet.SortRestoreOrder(out)
	return out, nil
}

func (t *memoryTx) AddLotUsed(_ context.Context, lotID string, delta int64) error {
	for i := range t.lots {
		if t.lots[i].ID == lotID {
			t.lots[i].Used += delta
			return nil
		}
	}
	return wallet.ErrNotFound
}

func (t *memoryTx) SetLotStatus(_ context.Context, lotID string, status wallet.Status) error {
	for i := range t.lots {
		if t.lots[i].ID == lotID {
			t.lots[i].Status = status
			return nil
		}
	}
	return wallet.ErrNotFound
}

func (t *memoryTx) CreateLot(_ context.Context, lot wallet.Lot) error {
	t.lots = append(t.lots, lot)
	return nil
}

func (t *memoryTx) AppendEntry(_ context.Context, e ledger.Entry) error {
	t.newEntries = append(t.newEntries, e)
	return nil
}

func (t *memoryTx) SpendEntry(_ context.Context, orderRef string) (ledger.Entry, error) {
	for _, e := range t.newEntries {
		if e.Type == ledger.EventSpend && e.OrderRef == orderRef {
			return e, nil
		}
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, e := range t.store.entries {
		if e.Type == ledger.EventSpend && e.OrderRef == orderRef {
			return e, nil
		}
	}
	return ledger.Entry{}, ledger.ErrEntryNotFound
}

func (t *memoryTx) ReversedTotal(_ context.Context, orderRef string) (int64, error) {
	var total int64
	for _, e := range t.newEntries {
		if e.Type == ledger.EventSpendReversal && e.OrderRef == orderRef {
			total += e.Amount
		}
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, e := range t.store.entries {
		if e.Type == ledger.EventSpendReversal && e.OrderRef == orderRef {
			total += e.Amount
		}
	}
	return total, nil
}

func (t *memoryTx) CreateSpendDetail(_ context.Context, d ledger.SpendDetail) error {
	t.newDetails = append(t.newDetails, d)
	return nil
}
