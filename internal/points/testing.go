package points

import (
	"github.com/pointbank/pointbank/internal/ledger"
	"github.com/pointbank/pointbank/internal/wallet"
)

// SeedBalance is a test helper that sets a member's balance directly when
// using the in-memory store.
func SeedBalance(s *MemoryStore, memberID string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.members[memberID]
	m.Balance = balance
	s.members[memberID] = m
}

// SeedLot is a test helper that inserts a lot directly, bypassing the
// coordinator. The caller is responsible for keeping the balance consistent.
func SeedLot(s *MemoryStore, lot wallet.Lot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lots[lot.MemberID] = append(s.lots[lot.MemberID], lot)
}

// Entries is a test helper that snapshots the committed ledger.
func Entries(s *MemoryStore) []ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// SpendDetails is a test helper that snapshots the committed spend details.
func SpendDetails(s *MemoryStore) []ledger.SpendDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.SpendDetail, len(s.details))
	copy(out, s.details)
	return out
}
