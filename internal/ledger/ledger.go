package ledger

import (
	"errors"
	"time"
)

// ErrUnknownEvent indicates an unrecognized transaction type string.
var ErrUnknownEvent = errors.New("unknown event type")

// ErrEntryNotFound indicates no ledger entry matched a lookup.
var ErrEntryNotFound = errors.New("ledger entry not found")

// EventType classifies a balance-affecting event.
type EventType string

const (
	EventGrant         EventType = "grant"
	EventGrantReversal EventType = "grant_reversal"
	EventSpend         EventType = "spend"
	EventSpendReversal EventType = "spend_reversal"
)

// ParseEventType maps a wire-level transaction type string onto an EventType.
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventGrant, EventGrantReversal, EventSpend, EventSpendReversal:
		return EventType(s), nil
	default:
		return "", ErrUnknownEvent
	}
}

// Entry is one immutable row of the append-only point ledger. Entries are
// never updated or deleted; corrections happen via reversal entries.
type Entry struct {
	ID        string
	MemberID  string
	Type      EventType
	Amount    int64
	OrderRef  string // set for spend and spend_reversal only
	EventAt   time.Time
	CreatedAt time.Time
}

// SpendDetail is the per-order audit record written alongside a spend entry.
type SpendDetail struct {
	ID        string
	OrderRef  string
	Amount    int64
	CreatedAt time.Time
}
