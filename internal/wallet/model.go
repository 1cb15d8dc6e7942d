package wallet

import (
	"errors"
	"time"
)

// ErrNotFound indicates a lot lookup matched nothing for the member.
var ErrNotFound = errors.New("lot not found")

// Status is the stored lifecycle state of a point lot. Expiry is never
// written back to the row; it is derived from the expiry date at read time.
type Status string

const (
	StatusNormal    Status = "normal"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Source records how a lot came into existence.
type Source string

const (
	// SourceGrant marks a lot created by a grant approval.
	SourceGrant Source = "grant"
	// SourceResaving marks a lot re-issued when a spend reversal hits
	// capacity that has lapsed in the meantime.
	SourceResaving Source = "resaving"
)

// Lot is a discrete grant of points with its own expiry and usage tracking.
type Lot struct {
	ID        string
	MemberID  string
	Issued    int64
	Used      int64
	Status    Status
	Source    Source
	ExpiresOn time.Time // date precision, UTC
	CreatedAt time.Time
}

// Usable returns the remaining drawable amount.
func (l Lot) Usable() int64 {
	return l.Issued - l.Used
}

// Lapsed reports whether the lot's expiry date has passed as of the given
// instant. A lot remains usable through the whole of its expiry date.
func (l Lot) Lapsed(at time.Time) bool {
	return DateOf(at).After(l.ExpiresOn)
}

// EffectiveStatus derives the lot's status as of the given instant. Stored
// terminal states win; a stored-normal lot past its expiry date reads as
// expired without any row update.
func (l Lot) EffectiveStatus(at time.Time) Status {
	if l.Status != StatusNormal {
		return l.Status
	}
	if l.Lapsed(at) {
		return StatusExpired
	}
	return StatusNormal
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
