package member

import "time"

// Member holds a loyalty account and its current point balance. The balance
// is mutated only inside the point store's exclusive-access window; this
// package provides creation and read paths.
type Member struct {
	ID        string
	Balance   int64
	CreatedAt time.Time
}
