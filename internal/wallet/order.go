package wallet

import "sort"

// SortDrawOrder orders lots the way spends consume them: grant-sourced lots
// before re-issued ones, then soonest expiry first. Creation time breaks
// ties so the walk is deterministic.
func SortDrawOrder(lots []Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if at, bt := sourceTier(a.Source), sourceTier(b.Source); at != bt {
			return at < bt
		}
		if !a.ExpiresOn.Equal(b.ExpiresOn) {
			return a.ExpiresOn.Before(b.ExpiresOn)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// SortRestoreOrder orders lots the way spend reversals restore them: the
// reverse of draw order, approximated as latest expiry first.
func SortRestoreOrder(lots []Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if !a.ExpiresOn.Equal(b.ExpiresOn) {
			return a.ExpiresOn.After(b.ExpiresOn)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func sourceTier(s Source) int {
	if s == SourceGrant {
		return 0
	}
	return 1
}
