package ledger

import (
	"errors"
	"testing"
)

func TestParseEventType(t *testing.T) {
	for _, s := range []string{"grant", "grant_reversal", "spend", "spend_reversal"} {
		got, err := ParseEventType(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if string(got) != s {
			t.Fatalf("expected %q, got %q", s, got)
		}
	}
}

func TestParseEventTypeRejectsUnknown(t *testing.T) {
	for _, s := range []string{"", "refund", "GRANT", "spend "} {
		if _, err := ParseEventType(s); !errors.Is(err, ErrUnknownEvent) {
			t.Fatalf("parse %q: expected ErrUnknownEvent, got %v", s, err)
		}
	}
}
