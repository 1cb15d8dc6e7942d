package orderref

import (
	"strings"
	"sync"
	"testing"
)

func TestULIDReferencesAreUniqueAndPrefixed(t *testing.T) {
	gen := NewULID()

	seen := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ref := gen.Next()
				if !strings.HasPrefix(ref, "ORD-") {
					t.Errorf("expected ORD- prefix, got %s", ref)
					return
				}
				mu.Lock()
				if seen[ref] {
					mu.Unlock()
					t.Errorf("duplicate reference %s", ref)
					return
				}
				seen[ref] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

func TestSequentialIsDeterministic(t *testing.T) {
	gen := NewSequential()
	if got := gen.Next(); got != "ORD-1" {
		t.Fatalf("expected ORD-1, got %s", got)
	}
	if got := gen.Next(); got != "ORD-2" {
		t.Fatalf("expected ORD-2, got %s", got)
	}
}
