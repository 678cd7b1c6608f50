package assign

import (
	"sync"
	"testing"
)

func TestRegistryReserveIsExclusive(t *testing.T) {
	r := NewRegistry()

	if !r.Reserve("t1") {
		t.Fatalf("Reserve(t1) = false, want true")
	}
	if r.Reserve("t1") {
		t.Fatalf("second Reserve(t1) = true, want false while held")
	}
	if !r.Reserve("t2") {
		t.Fatalf("Reserve(t2) = false, want true for distinct id")
	}

	r.Release("t1")
	if !r.Reserve("t1") {
		t.Fatalf("Reserve(t1) after Release = false, want true")
	}
}

func TestRegistryReleaseUnknownIsSafe(t *testing.T) {
	r := NewRegistry()
	r.Release("never-reserved")
	if r.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", r.Size())
	}
}

func TestRegistryConcurrentReserveSingleWinner(t *testing.T) {
	r := NewRegistry()

	const contenders = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Reserve("t1") {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("concurrent Reserve winners = %d, want exactly 1", won)
	}
}
