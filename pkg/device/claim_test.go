package device

import (
	"errors"
	"testing"
	"time"
)

func TestClaimRetryGivesUp(t *testing.T) {
	busy := errors.New("interface busy")
	attempts := 0
	start := time.Now()
	err := claimRetry(func() error {
		attempts++
		return busy
	})
	elapsed := time.Since(start)
	if !errors.Is(err, busy) {
		t.Fatalf("claimRetry = %v, want wrapped %v", err, busy)
	}
	if elapsed < claimTimeout {
		t.Errorf("gave up after %v, want at least %v", elapsed, claimTimeout)
	}
	// One retry period past the budget, plus generous scheduler slack.
	if elapsed > claimTimeout+500*time.Millisecond {
		t.Errorf("gave up after %v, too long past the %v budget", elapsed, claimTimeout)
	}
	if attempts < 2 {
		t.Errorf("claim attempted %d times, want repeated polling", attempts)
	}
}

func TestClaimRetrySucceedsDuringContention(t *testing.T) {
	attempts := 0
	err := claimRetry(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("interface busy")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("claimRetry: %v", err)
	}
	if attempts != 3 {
		t.Errorf("claim attempted %d times, want 3", attempts)
	}
}
