package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestDoRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2}, func() error {
		calls++
		if calls < 3 {
			return errors.New("busy")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third attempt, got calls=%d err=%v", calls, err)
	}
}

func TestDoReturnsLastError(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 2, InitialDelay: time.Millisecond}, func() error {
		calls++
		return errors.New("still busy")
	})
	if err == nil || err.Error() != "still busy" || calls != 2 {
		t.Fatalf("unexpected result: calls=%d err=%v", calls, err)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	cause := errors.New("bad request")
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func() error {
		calls++
		return Permanent(cause)
	})
	if !errors.Is(err, cause) || calls != 1 {
		t.Fatalf("expected a single attempt, got calls=%d err=%v", calls, err)
	}
}

func TestDoHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Config{MaxAttempts: 5, InitialDelay: time.Hour}, func() error {
		calls++
		cancel()
		return errors.New("busy")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("expected cancellation, got calls=%d err=%v", calls, err)
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := map[int]bool{
		http.StatusOK:                  false,
		http.StatusBadRequest:          false,
		http.StatusRequestTimeout:      true,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusServiceUnavailable:  true,
	}
	for status, want := range tests {
		if got := IsRetryableHTTPStatus(status); got != want {
			t.Fatalf("status %d: want %v, got %v", status, want, got)
		}
	}
}
