package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	v, err := Do(context.Background(), RetryConfig{Name: "dial"}, func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if v != 42 || calls != 1 {
		t.Errorf("got (%d, %d calls), want (42, 1 call)", v, calls)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	v, err := Do(context.Background(), RetryConfig{
		Name:           "dial",
		InitialBackoff: time.Millisecond,
	}, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("refused")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if v != "ok" || calls != 3 {
		t.Errorf("got (%q, %d calls), want (ok, 3 calls)", v, calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("refused")
	calls := 0
	_, err := Do(context.Background(), RetryConfig{
		Name:           "dial",
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
	}, func(context.Context) (int, error) {
		calls++
		return 0, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want wrapped %v", err, sentinel)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestDoStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := Do(ctx, RetryConfig{
			Name:           "dial",
			InitialBackoff: time.Minute,
		}, func(context.Context) (int, error) {
			calls++
			return 0, errors.New("refused")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
