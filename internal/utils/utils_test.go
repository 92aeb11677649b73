package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitForHonorsContext(t *testing.T) {
	originalSleep := sleep
	release := make(chan struct{})
	sleep = func(time.Duration) { <-release }
	defer func() {
		close(release)
		sleep = originalSleep
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitForKeepsHookAcrossSwap(t *testing.T) {
	originalSleep := sleep
	defer func() { sleep = originalSleep }()

	started := make(chan struct{})
	release := make(chan struct{})
	sleep = func(time.Duration) {
		close(started)
		<-release
	}

	errc := make(chan error, 1)
	go func() { errc <- WaitFor(context.Background(), time.Minute) }()

	<-started
	sleep = func(time.Duration) { t.Error("replaced hook must not be called by a running wait") }
	close(release)

	if err := <-errc; err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestWaitForZeroDuration(t *testing.T) {
	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	if got := Backoff(time.Second, 0); got != 0 {
		t.Fatalf("expected no delay for first attempt, got %s", got)
	}

	tests := []struct {
		attempt int
		nominal time.Duration
	}{
		{attempt: 1, nominal: time.Second},
		{attempt: 2, nominal: 2 * time.Second},
		{attempt: 3, nominal: 4 * time.Second},
		{attempt: 40, nominal: maxBackoff},
	}

	for _, tt := range tests {
		got := Backoff(time.Second, tt.attempt)
		low := tt.nominal - tt.nominal/4
		high := tt.nominal + tt.nominal/4
		if got < low || got > high {
			t.Fatalf("attempt %d: expected delay in [%s, %s], got %s", tt.attempt, low, high, got)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	if got := TruncateRunes("héllo world", 5); got != "héllo" {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := TruncateRunes(" short ", 10); got != " short " {
		t.Fatalf("expected untouched input, got %q", got)
	}
	if got := TruncateRunes("anything", 0); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
