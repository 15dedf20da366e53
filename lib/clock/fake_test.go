// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(5 * time.Second)
	if got, want := clock.Now(), epoch.Add(5*time.Second); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockTimerFiresAtDeadline(t *testing.T) {
	clock := Fake(epoch)
	timer := clock.NewTimer(30 * time.Second)

	clock.Advance(29 * time.Second)
	select {
	case <-timer.C:
		t.Fatal("timer fired before its deadline")
	default:
	}

	clock.Advance(time.Second)
	select {
	case fired := <-timer.C:
		if want := epoch.Add(30 * time.Second); !fired.Equal(want) {
			t.Errorf("fire time = %v, want %v", fired, want)
		}
	default:
		t.Fatal("timer did not fire at its deadline")
	}
	if clock.PendingCount() != 0 {
		t.Errorf("PendingCount = %d after firing, want 0", clock.PendingCount())
	}
}

func TestFakeClockAfterNonPositive(t *testing.T) {
	clock := Fake(epoch)
	for _, duration := range []time.Duration{0, -time.Second} {
		select {
		case <-clock.After(duration):
		default:
			t.Fatalf("After(%v) did not fire immediately", duration)
		}
	}
	if clock.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", clock.PendingCount())
	}
}

func TestFakeClockStopRemovesWaiter(t *testing.T) {
	clock := Fake(epoch)
	timer := clock.NewTimer(time.Minute)
	if clock.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want 1", clock.PendingCount())
	}
	if !timer.Stop() {
		t.Error("Stop on active timer returned false")
	}
	if timer.Stop() {
		t.Error("second Stop returned true")
	}
	if clock.PendingCount() != 0 {
		t.Errorf("PendingCount = %d after Stop, want 0", clock.PendingCount())
	}

	clock.Advance(time.Hour)
	select {
	case <-timer.C:
		t.Fatal("stopped timer fired")
	default:
	}
}

func TestFakeClockWaitForTimers(t *testing.T) {
	clock := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-clock.After(10 * time.Second)
		close(done)
	}()

	clock.WaitForTimers(1)
	clock.Advance(10 * time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("goroutine was not released by Advance")
	}
}

func TestSleepCompletes(t *testing.T) {
	clock := Fake(epoch)
	result := make(chan error, 1)
	go func() { result <- Sleep(context.Background(), clock, 15*time.Second) }()

	clock.WaitForTimers(1)
	clock.Advance(15 * time.Second)

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("Sleep returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestSleepInterruptedByCancellation(t *testing.T) {
	clock := Fake(epoch)
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- Sleep(ctx, clock, 30*time.Second) }()

	clock.WaitForTimers(1)
	cancel()

	select {
	case err := <-result:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Sleep returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("Sleep did not return after cancellation")
	}
	if clock.PendingCount() != 0 {
		t.Errorf("PendingCount = %d after cancelled sleep, want 0", clock.PendingCount())
	}
}

func TestSleepAlreadyCancelled(t *testing.T) {
	clock := Fake(epoch)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, clock, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep returned %v, want context.Canceled", err)
	}
	if clock.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", clock.PendingCount())
	}
}

func TestClockImplementations(t *testing.T) {
	var _ Clock = Fake(epoch)
	var _ Clock = Real()
}
