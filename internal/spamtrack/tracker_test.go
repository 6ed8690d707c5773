package spamtrack

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"guardian-automod/internal/clock"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) AfterFunc(time.Duration, func()) clock.Timer { return nil }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

var testLimits = Limits{
	LinkWindow:         60 * time.Second,
	MaxLinks:           3,
	NewAccountMaxLinks: 1,
	NewAccountAge:      7 * 24 * time.Hour,
	RapidWindow:        10 * time.Second,
	RapidMessages:      3,
	DupWindow:          300 * time.Second,
	DupChannels:        3,
}

func newTracker(store WindowStore) (*Tracker, *fakeClock) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	return NewTracker(store, testLimits, clk, zap.NewNop()), clk
}

func stores(t *testing.T) map[string]func() WindowStore {
	return map[string]func() WindowStore{
		"memory": func() WindowStore { return NewMemoryStore() },
		"redis": func() WindowStore {
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatalf("run miniredis: %v", err)
			}
			client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
			t.Cleanup(func() {
				_ = client.Close()
				mr.Close()
			})
			return NewRedisStore(client, "")
		},
	}
}

func TestLinkSpam(t *testing.T) {
	for name, build := range stores(t) {
		t.Run(name, func(t *testing.T) {
			tracker, clk := newTracker(build())
			ctx := context.Background()
			old := clk.now.Add(-30 * 24 * time.Hour)

			for i := 1; i <= 3; i++ {
				if tracker.IsLinkSpam(ctx, "g1", "u1", "m"+strconv.Itoa(i), old) {
					t.Fatalf("message %d flagged too early", i)
				}
				clk.Advance(time.Second)
			}
			if !tracker.IsLinkSpam(ctx, "g1", "u1", "m4", old) {
				t.Fatalf("expected the fourth link message to be spam")
			}
			if tracker.IsLinkSpam(ctx, "g2", "u1", "m5", old) {
				t.Fatalf("windows must be keyed per guild")
			}

			clk.Advance(2 * time.Minute)
			if tracker.IsLinkSpam(ctx, "g1", "u1", "m6", old) {
				t.Fatalf("window should have expired")
			}
		})
	}
}

func TestLinkSpamNewAccount(t *testing.T) {
	tracker, clk := newTracker(NewMemoryStore())
	ctx := context.Background()
	young := clk.now.Add(-24 * time.Hour)
	if tracker.IsLinkSpam(ctx, "g1", "u1", "m1", young) {
		t.Fatalf("first link from a new account is allowed")
	}
	if !tracker.IsLinkSpam(ctx, "g1", "u1", "m2", young) {
		t.Fatalf("second link from a new account is spam")
	}
}

func TestRapidPosting(t *testing.T) {
	for name, build := range stores(t) {
		t.Run(name, func(t *testing.T) {
			tracker, clk := newTracker(build())
			ctx := context.Background()
			tracker.IsRapidPosting(ctx, "g1", "u1", "m1")
			clk.Advance(2 * time.Second)
			tracker.IsRapidPosting(ctx, "g1", "u1", "m2")
			clk.Advance(2 * time.Second)
			if !tracker.IsRapidPosting(ctx, "g1", "u1", "m3") {
				t.Fatalf("expected rapid posting on the third message within 10s")
			}
			clk.Advance(30 * time.Second)
			if tracker.IsRapidPosting(ctx, "g1", "u1", "m4") {
				t.Fatalf("window should have expired")
			}
		})
	}
}

func TestCrossChannelSpam(t *testing.T) {
	for name, build := range stores(t) {
		t.Run(name, func(t *testing.T) {
			tracker, clk := newTracker(build())
			ctx := context.Background()
			content := "Join my server https://x.io"

			if tracker.IsCrossChannelSpam(ctx, "g1", "u1", content, "c1") {
				t.Fatalf("one channel is not spam")
			}
			if tracker.IsCrossChannelSpam(ctx, "g1", "u1", content, "c1") {
				t.Fatalf("repeating in the same channel does not count")
			}
			clk.Advance(time.Minute)
			if tracker.IsCrossChannelSpam(ctx, "g1", "u1", "join my   server https://x.io", "c2") {
				t.Fatalf("two channels are not spam")
			}
			if !tracker.IsCrossChannelSpam(ctx, "g1", "u1", content, "c3") {
				t.Fatalf("expected cross-channel spam on the third channel")
			}
			if tracker.IsCrossChannelSpam(ctx, "g1", "u1", "different text", "c4") {
				t.Fatalf("different content is tracked separately")
			}
		})
	}
}

type failingStore struct{}

func (failingStore) Observe(context.Context, string, string, time.Duration, time.Time) (int, error) {
	return 0, errors.New("down")
}

func TestStoreErrorsDegradeToNotSpam(t *testing.T) {
	tracker, _ := newTracker(failingStore{})
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if tracker.IsLinkSpam(ctx, "g1", "u1", "", time.Time{}) || tracker.IsRapidPosting(ctx, "g1", "u1", "") {
			t.Fatalf("store errors must not flag spam")
		}
	}
}

func TestMemorySweep(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	_, _ = store.Observe(ctx, "a", "m1", 10*time.Second, now)
	_, _ = store.Observe(ctx, "b", "m1", time.Hour, now)

	if removed := store.Sweep(now.Add(time.Minute)); removed != 1 {
		t.Fatalf("expected 1 idle key removed, got %d", removed)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 key left, got %d", store.Len())
	}
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunSweeper(ctx, time.Millisecond, time.Now)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("sweeper did not stop")
	}
}
