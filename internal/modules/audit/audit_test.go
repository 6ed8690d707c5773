package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"guardian-automod/internal/clock"
	"guardian-automod/internal/storage"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time                              { return c.now }
func (c fixedClock) AfterFunc(time.Duration, func()) clock.Timer { return nil }

type memorySink struct {
	entries []storage.AuditLog
	err     error
}

func (s *memorySink) AddAuditLog(_ context.Context, log storage.AuditLog) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, log)
	return nil
}

func TestLogPersistsEntry(t *testing.T) {
	sink := &memorySink{}
	now := time.Unix(1_700_000_000, 0)
	l := NewLogger(sink, fixedClock{now: now}, zap.NewNop())

	l.Log(context.Background(), LevelWarn, "g1", "u1", "blocked_word", "term=foo")
	if len(sink.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(sink.entries))
	}
	got := sink.entries[0]
	if got.Level != LevelWarn || got.Event != "blocked_word" || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected entry %+v", got)
	}
}

func TestLogSurvivesSinkError(t *testing.T) {
	l := NewLogger(&memorySink{err: errors.New("disk full")}, nil, zap.NewNop())
	l.Log(context.Background(), LevelInfo, "g1", "u1", "event", "")
}
