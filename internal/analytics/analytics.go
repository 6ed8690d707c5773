// Package analytics summarizes the persisted audit trail for /modstats.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"guardian-automod/internal/storage"
)

type Source interface {
	ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]storage.AuditLog, error)
}

type Service struct {
	store Source
}

func New(store Source) *Service {
	return &Service{store: store}
}

type Report struct {
	Total   int
	ByLevel map[string]int
	ByEvent map[string]int
}

// EventCount is one row of TopEvents.
type EventCount struct {
	Event string
	Count int
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	logs, err := s.store.ListAuditLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, fmt.Errorf("list audit logs: %w", err)
	}

	report := Report{ByLevel: make(map[string]int), ByEvent: make(map[string]int)}
	for _, log := range logs {
		report.Total++
		report.ByLevel[log.Level]++
		report.ByEvent[log.Event]++
	}
	return report, nil
}

// TopEvents returns up to limit events, most frequent first, ties by name.
func (r Report) TopEvents(limit int) []EventCount {
	out := make([]EventCount, 0, len(r.ByEvent))
	for event, count := range r.ByEvent {
		out = append(out, EventCount{Event: event, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Event < out[j].Event
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
