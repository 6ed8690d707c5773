package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"guardian-automod/internal/storage"
)

type staticSource struct {
	logs []storage.AuditLog
	err  error
}

func (s staticSource) ListAuditLogs(context.Context, string, time.Time) ([]storage.AuditLog, error) {
	return s.logs, s.err
}

func TestReport(t *testing.T) {
	svc := New(staticSource{logs: []storage.AuditLog{
		{Level: "WARN", Event: "blocked_word"},
		{Level: "WARN", Event: "blocked_word"},
		{Level: "CRIT", Event: "auto_escalation"},
		{Level: "INFO", Event: "anti_raid"},
	}})
	report, err := svc.Report(context.Background(), "g1", time.Time{})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Total != 4 || report.ByLevel["WARN"] != 2 || report.ByEvent["blocked_word"] != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	top := report.TopEvents(2)
	if len(top) != 2 || top[0].Event != "blocked_word" || top[1].Event != "anti_raid" {
		t.Fatalf("unexpected top events %+v", top)
	}
}

func TestReportError(t *testing.T) {
	boom := errors.New("db closed")
	if _, err := New(staticSource{err: boom}).Report(context.Background(), "g1", time.Time{}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
