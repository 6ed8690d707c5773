package policy

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestParseSeverity(t *testing.T) {
	if sev, ok := ParseSeverity(" Severe "); !ok || sev != SeveritySevere {
		t.Fatalf("unexpected parse %q %t", sev, ok)
	}
	if _, ok := ParseSeverity("extreme"); ok {
		t.Fatalf("unknown severity accepted")
	}
}

func TestWithWordMovesTierWithoutTouchingOriginal(t *testing.T) {
	base := DefaultBlockedWords().WithWord("Scam", SeverityModerate)
	moved := base.WithWord("scam", SeveritySevere)

	if moved.Severity("scam") != SeveritySevere || len(moved.BlockedWords) != 1 {
		t.Fatalf("unexpected moved config %+v", moved)
	}
	if base.Severity("scam") != SeverityModerate {
		t.Fatalf("original config was modified: %+v", base)
	}

	removed := moved.WithoutWord("SCAM")
	if Listed(removed.BlockedWords, "scam") || removed.Severity("scam") != SeverityMinor {
		t.Fatalf("word should be gone, got %+v", removed)
	}
	if !Listed(moved.BlockedWords, "scam") {
		t.Fatalf("removal modified the source config")
	}
}

func TestDomainEditsPersist(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := New(ctx, jsonTables(dir), zap.NewNop())

	cfg := store.BlockedDomains("g1").WithDomain("Bad.example", SeverityMinor)
	if err := store.UpdateBlockedDomains(ctx, "g1", cfg); err != nil {
		t.Fatalf("update: %v", err)
	}
	reloaded := New(ctx, jsonTables(dir), zap.NewNop())
	got := reloaded.BlockedDomains("g1")
	if !Listed(got.BlockedDomains, "bad.example") || got.Severity("bad.example") != SeverityMinor {
		t.Fatalf("unexpected reloaded domains %+v", got)
	}

	if err := reloaded.UpdateBlockedDomains(ctx, "g1", got.WithoutDomain("bad.example")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if Listed(reloaded.BlockedDomains("g1").BlockedDomains, "bad.example") {
		t.Fatalf("domain should be removed")
	}
}
