package analyzer

import (
	"strings"
	"testing"
	"time"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNormalize(t *testing.T) {
	got := Normalize("  He\u200bllo,   WORLD!! ")
	if got != "hello world" {
		t.Fatalf("unexpected normalized text %q", got)
	}
}

func TestTermSplit(t *testing.T) {
	if len(Terms) != 69 {
		t.Fatalf("expected 69 terms, got %d", len(Terms))
	}
	if !MatchesKeyword("NSFW content") {
		t.Fatalf("expected nsfw in the keyword half")
	}
	if MatchesPartial("NSFW content") {
		t.Fatalf("nsfw must not be in the partial half")
	}
	if !MatchesPartial("check my onlyfans") || MatchesKeyword("check my onlyfans") {
		t.Fatalf("expected onlyfans in the partial half only")
	}
	if MatchesKeyword("a classic passage") {
		t.Fatalf("keyword pattern must respect word boundaries")
	}
}

func TestDetectBypassAttempt(t *testing.T) {
	positives := []string{
		"p0rn",
		"p\u200born here",
		"S3X",
		"m4sturb4t1on",
		"er0tic4 stories",
	}
	for _, text := range positives {
		if !DetectBypassAttempt(text) {
			t.Fatalf("expected bypass for %q", text)
		}
	}
	negatives := []string{
		"the weather is nice today",
		"see you at the meeting tomorrow",
	}
	for _, text := range negatives {
		if DetectBypassAttempt(text) {
			t.Fatalf("unexpected bypass for %q", text)
		}
	}
}

func TestBypassIgnoresURLSchemes(t *testing.T) {
	// "https" + "example" normalizes to "httpsexample", which contains "sex".
	for _, text := range []string{"https://example.org", "see HTTP://Example.com/docs"} {
		if DetectBypassAttempt(text) {
			t.Fatalf("scheme fused into a bypass match for %q", text)
		}
	}
	if !DetectBypassAttempt("https://s3x.example/offer") {
		t.Fatalf("hosts must still be checked after the scheme is dropped")
	}
	if Score("https://example.org", time.Time{}, now) != 0 {
		t.Fatalf("a single plain link should score zero")
	}
}

func TestBypassPatternsAreASCIIOnly(t *testing.T) {
	// Cyrillic Ё is not a word character to the normalizer, so it is dropped
	// and "pЁrn" becomes "prn". Mixed scripts are left to the formatting check.
	if got := Normalize("pЁrn"); got != "prn" {
		t.Fatalf("unexpected normalized text %q", got)
	}
	if DetectBypassAttempt("pЁrn") {
		t.Fatalf("non-ASCII substitutions are not bypass matches")
	}
	if !DetectSuspiciousFormatting("pЁrn") {
		t.Fatalf("mixed Cyrillic and Latin should be flagged as formatting")
	}
}

func TestShortTermsAreNotSubstituted(t *testing.T) {
	// "anal" has only one substitutable class, so "4n4l" stays clean.
	if DetectBypassAttempt("4n4l") {
		t.Fatalf("substitution threshold must be per term")
	}
}

func TestDetectSuspiciousFormatting(t *testing.T) {
	cases := map[string]bool{
		"***hello***":          true,
		"~~~~ strike":          true,
		"a    b":               true,
		"h\u0435llo":           true,
		"plain message here":   false,
		"h\u0435llo " + strings.Repeat("x", 60): false,
	}
	for text, want := range cases {
		if got := DetectSuspiciousFormatting(text); got != want {
			t.Fatalf("DetectSuspiciousFormatting(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestScore(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		created time.Time
		want    int
	}{
		{"prose floors at zero", "hello there friend", time.Time{}, 0},
		{"keyword and bypass", "this is porn stuff", time.Time{}, 42},
		{"brand new account", "hello there friend", now.Add(-time.Hour), 20},
		{"young account", "hello there friend", now.Add(-48 * time.Hour), 5},
		{"old account", "hello there friend", now.Add(-240 * time.Hour), 0},
		{"caps", "THIS IS A VERY LOUD MESSAGE", time.Time{}, 3},
		{"repeated run", "wowwwwwww", time.Time{}, 4},
		{"punctuation run ignored", "nooooooo!!!", time.Time{}, 0},
		{"dense short urls", "https://a.io https://b.io https://c.io", time.Time{}, 5},
	}
	for _, tc := range cases {
		if got := Score(tc.text, tc.created, now); got != tc.want {
			t.Fatalf("%s: Score(%q) = %d, want %d", tc.name, tc.text, got, tc.want)
		}
	}
}

func TestScoreMonotonicAndClamped(t *testing.T) {
	base := "check this out"
	plain := Score(base, time.Time{}, now)
	withKeyword := Score(base+" porn", time.Time{}, now)
	withFormatting := Score(base+" porn ***", time.Time{}, now)
	if !(plain <= withKeyword && withKeyword <= withFormatting) {
		t.Fatalf("score not monotonic: %d %d %d", plain, withKeyword, withFormatting)
	}

	heavy := "PORN NSFW ONLYFANS *** " + strings.Repeat("https://x.io ", 6)
	if got := Score(heavy, now.Add(-time.Hour), now); got < 0 || got > 100 {
		t.Fatalf("score out of range: %d", got)
	}
}

func TestAnalyze(t *testing.T) {
	report := Analyze("***p0rn***", time.Time{}, now)
	if !report.Bypass || !report.Formatting || report.Score < 25 {
		t.Fatalf("unexpected report %+v", report)
	}
}
