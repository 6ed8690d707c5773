package linkscan

import "testing"

func TestClassify(t *testing.T) {
	scanner := New(nil)
	cases := map[string]Category{
		"https://www.pornhub.com/view":  CategoryAdult,
		"https://de.xhamster.com":       CategoryAdult,
		"https://discord-gift.com/claim": CategoryPhishing,
		"http://virus.com/payload.exe":  CategoryMalware,
		"https://example.com":           CategoryNone,
		"https://notsex.com":            CategoryNone,
	}
	for url, want := range cases {
		if got := scanner.Classify(url); got != want {
			t.Fatalf("Classify(%q) = %q, want %q", url, got, want)
		}
	}
}

func TestAllowlistWins(t *testing.T) {
	scanner := New([]string{"sex.com"})
	if !scanner.IsWhitelistedURL("https://www.sex.com/education") {
		t.Fatalf("expected allowlisted url")
	}
	if scanner.IsSuspiciousURL("https://www.sex.com/education") {
		t.Fatalf("allowlisted url must not be suspicious")
	}
	if !scanner.IsAdultSite("https://www.sex.com/education") {
		t.Fatalf("IsAdultSite ignores the allowlist")
	}
}
