package blockeddomains

import (
	"testing"

	"guardian-automod/internal/policy"
)

func TestFindBlockedDomain(t *testing.T) {
	cfg := policy.BlockedDomains{
		BlockedDomains: []string{"bad.com"},
		SeverityLevels: map[policy.Severity][]string{policy.SeverityModerate: {"bad.com"}},
	}
	match, ok := Find([]string{"https://good.org", "https://www.bad.com/offer"}, "c1", cfg)
	if !ok {
		t.Fatalf("expected blocked domain")
	}
	if match.Domain != "bad.com" || match.Severity != policy.SeverityModerate {
		t.Fatalf("unexpected match %+v", match)
	}
}

func TestSubdomainIsNotExactMatch(t *testing.T) {
	cfg := policy.BlockedDomains{BlockedDomains: []string{"bad.com"}}
	if _, ok := Find([]string{"https://cdn.bad.com/x"}, "c1", cfg); ok {
		t.Fatalf("blocked domain membership is exact")
	}
}

func TestAllowedChannelAndWhitelist(t *testing.T) {
	cfg := policy.BlockedDomains{
		BlockedDomains:  []string{"bad.com"},
		Whitelist:       []string{"bad.com"},
		AllowedChannels: []string{"links"},
	}
	if _, ok := Find([]string{"https://bad.com"}, "links", cfg); ok {
		t.Fatalf("allowed channel must skip the check")
	}
	if _, ok := Find([]string{"https://bad.com"}, "general", cfg); ok {
		t.Fatalf("whitelisted domain must be skipped")
	}
}
