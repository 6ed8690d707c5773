package blockeddomains

import (
	"guardian-automod/internal/policy"
	"guardian-automod/internal/utils"
)

type Match struct {
	Domain   string
	URL      string
	Severity policy.Severity
}

// Find returns the first URL whose domain is on the blocked list. Links posted
// in an allowed channel are never matched. Membership is exact.
func Find(urls []string, channelID string, cfg policy.BlockedDomains) (Match, bool) {
	for _, allowed := range cfg.AllowedChannels {
		if allowed == channelID {
			return Match{}, false
		}
	}
	whitelist := toSet(cfg.Whitelist)
	blocked := toSet(cfg.BlockedDomains)

	for _, raw := range urls {
		domain := utils.DomainOf(raw)
		if domain == "" {
			continue
		}
		allowed, isBlocked := utils.DomainMatch(domain, whitelist, blocked)
		if allowed {
			continue
		}
		if isBlocked {
			return Match{Domain: domain, URL: raw, Severity: cfg.Severity(domain)}, true
		}
	}
	return Match{}, false
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
