// Package linkscan classifies links against fixed adult, phishing and malware
// domain lists. A domain matches a listed entry exactly or as a subdomain.
package linkscan

import (
	"guardian-automod/internal/utils"
)

var adultDomains = setOf(
	"pornhub.com", "xvideos.com", "redtube.com", "youporn.com",
	"tube8.com", "spankbang.com", "xhamster.com", "sex.com",
	"porn.com", "thumbzilla.com", "pornmd.com", "eporner.com",
	"gotporn.com", "drtuber.com", "pornhd.com", "txxx.com",
	"beeg.com", "fapality.com", "nuvid.com", "sunporno.com",
)

var phishingDomains = setOf(
	"discord-nitro.com", "discord-nitro.ru", "discrod.com",
	"discordapp.ru", "discord-gift.com", "steam-community.com",
	"steamcommunitty.com", "steancommunity.com",
)

var malwareDomains = setOf("malware.com", "virus.com", "trojan.com")

type Category string

const (
	CategoryNone     Category = ""
	CategoryAdult    Category = "adult"
	CategoryPhishing Category = "phishing"
	CategoryMalware  Category = "malware"
)

type Scanner struct {
	allowlist map[string]struct{}
}

// New builds a scanner; allowlisted domains (and their subdomains) are never flagged.
func New(allowlist []string) *Scanner {
	return &Scanner{allowlist: setOf(allowlist...)}
}

func (s *Scanner) IsWhitelistedURL(raw string) bool {
	domain := utils.DomainOf(raw)
	return domain != "" && utils.DomainOrParentIn(domain, s.allowlist)
}

func (s *Scanner) IsAdultSite(raw string) bool    { return inSet(raw, adultDomains) }
func (s *Scanner) IsPhishingSite(raw string) bool { return inSet(raw, phishingDomains) }
func (s *Scanner) IsMalwareSite(raw string) bool  { return inSet(raw, malwareDomains) }

func (s *Scanner) IsSuspiciousURL(raw string) bool {
	return s.Classify(raw) != CategoryNone
}

// Classify returns the first category raw falls into, honoring the allowlist.
func (s *Scanner) Classify(raw string) Category {
	if s.IsWhitelistedURL(raw) {
		return CategoryNone
	}
	switch {
	case s.IsAdultSite(raw):
		return CategoryAdult
	case s.IsPhishingSite(raw):
		return CategoryPhishing
	case s.IsMalwareSite(raw):
		return CategoryMalware
	default:
		return CategoryNone
	}
}

func inSet(raw string, set map[string]struct{}) bool {
	domain := utils.DomainOf(raw)
	return domain != "" && utils.DomainOrParentIn(domain, set)
}

func setOf(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
