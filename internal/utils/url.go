package utils

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

var (
	urlRegex     = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+)`)
	inviteRegex  = regexp.MustCompile(`(?i)(?:https?://)?(?:canary\.|ptb\.)?(?:discord(?:app)?\.com/invite|discord\.gg)/([A-Za-z0-9-]+)`)
	mentionRegex = regexp.MustCompile(`<@[!&]?\d+>`)
)

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fbclid", "gclid"}

func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

// ExtractInviteCodes returns the invite code of every Discord invite link in content.
func ExtractInviteCodes(content string) []string {
	matches := inviteRegex.FindAllStringSubmatch(content, -1)
	codes := make([]string, 0, len(matches))
	for _, match := range matches {
		if len(match) > 1 && match[1] != "" {
			codes = append(codes, match[1])
		}
	}
	return codes
}

func CountMentions(content string) int {
	return len(mentionRegex.FindAllStringIndex(content, -1))
}

func NormalizeURL(raw string) (string, string, error) {
	if !hasScheme(raw) {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}

	host := strings.ToLower(parsed.Hostname())
	asciiHost, err := idna.ToASCII(host)
	if err == nil {
		host = asciiHost
	}

	parsed.Host = host
	parsed.Fragment = ""
	parsed.User = nil

	query := parsed.Query()
	for _, key := range trackingParams {
		query.Del(key)
	}
	parsed.RawQuery = normalizeQuery(query)

	return parsed.String(), host, nil
}

// DomainOf returns the lowercase ASCII host of raw without a leading "www.".
// Unparseable input yields "".
func DomainOf(raw string) string {
	_, host, err := NormalizeURL(strings.TrimRight(raw, ".,;:!?)>\"'"))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(host, "www.")
}

func hasScheme(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func normalizeQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	clean := url.Values{}
	for _, key := range keys {
		clean[key] = values[key]
	}
	return clean.Encode()
}

func DomainMatch(domain string, allowlist, blocklist map[string]struct{}) (allowed bool, blocked bool) {
	domain = strings.ToLower(domain)
	if _, ok := allowlist[domain]; ok {
		return true, false
	}
	if _, ok := blocklist[domain]; ok {
		return false, true
	}
	return false, false
}

// DomainOrParentIn reports whether domain, or any parent domain of it, is in set.
func DomainOrParentIn(domain string, set map[string]struct{}) bool {
	domain = strings.ToLower(domain)
	for domain != "" {
		if _, ok := set[domain]; ok {
			return true
		}
		idx := strings.IndexByte(domain, '.')
		if idx < 0 {
			return false
		}
		domain = domain[idx+1:]
	}
	return false
}
