// Package blockedwords matches message tokens against a guild's blocked word list.
//
// A token matches when it equals a listed term or merely contains one, so a
// term like "ass" also matches "class". Whitelisted tokens are skipped.
package blockedwords

import (
	"regexp"
	"strings"

	"guardian-automod/internal/policy"
)

var nonWord = regexp.MustCompile(`[^\w]`)

type Match struct {
	Term     string
	Token    string
	Severity policy.Severity
}

// Find returns the first offending token of content, or false.
func Find(content string, cfg policy.BlockedWords) (Match, bool) {
	if len(cfg.BlockedWords) == 0 {
		return Match{}, false
	}
	whitelist := make(map[string]struct{}, len(cfg.Whitelist))
	for _, w := range cfg.Whitelist {
		whitelist[strings.ToLower(w)] = struct{}{}
	}

	for _, word := range strings.Fields(strings.ToLower(content)) {
		token := nonWord.ReplaceAllString(word, "")
		if token == "" {
			continue
		}
		if _, ok := whitelist[token]; ok {
			continue
		}
		if term, ok := matchTerm(token, cfg.BlockedWords); ok {
			return Match{Term: term, Token: token, Severity: cfg.Severity(term)}, true
		}
	}
	return Match{}, false
}

func matchTerm(token string, terms []string) (string, bool) {
	for _, term := range terms {
		term = strings.ToLower(term)
		if term == "" {
			continue
		}
		if token == term || strings.Contains(token, term) {
			return term, true
		}
	}
	return "", false
}
