package policy

import "strings"

func ParseSeverity(value string) (Severity, bool) {
	for _, s := range severityOrder {
		if string(s) == strings.ToLower(strings.TrimSpace(value)) {
			return s, true
		}
	}
	return "", false
}

// WithWord returns a copy of c listing word at sev. A word already listed
// moves to the new tier.
func (c BlockedWords) WithWord(word string, sev Severity) BlockedWords {
	c.BlockedWords, c.SeverityLevels = addTerm(c.BlockedWords, c.SeverityLevels, word, sev)
	return c
}

func (c BlockedWords) WithoutWord(word string) BlockedWords {
	c.BlockedWords, c.SeverityLevels = removeTerm(c.BlockedWords, c.SeverityLevels, word)
	return c
}

func (c BlockedDomains) WithDomain(domain string, sev Severity) BlockedDomains {
	c.BlockedDomains, c.SeverityLevels = addTerm(c.BlockedDomains, c.SeverityLevels, domain, sev)
	return c
}

func (c BlockedDomains) WithoutDomain(domain string) BlockedDomains {
	c.BlockedDomains, c.SeverityLevels = removeTerm(c.BlockedDomains, c.SeverityLevels, domain)
	return c
}

// Listed reports whether term is on the list, ignoring case.
func Listed(list []string, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	for _, v := range list {
		if strings.ToLower(v) == term {
			return true
		}
	}
	return false
}

// addTerm and removeTerm never modify their arguments: cached documents share
// slices with callers.
func addTerm(list []string, levels map[Severity][]string, term string, sev Severity) ([]string, map[Severity][]string) {
	list, levels = removeTerm(list, levels, term)
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return list, levels
	}
	list = append(list, term)
	if sev != "" && sev != SeverityMinor {
		levels[sev] = append(levels[sev], term)
	}
	return list, levels
}

func removeTerm(list []string, levels map[Severity][]string, term string) ([]string, map[Severity][]string) {
	term = strings.ToLower(strings.TrimSpace(term))
	outList := make([]string, 0, len(list)+1)
	for _, v := range list {
		if strings.ToLower(v) != term {
			outList = append(outList, v)
		}
	}
	outLevels := make(map[Severity][]string, len(levels))
	for tier, terms := range levels {
		kept := make([]string, 0, len(terms))
		for _, v := range terms {
			if strings.ToLower(v) != term {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			outLevels[tier] = kept
		}
	}
	return outList, outLevels
}
