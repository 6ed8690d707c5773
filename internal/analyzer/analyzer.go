// Package analyzer scores message text for obfuscated or explicit content.
// Every function is pure; callers pass the current time explicitly.
package analyzer

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"guardian-automod/internal/utils"
)

// Terms is the built-in explicit vocabulary. The first half feeds the keyword
// pattern and the second half the weaker partial pattern.
var Terms = []string{
	"porn", "pornography", "xxx", "nude", "naked", "hardcore", "erotic", "erotica",
	"fetish", "bdsm", "bondage", "threesome", "orgy", "cum", "cock", "dick",
	"pussy", "vagina", "penis", "anal", "blowjob", "handjob", "tit", "tits",
	"boobs", "ass", "butt", "creampie", "slut", "whore", "cumshot", "masturbate", "masturbation",
	"nsfw", "18+", "adult", "mature", "x-rated", "r-rated", "softcore", "semi-nude",
	"undressing", "strip", "undressed", "topless", "bottomless", "bare", "nudity",
	"sensorial", "intimate", "sexual", "sensual", "sex", "onlyfans", "chaturbate",
	"xvideos", "pornhub", "brazzers", "milf", "dildo", "vibrator", "escort",
	"camgirl", "camboy", "webcam", "livecam", "sexchat", "cybersex", "sextoy",
}

const (
	substitutionThreshold = 3
	minSubstitutableLen   = 4
	mixedScriptMaxLen     = 50
)

var (
	keywordRegex = termAlternation(Terms[:len(Terms)/2])
	partialRegex = termAlternation(Terms[len(Terms)/2:])

	zeroWidth     = regexp.MustCompile(`[\x{200B}-\x{200F}\x{FEFF}]`)
	nonWordSpace  = regexp.MustCompile(`[^\w\s]`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	urlScheme     = regexp.MustCompile(`(?i)\bhttps?://`)

	obviousBypass = []*regexp.Regexp{
		regexp.MustCompile(`(?i)p[o0*@][r*][n*]`),
		regexp.MustCompile(`(?i)s[e3*@][x*]`),
		regexp.MustCompile(`(?i)f[u*@][c*k]`),
	}
	substitutionPatterns = buildSubstitutionPatterns(Terms)

	fenceRun     = regexp.MustCompile("(\\*{3,}|_{3,}|`{3,}|~{3,})")
	spacedLetter = regexp.MustCompile(`\w\s{3,}\w`)
	cyrillic     = regexp.MustCompile(`[\x{0400}-\x{04FF}]`)
	latin        = regexp.MustCompile(`[a-zA-Z]`)
	upper        = regexp.MustCompile(`[A-Z]`)
	punctRun     = regexp.MustCompile(`[.!?]{3,}`)
)

// substitutions is ordered; no replacement introduces a later key.
var substitutions = []struct {
	char    string
	pattern string
}{
	{"a", "[a@4]"},
	{"e", "[e3]"},
	{"i", "[i1]"},
	{"o", "[o0]"},
	{"s", "[s$5]"},
}

func termAlternation(terms []string) *regexp.Regexp {
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = regexp.QuoteMeta(term)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

// buildSubstitutionPatterns keeps only the terms where at least
// substitutionThreshold distinct letters were replaced.
func buildSubstitutionPatterns(terms []string) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, term := range terms {
		if len(term) < minSubstitutableLen {
			continue
		}
		pattern := regexp.QuoteMeta(term)
		count := 0
		for _, sub := range substitutions {
			if strings.Contains(pattern, sub.char) {
				pattern = strings.ReplaceAll(pattern, sub.char, sub.pattern)
				count++
			}
		}
		if count >= substitutionThreshold {
			out = append(out, regexp.MustCompile(`(?i)`+pattern))
		}
	}
	return out
}

// Normalize strips zero-width characters and punctuation, collapses whitespace
// and lowercases.
func Normalize(text string) string {
	text = zeroWidth.ReplaceAllString(text, "")
	text = nonWordSpace.ReplaceAllString(text, "")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(strings.ToLower(text))
}

// DetectBypassAttempt matches the obfuscation patterns against normalized
// text. URL schemes are dropped first so "https://e..." cannot fuse into a
// match; hosts and paths are still checked. The patterns are ASCII only.
func DetectBypassAttempt(text string) bool {
	normalized := Normalize(urlScheme.ReplaceAllString(text, " "))
	for _, pattern := range obviousBypass {
		if pattern.MatchString(normalized) {
			return true
		}
	}
	for _, pattern := range substitutionPatterns {
		if pattern.MatchString(normalized) {
			return true
		}
	}
	return false
}

func DetectSuspiciousFormatting(text string) bool {
	if fenceRun.MatchString(text) || spacedLetter.MatchString(text) {
		return true
	}
	return cyrillic.MatchString(text) && latin.MatchString(text) && utf8.RuneCountInString(text) < mixedScriptMaxLen
}

func MatchesKeyword(text string) bool { return keywordRegex.MatchString(text) }

func MatchesPartial(text string) bool { return partialRegex.MatchString(text) }

// Score returns the additive suspicion score of text in [0,100]. A zero
// createdAt means the account age is unknown and adds nothing.
func Score(text string, createdAt, now time.Time) int {
	score := 0
	if MatchesKeyword(text) {
		score += 20
	}
	if MatchesPartial(text) {
		score += 8
	}
	if DetectBypassAttempt(text) {
		score += 25
	}
	if DetectSuspiciousFormatting(text) {
		score += 12
	}

	length := utf8.RuneCountInString(text)
	urls := len(utils.ExtractURLs(text))
	if urls > 5 {
		score += 8
	}
	if urls > 2 && length < 50 {
		score += 5
	}

	if length > 20 {
		caps := len(upper.FindAllStringIndex(text, -1))
		if float64(caps)/float64(length) > 0.8 {
			score += 6
		}
	}

	if hasRepeatedRun(text, 7) && !punctRun.MatchString(text) {
		score += 4
	}

	if !createdAt.IsZero() {
		days := now.Sub(createdAt).Hours() / 24
		if days < 3 {
			score += 8
		}
		if days < 0.5 {
			score += 15
		}
	}

	if length > 10 && strings.Contains(text, " ") && !strings.Contains(text, "http") {
		score -= 3
		if score < 0 {
			score = 0
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

// hasRepeatedRun reports a run of at least n identical characters, not counting newlines.
func hasRepeatedRun(text string, n int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == '\n' {
			run = 0
			continue
		}
		if run > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		prev = r
		if run >= n {
			return true
		}
	}
	return false
}

// Report bundles the signals the moderation pipeline consults.
type Report struct {
	Score      int
	Bypass     bool
	Formatting bool
}

func Analyze(text string, createdAt, now time.Time) Report {
	return Report{
		Score:      Score(text, createdAt, now),
		Bypass:     DetectBypassAttempt(text),
		Formatting: DetectSuspiciousFormatting(text),
	}
}
