package violation

import (
	"time"

	"guardian-automod/internal/policy"
)

type Kind string

const (
	BlockedKeyword       Kind = "blocked_keyword"
	BypassAttempt        Kind = "bypass_attempt"
	SuspiciousFormatting Kind = "suspicious_formatting"
	HighThreat           Kind = "high_threat"
	AccountTooNew        Kind = "account_too_new"
	PingSpam             Kind = "ping_spam"
	AdultSite            Kind = "adult_site"
	LinkSpam             Kind = "link_spam"
	RapidPosting         Kind = "rapid_posting"
	CrossChannelSpam     Kind = "cross_channel_spam"
	AdultInvite          Kind = "adult_invite"
	BlockedWord          Kind = "blocked_word"
	BlockedDomain        Kind = "blocked_domain"
)

// Rule is the enforcement profile of a violation kind.
type Rule struct {
	Reason   string
	Notice   string
	Severity policy.Severity
	Timeout  time.Duration
}

func RuleFor(kind Kind) Rule {
	switch kind {
	case BlockedKeyword:
		return Rule{
			Reason:   "Prohibited content",
			Notice:   "your message contained prohibited content and has been removed.",
			Severity: policy.SeveritySevere,
			Timeout:  time.Hour,
		}
	case BypassAttempt:
		return Rule{
			Reason:   "Filter bypass attempt",
			Notice:   "attempting to bypass the content filter is not allowed.",
			Severity: policy.SeveritySevere,
			Timeout:  time.Hour,
		}
	case SuspiciousFormatting:
		return Rule{
			Reason:   "Suspicious formatting",
			Notice:   "your message used suspicious formatting and has been removed.",
			Severity: policy.SeverityModerate,
			Timeout:  10 * time.Minute,
		}
	case HighThreat:
		return Rule{
			Reason:   "High threat content",
			Notice:   "your message was flagged as high risk and has been removed.",
			Severity: policy.SeveritySevere,
			Timeout:  time.Hour,
		}
	case AccountTooNew:
		return Rule{
			Reason:   "Suspicious activity from a new account",
			Notice:   "new accounts cannot post this kind of content.",
			Severity: policy.SeverityModerate,
			Timeout:  30 * time.Minute,
		}
	case PingSpam:
		return Rule{
			Reason:   "Mass mentions",
			Notice:   "please do not mass mention members.",
			Severity: policy.SeverityModerate,
			Timeout:  10 * time.Minute,
		}
	case AdultSite:
		return Rule{
			Reason:   "Adult content link",
			Notice:   "adult links are not allowed here.",
			Severity: policy.SeveritySevere,
			Timeout:  time.Hour,
		}
	case LinkSpam:
		return Rule{
			Reason:   "Link spam",
			Notice:   "you are posting links too quickly.",
			Severity: policy.SeverityModerate,
			Timeout:  10 * time.Minute,
		}
	case RapidPosting:
		return Rule{
			Reason:   "Rapid posting",
			Notice:   "slow down, you are posting too fast.",
			Severity: policy.SeverityMinor,
			Timeout:  5 * time.Minute,
		}
	case CrossChannelSpam:
		return Rule{
			Reason:   "Cross-channel spam",
			Notice:   "posting the same message in several channels is not allowed.",
			Severity: policy.SeverityModerate,
			Timeout:  30 * time.Minute,
		}
	case AdultInvite:
		return Rule{
			Reason:   "Adult server invite",
			Notice:   "invites to adult servers are not allowed.",
			Severity: policy.SeveritySevere,
			Timeout:  time.Hour,
		}
	case BlockedWord:
		return Rule{
			Reason:   "Blocked word",
			Notice:   "your message contained a blocked word and has been removed.",
			Severity: policy.SeverityMinor,
			Timeout:  EscalationTimeout,
		}
	case BlockedDomain:
		return Rule{
			Reason:   "Blocked domain",
			Notice:   "your message contained a blocked domain and has been removed.",
			Severity: policy.SeverityMinor,
			Timeout:  EscalationTimeout,
		}
	}
	return Rule{
		Reason:   "Automod violation",
		Notice:   "your message broke the server rules and has been removed.",
		Severity: policy.SeverityMinor,
		Timeout:  5 * time.Minute,
	}
}
