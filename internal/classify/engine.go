// Package classify maps submission signals to a processing directive.
//
// Classification is pure domain logic - no I/O, no side effects. The engine
// receives everything it needs as arguments and returns a flag:
// green triggers full downstream processing, yellow triggers marketing
// submission only, red triggers neither (audit-only).
package classify

import (
	"leadgate/internal/policy"
	"leadgate/internal/submission"
)

// SpamThreshold is the score above which a submission is rejected outright.
const SpamThreshold = 0.8

// Input carries every signal the engine evaluates.
type Input struct {
	BuilderStatus     submission.BuilderStatus
	CountryType       policy.CountryType
	DomainType        policy.DomainType
	SpamScore         float64
	EnrichmentMatched bool
}

// Classify applies the flag rule chain.
// Rule priority (fail-fast):
//  1. Blocked country - compliance-critical, always red
//  2. Spam score above threshold - red
//  3. Builder unavailable - red, nothing to provision into
//  4. Builder constrained or pending - yellow
//  5. Unknown country - yellow
//  6. Free email domain - yellow
//  7. Missing enrichment match - yellow
//  8. Everything clean - green
func Classify(in Input) submission.Flag {
	if in.CountryType == policy.CountryBlocked {
		return submission.FlagRed
	}
	if in.SpamScore > SpamThreshold {
		return submission.FlagRed
	}
	if in.BuilderStatus == submission.BuilderUnavailable {
		return submission.FlagRed
	}

	if in.BuilderStatus == submission.BuilderConstrained || in.BuilderStatus == submission.BuilderPending {
		return submission.FlagYellow
	}
	if in.CountryType == policy.CountryUnknown {
		return submission.FlagYellow
	}
	if in.DomainType == policy.DomainFree {
		return submission.FlagYellow
	}
	if !in.EnrichmentMatched {
		return submission.FlagYellow
	}

	return submission.FlagGreen
}
