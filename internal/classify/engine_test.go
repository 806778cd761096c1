package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leadgate/internal/policy"
	"leadgate/internal/submission"
)

func cleanInput() Input {
	return Input{
		BuilderStatus:     submission.BuilderAvailable,
		CountryType:       policy.CountryAllow,
		DomainType:        policy.DomainCorporate,
		SpamScore:         0.1,
		EnrichmentMatched: true,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		want   submission.Flag
	}{
		{
			name:   "clean submission is green",
			mutate: func(*Input) {},
			want:   submission.FlagGreen,
		},
		{
			name:   "blocked country is red",
			mutate: func(in *Input) { in.CountryType = policy.CountryBlocked },
			want:   submission.FlagRed,
		},
		{
			name: "blocked country outranks every other signal",
			mutate: func(in *Input) {
				in.CountryType = policy.CountryBlocked
				in.BuilderStatus = submission.BuilderAvailable
				in.DomainType = policy.DomainCorporate
				in.SpamScore = 0
				in.EnrichmentMatched = true
			},
			want: submission.FlagRed,
		},
		{
			name:   "spam score above threshold is red",
			mutate: func(in *Input) { in.SpamScore = 0.81 },
			want:   submission.FlagRed,
		},
		{
			name:   "spam score at threshold is not red",
			mutate: func(in *Input) { in.SpamScore = SpamThreshold },
			want:   submission.FlagGreen,
		},
		{
			name:   "unavailable builder is red",
			mutate: func(in *Input) { in.BuilderStatus = submission.BuilderUnavailable },
			want:   submission.FlagRed,
		},
		{
			name:   "constrained builder is yellow",
			mutate: func(in *Input) { in.BuilderStatus = submission.BuilderConstrained },
			want:   submission.FlagYellow,
		},
		{
			name:   "pending builder is yellow",
			mutate: func(in *Input) { in.BuilderStatus = submission.BuilderPending },
			want:   submission.FlagYellow,
		},
		{
			name:   "unknown country is yellow",
			mutate: func(in *Input) { in.CountryType = policy.CountryUnknown },
			want:   submission.FlagYellow,
		},
		{
			name:   "free email domain is yellow",
			mutate: func(in *Input) { in.DomainType = policy.DomainFree },
			want:   submission.FlagYellow,
		},
		{
			name:   "missing enrichment match is yellow",
			mutate: func(in *Input) { in.EnrichmentMatched = false },
			want:   submission.FlagYellow,
		},
		{
			name: "red rules outrank yellow rules",
			mutate: func(in *Input) {
				in.SpamScore = 0.95
				in.DomainType = policy.DomainFree
				in.EnrichmentMatched = false
			},
			want: submission.FlagRed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := cleanInput()
			tt.mutate(&in)
			assert.Equal(t, tt.want, Classify(in))
		})
	}
}

// TestClassifyDeterminism verifies the same input always yields the same flag.
func TestClassifyDeterminism(t *testing.T) {
	in := cleanInput()
	in.DomainType = policy.DomainFree

	first := Classify(in)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Classify(in))
	}
}
