package submission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusCanAdvanceTo(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"created to code requested", StatusCreated, StatusCodeRequested, true},
		{"code requested to code sent", StatusCodeRequested, StatusCodeSent, true},
		{"code sent back to code requested", StatusCodeSent, StatusCodeRequested, true},
		{"code sent to verified", StatusCodeSent, StatusVerified, true},
		{"created straight to completed", StatusCreated, StatusCompleted, true},
		{"verified back to created", StatusVerified, StatusCreated, false},
		{"completed back to verified", StatusCompleted, StatusVerified, false},
		{"succeeded anywhere", StatusSucceeded, StatusQueued, false},
		{"blocked anywhere", StatusBlocked, StatusQueued, false},
		{"verified to verified", StatusVerified, StatusVerified, false},
		{"unknown status", Status("bogus"), StatusCreated, false},
		{"to unknown status", StatusCreated, Status("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanAdvanceTo(tt.to))
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusSucceeded.IsTerminal())
	assert.True(t, StatusBlocked.IsTerminal())
	assert.False(t, StatusPendingReview.IsTerminal())
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusCreated.IsTerminal())
}

func TestStepHistory(t *testing.T) {
	sub := &Submission{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sub.AppendStep(StepEvent{Step: 1, RequestID: "r1", At: at})
	sub.AppendStep(StepEvent{Step: 2, Mode: "request", RequestID: "r2", At: at})
	sub.AppendStep(StepEvent{Step: 2, Mode: "verify", RequestID: "r2", At: at})

	assert.Nil(t, sub.FindStepEvent(1, "", "unknown"))
	assert.NotNil(t, sub.FindStepEvent(1, "", "r1"))
	assert.NotNil(t, sub.FindStepEvent(2, "request", "r2"))
	assert.NotNil(t, sub.FindStepEvent(2, "verify", "r2"))
	assert.Nil(t, sub.FindStepEvent(2, "request", "r1"))
}

func TestNewExternalID(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id := newExternalID(now)
	assert.Len(t, id, 18)
	assert.Regexp(t, "^[a-z][a-z0-9]{17}$", id)

	// The embedded timestamp makes ids from the same second share a prefix.
	other := newExternalID(now)
	assert.Equal(t, id[1:8], other[1:8])
	assert.NotEqual(t, id, other)
}

func TestRandIndex(t *testing.T) {
	for _, n := range []int{10, 26, 36} {
		for i := 0; i < 200; i++ {
			idx := randIndex(n)
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, n)
		}
	}
}
