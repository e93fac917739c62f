package limits

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWorkingSetLimits(t *testing.T) {
	l := DefaultWorkingSetLimits()

	assert.Equal(t, 20000, l.MaxCandidates)
	assert.Equal(t, 5000, l.MaxResolvedEntities)
	assert.Equal(t, 5000, l.MaxGraphNodes)
	assert.Equal(t, 10000, l.MaxTimelineEvents)
	assert.Equal(t, 24*time.Hour, l.MaxAge)
	assert.Equal(t, 500, l.MaxErrorsRecorded)
}

func TestNewWorkingSetLimiter(t *testing.T) {
	limiter := NewWorkingSetLimiter(nil)
	require.NotNil(t, limiter)
	require.NotNil(t, limiter.limits)

	custom := &WorkingSetLimits{
		MaxCandidates:       100,
		MaxResolvedEntities: 50,
		MaxGraphNodes:       75,
		MaxTimelineEvents:   200,
		MaxAge:              12 * time.Hour,
		MaxErrorsRecorded:   10,
	}

	limiter = NewWorkingSetLimiter(custom)
	require.NotNil(t, limiter)
	assert.Equal(t, custom.MaxCandidates, limiter.GetLimits().MaxCandidates)
}

func TestWorkingSetLimiter_UpdateLimits(t *testing.T) {
	limiter := NewWorkingSetLimiter(nil)

	valid := &WorkingSetLimits{
		MaxCandidates:       100,
		MaxResolvedEntities: 50,
		MaxGraphNodes:       75,
		MaxTimelineEvents:   200,
		MaxAge:              48 * time.Hour,
		MaxErrorsRecorded:   20,
	}

	err := limiter.UpdateLimits(valid)
	assert.NoError(t, err)
	assert.Equal(t, valid.MaxCandidates, limiter.GetLimits().MaxCandidates)

	invalid := &WorkingSetLimits{MaxCandidates: -1}
	err = limiter.UpdateLimits(invalid)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "MaxCandidates must be positive")
}

func TestWorkingSetLimiter_ShouldCleanup(t *testing.T) {
	limiter := NewWorkingSetLimiter(nil)

	now := time.Now().Unix()
	oldTimestamp := now - int64(25*time.Hour/time.Second)

	assert.False(t, limiter.ShouldCleanup(now))
	assert.True(t, limiter.ShouldCleanup(oldTimestamp))
}

func TestWorkingSetLimiter_ValidateLimits(t *testing.T) {
	limiter := NewWorkingSetLimiter(nil)

	err := limiter.ValidateLimits()
	assert.NoError(t, err)

	limiter.limits = &WorkingSetLimits{
		MaxCandidates:       1000000,
		MaxResolvedEntities: 50,
		MaxGraphNodes:       75,
		MaxTimelineEvents:   200,
		MaxAge:              24 * time.Hour,
		MaxErrorsRecorded:   20,
	}
	err = limiter.ValidateLimits()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "MaxCandidates too large")
}

func TestWorkingSetLimiter_TrimErrors(t *testing.T) {
	limiter := NewWorkingSetLimiter(&WorkingSetLimits{
		MaxCandidates:       1,
		MaxResolvedEntities: 1,
		MaxGraphNodes:       1,
		MaxTimelineEvents:   1,
		MaxAge:              time.Hour,
		MaxErrorsRecorded:   3,
	})

	errs := []string{"a", "b", "c", "d", "e"}
	trimmed := limiter.TrimErrors(errs)
	assert.Equal(t, []string{"c", "d", "e"}, trimmed)
}
