package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

func TestNewPolicyDefaults(t *testing.T) {
	p, err := NewPolicy("acme", "Default", "issue")
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	assert.Equal(t, 80, p.WarningThresholdPct)
	assert.Len(t, p.Targets, 4)

	_, err = NewPolicy("", "x", "issue")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestSetTarget(t *testing.T) {
	p, err := NewPolicy("acme", "Default", "issue")
	require.NoError(t, err)

	require.NoError(t, p.SetTarget(Target{PriorityCritical, 10, 120}))
	assert.Equal(t, 10, p.Targets[PriorityCritical].ResponseMinutes)

	assert.ErrorIs(t, p.SetTarget(Target{"urgent", 10, 120}), shared.ErrValidation)
	assert.ErrorIs(t, p.SetTarget(Target{PriorityLow, 0, 120}), shared.ErrValidation)
	assert.ErrorIs(t, p.SetTarget(Target{PriorityLow, 500, 120}), shared.ErrValidation)
}

func TestDeadlines(t *testing.T) {
	p, err := NewPolicy("acme", "Default", "issue")
	require.NoError(t, err)

	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	response, resolution := p.Deadlines(PriorityCritical, created)
	assert.Equal(t, created.Add(15*time.Minute), response)
	assert.Equal(t, created.Add(240*time.Minute), resolution)

	// Unknown priority falls back to the medium target.
	response, _ = p.Deadlines("unknown", created)
	assert.Equal(t, created.Add(240*time.Minute), response)
}
