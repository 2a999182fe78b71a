package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotIsExclusive(t *testing.T) {
	m := NewManager(nil)

	a, err := m.Acquire("user-1", KindGaze, nil)
	require.NoError(t, err)

	_, err = m.Acquire("user-1", KindField, nil)
	assert.ErrorIs(t, err, ErrBusy)

	// Another user is unaffected.
	_, err = m.Acquire("user-2", KindField, nil)
	assert.NoError(t, err)

	m.Release("user-1", a.ID)
	_, err = m.Acquire("user-1", KindField, nil)
	assert.NoError(t, err)
}

func TestReleaseIgnoresStaleID(t *testing.T) {
	m := NewManager(nil)

	first, err := m.Acquire("user-1", KindContrast, nil)
	require.NoError(t, err)
	m.Release("user-1", first.ID)

	second, err := m.Acquire("user-1", KindContrast, nil)
	require.NoError(t, err)

	// Releasing with the old ID must not free the new session.
	m.Release("user-1", first.ID)
	assert.NotNil(t, m.Get("user-1", KindContrast))

	m.Release("user-1", second.ID)
	assert.Nil(t, m.Get("user-1", KindContrast))
}

func TestAbortStopsEngine(t *testing.T) {
	m := NewManager(nil)

	stopped := false
	_, err := m.Acquire("user-1", KindField, func() { stopped = true })
	require.NoError(t, err)

	m.Abort("user-1")
	assert.True(t, stopped)
	assert.Nil(t, m.Get("user-1", KindField))
}

func TestReapIdle(t *testing.T) {
	m := NewManager(nil)

	stopped := 0
	a, err := m.Acquire("stale", KindContrast, func() { stopped++ })
	require.NoError(t, err)
	a.LastSeen = time.Now().Add(-time.Hour)

	_, err = m.Acquire("fresh", KindContrast, func() { stopped++ })
	require.NoError(t, err)

	reaped := m.ReapIdle(10 * time.Minute)
	assert.Equal(t, 1, reaped)
	assert.Equal(t, 1, stopped)
	assert.Nil(t, m.Get("stale", KindContrast))
	assert.NotNil(t, m.Get("fresh", KindContrast))
}
