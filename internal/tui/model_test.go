package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datallboy/fanout/internal/domain"
)

func TestModelPollsUntilFinished(t *testing.T) {
	states := []*domain.Run{
		{ID: "r1", Status: domain.StatusRunning, Units: 4, Alive: []bool{true, false}},
		{ID: "r1", Status: domain.StatusCompleted, Units: 4},
	}
	calls := 0
	m := NewModel(func() (*domain.Run, error) {
		run := states[calls]
		calls++
		return run, nil
	}, time.Millisecond)

	next, cmd := m.Update(tickMsg(time.Now()))
	m = next.(Model)
	require.NotNil(t, cmd, "a running run schedules another poll")
	assert.False(t, m.Finished())

	view := m.View()
	assert.Contains(t, view, "fanout run r1")
	assert.Contains(t, view, "1/2 workers running, 4 items")

	next, _ = m.Update(tickMsg(time.Now()))
	m = next.(Model)
	assert.True(t, m.Finished())
	assert.Contains(t, m.View(), "completed")
	assert.Equal(t, 2, calls)
}

func TestModelStopsOnPollError(t *testing.T) {
	m := NewModel(func() (*domain.Run, error) { return nil, errors.New("store unavailable") }, 0)

	next, cmd := m.Update(tickMsg(time.Now()))
	m = next.(Model)

	require.NotNil(t, cmd)
	assert.Error(t, m.Err)
	assert.Contains(t, m.View(), "store unavailable")
}

func TestModelQuitKey(t *testing.T) {
	m := NewModel(func() (*domain.Run, error) { return nil, nil }, 0)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(Model)

	require.NotNil(t, cmd)
	assert.True(t, m.Quitting)
}

func TestModelInitialView(t *testing.T) {
	m := NewModel(func() (*domain.Run, error) { return nil, nil }, 0)
	assert.Contains(t, m.View(), "waiting for run")
}
