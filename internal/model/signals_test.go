package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []string
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		AboutToReset: func() { r.events = append(r.events, "about") },
		Reset:        func() { r.events = append(r.events, "reset") },
		Changed:      func(first, last int) { r.events = append(r.events, "changed") },
	}
}

func TestSignals(t *testing.T) {
	t.Run("reset brackets queries", func(t *testing.T) {
		var s Signals
		rec := &recorder{}
		s.Subscribe(rec.hooks())

		require.NoError(t, s.Check())
		rb := s.BeginReset()
		assert.ErrorIs(t, s.Check(), ErrResetInProgress)
		assert.True(t, s.Resetting())
		rb.End()

		assert.NoError(t, s.Check())
		assert.Equal(t, uint64(1), s.Generation())
		assert.Equal(t, []string{"about", "reset"}, rec.events)
	})

	t.Run("unsubscribed listener hears nothing", func(t *testing.T) {
		var s Signals
		gone, kept := &recorder{}, &recorder{}
		h := gone.hooks()
		s.Subscribe(&h)
		s.Subscribe(kept.hooks())
		assert.Equal(t, 2, s.Listeners())

		s.Unsubscribe(&h)
		s.Unsubscribe(&Hooks{})
		assert.Equal(t, 1, s.Listeners())

		s.BeginReset().End()
		assert.Empty(t, gone.events)
		assert.Equal(t, []string{"about", "reset"}, kept.events)
	})

	t.Run("End is idempotent", func(t *testing.T) {
		var s Signals
		rec := &recorder{}
		s.Subscribe(rec.hooks())

		rb := s.BeginReset()
		rb.End()
		rb.End()

		assert.Equal(t, uint64(1), s.Generation())
		assert.Equal(t, []string{"about", "reset"}, rec.events)
	})

	t.Run("nested reset panics", func(t *testing.T) {
		var s Signals
		s.BeginReset()
		assert.Panics(t, func() { s.BeginReset() })
	})

	t.Run("rows changed", func(t *testing.T) {
		var s Signals
		var got [2]int
		s.Subscribe(Hooks{Changed: func(first, last int) { got = [2]int{first, last} }})

		s.EmitRowsChanged(3, 3)
		assert.Equal(t, [2]int{3, 3}, got)
		assert.Equal(t, uint64(0), s.Generation())
	})

	t.Run("nil hooks are skipped", func(t *testing.T) {
		var s Signals
		s.Subscribe(Hooks{})
		assert.NotPanics(t, func() {
			s.BeginReset().End()
			s.EmitRowsChanged(0, 0)
		})
	})
}

func TestFlags(t *testing.T) {
	f := ItemEnabled | ItemSelectable
	assert.True(t, f.Has(ItemEnabled))
	assert.True(t, f.Has(ItemEnabled|ItemSelectable))
	assert.False(t, f.Has(ItemEditable))
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "display", DisplayRole.String())
	assert.Equal(t, "node", NodeRole.String())
	assert.Equal(t, "unknown", Role(42).String())
}
