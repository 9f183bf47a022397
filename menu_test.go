package pulse

import (
	"testing"
	"time"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopClick(*player.Player) {}

func TestMenuBuilder_Validation(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	t.Run("no buttons", func(t *testing.T) {
		_, err := d.NewMenu("Shop").Build()
		require.ErrorContains(t, err, "has no buttons")
	})

	t.Run("missing callback", func(t *testing.T) {
		_, err := d.NewMenu("Shop").Button("Buy", "", nil).Build()
		require.ErrorContains(t, err, `"Buy" has no callback`)
	})

	t.Run("duplicate button text", func(t *testing.T) {
		_, err := d.NewMenu("Shop").
			Button("Buy", "", nopClick).
			Button("Buy", "", nopClick).
			Build()
		require.ErrorContains(t, err, `duplicate button text "Buy"`)
	})

	t.Run("invalid gate policy", func(t *testing.T) {
		_, err := d.NewMenu("Shop").
			GatedButton("Buy", "", Policy{Debounce: -time.Second}, nopClick).
			Build()
		require.Error(t, err)
	})

	t.Run("valid", func(t *testing.T) {
		_, err := d.NewMenu("Shop").
			Body("Pick an item.").
			Button("Buy", "textures/items/emerald", nopClick).
			GatedButton("Sell", "", Policy{Debounce: 250 * time.Millisecond}, nopClick).
			Build()
		assert.NoError(t, err)
	})
}
