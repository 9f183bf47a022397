package pulse

import (
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/player/form"
)

// Command extracts the player from a command source.
// Returns nil if the source is not a player (e.g. the console).
func Command(src cmd.Source) *player.Player {
	p, ok := src.(*player.Player)
	if !ok {
		return nil
	}
	return p
}

// Form extracts the player from a form submitter.
// Returns nil if the submitter is not a player.
func Form(sub form.Submitter) *player.Player {
	p, ok := sub.(*player.Player)
	if !ok {
		return nil
	}
	return p
}

// Item extracts the player from an item user.
// Returns nil if the user is not a player.
func Item(user item.User) *player.Player {
	p, ok := user.(*player.Player)
	if !ok {
		return nil
	}
	return p
}
