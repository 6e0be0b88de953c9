package conversation

import (
	"propchat/app/client/searchbot"
)

// ChatHistory is the append-only transcript sent to the backend as context.
type ChatHistory struct {
	turns []searchbot.Turn
}

func (h *ChatHistory) addUser(text string) {
	h.turns = append(h.turns, searchbot.Turn{User: text})
}

func (h *ChatHistory) addBot(text string) {
	h.turns = append(h.turns, searchbot.Turn{Bot: text})
}

func (h *ChatHistory) len() int {
	return len(h.turns)
}

// snapshot returns a copy so the backend call never aliases live state.
func (h *ChatHistory) snapshot() []searchbot.Turn {
	out := make([]searchbot.Turn, len(h.turns))
	copy(out, h.turns)

	return out
}
