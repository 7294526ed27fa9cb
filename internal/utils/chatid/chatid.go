package chatid

import (
	"strconv"
	"strings"
)

// For computes the deterministic chat id for a pair of users: both ids
// rendered as decimal strings, sorted lexicographically, joined with ":".
// For(a, b) == For(b, a) for all a, b, so the id can always be re-derived
// from the participants and never needs to be stored independently.
func For(a, b uint64) string {
	sa := strconv.FormatUint(a, 10)
	sb := strconv.FormatUint(b, 10)
	if sa > sb {
		sa, sb = sb, sa
	}
	return sa + ":" + sb
}

// Participants splits a chat id back into the two user ids.
// Returns false for anything that is not a well-formed id.
func Participants(id string) (uint64, uint64, bool) {
	lo, hi, found := strings.Cut(id, ":")
	if !found {
		return 0, 0, false
	}
	a, err := strconv.ParseUint(lo, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.ParseUint(hi, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Other returns the counterpart of userID in the chat, when userID is a
// participant.
func Other(id string, userID uint64) (uint64, bool) {
	a, b, ok := Participants(id)
	if !ok {
		return 0, false
	}
	switch userID {
	case a:
		return b, true
	case b:
		return a, true
	}
	return 0, false
}
