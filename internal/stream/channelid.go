package stream

import (
	"fmt"
	"strconv"
	"strings"
)

// Channel IDs name one streaming endpoint per motherboard and radio
// block instance, in the "<mboard>/Radio_<radio>" form. The motherboard
// prefix keeps IDs unique across independently clocked boards.

// ChannelID builds the canonical channel ID for a radio block.
func ChannelID(mboard, radio int) string {
	return fmt.Sprintf("%d/Radio_%d", mboard, radio)
}

// MotherboardOf extracts the motherboard index from a channel ID. The
// second result is false for IDs not in canonical form; callers treat
// those as belonging to no motherboard and skip them.
func MotherboardOf(id string) (int, bool) {
	head, _, found := strings.Cut(id, "/")
	if !found {
		return 0, false
	}
	mb, err := strconv.Atoi(head)
	if err != nil || mb < 0 {
		return 0, false
	}
	return mb, true
}
