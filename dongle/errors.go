package dongle

import "errors"

var (
	// ErrShortPacket is returned (and logged, never fatal) when a
	// received frame is smaller than the header it claims to carry.
	ErrShortPacket = errors.New("dongle: packet shorter than its header")
	// ErrWrongDestination is returned when a WLAN frame's destination
	// address does not match the radio's own MAC address.
	ErrWrongDestination = errors.New("dongle: frame not addressed to this radio")
	// ErrUnknownClient is logged when a data frame's WCID has no
	// active slot.
	ErrUnknownClient = errors.New("dongle: no active slot for wcid")
)
