package mt76

import "errors"

var (
	// ErrRadioTimeout is returned when a register or firmware handshake
	// does not complete within its poll deadline.
	ErrRadioTimeout = errors.New("mt76: radio did not respond in time")

	// ErrNoFreeSlot is returned by AssociateClient when all WCID slots
	// are occupied.
	ErrNoFreeSlot = errors.New("mt76: no free client slot")

	// ErrUnknownClient names a WCID that has no associated client. No
	// Controller method returns it: SendClientPacket silently skips an
	// unknown WCID.
	ErrUnknownClient = errors.New("mt76: unknown client slot")

	// ErrFirmwareLoad is returned when the firmware image fails to
	// upload or the radio does not acknowledge completion.
	ErrFirmwareLoad = errors.New("mt76: firmware load failed")
)
