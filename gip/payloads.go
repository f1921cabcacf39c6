package gip

import (
	"io"

	"github.com/xgipd/xgipd/internal/buffer"
)

// Battery types and levels reported in a StatusData payload.
const (
	BatteryAlkaline uint8 = 0x01
	BatteryNiMH     uint8 = 0x02
)

const (
	BatteryEmpty uint8 = 0x00
	BatteryLow   uint8 = 0x01
	BatteryMed   uint8 = 0x02
	BatteryHigh  uint8 = 0x03
)

// PowerMode values accepted by a CmdPowerMode command.
type PowerMode uint8

const (
	PowerOn    PowerMode = 0x00
	PowerSleep PowerMode = 0x01
	PowerOff   PowerMode = 0x04
)

// Rumble motor bits.
const (
	RumbleRight uint8 = 0x01
	RumbleLeft  uint8 = 0x02
	RumbleLT    uint8 = 0x04
	RumbleRT    uint8 = 0x08
	RumbleAll   uint8 = 0x0f
)

// LED mode values accepted by a CmdLedMode command.
type LedMode uint8

const (
	LedOff       LedMode = 0x00
	LedOn        LedMode = 0x01
	LedBlinkFast LedMode = 0x02
	LedBlinkMed  LedMode = 0x03
	LedBlinkSlow LedMode = 0x04
	LedFadeSlow  LedMode = 0x08
	LedFadeFast  LedMode = 0x09
)

// VersionInfo is the 8-byte major.minor.build.revision tuple reported for
// both firmware and hardware in an AnnounceData payload.
type VersionInfo struct {
	Major, Minor, Build, Revision uint16
}

func decodeVersionInfo(v buffer.View) VersionInfo {
	return VersionInfo{
		Major:    v.U16(0),
		Minor:    v.U16(2),
		Build:    v.U16(4),
		Revision: v.U16(6),
	}
}

// AnnounceData is the CmdAnnounce payload (28 bytes) a controller sends on
// connect, naming its hardware identity and firmware/hardware versions.
type AnnounceData struct {
	MACAddress      [6]byte
	VendorID        uint16
	ProductID       uint16
	FirmwareVersion VersionInfo
	HardwareVersion VersionInfo
}

const announceDataSize = 28

// UnmarshalBinary decodes an AnnounceData payload.
func (a *AnnounceData) UnmarshalBinary(data []byte) error {
	if len(data) < announceDataSize {
		return io.ErrUnexpectedEOF
	}
	v := buffer.NewView(data)
	a.MACAddress = v.MAC(0)
	// bytes 6:8 are an unknown/reserved field
	a.VendorID = v.U16(8)
	a.ProductID = v.U16(10)
	a.FirmwareVersion = decodeVersionInfo(v.Slice(12, 8))
	a.HardwareVersion = decodeVersionInfo(v.Slice(20, 8))
	return nil
}

// StatusData is the CmdStatus payload reporting battery state.
type StatusData struct {
	BatteryLevel   uint8 // 2 bits
	BatteryType    uint8 // 2 bits
	ConnectionInfo uint8 // 4 bits
}

const statusDataSize = 4

func (s *StatusData) UnmarshalBinary(data []byte) error {
	if len(data) < statusDataSize {
		return io.ErrUnexpectedEOF
	}
	b0 := data[0]
	s.BatteryLevel = b0 & 0x3
	s.BatteryType = (b0 >> 2) & 0x3
	s.ConnectionInfo = (b0 >> 4) & 0xf
	return nil
}

// GuideButtonData is the CmdGuideButton payload.
type GuideButtonData struct {
	Pressed bool
}

const guideButtonDataSize = 2

func (g *GuideButtonData) UnmarshalBinary(data []byte) error {
	if len(data) < guideButtonDataSize {
		return io.ErrUnexpectedEOF
	}
	g.Pressed = data[0] != 0
	return nil
}

// SerialData is the CmdSerialNum payload.
type SerialData struct {
	SerialNumber string
}

const serialDataSize = 16

func (s *SerialData) UnmarshalBinary(data []byte) error {
	if len(data) < serialDataSize {
		return io.ErrUnexpectedEOF
	}
	end := 2
	for end < serialDataSize && data[end] != 0 {
		end++
	}
	s.SerialNumber = string(data[2:end])
	return nil
}

// Buttons is the CmdInput button bitfield.
type Buttons struct {
	Start, Select                     bool
	A, B, X, Y                        bool
	DPadUp, DPadDown, DPadLeft, DPadRight bool
	BumperLeft, BumperRight           bool
	StickLeft, StickRight             bool
}

func decodeButtons(v uint16) Buttons {
	bit := func(n uint) bool { return v&(1<<n) != 0 }
	return Buttons{
		Start:       bit(2),
		Select:      bit(3),
		A:           bit(4),
		B:           bit(5),
		X:           bit(6),
		Y:           bit(7),
		DPadUp:      bit(8),
		DPadDown:    bit(9),
		DPadLeft:    bit(10),
		DPadRight:   bit(11),
		BumperLeft:  bit(12),
		BumperRight: bit(13),
		StickLeft:   bit(14),
		StickRight:  bit(15),
	}
}

// InputData is the CmdInput payload: button state, analog triggers, and
// both analog sticks. Elite controllers append extra bytes after this
// fixed 14-byte portion; they are ignored.
type InputData struct {
	Buttons                Buttons
	TriggerLeft, TriggerRight uint16
	StickLeftX, StickLeftY   int16
	StickRightX, StickRightY int16
}

const inputDataSize = 14

func (in *InputData) UnmarshalBinary(data []byte) error {
	if len(data) < inputDataSize {
		return io.ErrUnexpectedEOF
	}
	v := buffer.NewView(data)
	in.Buttons = decodeButtons(v.U16(0))
	in.TriggerLeft = v.U16(2)
	in.TriggerRight = v.U16(4)
	in.StickLeftX = v.I16(6)
	in.StickLeftY = v.I16(8)
	in.StickRightX = v.I16(10)
	in.StickRightY = v.I16(12)
	return nil
}

// RumbleData is the CmdRumble outbound payload (9 bytes).
type RumbleData struct {
	Motors                   uint8
	TriggerLeft, TriggerRight uint8
	Left, Right              uint8
	Duration10ms             uint8
	Delay10ms                uint8
	Repeat                   uint8
}

// MarshalBinary encodes RumbleData to its 9-byte wire form.
func (r RumbleData) MarshalBinary() ([]byte, error) {
	b := buffer.NewBuilder(9)
	b.Zero(1) // unknown1
	b.U8(r.Motors)
	b.U8(r.TriggerLeft)
	b.U8(r.TriggerRight)
	b.U8(r.Left)
	b.U8(r.Right)
	b.U8(r.Duration10ms)
	b.U8(r.Delay10ms)
	b.U8(r.Repeat)
	return b.Bytes(), nil
}

// LedModeData is the CmdLedMode outbound payload (3 bytes).
type LedModeData struct {
	Mode       LedMode
	Brightness uint8 // 0x00..0x20
}

func (l LedModeData) MarshalBinary() ([]byte, error) {
	b := buffer.NewBuilder(3)
	b.Zero(1) // unknown
	b.U8(uint8(l.Mode))
	b.U8(l.Brightness)
	return b.Bytes(), nil
}
