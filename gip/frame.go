// Package gip implements the Game Input Protocol state machine that runs
// per associated wireless client: a framed, sequenced, acknowledged
// request/response protocol carrying announce, status, input, guide-button,
// serial-number, rumble, LED, power, and audio messages.
package gip

import (
	"github.com/xgipd/xgipd/internal/buffer"
)

// Command identifies the payload carried by a Frame.
type Command uint8

const (
	CmdAcknowledge  Command = 0x01
	CmdAnnounce     Command = 0x02
	CmdStatus       Command = 0x03
	CmdAuthenticate Command = 0x04
	CmdPowerMode    Command = 0x05
	CmdCustom       Command = 0x06
	CmdGuideButton  Command = 0x07
	CmdAudioConfig  Command = 0x08
	CmdRumble       Command = 0x09
	CmdLedMode      Command = 0x0a
	CmdSerialNum    Command = 0x1e
	CmdInput        Command = 0x20
	CmdAudioSamples Command = 0x60
)

// Type is the high nibble of the frame's second byte (the low nibble is
// the device id). Command frames expect
// no response; Request frames expect the controller to answer with data;
// the Ack bit composes with either to request an acknowledgement frame.
type Type uint8

const (
	TypeCommand Type = 0x00
	TypeAck     Type = 0x01
	TypeRequest Type = 0x02
)

// FrameSize is the fixed size of a GIP header, in bytes.
const FrameSize = 4

// Frame is the 4-byte GIP header prefixing every message.
type Frame struct {
	Command  Command
	DeviceID uint8 // 4 bits
	Type     Type  // 4 bits
	Sequence uint8
	Length   uint8
}

// Encode serialises the header to its 4-byte wire form.
func (f Frame) Encode() []byte {
	b := buffer.NewBuilder(FrameSize)
	b.U8(uint8(f.Command))
	b.U8((f.DeviceID & 0xf) | (uint8(f.Type)&0xf)<<4)
	b.U8(f.Sequence)
	b.U8(f.Length)
	return b.Bytes()
}

// DecodeFrame parses a 4-byte GIP header. Callers must check len(data) >=
// FrameSize first.
func DecodeFrame(data []byte) Frame {
	v := buffer.NewView(data)
	b1 := v.U8(1)
	return Frame{
		Command:  Command(v.U8(0)),
		DeviceID: b1 & 0xf,
		Type:     Type((b1 >> 4) & 0xf),
		Sequence: v.U8(2),
		Length:   v.U8(3),
	}
}

// HasAck reports whether the frame requests an acknowledgement.
func (f Frame) HasAck() bool {
	return uint8(f.Type)&uint8(TypeAck) != 0
}

// buildAck constructs the fixed acknowledgement reply for an inbound frame
// whose ack bit is set: a header naming the ack command and the original
// sequence, one byte of padding, the original frame re-serialised with its
// command copied into the type slot and its length copied into the
// sequence slot, and four bytes of trailing padding.
func buildAck(frame Frame) []byte {
	header := Frame{
		Command:  CmdAcknowledge,
		DeviceID: frame.DeviceID,
		Type:     TypeRequest,
		Sequence: frame.Sequence,
		Length:   FrameSize + 5,
	}

	echoed := Frame{
		Command:  frame.Command,
		DeviceID: frame.DeviceID,
		Type:     TypeRequest,
		Sequence: frame.Length,
		Length:   0,
	}

	b := buffer.NewBuilder(FrameSize + 1 + FrameSize + 4)
	b.Bytes_(header.Encode())
	b.Zero(1)
	b.Bytes_(echoed.Encode())
	b.Zero(4)
	return b.Bytes()
}
