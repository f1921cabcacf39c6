package mt76

import "github.com/xgipd/xgipd/internal/buffer"

// FrameControl is the first two bytes of a WlanFrame.
type FrameControl struct {
	ProtocolVersion uint8
	Type            uint8
	Subtype         uint8
	ToDS            bool
	FromDS          bool
	MoreFragments   bool
	Retry           bool
	PowerMgmt       bool
	MoreData        bool
	Protected       bool
	Order           bool
}

func (fc FrameControl) encode() uint16 {
	var v uint32
	v |= uint32(fc.ProtocolVersion&0x3) << 0
	v |= uint32(fc.Type&0x3) << 2
	v |= uint32(fc.Subtype&0xf) << 4
	if fc.ToDS {
		v |= 1 << 8
	}
	if fc.FromDS {
		v |= 1 << 9
	}
	if fc.MoreFragments {
		v |= 1 << 10
	}
	if fc.Retry {
		v |= 1 << 11
	}
	if fc.PowerMgmt {
		v |= 1 << 12
	}
	if fc.MoreData {
		v |= 1 << 13
	}
	if fc.Protected {
		v |= 1 << 14
	}
	if fc.Order {
		v |= 1 << 15
	}
	return uint16(v)
}

// WlanFrame is the 24-byte 802.11 header used for management and data
// frames alike in this minimal AP: frame control, duration, three MAC
// addresses, sequence control.
type WlanFrame struct {
	Control         FrameControl
	Duration        uint16
	Destination     [6]byte
	Source          [6]byte
	BSSID           [6]byte
	SequenceControl uint16
}

// WlanFrameSize is the packed wire size of WlanFrame.
const WlanFrameSize = 24

func (f WlanFrame) appendTo(b *buffer.Builder) {
	b.U16(f.Control.encode())
	b.U16(f.Duration)
	b.MAC(f.Destination)
	b.MAC(f.Source)
	b.MAC(f.BSSID)
	b.U16(f.SequenceControl)
}

// DecodeFrameControl parses a raw 2-byte frame-control field.
func DecodeFrameControl(v uint16) FrameControl {
	return FrameControl{
		ProtocolVersion: uint8(v & 0x3),
		Type:            uint8((v >> 2) & 0x3),
		Subtype:         uint8((v >> 4) & 0xf),
		ToDS:            v&(1<<8) != 0,
		FromDS:          v&(1<<9) != 0,
		MoreFragments:   v&(1<<10) != 0,
		Retry:           v&(1<<11) != 0,
		PowerMgmt:       v&(1<<12) != 0,
		MoreData:        v&(1<<13) != 0,
		Protected:       v&(1<<14) != 0,
		Order:           v&(1<<15) != 0,
	}
}

// DecodeWlanFrame parses a WlanFrameSize-byte header from the front of v.
func DecodeWlanFrame(v buffer.View) WlanFrame {
	return WlanFrame{
		Control:         DecodeFrameControl(v.U16(0)),
		Duration:        v.U16(2),
		Destination:     v.MAC(4),
		Source:          v.MAC(10),
		BSSID:           v.MAC(16),
		SequenceControl: v.U16(22),
	}
}

// DecodeQosFrame parses the 2-byte QoS control field from the front of v.
func DecodeQosFrame(v buffer.View) QosFrame {
	return QosFrame{QosControl: v.U16(0)}
}

// QosFrame is the 2-byte QoS control field following a data WlanFrame.
type QosFrame struct{ QosControl uint16 }

const QosFrameSize = 2

func (q QosFrame) appendTo(b *buffer.Builder) { b.U16(q.QosControl) }

// AssociationResponseFrame follows a WlanFrame in an association reply.
type AssociationResponseFrame struct {
	CapabilityInfo uint16
	StatusCode     uint16
	AssociationID  uint16
	_              uint64 // unknown, reserved
}

const AssociationResponseFrameSize = 14

func (a AssociationResponseFrame) appendTo(b *buffer.Builder) {
	b.U16(a.CapabilityInfo)
	b.U16(a.StatusCode)
	b.U16(a.AssociationID)
	b.Zero(8)
}

// BeaconFrame follows a WlanFrame in a beacon.
type BeaconFrame struct {
	Timestamp      uint64
	Interval       uint16
	CapabilityInfo uint16
	SSID           uint16
}

const BeaconFrameSize = 14

// appendTo writes the frame; the timestamp field is left zero since the
// radio fills it in from hardware sequence control on transmit.
func (f BeaconFrame) appendTo(b *buffer.Builder) {
	b.Zero(8)
	b.U16(f.Interval)
	b.U16(f.CapabilityInfo)
	b.U16(f.SSID)
}

// TxWi is the transmit wireless-info header preceding every outbound
// 802.11 frame over USB. Only the fields this driver sets are named;
// everything else is reserved zero.
type TxWi struct {
	Timestamp      bool
	Nseq           bool
	PhyType        uint8
	Ack            bool
	WCID           uint8
	MPDUByteCount  uint16
}

const TxWiSize = 20

func (t TxWi) appendTo(b *buffer.Builder) {
	var w0 uint32
	if t.Timestamp {
		w0 |= 1 << 3
	}
	w0 |= uint32(t.PhyType&0x7) << 29
	b.U32(w0)

	var w1 uint32
	if t.Ack {
		w1 |= 1 << 0
	}
	if t.Nseq {
		w1 |= 1 << 1
	}
	w1 |= uint32(t.WCID&0xff) << 8
	w1 |= uint32(t.MPDUByteCount&0x3fff) << 16
	b.U32(w1)

	b.Zero(12) // iv, eiv, and the trailing packed word
}

// RxWi is the receive wireless-info header preceding every inbound
// 802.11 frame over USB.
type RxWi struct {
	DMALength     uint32
	WCID          uint8
	MPDUByteCount uint16
}

const RxWiSize = 32

// DecodeRxWi parses the fixed-size RxWi from the front of v.
func DecodeRxWi(v buffer.View) RxWi {
	dw1 := v.U32(4)
	return RxWi{
		DMALength:     v.U32(0),
		WCID:          uint8(dw1 & 0xff),
		MPDUByteCount: uint16((dw1 >> 16) & 0x3fff),
	}
}

// RxInfoGeneric differentiates between DMA ports on the command/event
// endpoint.
type RxInfoGeneric struct {
	Port uint8
}

// DecodeRxInfoGeneric parses the port field common to every RxInfo word.
func DecodeRxInfoGeneric(word uint32) RxInfoGeneric {
	return RxInfoGeneric{Port: uint8((word >> 27) & 0x7)}
}

// RxInfoCommand is the RxInfoGeneric specialisation carrying an event
// type, delivered on the command/event endpoint.
type RxInfoCommand struct {
	Length    uint16
	EventType uint8
	Port      uint8
}

// DecodeRxInfoCommand parses an RxInfoCommand word delivered on the
// command/event endpoint.
func DecodeRxInfoCommand(word uint32) RxInfoCommand {
	return RxInfoCommand{
		Length:    uint16(word & 0x3fff),
		EventType: uint8((word >> 20) & 0xf),
		Port:      uint8((word >> 27) & 0x7),
	}
}

// RxInfoPacket is the RxInfoGeneric specialisation for 802.11 packets,
// delivered on the WLAN packet endpoint.
type RxInfoPacket struct {
	Length  uint16
	Is80211 bool
	Port    uint8
}

// DecodeRxInfoPacket parses an RxInfoPacket word delivered on the WLAN
// packet endpoint.
func DecodeRxInfoPacket(word uint32) RxInfoPacket {
	return RxInfoPacket{
		Length:  uint16(word & 0x3fff),
		Is80211: (word>>19)&0x1 != 0,
		Port:    uint8((word >> 27) & 0x7),
	}
}

// TxInfoCommand wraps every command sent to the radio's MCU.
type TxInfoCommand struct {
	Length  uint16
	Command uint8
	Port    uint8
	// InfoType distinguishes a command packet from a normal packet;
	// sendCommand uses InfoTypeCmdPacket, while firmware upload chunks
	// use InfoTypeNormalPacket.
	InfoType uint8
}

func (t TxInfoCommand) encode() uint32 {
	var v uint32
	v |= uint32(t.Length&0xffff) << 0
	v |= uint32(t.Command&0x7f) << 20
	v |= uint32(t.Port&0x7) << 27
	v |= uint32(t.InfoType&0x3) << 30
	return v
}

// TxInfoPacket wraps a raw 802.11 WLAN packet (beacon, association
// reply, pairing frame) sent directly to the WLAN port.
type TxInfoPacket struct {
	Length   uint16
	Is80211  bool
	WIV      bool
	Qsel     uint8
	Port     uint8
	InfoType uint8
}

func (t TxInfoPacket) encode() uint32 {
	var v uint32
	v |= uint32(t.Length&0xffff) << 0
	if t.Is80211 {
		v |= 1 << 19
	}
	if t.WIV {
		v |= 1 << 24
	}
	v |= uint32(t.Qsel&0x3) << 25
	v |= uint32(t.Port&0x7) << 27
	v |= uint32(t.InfoType&0x3) << 30
	return v
}
