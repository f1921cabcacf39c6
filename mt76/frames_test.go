package mt76

import (
	"testing"

	"github.com/xgipd/xgipd/internal/buffer"
)

func TestFrameControlEncode(t *testing.T) {
	fc := FrameControl{Type: WlanData, Subtype: WlanQosData, FromDS: true}
	got := fc.encode()
	want := uint16(WlanData<<2 | WlanQosData<<4 | 1<<9)
	if got != want {
		t.Errorf("encode() = %#04x, want %#04x", got, want)
	}
}

func TestWlanFrameAppendTo(t *testing.T) {
	f := WlanFrame{
		Control:     FrameControl{Type: WlanManagement, Subtype: WlanBeacon},
		Duration:    10,
		Destination: [6]byte{1, 2, 3, 4, 5, 6},
	}
	b := buffer.NewBuilder(WlanFrameSize)
	f.appendTo(b)
	if b.Len() != WlanFrameSize {
		t.Fatalf("appendTo wrote %d bytes, want %d", b.Len(), WlanFrameSize)
	}
}

func TestTxInfoPacketEncode(t *testing.T) {
	info := TxInfoPacket{Length: 64, Is80211: true, WIV: true, Qsel: QSelEDCA, Port: PortWLAN}
	v := info.encode()
	if v&0xffff != 64 {
		t.Errorf("length bits wrong: %#x", v)
	}
	if v&(1<<19) == 0 {
		t.Error("is80211 bit not set")
	}
	if v&(1<<24) == 0 {
		t.Error("wiv bit not set")
	}
	if (v>>25)&0x3 != QSelEDCA {
		t.Errorf("qsel = %d, want %d", (v>>25)&0x3, QSelEDCA)
	}
}

func TestDecodeRxInfoCommand(t *testing.T) {
	var word uint32
	word |= 100                    // length
	word |= uint32(EvtPacketRX) << 20
	word |= uint32(PortCPURX) << 27

	got := DecodeRxInfoCommand(word)
	if got.Length != 100 || got.EventType != EvtPacketRX || got.Port != PortCPURX {
		t.Errorf("DecodeRxInfoCommand = %+v", got)
	}
}

func TestDecodeRxWi(t *testing.T) {
	v := buffer.NewView([]byte{
		0x10, 0x00, 0x00, 0x00, // dmaLength = 16
		0x05, 0x00, 0x40, 0x00, // wcid = 5
	})
	got := DecodeRxWi(v)
	if got.DMALength != 16 {
		t.Errorf("DMALength = %d, want 16", got.DMALength)
	}
	if got.WCID != 5 {
		t.Errorf("WCID = %d, want 5", got.WCID)
	}
}
