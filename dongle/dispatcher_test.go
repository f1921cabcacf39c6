package dongle

import (
	"log/slog"
	"testing"

	"github.com/xgipd/xgipd/internal/buffer"
	"github.com/xgipd/xgipd/mt76"
)

func encodeFrameControl(typ, subtype uint8) uint16 {
	return uint16(typ&0x3)<<2 | uint16(subtype&0xf)<<4
}

func buildRxWi(wcid uint8) []byte {
	b := buffer.NewBuilder(mt76.RxWiSize)
	b.U32(0)
	b.U32(uint32(wcid))
	b.Zero(mt76.RxWiSize - 8)
	return b.Bytes()
}

func buildWlanFrame(typ, subtype uint8, dest, src, bssid [6]byte) []byte {
	b := buffer.NewBuilder(mt76.WlanFrameSize)
	b.U16(encodeFrameControl(typ, subtype))
	b.U16(0)
	b.MAC(dest)
	b.MAC(src)
	b.MAC(bssid)
	b.U16(0)
	return b.Bytes()
}

func newTestDispatcher() (*Dispatcher, *fakeTransport, *Session, *[]*stubHandler) {
	tr := newFakeTransport()
	radio := mt76.New(tr, slog.Default())
	var created []*stubHandler
	session := NewSession(radio, func(wcid uint8, mac [6]byte, send func([]byte) error) ClientHandler {
		h := &stubHandler{wcid: wcid, mac: mac}
		created = append(created, h)
		return h
	})
	d := New(tr, radio, session, slog.Default(), nil)
	return d, tr, session, &created
}

func TestHandleWlanPacketAssociationRequest(t *testing.T) {
	d, _, session, _ := newTestDispatcher()

	var zeroMAC [6]byte
	client := [6]byte{1, 2, 3, 4, 5, 6}
	packet := append(buildRxWi(0), buildWlanFrame(mt76.WlanManagement, mt76.WlanAssociationReq, zeroMAC, client, zeroMAC)...)

	d.handleWlanPacket(packet)

	if session.ActiveCount() != 1 {
		t.Errorf("ActiveCount = %d, want 1", session.ActiveCount())
	}
}

func TestHandleWlanPacketWrongDestinationDropped(t *testing.T) {
	d, _, session, _ := newTestDispatcher()

	wrongDest := [6]byte{9, 9, 9, 9, 9, 9}
	client := [6]byte{1, 2, 3, 4, 5, 6}
	packet := append(buildRxWi(0), buildWlanFrame(mt76.WlanManagement, mt76.WlanAssociationReq, wrongDest, client, wrongDest)...)

	d.handleWlanPacket(packet)

	if session.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d, want 0 for frame addressed elsewhere", session.ActiveCount())
	}
}

func TestHandleWlanPacketQosDataDispatches(t *testing.T) {
	d, _, session, created := newTestDispatcher()

	var zeroMAC [6]byte
	client := [6]byte{1, 2, 3, 4, 5, 6}
	wcid, err := session.Associate(client)
	if err != nil {
		t.Fatalf("Associate: %v", err)
	}

	packet := buildRxWi(wcid)
	packet = append(packet, buildWlanFrame(mt76.WlanData, mt76.WlanQosData, zeroMAC, client, zeroMAC)...)
	packet = append(packet, 0, 0)       // QosFrame
	packet = append(packet, 0, 0)       // 2 bytes padding
	packet = append(packet, []byte("hi")...)
	packet = append(packet, 0, 0, 0, 0) // 4-byte trailer

	d.handleWlanPacket(packet)

	if len((*created)[0].inbound) != 1 || string((*created)[0].inbound[0]) != "hi" {
		t.Errorf("inbound = %+v, want one frame 'hi'", (*created)[0].inbound)
	}
}

func TestHandlePairingRequestType1Pairs(t *testing.T) {
	d, tr, _, _ := newTestDispatcher()

	var zeroMAC [6]byte
	client := [6]byte{1, 2, 3, 4, 5, 6}
	packet := buildRxWi(0)
	packet = append(packet, buildWlanFrame(mt76.WlanManagement, mt76.WlanReserved, zeroMAC, client, zeroMAC)...)
	packet = append(packet, 0x00, 0x01) // ReservedFrame{unknown, type=0x01}

	before := tr.writeCount()
	d.handleWlanPacket(packet)

	// PairClient (1 write) + SetPairingStatus(false) (beacon + led = 2 writes).
	if got := tr.writeCount() - before; got != 3 {
		t.Errorf("writeCount delta = %d, want 3", got)
	}
}

func TestHandlePairingRequestOtherTypeIgnored(t *testing.T) {
	d, tr, _, _ := newTestDispatcher()

	var zeroMAC [6]byte
	client := [6]byte{1, 2, 3, 4, 5, 6}
	packet := buildRxWi(0)
	packet = append(packet, buildWlanFrame(mt76.WlanManagement, mt76.WlanReserved, zeroMAC, client, zeroMAC)...)
	packet = append(packet, 0x00, 0x02)

	before := tr.writeCount()
	d.handleWlanPacket(packet)

	if got := tr.writeCount() - before; got != 0 {
		t.Errorf("writeCount delta = %d, want 0 for non-pairing reserved frame", got)
	}
}

func TestHandleCommandEndpointButtonPress(t *testing.T) {
	d, tr, _, _ := newTestDispatcher()

	b := buffer.NewBuilder(4)
	var word uint32
	word |= uint32(mt76.EvtButtonPress) << 20
	word |= uint32(mt76.PortCPURX) << 27
	b.U32(word)

	before := tr.writeCount()
	d.handleCommandEndpoint(b.Bytes())

	if got := tr.writeCount() - before; got != 2 {
		t.Errorf("writeCount delta = %d, want 2 (beacon + led)", got)
	}
}

func TestHandleCommandEndpointClientLost(t *testing.T) {
	d, _, session, created := newTestDispatcher()

	client := [6]byte{1, 2, 3, 4, 5, 6}
	wcid, err := session.Associate(client)
	if err != nil {
		t.Fatalf("Associate: %v", err)
	}

	b := buffer.NewBuilder(5)
	var word uint32
	word |= uint32(mt76.EvtClientLost) << 20
	word |= uint32(mt76.PortCPURX) << 27
	b.U32(word)
	b.U8(wcid)

	d.handleCommandEndpoint(b.Bytes())

	if session.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d, want 0 after CLIENT_LOST", session.ActiveCount())
	}
	if !(*created)[0].closed {
		t.Error("handler not closed after CLIENT_LOST")
	}
}
