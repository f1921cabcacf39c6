package mt76

import (
	"log/slog"
	"testing"
)

func newTestController() (*Controller, *fakeTransport) {
	tr := newFakeTransport()
	c := New(tr, slog.Default())
	c.macAddress = [6]byte{0x62, 0x45, 0xbd, 0x01, 0x02, 0x03}
	return c, tr
}

func TestAssociateClientAllocatesLowestFreeSlot(t *testing.T) {
	c, tr := newTestController()

	wcid, err := c.AssociateClient([6]byte{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("AssociateClient: %v", err)
	}
	if wcid != 1 {
		t.Errorf("wcid = %d, want 1", wcid)
	}
	if tr.writeCount() == 0 {
		t.Error("expected at least one bulk write for the association packet")
	}

	wcid2, err := c.AssociateClient([6]byte{7, 8, 9, 10, 11, 12})
	if err != nil {
		t.Fatalf("AssociateClient: %v", err)
	}
	if wcid2 != 2 {
		t.Errorf("second wcid = %d, want 2", wcid2)
	}
}

func TestAssociateClientNoFreeSlot(t *testing.T) {
	c, _ := newTestController()
	c.connectedClients = 0xffff

	if _, err := c.AssociateClient([6]byte{1, 2, 3, 4, 5, 6}); err != ErrNoFreeSlot {
		t.Errorf("err = %v, want ErrNoFreeSlot", err)
	}
}

func TestRemoveClientIsIdempotent(t *testing.T) {
	c, _ := newTestController()
	c.connectedClients = 1 << 2

	if err := c.RemoveClient(3); err != nil {
		t.Fatalf("RemoveClient: %v", err)
	}
	if c.connectedClients != 0 {
		t.Errorf("connectedClients = %#x, want 0", c.connectedClients)
	}
	if err := c.RemoveClient(3); err != nil {
		t.Fatalf("second RemoveClient: %v", err)
	}
}

func TestSendClientPacketSkipsUnknownWCID(t *testing.T) {
	c, tr := newTestController()

	if err := c.SendClientPacket(5, [6]byte{1, 2, 3, 4, 5, 6}, []byte("hello")); err != nil {
		t.Fatalf("SendClientPacket: %v", err)
	}
	if tr.writeCount() != 0 {
		t.Errorf("expected no writes for an unconnected wcid, got %d", tr.writeCount())
	}
}

func TestSendClientPacketConnectedWCID(t *testing.T) {
	c, tr := newTestController()
	c.connectedClients = 1 << 0

	if err := c.SendClientPacket(1, [6]byte{1, 2, 3, 4, 5, 6}, []byte("hello")); err != nil {
		t.Fatalf("SendClientPacket: %v", err)
	}
	if tr.writeCount() != 1 {
		t.Errorf("writeCount = %d, want 1", tr.writeCount())
	}
}

func TestPairClientSendsFrame(t *testing.T) {
	c, tr := newTestController()

	if err := c.PairClient([6]byte{1, 2, 3, 4, 5, 6}); err != nil {
		t.Fatalf("PairClient: %v", err)
	}
	if tr.writeCount() != 1 {
		t.Errorf("writeCount = %d, want 1", tr.writeCount())
	}
}

func TestSetPairingStatusUpdatesState(t *testing.T) {
	c, tr := newTestController()

	if err := c.SetPairingStatus(true); err != nil {
		t.Fatalf("SetPairingStatus: %v", err)
	}
	if !c.pairingEnabled {
		t.Error("pairingEnabled not set")
	}
	if tr.writeCount() != 2 {
		t.Errorf("writeCount = %d, want 2 (beacon burst write + led mode)", tr.writeCount())
	}
}
