// Package dongle owns the two bulk-read loops feeding off the radio,
// demultiplexes events and 802.11 frames, and tracks the lifecycle of
// up to sixteen gamepad client slots.
package dongle

import (
	"sync"

	"github.com/xgipd/xgipd/mt76"
)

// ClientHandler is the per-client protocol handler a slot owns once a
// client has associated. gip.Session is the concrete implementation;
// kept as an interface here so dongle does not need to import gip.
type ClientHandler interface {
	// HandleInbound processes one decoded payload addressed to this
	// client's WCID (RxWi, WlanFrame, QosFrame, and padding stripped).
	HandleInbound(payload []byte)
	// Close releases any resources the handler owns (virtual input
	// device, audio streams). Called once, after the slot is removed
	// from the table.
	Close()
}

// NewClientHandler constructs the protocol handler for a newly
// associated client. send delivers an outbound payload to the client
// over the radio (ultimately mt76.Controller.SendClientPacket).
type NewClientHandler func(wcid uint8, mac [6]byte, send func([]byte) error) ClientHandler

// ClientSlot holds the state for one associated wireless client.
type ClientSlot struct {
	wcid    uint8
	mac     [6]byte
	handler ClientHandler
}

// Session is the process-wide table of active client slots, keyed by
// WCID (1..mt76.WCIDCount). WCID allocation itself lives in
// mt76.Controller; Session tracks what each allocated WCID is for.
type Session struct {
	mu         sync.Mutex
	slots      [mt76.WCIDCount + 1]*ClientSlot // index 0 unused (reserved for beacons)
	radio      *mt76.Controller
	newHandler NewClientHandler
}

// NewSession creates a client table bound to radio, using newHandler to
// construct a protocol handler for every newly associated client.
func NewSession(radio *mt76.Controller, newHandler NewClientHandler) *Session {
	return &Session{radio: radio, newHandler: newHandler}
}

// Associate allocates a WCID for mac, wires up a protocol handler for
// it, and returns the assigned WCID. On any failure after WCID
// allocation the slot is rolled back and the underlying error from
// mt76 is returned.
func (s *Session) Associate(mac [6]byte) (uint8, error) {
	wcid, err := s.radio.AssociateClient(mac)
	if err != nil {
		return 0, err
	}

	send := func(payload []byte) error {
		return s.radio.SendClientPacket(wcid, mac, payload)
	}
	handler := s.newHandler(wcid, mac, send)

	s.mu.Lock()
	s.slots[wcid] = &ClientSlot{wcid: wcid, mac: mac, handler: handler}
	s.mu.Unlock()

	return wcid, nil
}

// Disassociate releases the slot for wcid, idempotently: a wcid with no
// active slot (including 0, the invalid/reserved value) is a no-op.
func (s *Session) Disassociate(wcid uint8) error {
	if wcid == 0 || wcid > mt76.WCIDCount {
		return nil
	}

	s.mu.Lock()
	slot := s.slots[wcid]
	s.slots[wcid] = nil
	s.mu.Unlock()

	if slot == nil {
		return nil
	}

	err := s.radio.RemoveClient(wcid)
	slot.handler.Close()
	return err
}

// Dispatch hands payload to the handler owned by wcid's slot, if any.
// The table lock is released before the handler runs, so a slow GIP
// handler never blocks association/disassociation of other clients.
// Reports whether an active slot was found for wcid.
func (s *Session) Dispatch(wcid uint8, payload []byte) bool {
	s.mu.Lock()
	var slot *ClientSlot
	if wcid > 0 && int(wcid) < len(s.slots) {
		slot = s.slots[wcid]
	}
	s.mu.Unlock()

	if slot == nil {
		return false
	}
	slot.handler.HandleInbound(payload)
	return true
}

// ActiveCount reports how many WCIDs currently have a slot.
func (s *Session) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, slot := range s.slots {
		if slot != nil {
			n++
		}
	}
	return n
}

// Close releases every active slot, in ascending WCID order, used on
// process shutdown.
func (s *Session) Close() {
	for wcid := uint8(1); wcid <= mt76.WCIDCount; wcid++ {
		_ = s.Disassociate(wcid)
	}
}
