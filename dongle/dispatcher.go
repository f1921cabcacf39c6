package dongle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xgipd/xgipd/internal/buffer"
	"github.com/xgipd/xgipd/internal/interrupt"
	"github.com/xgipd/xgipd/internal/log"
	"github.com/xgipd/xgipd/mt76"
	"github.com/xgipd/xgipd/usb"
)

// bulkBufferSize is the fixed receive buffer every RX loop reads into.
const bulkBufferSize = 512

// readTimeout bounds each BulkRead so a loop notices context
// cancellation promptly instead of blocking indefinitely.
const readTimeout = 500 * time.Millisecond

// Dispatcher owns the two RX loops reading off the radio's command/event
// endpoint and WLAN-packet endpoint, demultiplexes their contents by
// port and event type, and drives the client Session accordingly.
type Dispatcher struct {
	transport usb.Transport
	radio     *mt76.Controller
	session   *Session
	log       *slog.Logger
	rawLog    log.RawLogger

	wg sync.WaitGroup
}

// New creates a Dispatcher. rawLog may be nil to disable wire tracing.
func New(transport usb.Transport, radio *mt76.Controller, session *Session, logger *slog.Logger, rawLog log.RawLogger) *Dispatcher {
	return &Dispatcher{transport: transport, radio: radio, session: session, log: logger, rawLog: rawLog}
}

// Run starts both RX loops and blocks until ctx is cancelled or either
// loop exits on a fatal transport error.
func (d *Dispatcher) Run(ctx context.Context) {
	src := interrupt.New(ctx)
	d.wg.Add(2)
	go d.readLoop(src, mt76.EPRead, d.handleCommandEndpoint)
	go d.readLoop(src, mt76.EPReadPacket, d.handlePacketEndpoint)
	d.wg.Wait()
}

// readLoop is the Go analog of the upstream driver's interruptible bulk
// read: src.Interrupted() replaces the self-pipe's wake-on-either-fd
// check, unblocking between BulkRead calls as soon as Run's ctx is
// cancelled.
func (d *Dispatcher) readLoop(src *interrupt.Source, endpoint uint8, handle func([]byte)) {
	defer d.wg.Done()

	buf := make([]byte, bulkBufferSize)
	for {
		if src.Interrupted() {
			return
		}

		n, err := d.transport.BulkRead(endpoint, buf, readTimeout)
		if err != nil {
			if err == usb.ErrTimeout {
				continue
			}
			d.log.Error("bulk read failed, stopping RX loop", "endpoint", endpoint, "err", err)
			src.Interrupt()
			return
		}
		if n == 0 {
			continue
		}

		data := append([]byte(nil), buf[:n]...)
		if d.rawLog != nil {
			d.rawLog.Log(true, data)
		}
		handle(data)
	}
}

// handleCommandEndpoint demuxes a frame received on the command/event
// port (MT_EP_READ).
func (d *Dispatcher) handleCommandEndpoint(data []byte) {
	if len(data) < 4 {
		d.log.Warn("short command frame", "len", len(data))
		return
	}
	word := buffer.NewView(data).U32(0)
	generic := mt76.DecodeRxInfoGeneric(word)

	if generic.Port != mt76.PortCPURX {
		return
	}

	info := mt76.DecodeRxInfoCommand(word)
	payload := data[4:]

	switch info.EventType {
	case mt76.EvtPacketRX:
		d.handleWlanPacket(payload)
	case mt76.EvtClientLost:
		if len(payload) == 0 {
			return
		}
		d.handleControllerDisconnect(payload[0])
	case mt76.EvtButtonPress:
		if err := d.radio.SetPairingStatus(true); err != nil {
			d.log.Error("failed to start pairing", "err", err)
			return
		}
		d.log.Info("pairing initiated")
	}
}

// handlePacketEndpoint demuxes a frame received on the WLAN-packet port
// (MT_EP_READ_PACKET).
func (d *Dispatcher) handlePacketEndpoint(data []byte) {
	if len(data) < 4 {
		d.log.Warn("short packet frame", "len", len(data))
		return
	}
	word := buffer.NewView(data).U32(0)
	info := mt76.DecodeRxInfoPacket(word)
	if !info.Is80211 {
		return
	}
	d.handleWlanPacket(data[4:])
}

// handleWlanPacket processes one decoded 802.11 frame: an RxWi followed
// by a WlanFrame and, for data frames, a QosFrame and payload.
func (d *Dispatcher) handleWlanPacket(packet []byte) {
	if len(packet) < mt76.RxWiSize+mt76.WlanFrameSize {
		d.log.Warn("dropping frame", "err", ErrShortPacket, "len", len(packet))
		return
	}

	rxWi := mt76.DecodeRxWi(buffer.NewView(packet))
	wlanFrame := mt76.DecodeWlanFrame(buffer.NewView(packet[mt76.RxWiSize:]))

	if wlanFrame.Destination != d.radio.MACAddress() {
		d.log.Debug("dropping frame", "err", ErrWrongDestination, "dest", wlanFrame.Destination)
		return
	}

	typ, subtype := wlanFrame.Control.Type, wlanFrame.Control.Subtype

	if typ == mt76.WlanData && subtype == mt76.WlanQosData {
		d.handleControllerPacket(packet, rxWi)
		return
	}

	if typ != mt76.WlanManagement {
		return
	}

	switch subtype {
	case mt76.WlanAssociationReq:
		d.handleControllerConnect(wlanFrame.Source)

	case mt76.WlanDisassociation:
		// Kept for compatibility with controller firmware (ID 1537),
		// which disassociates/re-associates during pairing without a
		// CLIENT_LOST event.
		d.handleControllerDisconnect(rxWi.WCID)

	case mt76.WlanReserved:
		d.handlePairingRequest(packet, wlanFrame.Source)
	}
}

// reservedFrameTypeOffset is the offset of the pairing-request "type"
// byte within a reserved-subtype management frame, counted from the
// start of the RxWi.
const reservedFrameTypeOffset = mt76.RxWiSize + mt76.WlanFrameSize + 1

// handlePairingRequest inspects a reserved-subtype management frame; a
// type byte of 0x01 marks a pairing request.
func (d *Dispatcher) handlePairingRequest(packet []byte, source [6]byte) {
	if len(packet) <= reservedFrameTypeOffset {
		return
	}
	if packet[reservedFrameTypeOffset] != 0x01 {
		return
	}

	if err := d.radio.PairClient(source); err != nil {
		d.log.Error("failed to pair client", "err", err)
		return
	}
	if err := d.radio.SetPairingStatus(false); err != nil {
		d.log.Error("failed to end pairing", "err", err)
	}
	d.log.Debug("controller paired", "mac", source)
}

// handleControllerPacket strips RxWi, WlanFrame, QosFrame, and 2 bytes
// of padding from the front, and a 4-byte trailer, then forwards the
// remainder to the owning client's protocol handler.
func (d *Dispatcher) handleControllerPacket(packet []byte, rxWi mt76.RxWi) {
	begin := mt76.RxWiSize + mt76.WlanFrameSize + mt76.QosFrameSize + 2
	end := len(packet) - 4
	if end <= begin {
		return
	}
	if !d.session.Dispatch(rxWi.WCID, packet[begin:end]) {
		d.log.Warn("dropping frame", "err", ErrUnknownClient, "wcid", rxWi.WCID)
	}
}

func (d *Dispatcher) handleControllerConnect(mac [6]byte) {
	wcid, err := d.session.Associate(mac)
	if err != nil {
		d.log.Error("failed to associate client", "err", err)
		return
	}
	d.log.Info("controller connected", "wcid", wcid)
}

func (d *Dispatcher) handleControllerDisconnect(wcid uint8) {
	if wcid == 0 {
		return
	}
	if err := d.session.Disassociate(wcid); err != nil {
		d.log.Error("failed to remove client", "wcid", wcid, "err", err)
		return
	}
	d.log.Info("controller disconnected", "wcid", wcid)
}
