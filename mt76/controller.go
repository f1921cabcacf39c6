package mt76

import (
	"context"
	"fmt"
	"log/slog"
	"math/bits"
	"sync"

	"github.com/xgipd/xgipd/firmware"
	"github.com/xgipd/xgipd/internal/buffer"
	"github.com/xgipd/xgipd/usb"
)

// Controller drives one MT76xx radio: firmware upload, register
// programming, calibration, beaconing, and per-client 802.11 framing.
// All exported methods are safe for concurrent use.
type Controller struct {
	transport usb.Transport
	log       *slog.Logger

	mu               sync.Mutex
	macAddress       [6]byte
	connectedClients uint16
	pairingEnabled   bool
}

// New wraps an already-opened transport. Call Init before using the
// radio for anything else.
func New(transport usb.Transport, log *slog.Logger) *Controller {
	return &Controller{transport: transport, log: log}
}

// Init uploads firmware, programs the boot register table, calibrates
// the crystal and RF path, configures the channel plan, and starts
// beaconing. It mirrors the single monolithic constructor sequence the
// upstream chip driver performs; any step failing aborts the whole boot.
func (c *Controller) Init(ctx context.Context) error {
	if err := c.loadFirmware(ctx); err != nil {
		return fmt.Errorf("load firmware: %w", err)
	}

	if err := c.selectFunction(FuncQSelect, 1); err != nil {
		return fmt.Errorf("select rx ring: %w", err)
	}
	if err := c.powerMode(RadioOn); err != nil {
		return fmt.Errorf("power on: %w", err)
	}
	if err := c.loadCr(CrRFBBP); err != nil {
		return fmt.Errorf("load cr: %w", err)
	}

	if err := c.initRegisters(ctx); err != nil {
		return fmt.Errorf("init registers: %w", err)
	}

	c.mu.Lock()
	mac := c.macAddress
	c.mu.Unlock()

	if err := c.sendFirmwareCommand(FwMACAddressSet, mac[:]); err != nil {
		return fmt.Errorf("set mac address: %w", err)
	}

	// Reset necessary for reliable WLAN associations.
	c.regWrite(regMACSysCtrl, 0)
	c.regWrite(regRFBypass0, 0)
	c.regWrite(regRFSetting0, 0)

	if err := c.calibrate(CalTempSensor, 0); err != nil {
		return fmt.Errorf("calibrate temp sensor: %w", err)
	}
	if err := c.calibrate(CalRXDCOC, 1); err != nil {
		return fmt.Errorf("calibrate rx dc offset: %w", err)
	}
	if err := c.calibrate(CalRC, 0); err != nil {
		return fmt.Errorf("calibrate rc: %w", err)
	}

	c.regWrite(regMACSysCtrl, macSysCtrlEnableTX|macSysCtrlEnableRX)

	if err := c.initChannels(); err != nil {
		return fmt.Errorf("init channels: %w", err)
	}

	if err := c.writeBeacon(false); err != nil {
		return fmt.Errorf("write beacon: %w", err)
	}

	c.log.Info("radio ready", "mac", fmt.Sprintf("%x", mac))
	return nil
}

// Shutdown turns off the pairing LED and radio power. It does not close
// the underlying transport.
func (c *Controller) Shutdown() {
	if err := c.setLedMode(LedOff); err != nil {
		c.log.Warn("led off failed", "err", err)
	}
	if err := c.powerMode(RadioOff); err != nil {
		c.log.Warn("radio off failed", "err", err)
	}
}

// MACAddress returns the radio's corrected hardware address.
func (c *Controller) MACAddress() [6]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.macAddress
}

// PairingEnabled reports whether pairing mode is currently on, so a
// caller wiring an external toggle (a signal, a button) knows which way
// to flip it.
func (c *Controller) PairingEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pairingEnabled
}

func (c *Controller) loadFirmware(ctx context.Context) error {
	if c.controlRead(regFCEDMAAddr, VendReadCfg) != 0 {
		c.log.Debug("firmware already resident, resetting")

		patch := c.controlRead(regRFPatch, VendReadCfg)
		patch &^= 1 << rfPatchResetIVBit
		c.controlWrite(regRFPatch, patch, VendWriteCfg)
		c.controlWrite(fwResetIVB, 0, VendDevMode)

		if err := poll(ctx, func() bool {
			return c.controlRead(regFCEDMAAddr, VendReadCfg) != 0x80000000
		}); err != nil {
			return fmt.Errorf("firmware reset: %w", err)
		}
	}

	const dmaConfigRxTxBulk = 1<<22 | 1<<23 // rxBulkEnabled, txBulkEnabled
	c.controlWrite(regUSBU3DMACfg, dmaConfigRxTxBulk, VendWriteCfg)
	c.controlWrite(regFCEPseCtrl, 0x01, VendWrite)
	c.controlWrite(regTxCpuFromFceBasePtr, 0x400230, VendWrite)
	c.controlWrite(regTxCpuFromFceMaxCount, 0x01, VendWrite)
	c.controlWrite(regTxCpuFromFceCpuDescIdx, 0x01, VendWrite)
	c.controlWrite(regFCEPdmaGlobalConf, 0x44, VendWrite)
	c.controlWrite(regFCESkipFS, 0x03, VendWrite)

	header, err := firmware.ParseHeader(firmware.Blob)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFirmwareLoad, err)
	}
	ilm := firmware.ILM(firmware.Blob, header)
	dlm := firmware.DLM(firmware.Blob, header)

	if err := c.loadFirmwarePart(ctx, mcuILMOffset, ilm); err != nil {
		return fmt.Errorf("write ilm: %w", err)
	}
	if err := c.loadFirmwarePart(ctx, mcuDLMOffset, dlm); err != nil {
		return fmt.Errorf("write dlm: %w", err)
	}

	c.controlWrite(regFCEDMAAddr, 0, VendWriteCfg)
	c.controlWrite(fwLoadIVB, 0, VendDevMode)

	if err := poll(ctx, func() bool {
		return c.controlRead(regFCEDMAAddr, VendReadCfg) != 0x01
	}); err != nil {
		return fmt.Errorf("%w: firmware did not start", ErrFirmwareLoad)
	}

	c.log.Debug("firmware loaded")
	return nil
}

// loadFirmwarePart uploads data in fwChunkSize-byte pieces starting at
// the given MCU memory offset, polling the DMA length register after
// each chunk for completion.
func (c *Controller) loadFirmwarePart(ctx context.Context, offset uint32, data []byte) error {
	for sent := 0; sent < len(data); sent += fwChunkSize {
		end := sent + fwChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[sent:end]
		address := offset + uint32(sent)
		length := uint16(len(chunk))

		info := TxInfoCommand{Port: PortCPUTX, InfoType: InfoTypeNormalPacket, Length: length}

		b := buffer.NewBuilder(4 + len(chunk) + 4)
		b.U32(info.encode())
		b.Bytes_(chunk)
		b.Zero(4)

		c.controlWrite(regFCEDMAAddr, address, VendWriteCfg)
		c.controlWrite(regFCEDMALen, uint32(length)<<16, VendWriteCfg)

		if _, err := c.transport.BulkWrite(EPWrite, b.Bytes()); err != nil {
			return fmt.Errorf("write firmware chunk: %w", err)
		}

		complete := uint32(length)<<16 | dmaComplete
		if err := poll(ctx, func() bool {
			return c.controlRead(regFCEDMALen, VendReadCfg) != complete
		}); err != nil {
			return fmt.Errorf("chunk at %#x: %w", address, err)
		}
	}
	return nil
}

// initRegisters writes the boot-time register table, calibrates the
// crystal oscillator, and reads the radio's corrected MAC address.
func (c *Controller) initRegisters(ctx context.Context) error {
	c.regWrite(regMACSysCtrl, macSysCtrlResetCSR|macSysCtrlResetBBP)
	c.regWrite(regUSBDMACfg, 0)
	c.regWrite(regMACSysCtrl, 0)
	c.regWrite(regPwrPinCfg, 0)
	c.controlWrite(regLdoCtrl1, 0x6b006464, VendWrite)
	c.regWrite(regWPDMAGloCfg, 0x70)
	c.regWrite(regWMMAifsn, 0x2273)
	c.regWrite(regWMMCWMin, 0x2344)
	c.regWrite(regWMMCWMax, 0x34aa)
	c.regWrite(regFCEDMAAddr, 0x041200)
	c.regWrite(regTSOCtrl, 0)
	c.regWrite(regPBFSysCtrl, 0x080c00)
	c.regWrite(regPBFTxMaxPCnt, 0x1fbf1f1f)
	c.regWrite(regFCEPseCtrl, 0x01)
	c.regWrite(regMACSysCtrl, macSysCtrlEnableTX|macSysCtrlEnableRX)
	c.regWrite(regAutoRspCfg, 0x13)
	c.regWrite(regMaxLenCfg, 0x3e3fff)
	c.regWrite(regAMPDUMaxLen20M1S, 0xfffc9855)
	c.regWrite(regAMPDUMaxLen20M2S, 0xff)
	c.regWrite(regBkoffSlotCfg, 0x0109)
	c.regWrite(regPwrPinCfg, 0)
	c.regWrite(edcaCfgAC(0), 0x064320)
	c.regWrite(edcaCfgAC(1), 0x0a4700)
	c.regWrite(edcaCfgAC(2), 0x043238)
	c.regWrite(edcaCfgAC(3), 0x03212f)
	c.regWrite(regTxPinCfg, 0x150f0f)
	c.regWrite(regTxSwCfg0, 0x101001)
	c.regWrite(regTxSwCfg1, 0x010000)
	c.regWrite(regTxopCtrlCfg, 0x10583f)
	c.regWrite(regTxTimeoutCfg, 0x0a0f90)
	c.regWrite(regTxRetryCfg, 0x47d01f0f)
	c.regWrite(regCckProtCfg, 0x03f40003)
	c.regWrite(regOfdmProtCfg, 0x03f40003)
	c.regWrite(regMM20ProtCfg, 0x01742004)
	c.regWrite(regGF20ProtCfg, 0x01742004)
	c.regWrite(regGF40ProtCfg, 0x03f42084)
	c.regWrite(regExpAckTime, 0x2c00dc)
	c.regWrite(regTxAlcCfg2, 0x22160a00)
	c.regWrite(regTxAlcCfg3, 0x22160a76)
	c.regWrite(regTxAlcCfg0, 0x3f3f1818)
	c.regWrite(regTxAlcCfg4, 0x0606)
	c.regWrite(regPifsTxCfg, 0x060fff)
	c.regWrite(regRxFiltrCfg, 0x017f17)
	c.regWrite(regLegacyBasicRate, 0x017f)
	c.regWrite(regHTBasicRate, 0x8003)
	c.regWrite(regPNPadMode, 0x02)
	c.regWrite(regTxoPHldrEt, 0x02)
	c.regWrite(regTxProtCfg6, 0xe3f42004)
	c.regWrite(regTxProtCfg7, 0xe3f42084)
	c.regWrite(regTxProtCfg8, 0xe3f42104)
	c.regWrite(regDaccLkEnDlyCfg, 0)
	c.regWrite(regRFPAModeAdj0, 0xee000000)
	c.regWrite(regRFPAModeAdj1, 0xee000000)
	c.regWrite(regTx0RFGainCorr, 0x0f3c3c3c)
	c.regWrite(regTx1RFGainCorr, 0x0f3c3c3c)
	c.regWrite(regPBFCfg, 0x1efebcf5)
	c.regWrite(regPauseEnableControl1, 0x0a)
	c.regWrite(regRFBypass0, 0x7f000000)
	c.regWrite(regRFSetting0, 0x1a800000)
	c.regWrite(regXifsTimeCfg, 0x33a40e0a)
	c.regWrite(regFCEL2Stuff, 0x03ff0223)
	c.regWrite(regTxRtsCfg, 0)
	c.regWrite(regBeaconTimeCfg, 0x0640)
	c.regWrite(regExtCcaCfg, 0xf0e4)
	c.regWrite(regChTimeCfg, 0x015f)

	if err := c.calibrateCrystal(); err != nil {
		return fmt.Errorf("calibrate crystal: %w", err)
	}

	c.regWrite(mtBBP(8), 0x18365efa)
	c.regWrite(mtBBP(9), 0x18365efa)

	mac, err := c.efuseRead(eeMACAddr, 6)
	if err != nil || len(mac) < 6 {
		return fmt.Errorf("read mac address: %w", err)
	}

	var addr [6]byte
	copy(addr[:], mac)

	// Some dongles ship an address outside the range controllers will
	// pair with; force the known-good OUI.
	if addr[0] != 0x62 {
		c.log.Debug("correcting mac address oui")
		addr[0], addr[1], addr[2] = 0x62, 0x45, 0xbd
	}

	c.mu.Lock()
	c.macAddress = addr
	c.mu.Unlock()

	if err := c.burstWrite(regMACAddrDW0, addr[:]); err != nil {
		return fmt.Errorf("write mac address: %w", err)
	}
	if err := c.burstWrite(regMACBssidDW0, addr[:]); err != nil {
		return fmt.Errorf("write bssid: %w", err)
	}

	c.log.Debug("asic version", "version", c.regRead(regAsicVersion)>>16)
	c.log.Debug("mac version", "version", c.regRead(regMACCsr0)>>16)
	return nil
}

// calibrateCrystal reads e-fuse trim values and programs the crystal
// oscillator's frequency compensation.
func (c *Controller) calibrateCrystal() error {
	trim, err := c.efuseRead(eeXtalTrim2, 4)
	if err != nil || len(trim) < 4 {
		return fmt.Errorf("read xtal trim 2: %w", err)
	}

	value := uint16(trim[3])<<8 | uint16(trim[2])
	var offset int8
	switch {
	case value&0xff == 0xff:
		offset = 0
	case value&0x80 != 0:
		offset = -int8(value & 0x7f)
	default:
		offset = int8(value & 0x7f)
	}

	value >>= 8
	if value == 0x00 || value == 0xff {
		trim, err = c.efuseRead(eeXtalTrim1, 4)
		if err != nil || len(trim) < 4 {
			return fmt.Errorf("read xtal trim 1: %w", err)
		}
		value = (uint16(trim[3])<<8 | uint16(trim[2])) & 0xff
		if value == 0x00 || value == 0xff {
			value = 0x14
		}
	}

	value = (value & 0x7f) + uint16(offset)

	ctrl := c.controlRead(regXOCtrl5, VendReadCfg) &^ xoCtrl5C2ValMask
	c.controlWrite(regXOCtrl5, ctrl|uint32(value)<<8, VendWriteCfg)
	c.controlWrite(regXOCtrl6, xoCtrl6C2Ctrl, VendWriteCfg)
	c.controlWrite(regCmbCtrl, 0x0091a7ff, VendWrite)
	return nil
}

// AssociateClient allocates a free WCID slot for mac, registers it with
// the firmware, and transmits the association response over the air.
// It returns ErrNoFreeSlot if every slot is occupied.
func (c *Controller) AssociateClient(mac [6]byte) (uint8, error) {
	c.mu.Lock()
	free := ^c.connectedClients
	wcid := uint8(bits.TrailingZeros16(free)) + 1
	if free == 0 || wcid > WCIDCount {
		c.mu.Unlock()
		return 0, ErrNoFreeSlot
	}
	c.connectedClients |= 1 << (wcid - 1)
	myMAC := c.macAddress
	c.mu.Unlock()

	rollback := func() {
		c.mu.Lock()
		c.connectedClients &^= 1 << (wcid - 1)
		c.mu.Unlock()
	}

	wcidData := []byte{wcid - 1, 0x00, 0x00, 0x00, 0x40, 0x1f, 0x00, 0x00}

	if err := c.burstWrite(wcidAddr(wcid), mac[:]); err != nil {
		rollback()
		return 0, fmt.Errorf("write wcid: %w", err)
	}
	if err := c.sendFirmwareCommand(FwClientAdd, wcidData); err != nil {
		rollback()
		return 0, fmt.Errorf("add client: %w", err)
	}

	txWi := TxWi{PhyType: PhyTypeOFDM, Ack: true, WCID: 0xff,
		MPDUByteCount: WlanFrameSize + AssociationResponseFrameSize}
	wlan := WlanFrame{
		Control:     FrameControl{Type: WlanManagement, Subtype: WlanAssociationResp},
		Destination: mac, Source: myMAC, BSSID: myMAC,
	}
	assoc := AssociationResponseFrame{StatusCode: 0x0110, AssociationID: 0x0f00}

	b := buffer.NewBuilder(TxWiSize + WlanFrameSize + AssociationResponseFrameSize)
	txWi.appendTo(b)
	wlan.appendTo(b)
	assoc.appendTo(b)

	if err := c.sendWlanPacket(b.Bytes()); err != nil {
		rollback()
		return 0, fmt.Errorf("send association packet: %w", err)
	}
	if err := c.setLedMode(LedOn); err != nil {
		rollback()
		return 0, fmt.Errorf("set led: %w", err)
	}

	return wcid, nil
}

// RemoveClient releases a WCID slot. It is idempotent: removing an
// already-free slot is not an error.
func (c *Controller) RemoveClient(wcid uint8) error {
	c.mu.Lock()
	c.connectedClients &^= 1 << (wcid - 1)
	remaining := c.connectedClients
	c.mu.Unlock()

	if err := c.sendFirmwareCommand(FwClientRemove, []byte{wcid - 1, 0, 0, 0}); err != nil {
		return fmt.Errorf("remove client: %w", err)
	}
	if err := c.burstWrite(wcidAddr(wcid), make([]byte, 6)); err != nil {
		return fmt.Errorf("clear wcid: %w", err)
	}
	if remaining == 0 {
		if err := c.setLedMode(LedOff); err != nil {
			return fmt.Errorf("set led: %w", err)
		}
	}
	return nil
}

// PairClient transmits the reserved-subtype management frame the
// console's pairing handshake expects.
func (c *Controller) PairClient(mac [6]byte) error {
	data := []byte{0x70, 0x02, 0x00, 0x45, 0x55, 0x01, 0x0f, 0x8f, 0xff, 0x87, 0x1f}

	c.mu.Lock()
	myMAC := c.macAddress
	c.mu.Unlock()

	txWi := TxWi{PhyType: PhyTypeOFDM, Ack: true, WCID: 0xff,
		MPDUByteCount: WlanFrameSize + uint16(len(data))}
	wlan := WlanFrame{
		Control:     FrameControl{Type: WlanManagement, Subtype: WlanReserved},
		Destination: mac, Source: myMAC, BSSID: myMAC,
	}

	b := buffer.NewBuilder(TxWiSize + WlanFrameSize + len(data))
	txWi.appendTo(b)
	wlan.appendTo(b)
	b.Bytes_(data)

	if err := c.sendWlanPacket(b.Bytes()); err != nil {
		return fmt.Errorf("send pairing packet: %w", err)
	}
	return nil
}

// SendClientPacket wraps payload in a QoS data frame and transmits it
// to an already-associated client. If wcid has no client it is a no-op.
func (c *Controller) SendClientPacket(wcid uint8, mac [6]byte, payload []byte) error {
	c.mu.Lock()
	connected := c.connectedClients&(1<<(wcid-1)) != 0
	myMAC := c.macAddress
	c.mu.Unlock()
	if !connected {
		return nil
	}

	txWi := TxWi{PhyType: PhyTypeOFDM, Ack: true,
		MPDUByteCount: WlanFrameSize + QosFrameSize + uint16(len(payload))}
	wlan := WlanFrame{
		Control:     FrameControl{Type: WlanData, Subtype: WlanQosData, FromDS: true},
		Duration:    144,
		Destination: mac, Source: myMAC, BSSID: myMAC,
	}
	qos := QosFrame{}

	frameLen := TxWiSize + WlanFrameSize + QosFrameSize
	framePadding := (4 - frameLen%4) % 4
	dataPadding := (4 - len(payload)%4) % 4

	b := buffer.NewBuilder(4 + 4 + frameLen + framePadding + len(payload) + dataPadding)
	// The WCID index is written big-endian (a byte-swap in the upstream
	// chip driver, preserved here as an explicit big-endian encode).
	b.Zero(3)
	b.U8(wcid - 1)
	b.Zero(4)
	txWi.appendTo(b)
	wlan.appendTo(b)
	qos.appendTo(b)
	b.Zero(framePadding)
	b.Bytes_(payload)
	b.Zero(dataPadding)

	return c.sendCommand(CmdPacketTX, b.Bytes())
}

// SetPairingStatus toggles the pairing bit in the beacon's vendor
// information element and updates the LED to match.
func (c *Controller) SetPairingStatus(enabled bool) error {
	if err := c.writeBeacon(enabled); err != nil {
		return fmt.Errorf("write beacon: %w", err)
	}
	mode := uint32(LedOn)
	if enabled {
		mode = LedBlink
	}
	if err := c.setLedMode(mode); err != nil {
		return fmt.Errorf("set led: %w", err)
	}

	c.mu.Lock()
	c.pairingEnabled = enabled
	c.mu.Unlock()
	return nil
}

// writeBeacon rebuilds and transmits the AP beacon, whose vendor
// information element carries the pairing-enabled flag the console
// checks before attempting to associate.
func (c *Controller) writeBeacon(pairing bool) error {
	c.mu.Lock()
	myMAC := c.macAddress
	c.mu.Unlock()

	pairingByte := byte(0)
	if pairing {
		pairingByte = 1
	}
	ie := []byte{
		0xdd, 0x10, 0x00, 0x50,
		0xf2, 0x11, 0x01, 0x10,
		pairingByte, 0xa5, 0x30, 0x99,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00,
	}

	txWi := TxWi{PhyType: PhyTypeOFDM, Timestamp: true, Nseq: true,
		MPDUByteCount: WlanFrameSize + BeaconFrameSize + uint16(len(ie))}
	wlan := WlanFrame{
		Control:     FrameControl{Type: WlanManagement, Subtype: WlanBeacon},
		Destination: broadcastMAC, Source: myMAC, BSSID: myMAC,
	}
	beacon := BeaconFrame{Interval: 0x64, CapabilityInfo: 0xc631}

	b := buffer.NewBuilder(TxWiSize + WlanFrameSize + BeaconFrameSize + len(ie))
	txWi.appendTo(b)
	wlan.appendTo(b)
	beacon.appendTo(b)
	b.Bytes_(ie)

	if err := c.burstWrite(regBeaconBase, b.Bytes()); err != nil {
		return fmt.Errorf("write beacon payload: %w", err)
	}

	cfg := c.regRead(regBeaconTimeCfg)
	cfg |= beaconTimeCfgTSFTimerEnable | beaconTimeCfgTBTTTimerEnable | beaconTimeCfgTransmitBeacon
	cfg = (cfg &^ beaconTimeCfgTSFSyncModeMask) | (3 << 17)
	c.regWrite(regBeaconTimeCfg, cfg)
	return nil
}

var broadcastMAC = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// sendWlanPacket wraps a raw 802.11 frame in a TxInfoPacket envelope and
// writes it to the WLAN packet endpoint.
func (c *Controller) sendWlanPacket(data []byte) error {
	padding := (4 - len(data)%4) % 4
	info := TxInfoPacket{
		Port: PortWLAN, InfoType: InfoTypeNormalPacket,
		Is80211: true, WIV: true, Qsel: QSelEDCA,
		Length: uint16(len(data) + padding),
	}

	b := buffer.NewBuilder(4 + len(data) + padding + 4)
	b.U32(info.encode())
	b.Bytes_(data)
	b.Zero(padding)
	b.Zero(4)

	if _, err := c.transport.BulkWrite(EPWrite, b.Bytes()); err != nil {
		return fmt.Errorf("write wlan packet: %w", err)
	}
	return nil
}
