// Package mt76 drives a MediaTek MT76xx USB Wi-Fi radio as a minimal
// IEEE 802.11 access point: firmware load, register programming,
// crystal/channel-power calibration, beacon, and per-client framing.
//
// Register addresses and the ~70-entry boot init table in initRegisters are
// hardware-mandated literals for this chip family and must be
// reproduced exactly; they are not tunable configuration.
package mt76

// Endpoint numbers. WLAN packets use a separate endpoint from commands.
const (
	EPRead       = 5 // command/event port
	EPReadPacket = 4 // 802.11 packet port
	EPWrite      = 4
)

// WCIDCount is the number of wireless client identifiers the radio
// supports. WCID 0 is reserved for beacons.
const WCIDCount = 16

// WLAN frame types and subtypes.
const (
	WlanManagement = 0x00
	WlanData       = 0x02

	WlanAssociationReq  = 0x00
	WlanAssociationResp = 0x01
	WlanDisassociation  = 0x0a
	WlanReserved        = 0x07
	WlanBeacon          = 0x08
	WlanQosData         = 0x08
)

// Vendor control requests.
const (
	VendDevMode    = 0x01
	VendWrite      = 0x02
	VendMultiWrite = 0x06
	VendMultiRead  = 0x07
	VendReadEeprom = 0x09
	VendWriteFCE   = 0x42
	VendWriteCfg   = 0x46
	VendReadCfg    = 0x47
)

// MCU event types, delivered on the command endpoint.
const (
	EvtButtonPress = 0x04
	EvtPacketRX    = 0x0c
	EvtClientLost  = 0x0e
)

// Firmware-specific MCU commands (FW_*).
const (
	FwMACAddressSet        = 0
	FwClientAdd            = 1
	FwClientRemove         = 2
	FwChannelCandidatesSet = 7
)

// Channel bandwidths.
const (
	ChBW20 = 0
	ChBW40 = 1
	ChBW80 = 2
)

// Channel power-table groups/subgroups (5 GHz) and the 2.4 GHz subgroups.
const (
	Ch2GLow  = 0x01
	Ch2GMid  = 0x02
	Ch2GHigh = 0x03
	Ch5GLow  = 0x01
	Ch5GHigh = 0x02

	Ch5GJapan   = 0
	Ch5GUnii1   = 1
	Ch5GUnii2   = 2
	Ch5GUnii2e1 = 3
	Ch5GUnii2e2 = 4
	Ch5GUnii3   = 5
)

const (
	ChPowerMin = 0x00
	ChPowerMax = 0x2f

	eeTxPower0Start2G = 0x056
	eeTxPower0Start5G = 0x062
	eeTxPowerGroupSz5G = 5
)

// MCU calibration targets.
const (
	CalR           = 1
	CalTempSensor  = 2
	CalRXDCOC      = 3
	CalRC          = 4
	CalSXLogen     = 5
	CalLC          = 6
	CalTXLoft      = 7
	CalTXIQ        = 8
	CalTSSI        = 9
	CalTSSIComp    = 10
	CalDPD         = 11
	CalRXIQCFI     = 12
	CalRXIQCFD     = 13
	CalPwrOn       = 14
	CalTXShaping   = 15
)

// EEPROM/e-fuse read modes.
const (
	EEModeRead         = 0
	EEModePhysicalRead = 1
)

// MCU CR load modes.
const (
	CrRF    = 0
	CrBBP   = 1
	CrRFBBP = 2
)

// MCU power modes.
const (
	RadioOff        = 0x30
	RadioOn         = 0x31
	RadioOffAutoWak = 0x32
	RadioOffAdvance = 0x33
	RadioOnAdvance  = 0x34
)

// MCU function-select targets.
const (
	FuncQSelect = 1
)

// MCU command opcodes.
const (
	CmdPacketTX       = 0
	CmdFunSetOp       = 1
	CmdLoadCR         = 2
	CmdInternalFwOp   = 3
	CmdSwitchChannel  = 30
	CmdCalibrationOp  = 31
	CmdLedModeOp      = 16
	CmdBurstWrite     = 8
	CmdPowerSavingOp  = 20
)

// TxInfo/RxInfo info_type and port values.
const (
	InfoTypeNormalPacket = 0
	InfoTypeCmdPacket    = 1

	PortWLAN       = 0
	PortCPURX      = 1
	PortCPUTX      = 2
	PortCPUHost    = 3
	PortVCPURX     = 4
	PortVCPUTX     = 5
	PortDiscard    = 6
)

// Queue selection values used in TxInfoPacket.
const (
	QSelMGMT  = 0
	QSelHCCA  = 1
	QSelEDCA  = 2
	QSelEDCA2 = 3
)

// PHY types used in TxWi.
const (
	PhyTypeCCK  = 0
	PhyTypeOFDM = 1
	PhyTypeHT   = 2
)

// LED modes.
const (
	LedBlink = 0
	LedOn    = 1
	LedOff   = 2
)

// Register addresses (hardware-mandated, see mt76.cpp in the upstream
// xow project for the canonical table this is reproduced from).
const (
	regAsicVersion = 0x0000
	regCmbCtrl     = 0x0020
	regEfuseCtrl   = 0x0024
	regEfuseDataBase = 0x0028

	regWlanFunCtrl = 0x0080
	regLdoCtrl1    = 0x0070

	regXOCtrl5 = 0x0114
	regXOCtrl6 = 0x0118

	regUSBU3DMACfg = 0x9018

	regIntSourceCsr = 0x0200
	regWPDMAGloCfg  = 0x0208
	regFCEDMAAddr   = 0x0230
	regFCEDMALen    = 0x0234
	regUSBDMACfg    = 0x0238
	regTSOCtrl      = 0x0250

	regWMMAifsn = 0x0214
	regWMMCWMin = 0x0218
	regWMMCWMax = 0x021c

	regPBFSysCtrl   = 0x0400
	regPBFCfg       = 0x0404
	regPBFTxMaxPCnt = 0x0408

	regRFCsrCfg = 0x0500
	regRFBypass0 = 0x0504
	regRFSetting0 = 0x050c
	regRFMisc   = 0x0518
	regRFCtrl   = 0x0528

	regPwrPinCfg     = 0x1204
	regRFPAModeAdj0  = 0x1228
	regRFPAModeAdj1  = 0x122c
	regTxRtsCfg      = 0x1344

	regLedCtrl = 0x0770

	regFCEPseCtrl  = 0x0800
	regFCEL2Stuff  = 0x080c

	regTxCpuFromFceBasePtr    = 0x09a0
	regTxCpuFromFceMaxCount   = 0x09a4
	regTxCpuFromFceCpuDescIdx = 0x09a8
	regFCEPdmaGlobalConf      = 0x09c4
	regFCESkipFS              = 0x0a6c

	regPauseEnableControl1 = 0x0a38

	regMACSysCtrl = 0x1004
	regMACAddrDW0 = 0x1008
	regMACAddrDW1 = 0x100c
	regMACBssidDW0 = 0x1010
	regMACBssidDW1 = 0x1014
	regMACCsr0    = 0x1000

	regMaxLenCfg = 0x1018

	regAMPDUMaxLen20M1S = 0x1030
	regAMPDUMaxLen20M2S = 0x1034

	regBkoffSlotCfg = 0x1104
	regChTimeCfg    = 0x110c

	regBeaconTimeCfg = 0x1114

	regEdcaCfgBase = 0x1300

	regTxPinCfg = 0x1328
	regTxSwCfg0 = 0x1330
	regTxSwCfg1 = 0x1334

	regTxopCtrlCfg  = 0x1340
	regTxTimeoutCfg = 0x1348
	regTxRetryCfg   = 0x134c

	regCckProtCfg = 0x1364
	regOfdmProtCfg = 0x1368
	regMM20ProtCfg = 0x136c
	regGF20ProtCfg = 0x1374
	regGF40ProtCfg = 0x1378

	regExpAckTime = 0x1380

	regTxAlcCfg0 = 0x13b0
	regTxAlcCfg2 = 0x13a8
	regTxAlcCfg3 = 0x13ac
	regTxAlcCfg4 = 0x13c0

	regPifsTxCfg  = 0x13ec
	regRxFiltrCfg = 0x1400

	regAutoRspCfg     = 0x1404
	regLegacyBasicRate = 0x1408
	regHTBasicRate     = 0x140c

	regExtCcaCfg = 0x141c

	regPNPadMode  = 0x150c
	regTxoPHldrEt = 0x1608

	regTxProtCfg6 = 0x13e0
	regTxProtCfg7 = 0x13e4
	regTxProtCfg8 = 0x13e8

	regDaccLkEnDlyCfg = 0x1264
	regTx0RFGainCorr  = 0x13a0
	regTx1RFGainCorr  = 0x13a4

	regXifsTimeCfg = 0x1100

	regWcidAddrBase = 0x1800

	regBBPAgcBase = 0x2300

	regBeaconBase = 0x0c000

	regRFPatch = 0x0130
)

// MAC_SYS_CTRL bits.
const (
	macSysCtrlResetCSR  = 1 << 0
	macSysCtrlResetBBP  = 1 << 1
	macSysCtrlEnableTX  = 1 << 2
	macSysCtrlEnableRX  = 1 << 3
)

// XO_CTRL5/6 crystal trim bits.
const (
	xoCtrl5C2ValMask = 0x7f << 8
	xoCtrl6C2Ctrl    = 1 << 18
)

// BEACON_TIME_CFG bits: interval occupies bits 0-15, then flags.
const (
	beaconTimeCfgTSFTimerEnable  = 1 << 16
	beaconTimeCfgTSFSyncModeMask = 0x3 << 17
	beaconTimeCfgTBTTTimerEnable = 1 << 19
	beaconTimeCfgTransmitBeacon  = 1 << 20
)

func mtBBP(offset uint32) uint32 { return regBBPAgcBase + offset }
func wcidAddr(wcid uint8) uint32 { return regWcidAddrBase + uint32(wcid)*8 }
func edcaCfgAC(n uint32) uint32  { return regEdcaCfgBase + n*4 }

// Register-offset bit to kick an internal memory-mapped register
// write/read during boot, defined outside the upstream chip headers.
const registerOffset = 0x410000

// Firmware boot timing/offsets.
const (
	rfPatchResetIVBit = 19
	fwResetIVB        = 0x01
	mcuILMOffset      = 0x80000
	mcuDLMOffset      = 0x100000 + 0x10800
	fwChunkSize       = 0x3800
	dmaComplete       = 0xc0000000
	fwLoadIVB         = 0x12
)

// EEPROM/e-fuse field offsets used during boot.
const (
	eeChipID    = 0x000
	eeMACAddr   = 0x004
	eeXtalTrim1 = 0x03a
	eeXtalTrim2 = 0x09e
)
