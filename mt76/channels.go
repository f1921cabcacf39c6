package mt76

import "github.com/xgipd/xgipd/internal/buffer"

// Channels is the fixed plan advertised in FW_CHANNEL_CANDIDATES_SET and
// programmed one at a time via CMD_SWITCH_CHANNEL_OP. Each entry pairs a
// channel number with the bandwidth and scan flag the upstream chip
// configuration uses for it.
var Channels = []struct {
	Channel   uint8
	Bandwidth uint8
	Scan      bool
}{
	{0x01, ChBW20, true},
	{0x06, ChBW20, true},
	{0x0b, ChBW20, true},
	{0x24, ChBW40, true},
	{0x28, ChBW40, false},
	{0x2c, ChBW40, true},
	{0x30, ChBW40, false},
	{0x95, ChBW80, true},
	{0x99, ChBW80, false},
	{0x9d, ChBW80, true},
	{0xa1, ChBW80, false},
	{0xa5, ChBW80, false},
}

// channelCandidates is the fixed byte payload for FW_CHANNEL_CANDIDATES_SET:
// the bytes 0x01, 0xa5, 0x0b, then the channel numbers above except 165.
var channelCandidates = []byte{
	0x01, 0xa5, 0x0b, 0x01, 0x06, 0x0b, 0x24, 0x28, 0x2c, 0x30, 0x95, 0x99, 0x9d, 0xa1,
}

// channelConfigSize is the packed size of the CMD_SWITCH_CHANNEL_OP
// payload: channel, padding, tx/rx stream setting, more padding,
// bandwidth, power, scan flag, and a trailing unknown byte.
const channelConfigSize = 20

func (c *Controller) initChannels() error {
	if err := c.sendFirmwareCommand(FwChannelCandidatesSet, channelCandidates); err != nil {
		return err
	}
	for _, ch := range Channels {
		if err := c.configureChannel(ch.Channel, ch.Bandwidth, ch.Scan); err != nil {
			return err
		}
	}
	return nil
}

// configureChannel programs the radio's RF path for channel and announces
// whether it should be scanned for association attempts.
func (c *Controller) configureChannel(channel, bandwidth uint8, scan bool) error {
	power := c.channelPower(channel)
	var scanByte uint8
	if scan {
		scanByte = 1
	}

	b := buffer.NewBuilder(channelConfigSize)
	b.U8(channel)
	b.Zero(1)
	b.Zero(2)
	b.U16(0x0101) // select TX/RX stream 1
	b.Zero(2)
	b.Zero(8)
	b.U8(bandwidth)
	b.U8(power)
	b.U8(scanByte)
	b.Zero(1)

	c.log.Debug("configure channel", "channel", channel, "power", power)
	return c.sendCommand(CmdSwitchChannel, b.Bytes())
}

// channelPower reads the e-fuse calibration table and returns the transmit
// power target for channel. When the subgroup offset byte has bit 7 set,
// its signed 6-bit delta is applied and the result is clamped to
// [ChPowerMin, ChPowerMax]; otherwise the raw target is returned as is.
func (c *Controller) channelPower(channel uint8) uint8 {
	is24GHz := channel <= 14
	tableIndex := uint8(eeTxPower0Start2G)
	if !is24GHz {
		tableIndex = eeTxPower0Start5G
	}

	group := channelGroup(channel)
	subgroup := channelSubgroup(channel)

	if !is24GHz {
		tableIndex += group * eeTxPowerGroupSz5G
	}

	entry, err := c.efuseRead(tableIndex, 8)
	if err != nil || len(entry) < 8 {
		return ChPowerMin
	}

	index := 5
	if is24GHz {
		index = 4
	}
	target := entry[index]
	offset := entry[index+int(subgroup)]

	if offset&0x80 == 0 {
		return target
	}

	sign := offset&0x40 != 0
	delta := int(offset & 0x3f)

	power := int(target)
	if sign {
		power += delta
	} else {
		power -= delta
	}

	if power < ChPowerMin {
		return ChPowerMin
	}
	if power > ChPowerMax {
		return ChPowerMax
	}
	return uint8(power)
}

func channelGroup(channel uint8) uint8 {
	switch {
	case channel >= 184 && channel <= 196:
		return Ch5GJapan
	case channel <= 48:
		return Ch5GUnii1
	case channel <= 64:
		return Ch5GUnii2
	case channel <= 114:
		return Ch5GUnii2e1
	case channel <= 144:
		return Ch5GUnii2e2
	default:
		return Ch5GUnii3
	}
}

func channelSubgroup(channel uint8) uint8 {
	switch {
	case channel >= 192:
		return Ch5GHigh
	case channel >= 184:
		return Ch5GLow
	case channel < 6:
		return Ch2GLow
	case channel < 11:
		return Ch2GMid
	case channel < 15:
		return Ch2GHigh
	case channel < 44:
		return Ch5GLow
	case channel < 52:
		return Ch5GHigh
	case channel < 58:
		return Ch5GLow
	case channel < 98:
		return Ch5GHigh
	case channel < 106:
		return Ch5GLow
	case channel < 116:
		return Ch5GHigh
	case channel < 130:
		return Ch5GLow
	case channel < 149:
		return Ch5GHigh
	case channel < 157:
		return Ch5GLow
	default:
		return Ch5GHigh
	}
}
