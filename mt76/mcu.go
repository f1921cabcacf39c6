package mt76

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/xgipd/xgipd/internal/buffer"
	"github.com/xgipd/xgipd/usb"
)

// pollTimeout is the bound every "kick and wait" register interaction
// must respect.
const pollTimeout = time.Second

// poll calls condition repeatedly until it returns false or pollTimeout
// elapses, returning an error in the latter case.
func poll(ctx context.Context, condition func() bool) error {
	deadline := time.Now().Add(pollTimeout)
	for condition() {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: register poll exceeded %s", ErrRadioTimeout, pollTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// controlRead reads a 32-bit register at address using the given vendor
// request (regRead passes a plain multi-read).
func (c *Controller) controlRead(address uint32, request uint8) uint32 {
	var buf [4]byte
	_, err := c.transport.Control(usb.DirIn, request, 0, uint16(address), buf[:])
	if err != nil {
		c.log.Debug("control read failed", "address", address, "err", err)
		return 0
	}
	return binary.LittleEndian.Uint32(buf[:])
}

// controlWrite writes value to register address with the given vendor
// request. MT_VEND_DEV_MODE carries its payload in the value field
// instead of a data buffer.
func (c *Controller) controlWrite(address, value uint32, request uint8) {
	if request == VendDevMode {
		_, err := c.transport.Control(usb.DirOut, request, uint16(address), 0, nil)
		if err != nil {
			c.log.Debug("control write (dev mode) failed", "address", address, "err", err)
		}
		return
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	_, err := c.transport.Control(usb.DirOut, request, 0, uint16(address), buf[:])
	if err != nil {
		c.log.Debug("control write failed", "address", address, "value", value, "err", err)
	}
}

func (c *Controller) regRead(address uint32) uint32 { return c.controlRead(address, VendMultiRead) }
func (c *Controller) regWrite(address, value uint32) { c.controlWrite(address, value, VendWrite) }

// sendCommand wraps data in a TxInfoCommand envelope and writes it to
// the command bulk endpoint. Sequence numbers are not tracked; command
// responses are not read back.
func (c *Controller) sendCommand(command uint8, data []byte) error {
	length := len(data)
	padding := (4 - length%4) % 4

	info := TxInfoCommand{
		Port:     PortCPUTX,
		InfoType: InfoTypeCmdPacket,
		Command:  command,
		Length:   uint16(length + padding),
	}

	b := buffer.NewBuilder(8 + length + padding + 4)
	b.U32(info.encode())
	b.Bytes_(data)
	b.Zero(padding)
	b.Zero(4)

	if _, err := c.transport.BulkWrite(EPWrite, b.Bytes()); err != nil {
		return fmt.Errorf("send command %#x: %w", command, err)
	}
	return nil
}

func (c *Controller) sendFirmwareCommand(command uint8, data []byte) error {
	b := buffer.NewBuilder(4 + len(data))
	b.U32(uint32(command))
	b.Bytes_(data)
	return c.sendCommand(CmdInternalFwOp, b.Bytes())
}

func (c *Controller) selectFunction(function uint8, value uint32) error {
	b := buffer.NewBuilder(8)
	b.U32(uint32(function)).U32(value)
	return c.sendCommand(CmdFunSetOp, b.Bytes())
}

func (c *Controller) powerMode(mode uint8) error {
	b := buffer.NewBuilder(4)
	b.U32(uint32(mode))
	return c.sendCommand(CmdPowerSavingOp, b.Bytes())
}

func (c *Controller) loadCr(mode uint8) error {
	b := buffer.NewBuilder(4)
	b.U32(uint32(mode))
	return c.sendCommand(CmdLoadCR, b.Bytes())
}

func (c *Controller) calibrate(target uint8, value uint32) error {
	b := buffer.NewBuilder(8)
	b.U32(uint32(target)).U32(value)
	return c.sendCommand(CmdCalibrationOp, b.Bytes())
}

func (c *Controller) setLedMode(mode uint32) error {
	b := buffer.NewBuilder(4)
	b.U32(mode)
	return c.sendCommand(CmdLedModeOp, b.Bytes())
}

// burstWrite issues CMD_BURST_WRITE against a register-space index,
// offset into the internal register window.
func (c *Controller) burstWrite(index uint32, values []byte) error {
	b := buffer.NewBuilder(4 + len(values))
	b.U32(index + registerOffset)
	b.Bytes_(values)
	return c.sendCommand(CmdBurstWrite, b.Bytes())
}

// efuseRead reads length bytes of one-time-programmed calibration data
// starting at address, via the EFUSE_CTRL kick-and-poll handshake.
func (c *Controller) efuseRead(address uint8, length int) ([]byte, error) {
	ctrl := c.regRead(regEfuseCtrl)
	ctrl &^= efuseCtrlAddrMask
	ctrl |= uint32(address&^0x0f) << 16
	// Explicitly force mode to MT_EE_READ (0) rather than relying on the
	// register already being clean; a prior physical-efuse write path
	// would otherwise leave a stale mode in these bits.
	ctrl &^= efuseCtrlModeMask
	ctrl |= efuseCtrlKick

	c.regWrite(regEfuseCtrl, ctrl)

	if err := poll(context.Background(), func() bool {
		return c.regRead(regEfuseCtrl)&efuseCtrlKick != 0
	}); err != nil {
		return nil, fmt.Errorf("efuse read: %w", err)
	}

	out := make([]byte, 0, length)
	for i := 0; i < length; i += 4 {
		offset := uint32(address&0x0c) + uint32(i)
		value := c.regRead(regEfuseDataBase + offset)

		remaining := length - i
		n := 4
		if remaining < 4 {
			n = remaining
		}
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], value)
		out = append(out, tmp[:n]...)
	}
	return out, nil
}

const (
	efuseCtrlAddrMask = 0x3ff << 16
	efuseCtrlModeMask = 0x3 << 6
	efuseCtrlKick     = 1 << 30
)
