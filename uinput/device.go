// Package uinput opens the kernel's uinput control node to expose a
// gamepad as a standard Linux input device, and pumps force-feedback
// events back from it.
package uinput

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/xgipd/xgipd/internal/interrupt"
)

// AxisConfig describes one absolute axis's reported range and noise
// filtering, matching the uinput ABS ioctl parameters.
type AxisConfig struct {
	Minimum, Maximum int32
	Fuzz, Flat       int32
}

// FeedbackEvent bundles one force-feedback callback invocation: the
// uploaded rumble effect's magnitudes/direction/timing, the gain to apply
// (0 means stop), and the play count the kernel wrote as the triggering
// event's value (0 when stopping).
type FeedbackEvent struct {
	StrongMagnitude, WeakMagnitude uint16
	Direction                      uint16
	LengthMillis, DelayMillis      uint16
	Gain                           uint16
	Count                          int
}

// FeedbackReceived is invoked for every force-feedback event the kernel
// delivers for this device.
type FeedbackReceived func(ev FeedbackEvent)

// Device is one virtual input device backed by /dev/uinput.
type Device struct {
	file *os.File
	log  *slog.Logger
	cb   FeedbackReceived

	mu         sync.Mutex
	effect     ffEffect
	effectGain uint16
}

// Open opens /dev/uinput read-write, non-blocking. cb is invoked from the
// goroutine that calls Run.
func Open(log *slog.Logger, cb FeedbackReceived) (*Device, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("uinput: open: %w", err)
	}
	return &Device{file: f, log: log, cb: cb, effectGain: 0xffff}, nil
}

// SetCallback assigns the FeedbackReceived callback after construction,
// letting a caller open the device before the controller.Device that
// will consume its feedback events exists yet.
func (d *Device) SetCallback(cb FeedbackReceived) {
	d.mu.Lock()
	d.cb = cb
	d.mu.Unlock()
}

func (d *Device) ioctl(req uint, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), uintptr(req), arg)
	if errno != 0 {
		return errno
	}
	return nil
}

// AddKey registers one EV_KEY code the device may emit.
func (d *Device) AddKey(code uint16) {
	if err := d.ioctl(uiSetEvBit, uintptr(evKey)); err != nil {
		d.log.Error("uinput: set EV_KEY bit failed", "err", err)
		return
	}
	if err := d.ioctl(uiSetKeyBit, uintptr(code)); err != nil {
		d.log.Error("uinput: add key failed", "code", code, "err", err)
	}
}

// AddAxis registers one EV_ABS axis and its range/noise-filtering config.
func (d *Device) AddAxis(code uint16, cfg AxisConfig) {
	if err := d.ioctl(uiSetEvBit, uintptr(evAbs)); err != nil {
		d.log.Error("uinput: set EV_ABS bit failed", "err", err)
		return
	}
	if err := d.ioctl(uiSetAbsBit, uintptr(code)); err != nil {
		d.log.Error("uinput: add axis failed", "code", code, "err", err)
		return
	}

	setup := uinputAbsSetup{
		Code: code,
		Abs: absInfo{
			Minimum: cfg.Minimum,
			Maximum: cfg.Maximum,
			Fuzz:    cfg.Fuzz,
			Flat:    cfg.Flat,
		},
	}
	if err := d.ioctl(uiAbsSetup, uintptr(unsafe.Pointer(&setup))); err != nil {
		d.log.Error("uinput: abs setup failed", "code", code, "err", err)
	}
}

// AddFeedback registers one FF effect type (FF_RUMBLE) the device
// supports.
func (d *Device) AddFeedback(code uint16) {
	if err := d.ioctl(uiSetEvBit, uintptr(evFF)); err != nil {
		d.log.Error("uinput: set EV_FF bit failed", "err", err)
		return
	}
	if err := d.ioctl(uiSetFFBit, uintptr(code)); err != nil {
		d.log.Error("uinput: add feedback failed", "code", code, "err", err)
	}
}

// Create finalises device configuration and publishes it to the kernel.
func (d *Device) Create(vendorID, productID, version uint16, name string) error {
	var setup uinputSetup
	setup.ID = inputID{BusType: busUSB, Vendor: vendorID, Product: productID, Version: version}
	copy(setup.Name[:], name)
	setup.FFEffectsMax = 1

	if err := d.ioctl(uiDevSetup, uintptr(unsafe.Pointer(&setup))); err != nil {
		return fmt.Errorf("uinput: dev setup: %w", err)
	}
	if err := d.ioctl(uiDevCreate, 0); err != nil {
		return fmt.Errorf("uinput: dev create: %w", err)
	}
	return nil
}

func (d *Device) emit(typ, code uint16, value int32) {
	ev := inputEvent{Type: typ, Code: code, Value: value}
	buf := (*[24]byte)(unsafe.Pointer(&ev))[:]
	if _, err := d.file.Write(buf); err != nil {
		d.log.Error("uinput: write event failed", "err", err)
	}
}

// SetKey emits one EV_KEY event.
func (d *Device) SetKey(code uint16, pressed bool) {
	var v int32
	if pressed {
		v = 1
	}
	d.emit(evKey, code, v)
}

// SetAxis emits one EV_ABS event.
func (d *Device) SetAxis(code uint16, value int32) {
	d.emit(evAbs, code, value)
}

// Report emits an EV_SYN/SYN_REPORT to close out a batch of SetKey/SetAxis
// calls.
func (d *Device) Report() {
	d.emit(evSyn, synReport, 0)
}

// Close destroys the device and releases its file descriptor.
func (d *Device) Close() error {
	_ = d.ioctl(uiDevDestroy, 0)
	return d.file.Close()
}

// Run starts the event-reader loop; it blocks until ctx is cancelled or
// the device is closed.
func (d *Device) Run(ctx context.Context) {
	src := interrupt.New(ctx)
	buf := make([]byte, 24)
	for {
		if src.Interrupted() {
			return
		}

		n, err := d.file.Read(buf)
		if err != nil {
			if src.Interrupted() || errors.Is(err, os.ErrClosed) {
				return
			}
			continue
		}
		if n < 24 {
			continue
		}
		ev := (*inputEvent)(unsafe.Pointer(&buf[0]))
		d.handleEvent(*ev)
	}
}

func (d *Device) handleEvent(ev inputEvent) {
	switch ev.Type {
	case evUinput:
		switch ev.Code {
		case uiFFUpload:
			d.handleFeedbackUpload(uint32(ev.Value))
		case uiFFErase:
			d.handleFeedbackErase(uint32(ev.Value))
			d.emitFeedback(0, 0)
		}

	case evFF:
		if ev.Code == ffGain {
			d.mu.Lock()
			d.effectGain = uint16(ev.Value)
			d.mu.Unlock()
			return
		}

		// Any other EV_FF code names an uploaded effect id; its value is
		// the play count (0 stops the effect, >0 starts it that many
		// times).
		gain := uint16(0)
		if ev.Value > 0 {
			d.mu.Lock()
			gain = d.effectGain
			d.mu.Unlock()
		}
		d.emitFeedback(gain, int(ev.Value))
	}
}

func (d *Device) emitFeedback(gain uint16, count int) {
	d.mu.Lock()
	cb := d.cb
	rumble := d.effect.rumble()
	fe := FeedbackEvent{
		StrongMagnitude: rumble.StrongMagnitude,
		WeakMagnitude:   rumble.WeakMagnitude,
		Direction:       d.effect.Direction,
		LengthMillis:    d.effect.Replay.Length,
		DelayMillis:     d.effect.Replay.Delay,
		Gain:            gain,
		Count:           count,
	}
	d.mu.Unlock()
	if cb != nil {
		cb(fe)
	}
}

func (d *Device) handleFeedbackUpload(id uint32) {
	var upload ffUpload
	upload.RequestID = id

	if err := d.ioctl(uiBeginFFUpload, uintptr(unsafe.Pointer(&upload))); err != nil {
		d.log.Error("uinput: begin ff upload failed", "err", err)
		return
	}

	if upload.Effect.Type == ffEffectRumble {
		d.mu.Lock()
		d.effect = upload.Effect
		d.mu.Unlock()
	}

	upload.Retval = 0
	if err := d.ioctl(uiEndFFUpload, uintptr(unsafe.Pointer(&upload))); err != nil {
		d.log.Error("uinput: end ff upload failed", "err", err)
	}
}

func (d *Device) handleFeedbackErase(id uint32) {
	var erase ffErase
	erase.RequestID = id

	if err := d.ioctl(uiBeginFFErase, uintptr(unsafe.Pointer(&erase))); err != nil {
		d.log.Error("uinput: begin ff erase failed", "err", err)
		return
	}

	d.mu.Lock()
	d.effect = ffEffect{}
	d.mu.Unlock()

	if err := d.ioctl(uiEndFFErase, uintptr(unsafe.Pointer(&erase))); err != nil {
		d.log.Error("uinput: end ff erase failed", "err", err)
	}
}

// ffEffectRumble is FF_RUMBLE, the only effect type this device honours;
// others are accepted (so the kernel does not reject the upload) and
// silently ignored.
const ffEffectRumble = 0x50
