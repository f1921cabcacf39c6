package controller

import (
	"context"
	"log/slog"

	"github.com/xgipd/xgipd/gip"
	"github.com/xgipd/xgipd/internal/triplebuffer"
	"github.com/xgipd/xgipd/uinput"
)

// Evdev key and axis codes used by the gamepad mapping. Values match
// linux/input-event-codes.h.
const (
	keyMode    = 0x13c
	keyStart   = 0x13b
	keySelect  = 0x13a
	keyA       = 0x130
	keyB       = 0x131
	keyX       = 0x133
	keyY       = 0x134
	keyTL      = 0x136
	keyTR      = 0x137
	keyThumbL  = 0x13d
	keyThumbR  = 0x13e

	axisX    = 0x00
	axisY    = 0x01
	axisZ    = 0x02
	axisRX   = 0x03
	axisRY   = 0x04
	axisRZ   = 0x05
	axisHat0X = 0x10
	axisHat0Y = 0x11

	ffRumble = 0x50
)

// Axis fuzz/flat values for sticks and triggers, matched to the source
// driver's tuning.
const (
	stickFuzz   = 255
	stickFlat   = 4095
	triggerFuzz = 3
	triggerFlat = 63
)

const deviceName = "Xbox One Wireless Controller"

// Compatibility-mode identity: some games compare the reported pad name
// and ids against hard-coded strings for an older generation of
// controller, so XOW_COMPATIBILITY trades the real identity for this one.
const (
	compatDeviceName = "Microsoft X-Box 360 pad"
	compatProductID  = 0x028e
	compatVersion    = 0x0104
)

// InputDevice is the subset of uinput.Device the controller mapping
// depends on, kept as an interface so tests can substitute a recording
// fake instead of a real kernel device.
type InputDevice interface {
	AddKey(code uint16)
	AddAxis(code uint16, cfg uinput.AxisConfig)
	AddFeedback(code uint16)
	Create(vendorID, productID, version uint16, name string) error
	SetKey(code uint16, pressed bool)
	SetAxis(code uint16, value int32)
	Report()
	Close() error
}

// Device owns one associated gamepad's protocol session and virtual
// input device, translating between them for its lifetime.
type Device struct {
	session *gip.Session
	input   InputDevice
	log     *slog.Logger
	compat  bool

	rumbleBuf *triplebuffer.Buffer[gip.RumbleData]
	cancel    context.CancelFunc

	rumbling bool
}

// NewDevice returns a Device together with the gip.Callbacks that drive
// its input device; the caller passes the callbacks to gip.NewSession,
// binds the session with BindSession, and starts the rumble pump with
// Run. compat switches the
// virtual device's reported name/product id/version to the
// XOW_COMPATIBILITY identity some games hard-code a check against.
func NewDevice(input InputDevice, log *slog.Logger, compat bool) (*Device, gip.Callbacks) {
	d := &Device{
		input:     input,
		log:       log,
		compat:    compat,
		rumbleBuf: triplebuffer.New[gip.RumbleData](),
	}

	cb := gip.Callbacks{
		DeviceAnnounced:    d.deviceAnnounced,
		StatusReceived:     d.statusReceived,
		GuideButtonPressed: d.guideButtonPressed,
		InputReceived:      d.inputReceived,
	}
	return d, cb
}

// BindSession lets the dongle-side wiring hand the Device its owning
// session after construction (the session itself needs the Callbacks
// Device produces, so the two are built in two steps).
func (d *Device) BindSession(session *gip.Session) {
	d.session = session
}

// Run starts the rumble pump and blocks until ctx is cancelled.
func (d *Device) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	RumblePump(ctx, d.rumbleBuf, d.session.PerformRumble, d.log)
}

// Close stops the rumble pump and releases the virtual input device.
func (d *Device) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if err := d.input.Close(); err != nil {
		d.log.Error("failed to close input device", "err", err)
	}
}

func (d *Device) deviceAnnounced(id uint8, announce *gip.AnnounceData) {
	d.log.Info("device announced", "product_id", announce.ProductID)
	d.log.Debug("firmware version",
		"major", announce.FirmwareVersion.Major, "minor", announce.FirmwareVersion.Minor,
		"build", announce.FirmwareVersion.Build, "revision", announce.FirmwareVersion.Revision)

	d.initInput(announce.VendorID, announce.ProductID, announce.FirmwareVersion)

	if err := d.session.SetPowerMode(0, gip.PowerOn); err != nil {
		d.log.Error("failed to set initial power mode", "err", err)
		return
	}
	if err := d.session.SetLedMode(gip.LedModeData{Mode: gip.LedOn, Brightness: 0x14}); err != nil {
		d.log.Error("failed to set initial led mode", "err", err)
		return
	}
	if err := d.session.RequestSerialNumber(); err != nil {
		d.log.Error("failed to request serial number", "err", err)
	}
}

func (d *Device) initInput(vendorID, productID uint16, firmware gip.VersionInfo) {
	name := deviceName
	version := firmware.Major<<8 | firmware.Minor
	if d.compat {
		name = compatDeviceName
		productID = compatProductID
		version = compatVersion
	}

	stick := uinput.AxisConfig{Minimum: -32768, Maximum: 32767, Fuzz: stickFuzz, Flat: stickFlat}
	trigger := uinput.AxisConfig{Minimum: 0, Maximum: 1023, Fuzz: triggerFuzz, Flat: triggerFlat}
	dpad := uinput.AxisConfig{Minimum: -1, Maximum: 1}

	d.input.AddKey(keyMode)
	d.input.AddKey(keyStart)
	d.input.AddKey(keySelect)
	d.input.AddKey(keyA)
	d.input.AddKey(keyB)
	d.input.AddKey(keyX)
	d.input.AddKey(keyY)
	d.input.AddKey(keyTL)
	d.input.AddKey(keyTR)
	d.input.AddKey(keyThumbL)
	d.input.AddKey(keyThumbR)
	d.input.AddAxis(axisX, stick)
	d.input.AddAxis(axisRX, stick)
	d.input.AddAxis(axisY, stick)
	d.input.AddAxis(axisRY, stick)
	d.input.AddAxis(axisZ, trigger)
	d.input.AddAxis(axisRZ, trigger)
	d.input.AddAxis(axisHat0X, dpad)
	d.input.AddAxis(axisHat0Y, dpad)
	d.input.AddFeedback(ffRumble)

	if err := d.input.Create(vendorID, productID, version, name); err != nil {
		d.log.Error("failed to create virtual input device", "err", err)
	}
}

func (d *Device) statusReceived(id uint8, status *gip.StatusData) {
	d.log.Debug("battery status", "type", status.BatteryType, "level", status.BatteryLevel)
}

func (d *Device) guideButtonPressed(button *gip.GuideButtonData) {
	d.input.SetKey(keyMode, button.Pressed)
	d.input.Report()
}

func (d *Device) inputReceived(input *gip.InputData) {
	b := input.Buttons
	d.input.SetKey(keyStart, b.Start)
	d.input.SetKey(keySelect, b.Select)
	d.input.SetKey(keyA, b.A)
	d.input.SetKey(keyB, b.B)
	d.input.SetKey(keyX, b.X)
	d.input.SetKey(keyY, b.Y)
	d.input.SetKey(keyTL, b.BumperLeft)
	d.input.SetKey(keyTR, b.BumperRight)
	d.input.SetKey(keyThumbL, b.StickLeft)
	d.input.SetKey(keyThumbR, b.StickRight)
	d.input.SetAxis(axisX, int32(input.StickLeftX))
	d.input.SetAxis(axisRX, int32(input.StickRightX))
	d.input.SetAxis(axisY, int32(^input.StickLeftY))
	d.input.SetAxis(axisRY, int32(^input.StickRightY))
	d.input.SetAxis(axisZ, int32(input.TriggerLeft))
	d.input.SetAxis(axisRZ, int32(input.TriggerRight))
	d.input.SetAxis(axisHat0X, dpadAxis(b.DPadRight, b.DPadLeft))
	d.input.SetAxis(axisHat0Y, dpadAxis(b.DPadDown, b.DPadUp))
	d.input.Report()
}

func dpadAxis(positive, negative bool) int32 {
	switch {
	case positive:
		return 1
	case negative:
		return -1
	default:
		return 0
	}
}

// FeedbackReceived handles one force-feedback event forwarded from the
// virtual input device. ev.Gain of 0 signals the effect should stop.
// Skipped when the device was already idle and this event is not a start.
func (d *Device) FeedbackReceived(ev uinput.FeedbackEvent) {
	if !d.rumbling && ev.Gain == 0 {
		return
	}
	effect := RumbleEffect{
		StrongMagnitude: ev.StrongMagnitude,
		WeakMagnitude:   ev.WeakMagnitude,
		Direction:       ev.Direction,
		Gain:            ev.Gain,
		LengthMillis:    ev.LengthMillis,
		DelayMillis:     ev.DelayMillis,
		Count:           ev.Count,
	}
	d.rumbleBuf.Put(ShapeRumble(effect))
	d.rumbling = ev.Gain > 0
}
