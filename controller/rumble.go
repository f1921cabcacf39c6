package controller

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/xgipd/xgipd/gip"
	"github.com/xgipd/xgipd/internal/triplebuffer"
)

// rumbleTickInterval is the minimum spacing between transmitted rumble
// commands; the controller firmware drops commands issued faster than
// this.
const rumbleTickInterval = 10 * time.Millisecond

// deviceMaxPower is the device-side ceiling the FF magnitude range is
// scaled onto before being split across motors.
const deviceMaxPower = 100

// RumbleEffect is the OS-supplied force-feedback state that triggers a
// rumble recompute: the uploaded effect's magnitudes/direction/timing,
// plus the device-wide gain in effect at the moment it fired.
type RumbleEffect struct {
	WeakMagnitude, StrongMagnitude uint16
	Direction                      uint16 // 0..0xffff, clockwise from north
	Gain                           uint16
	LengthMillis, DelayMillis      uint16
	Count                          int
}

// ShapeRumble converts one force-feedback effect into the fixed rumble
// command the GIP protocol carries. It is a pure function so the shaping
// math can be tested without a device or a session.
func ShapeRumble(effect RumbleEffect) gip.RumbleData {
	weak := uint32(effect.WeakMagnitude) * uint32(effect.Gain) / 0xffff
	strong := uint32(effect.StrongMagnitude) * uint32(effect.Gain) / 0xffff

	left := strong * deviceMaxPower / 0xffff
	right := weak * deviceMaxPower / 0xffff

	rumble := gip.RumbleData{
		Motors: gip.RumbleAll,
		Left:   uint8(left),
		Right:  uint8(right),
	}

	if effect.Direction >= 0x4000 && effect.Direction <= 0xc000 {
		angle := float64(effect.Direction)/0xffff - 0.125
		l := math.Max(math.Sin(2*math.Pi*angle), 0)
		r := math.Max(-math.Cos(2*math.Pi*angle), 0)
		maxPower := left
		if right > maxPower {
			maxPower = right
		}
		rumble.TriggerLeft = uint8(l * float64(maxPower) / 2)
		rumble.TriggerRight = uint8(r * float64(maxPower) / 2)
	}

	rumble.Duration10ms = clampDuration(effect.LengthMillis)
	rumble.Delay10ms = clampDelay(effect.DelayMillis)
	if effect.Count > 0 {
		rumble.Repeat = uint8(effect.Count - 1)
	}

	return rumble
}

func clampDuration(lengthMillis uint16) uint8 {
	tenMs := lengthMillis / 10
	if tenMs == 0 {
		return 255
	}
	if tenMs > 255 {
		return 255
	}
	return uint8(tenMs)
}

func clampDelay(delayMillis uint16) uint8 {
	tenMs := delayMillis / 10
	if tenMs > 255 {
		return 255
	}
	return uint8(tenMs)
}

// RumblePump drains buf on a fixed 10ms tick and transmits each command
// via send, giving the "latest wins" property of the triple buffer a
// steady, firmware-safe transmission rate. It blocks until ctx is
// cancelled.
func RumblePump(ctx context.Context, buf *triplebuffer.Buffer[gip.RumbleData], send func(gip.RumbleData) error, log *slog.Logger) {
	ticker := time.NewTicker(rumbleTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cmd, ok := buf.Get()
			if !ok {
				continue
			}
			if err := send(cmd); err != nil {
				log.Error("failed to send rumble command", "err", err)
			}
		}
	}
}
