package uinput

// inputEvent mirrors struct input_event (linux/input.h) with the 64-bit
// timeval layout used on modern 64-bit kernels; the timestamp is left
// zero on write and ignored on read.
type inputEvent struct {
	sec, usec int64
	Type      uint16
	Code      uint16
	Value     int32
}

// inputID mirrors struct input_id.
type inputID struct {
	BusType uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// uinputSetup mirrors struct uinput_setup.
type uinputSetup struct {
	ID           inputID
	Name         [uinputMaxNameSize]byte
	FFEffectsMax uint32
}

// absInfo mirrors struct input_absinfo.
type absInfo struct {
	Value, Minimum, Maximum, Fuzz, Flat, Resolution int32
}

// uinputAbsSetup mirrors struct uinput_abs_setup.
type uinputAbsSetup struct {
	Code uint16
	_    [2]byte
	Abs  absInfo
}

// ffTrigger mirrors struct ff_trigger.
type ffTrigger struct {
	Button, Interval uint16
}

// ffReplay mirrors struct ff_replay.
type ffReplay struct {
	Length, Delay uint16
}

// ffRumbleEffect mirrors struct ff_rumble_effect, the only union member
// this driver produces or consumes.
type ffRumbleEffect struct {
	StrongMagnitude, WeakMagnitude uint16
}

// ffEffect mirrors struct ff_effect, sized to fit its largest union
// member (ff_condition_effect[2], 24 bytes) as a raw byte array; only the
// rumble view of that union is decoded.
type ffEffect struct {
	Type      uint16
	ID        int16
	Direction uint16
	Trigger   ffTrigger
	Replay    ffReplay
	union     [24]byte
}

func (e *ffEffect) rumble() ffRumbleEffect {
	return ffRumbleEffect{
		StrongMagnitude: uint16(e.union[0]) | uint16(e.union[1])<<8,
		WeakMagnitude:   uint16(e.union[2]) | uint16(e.union[3])<<8,
	}
}

// ffUpload mirrors struct uinput_ff_upload.
type ffUpload struct {
	RequestID uint32
	Retval    int32
	Effect    ffEffect
	Old       ffEffect
}

// ffErase mirrors struct uinput_ff_erase.
type ffErase struct {
	RequestID uint32
	EffectID  uint32
}
