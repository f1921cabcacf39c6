package uinput

// Event types, from linux/input-event-codes.h.
const (
	evSyn    = 0x00
	evKey    = 0x01
	evAbs    = 0x03
	evFF     = 0x15
	evUinput = 0x0101
)

const synReport = 0

// UI_FF_UPLOAD/UI_FF_ERASE are the two EV_UINPUT codes the kernel raises
// on the control device when userspace must service an FF_UPLOAD or
// FF_ERASE ioctl from some other process.
const (
	uiFFUpload = 1
	uiFFErase  = 2
)

// ffGain is the EV_FF code carrying a device-wide gain change (0..0xffff).
const ffGain = 0x60

// uinput ioctl numbers, computed the same way <linux/uinput.h> does via
// _IO/_IOW/_IOWR on UINPUT_IOCTL_BASE ('U' = 0x55).
const (
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiDevSetup   = 0x405c5503
	uiAbsSetup   = 0x401c5504

	uiSetEvBit  = 0x40045564
	uiSetKeyBit = 0x40045565
	uiSetAbsBit = 0x40045567
	uiSetFFBit  = 0x4004556b

	uiBeginFFUpload = 0xc05455c8
	uiEndFFUpload   = 0x405455c9
	uiBeginFFErase  = 0xc00855ca
	uiEndFFErase    = 0x400855cb
)

const (
	busUSB            = 0x03
	uinputMaxNameSize = 80
)
