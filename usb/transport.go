// Package usb defines the transport contract the rest of the driver
// needs from a physical USB device: one opened interface, control
// transfers, bulk I/O, and arrival waiting. Concrete transports live in
// subpackages (see usb/gousb); its ArrivalWaiter polls the device list
// and uses no hotplug callback.
package usb

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by BulkRead when no data arrived within the
// requested timeout. It is not a fatal transport error.
var ErrTimeout = errors.New("usb: read timeout")

// Direction of a control transfer.
type Direction int

const (
	DirOut Direction = iota
	DirIn
)

// DeviceID identifies a device by USB vendor/product ID.
type DeviceID struct {
	Vendor  uint16
	Product uint16
}

// Transport is the set of operations the driver needs from one opened
// USB device. Bulk reads and writes may be called concurrently from
// different goroutines; implementations serialize per-endpoint
// internally. Control transfers may also come from more than one
// goroutine: the radio controller does not serialize its command path,
// so implementations serialize control transfers themselves (usb/gousb
// holds a mutex around each one).
type Transport interface {
	// Control performs a synchronous vendor control transfer.
	Control(dir Direction, request uint8, value, index uint16, data []byte) (int, error)

	// BulkRead reads from the given IN endpoint into buf, blocking up to
	// timeout. Returns (0, ErrTimeout) if no data arrives in time; any
	// other error is fatal and Terminate has already been invoked.
	BulkRead(endpoint uint8, buf []byte, timeout time.Duration) (int, error)

	// BulkWrite writes buf to the given OUT endpoint.
	BulkWrite(endpoint uint8, buf []byte) (int, error)

	// Close releases the interface and closes the device handle.
	Close() error
}

// ArrivalWaiter blocks until a device matching one of ids appears, then
// opens and returns it. Used at boot and after an unplug/replug cycle.
type ArrivalWaiter interface {
	WaitForArrival(ctx context.Context, ids []DeviceID) (Transport, error)
}

// TerminateFunc is invoked by a Transport when it observes a fatal
// transfer error, so the caller's main wait loop (typically blocked on
// a signal) can be woken up without polling.
type TerminateFunc func(error)
