// Package gousb implements usb.Transport and usb.ArrivalWaiter on top of
// google/gousb (libusb bindings).
package gousb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/xgipd/xgipd/usb"
)

// Transport is a usb.Transport backed by one claimed gousb interface.
type Transport struct {
	log *slog.Logger

	ctx       *gousb.Context
	dev       *gousb.Device
	cfg       *gousb.Config
	intf      *gousb.Interface
	terminate usb.TerminateFunc

	ctrlMu sync.Mutex
}

const (
	configNum    = 1
	interfaceNum = 0
	altSetting   = 0
)

// Open claims configuration 1, interface 0 of the first device matching
// one of ids, resetting it first.
func Open(log *slog.Logger, ids []usb.DeviceID, terminate usb.TerminateFunc) (*Transport, error) {
	ctx := gousb.NewContext()

	var dev *gousb.Device
	for _, id := range ids {
		d, err := ctx.OpenDeviceWithVIDPID(gousb.ID(id.Vendor), gousb.ID(id.Product))
		if err != nil {
			log.Debug("gousb open attempt failed", "vendor", id.Vendor, "product", id.Product, "err", err)
			continue
		}
		if d != nil {
			dev = d
			break
		}
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("gousb: no matching device found among %d candidates", len(ids))
	}

	if err := dev.Reset(); err != nil {
		log.Warn("gousb device reset failed, continuing", "err", err)
	}

	cfg, err := dev.Config(configNum)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("gousb: select config %d: %w", configNum, err)
	}

	intf, err := cfg.Interface(interfaceNum, altSetting)
	if err != nil {
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("gousb: claim interface %d: %w", interfaceNum, err)
	}

	return &Transport{
		log:       log,
		ctx:       ctx,
		dev:       dev,
		cfg:       cfg,
		intf:      intf,
		terminate: terminate,
	}, nil
}

func (t *Transport) Control(dir usb.Direction, request uint8, value, index uint16, data []byte) (int, error) {
	t.ctrlMu.Lock()
	defer t.ctrlMu.Unlock()

	rt := uint8(gousb.ControlVendor | gousb.ControlOut | gousb.ControlInterface)
	if dir == usb.DirIn {
		rt = uint8(gousb.ControlVendor | gousb.ControlIn | gousb.ControlInterface)
	}

	n, err := t.dev.Control(rt, request, value, index, data)
	if err != nil {
		t.fail(fmt.Errorf("control transfer (req=%#x): %w", request, err))
		return n, err
	}
	return n, nil
}

func (t *Transport) BulkRead(endpoint uint8, buf []byte, timeout time.Duration) (int, error) {
	ep, err := t.intf.InEndpoint(int(endpoint))
	if err != nil {
		t.fail(fmt.Errorf("open IN endpoint %#x: %w", endpoint, err))
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	n, err := ep.ReadContext(ctx, buf)
	if err != nil {
		if ctx.Err() != nil {
			return 0, usb.ErrTimeout
		}
		t.fail(fmt.Errorf("bulk read endpoint %#x: %w", endpoint, err))
		return n, err
	}
	return n, nil
}

func (t *Transport) BulkWrite(endpoint uint8, buf []byte) (int, error) {
	ep, err := t.intf.OutEndpoint(int(endpoint))
	if err != nil {
		t.fail(fmt.Errorf("open OUT endpoint %#x: %w", endpoint, err))
		return 0, err
	}

	n, err := ep.Write(buf)
	if err != nil {
		t.fail(fmt.Errorf("bulk write endpoint %#x: %w", endpoint, err))
		return n, err
	}
	return n, nil
}

func (t *Transport) Close() error {
	t.intf.Close()
	t.cfg.Close()
	err := t.dev.Close()
	t.ctx.Close()
	return err
}

// fail invokes the caller-supplied terminate hook on any error other
// than a timeout, so a blocked signal wait can be woken up.
func (t *Transport) fail(err error) {
	t.log.Error("usb transfer failed", "err", err)
	if t.terminate != nil {
		t.terminate(err)
	}
}

// Waiter implements usb.ArrivalWaiter by polling gousb's device list on
// a short interval until a match appears. gousb does not expose native
// hotplug callbacks across all libusb backends, so polling is the
// portable choice here, same as it is in the wider ecosystem's gousb
// consumers.
type Waiter struct {
	log          *slog.Logger
	pollInterval time.Duration
	terminate    usb.TerminateFunc
}

func NewWaiter(log *slog.Logger, terminate usb.TerminateFunc) *Waiter {
	return &Waiter{log: log, pollInterval: 250 * time.Millisecond, terminate: terminate}
}

func (w *Waiter) WaitForArrival(ctx context.Context, ids []usb.DeviceID) (usb.Transport, error) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if t, err := Open(w.log, ids, w.terminate); err == nil {
			return t, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
