package mt76

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/xgipd/xgipd/usb"
)

// fakeTransport is a minimal in-memory usb.Transport for exercising
// Controller logic without real hardware. Control reads return whatever
// was last written to the same register address (tracked by index
// value), defaulting to zero.
type fakeTransport struct {
	mu     sync.Mutex
	regs   map[uint16]uint32
	writes [][]byte
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{regs: make(map[uint16]uint32)}
}

func (f *fakeTransport) Control(dir usb.Direction, request uint8, value, index uint16, data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if dir == usb.DirOut {
		if request == VendDevMode {
			return 0, nil
		}
		if len(data) >= 4 {
			f.regs[index] = binary.LittleEndian.Uint32(data)
		}
		return len(data), nil
	}

	binary.LittleEndian.PutUint32(data, f.regs[index])
	return len(data), nil
}

func (f *fakeTransport) BulkRead(endpoint uint8, buf []byte, timeout time.Duration) (int, error) {
	return 0, usb.ErrTimeout
}

func (f *fakeTransport) BulkWrite(endpoint uint8, buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), buf...)
	f.writes = append(f.writes, cp)
	return len(buf), nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}
