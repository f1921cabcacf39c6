package dongle

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/xgipd/xgipd/usb"
)

// fakeTransport is a minimal in-memory usb.Transport, mirroring the one
// in mt76's own test suite: control writes are tracked by register
// index, bulk writes are recorded for assertion.
type fakeTransport struct {
	mu     sync.Mutex
	regs   map[uint16]uint32
	writes [][]byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{regs: make(map[uint16]uint32)}
}

func (f *fakeTransport) Control(dir usb.Direction, request uint8, value, index uint16, data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if dir == usb.DirOut {
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
	f.writes = append(f.writes, append([]byte(nil), buf...))
	return len(buf), nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}
