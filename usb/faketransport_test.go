package usb_test

import (
	"sync"
	"time"

	"github.com/xgipd/xgipd/usb"
)

// fakeTransport is an in-memory usb.Transport double used by this
// package's tests, with no real device attached.
type fakeTransport struct {
	mu sync.Mutex

	ctrl map[uint8][]byte // canned control-read replies keyed by request
	bulk map[uint8][][]byte

	writes []fakeWrite
	closed bool
}

type fakeWrite struct {
	endpoint uint8
	data     []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		ctrl: make(map[uint8][]byte),
		bulk: make(map[uint8][][]byte),
	}
}

func (f *fakeTransport) queueBulk(endpoint uint8, frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulk[endpoint] = append(f.bulk[endpoint], frame)
}

func (f *fakeTransport) setControlReply(request uint8, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctrl[request] = data
}

func (f *fakeTransport) Control(dir usb.Direction, request uint8, value, index uint16, data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if dir == usb.DirIn {
		reply, ok := f.ctrl[request]
		if !ok {
			return 0, nil
		}
		n := copy(data, reply)
		return n, nil
	}
	return len(data), nil
}

func (f *fakeTransport) BulkRead(endpoint uint8, buf []byte, timeout time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.bulk[endpoint]
	if len(q) == 0 {
		return 0, usb.ErrTimeout
	}
	frame := q[0]
	f.bulk[endpoint] = q[1:]
	n := copy(buf, frame)
	return n, nil
}

func (f *fakeTransport) BulkWrite(endpoint uint8, buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), buf...)
	f.writes = append(f.writes, fakeWrite{endpoint: endpoint, data: cp})
	return len(buf), nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
