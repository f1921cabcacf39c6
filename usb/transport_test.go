package usb_test

import (
	"testing"

	"github.com/xgipd/xgipd/usb"
)

func TestFakeBulkReadTimeoutWhenEmpty(t *testing.T) {
	tr := newFakeTransport()
	buf := make([]byte, 64)
	_, err := tr.BulkRead(0x81, buf, 0)
	if err != usb.ErrTimeout {
		t.Fatalf("BulkRead on empty queue = %v, want ErrTimeout", err)
	}
}

func TestFakeBulkReadWriteRoundTrip(t *testing.T) {
	tr := newFakeTransport()
	tr.queueBulk(0x81, []byte{0x01, 0x02, 0x03})

	buf := make([]byte, 64)
	n, err := tr.BulkRead(0x81, buf, 0)
	if err != nil {
		t.Fatalf("BulkRead: %v", err)
	}
	if n != 3 || buf[0] != 0x01 {
		t.Fatalf("BulkRead returned n=%d buf=%v", n, buf[:n])
	}

	if _, err := tr.BulkWrite(0x02, []byte{0xaa, 0xbb}); err != nil {
		t.Fatalf("BulkWrite: %v", err)
	}
	if len(tr.writes) != 1 || tr.writes[0].endpoint != 0x02 {
		t.Fatalf("write not recorded: %+v", tr.writes)
	}
}

func TestFakeControlReadsReply(t *testing.T) {
	tr := newFakeTransport()
	tr.setControlReply(0x07, []byte{0xde, 0xad, 0xbe, 0xef})

	buf := make([]byte, 4)
	n, err := tr.Control(usb.DirIn, 0x07, 0, 0, buf)
	if err != nil || n != 4 {
		t.Fatalf("Control = (%d, %v)", n, err)
	}
	if buf[0] != 0xde {
		t.Fatalf("buf = %v", buf)
	}
}
