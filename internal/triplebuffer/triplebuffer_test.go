package triplebuffer

import (
	"sync"
	"testing"
	"time"
)

func TestGetEmptyReturnsFalse(t *testing.T) {
	b := New[int]()
	if _, ok := b.Get(); ok {
		t.Fatal("Get on empty buffer returned ok=true")
	}
}

func TestPutThenGet(t *testing.T) {
	b := New[int]()
	b.Put(42)
	v, ok := b.Get()
	if !ok || v != 42 {
		t.Fatalf("Get = (%d, %v), want (42, true)", v, ok)
	}
	if _, ok := b.Get(); ok {
		t.Fatal("second Get should be false, value already consumed")
	}
}

func TestPutOverwritesUnreadValue(t *testing.T) {
	b := New[int]()
	b.Put(1)
	b.Put(2)
	b.Put(3)
	v, ok := b.Get()
	if !ok || v != 3 {
		t.Fatalf("Get = (%d, %v), want (3, true): latest value wins", v, ok)
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	b := New[int]()
	const n = 10000
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			b.Put(i)
		}
	}()

	last := -1
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, ok := b.Get(); ok {
			if v < last {
				t.Errorf("Get returned stale value %d after %d", v, last)
			}
			last = v
			if last == n-1 {
				break
			}
		}
	}
	wg.Wait()
}
