package audio

import (
	"log/slog"
	"testing"
)

func TestSampleRateFromConfig(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
		want    uint32
	}{
		{"too short", []byte{0x01, 0x02}, defaultSampleRate},
		{"zero rate", []byte{0, 0, 0, 0}, defaultSampleRate},
		{"24khz", []byte{0xc0, 0x5d, 0, 0}, 24000},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := SampleRateFromConfig(c.payload); got != c.want {
				t.Errorf("SampleRateFromConfig(%v) = %d, want %d", c.payload, got, c.want)
			}
		})
	}
}

func TestPipelineRecordedForwardsBytes(t *testing.T) {
	var got []byte
	p := &Pipeline{
		log:       slog.Default(),
		onSamples: func(samples []byte) { got = samples },
		pending:   make(chan []byte, 1),
	}

	p.recorded([]int16{0x1234, -1})

	want := []byte{0x34, 0x12, 0xff, 0xff}
	if string(got) != string(want) {
		t.Errorf("recorded forwarded %v, want %v", got, want)
	}
}

func TestPipelineFillPlaybackZeroFillsWhenEmpty(t *testing.T) {
	p := &Pipeline{log: slog.Default(), pending: make(chan []byte, 1)}

	out := make([]int16, 4)
	n := p.fillPlayback(out)

	if n != len(out) {
		t.Errorf("fillPlayback returned %d, want %d", n, len(out))
	}
	for _, v := range out {
		if v != 0 {
			t.Errorf("fillPlayback with no pending packet = %v, want all zero", out)
			break
		}
	}
}

func TestPipelineWriteThenFillPlaybackRoundTrips(t *testing.T) {
	p := &Pipeline{log: slog.Default(), pending: make(chan []byte, 1)}

	p.Write([]byte{0x34, 0x12, 0xff, 0xff})

	out := make([]int16, 2)
	p.fillPlayback(out)

	if out[0] != 0x1234 || out[1] != -1 {
		t.Errorf("fillPlayback after Write = %v, want [0x1234 -1]", out)
	}
}

func TestPipelineWriteDropsWhenBackedUp(t *testing.T) {
	p := &Pipeline{log: slog.Default(), pending: make(chan []byte, 1)}

	p.Write([]byte{1, 2, 3, 4})
	p.Write([]byte{5, 6, 7, 8}) // must not block

	if got := <-p.pending; string(got) != "\x01\x02\x03\x04" {
		t.Errorf("pending = %v, want first packet kept", got)
	}
}
