// Package audio wraps a full-duplex PCM stream to/from a local PulseAudio
// server, used by one audio-capable controller accessory at a time.
package audio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
)

const channels = 2
const bytesPerSample = 2

// sampleCount is the number of stereo S16LE frames per record fragment,
// matching the packet size a GIP AUDIO frame carries.
const sampleCount = 240

// defaultSampleRate is used when a negotiated AUDIO_CFG payload cannot be
// parsed; chatpad/headset accessories have been observed to request
// 24000 Hz or 16000 Hz, but no byte layout for the negotiation payload
// survives in the available reference source, so this is a defensive
// fallback rather than a documented protocol constant.
const defaultSampleRate = 24000

// SampleRateFromConfig extracts the negotiated sample rate from an
// AUDIO_CFG payload, interpreting its first four bytes as a little-endian
// uint32. Falls back to defaultSampleRate for a short or zero payload.
func SampleRateFromConfig(payload []byte) uint32 {
	if len(payload) < 4 {
		return defaultSampleRate
	}
	rate := binary.LittleEndian.Uint32(payload)
	if rate == 0 {
		return defaultSampleRate
	}
	return rate
}

// Pipeline owns one record stream (microphone/chatpad input, sent to the
// controller) and one playback stream (audio received from the
// controller, written to a local sink). Both run against the same
// PulseAudio client connection.
type Pipeline struct {
	log    *slog.Logger
	client *pulse.Client

	record   *pulse.RecordStream
	playback *pulse.PlaybackStream

	onSamples func(samples []byte)
	pending   chan []byte

	closed atomic.Bool
}

// Start opens a record and playback stream at sampleRate, stereo S16LE.
// onSamples is invoked with each recorded chunk (ready to hand to
// gip.Session.SendAudioSamples); it must not block for long, since it runs
// on PulseAudio's own callback goroutine.
func Start(log *slog.Logger, name string, sampleRate uint32, onSamples func(samples []byte)) (*Pipeline, error) {
	client, err := pulse.NewClient(pulse.ClientApplicationName(name))
	if err != nil {
		return nil, fmt.Errorf("audio: connect to pulseaudio: %w", err)
	}

	p := &Pipeline{
		log:       log,
		client:    client,
		onSamples: onSamples,
		pending:   make(chan []byte, 4),
	}

	record, err := client.NewRecord(
		pulse.Int16Writer(func(in []int16) (int, error) {
			p.recorded(in)
			return len(in), nil
		}),
		pulse.RecordStereo,
		pulse.RecordSampleRate(int(sampleRate)),
		pulse.RecordBufferFragmentSize(sampleCount*channels*bytesPerSample),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("audio: create record stream: %w", err)
	}
	p.record = record

	playback, err := client.NewPlayback(
		pulse.Int16Reader(func(out []int16) (int, error) {
			return p.fillPlayback(out), nil
		}),
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(int(sampleRate)),
	)
	if err != nil {
		record.Close()
		client.Close()
		return nil, fmt.Errorf("audio: create playback stream: %w", err)
	}
	p.playback = playback

	record.Start()
	playback.Start()

	return p, nil
}

// recorded is the record stream's sample callback: it converts the
// recorded int16 frames into the little-endian byte packet a GIP AUDIO
// frame carries and forwards it to onSamples.
func (p *Pipeline) recorded(in []int16) {
	if p.closed.Load() || p.onSamples == nil {
		return
	}

	buf := make([]byte, len(in)*bytesPerSample)
	for i, s := range in {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	p.onSamples(buf)
}

// Write queues one packet of PCM audio received from the controller for
// the local playback sink. Called from the GIP session's inbound AUDIO
// handler; drops the packet rather than blocking if playback has fallen
// behind.
func (p *Pipeline) Write(samples []byte) {
	if p.closed.Load() {
		return
	}
	select {
	case p.pending <- samples:
	default:
		p.log.Warn("audio: dropped playback packet, consumer backed up")
	}
}

// fillPlayback is the playback stream's sample callback: it takes the
// oldest queued packet, zero-filling when nothing has arrived yet
// so PulseAudio always gets a full buffer.
func (p *Pipeline) fillPlayback(out []int16) (n int) {
	var buf []byte
	select {
	case buf = <-p.pending:
	default:
	}

	for i := range out {
		if i*2+1 < len(buf) {
			out[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
		} else {
			out[i] = 0
		}
	}
	return len(out)
}

// Close stops both streams and releases the PulseAudio connection.
func (p *Pipeline) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	if p.record != nil {
		p.record.Stop()
		p.record.Close()
	}
	if p.playback != nil {
		p.playback.Stop()
		p.playback.Close()
	}
	p.client.Close()
}
