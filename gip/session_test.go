package gip

import (
	"log/slog"
	"testing"

	"github.com/xgipd/xgipd/internal/buffer"
)

func newTestSession(cb Callbacks) (*Session, *[][]byte) {
	var sent [][]byte
	send := func(data []byte) error {
		sent = append(sent, append([]byte(nil), data...))
		return nil
	}
	s := NewSession(1, [6]byte{1, 2, 3, 4, 5, 6}, send, slog.Default(), cb)
	return s, &sent
}

func buildInputFrame(seq uint8) []byte {
	payload := buffer.NewBuilder(inputDataSize)
	payload.U16(1 << 4) // a
	payload.U16(0).U16(0)
	payload.I16(0).I16(0)
	payload.I16(0).I16(0)

	frame := Frame{Command: CmdInput, Type: TypeCommand, Sequence: seq, Length: inputDataSize}
	return append(frame.Encode(), payload.Bytes()...)
}

func TestSessionInputDispatches(t *testing.T) {
	var got *InputData
	s, sent := newTestSession(Callbacks{
		InputReceived: func(in *InputData) { got = in },
	})

	s.HandleInbound(buildInputFrame(5))

	if got == nil || !got.Buttons.A {
		t.Fatalf("InputReceived not called with A pressed: %+v", got)
	}
	if len(*sent) != 0 {
		t.Errorf("sent %d frames, want 0 (command frame requests no ack)", len(*sent))
	}
}

func TestSessionAcknowledgesAckRequest(t *testing.T) {
	s, sent := newTestSession(Callbacks{})

	frame := Frame{Command: CmdSerialNum, Type: TypeRequest | TypeAck, Sequence: 3, Length: serialDataSize}
	payload := make([]byte, serialDataSize)
	s.HandleInbound(append(frame.Encode(), payload...))

	if len(*sent) != 1 {
		t.Fatalf("sent %d frames, want 1 ack", len(*sent))
	}
	ack := DecodeFrame((*sent)[0][:FrameSize])
	if ack.Command != CmdAcknowledge || ack.Sequence != 3 {
		t.Errorf("ack = %+v, want command=ack sequence=3", ack)
	}
}

func TestSessionStatusIgnoresUnchangedLevel(t *testing.T) {
	calls := 0
	s, _ := newTestSession(Callbacks{
		StatusReceived: func(uint8, *StatusData) { calls++ },
	})

	frame := Frame{Command: CmdStatus, Type: TypeCommand, Length: statusDataSize}
	s.HandleInbound(append(frame.Encode(), 0x02, 0, 0, 0))
	s.HandleInbound(append(frame.Encode(), 0x02, 0, 0, 0))
	s.HandleInbound(append(frame.Encode(), 0x03, 0, 0, 0))

	if calls != 2 {
		t.Errorf("StatusReceived called %d times, want 2 (first + changed)", calls)
	}
}

func TestSessionUnknownCommandIgnored(t *testing.T) {
	s, sent := newTestSession(Callbacks{})

	frame := Frame{Command: 0x7f, Type: TypeCommand, Length: 0}
	s.HandleInbound(frame.Encode())

	if len(*sent) != 0 {
		t.Errorf("sent %d frames for unknown command, want 0", len(*sent))
	}
}

func TestSessionSequenceCountersSkipZero(t *testing.T) {
	s, _ := newTestSession(Callbacks{})
	s.sequence = 0xff
	if got := s.nextSequence(false); got != 0xff {
		t.Fatalf("first call = %#x, want 0xff", got)
	}
	if got := s.nextSequence(false); got != 0x01 {
		t.Fatalf("after wraparound = %#x, want 0x01 (zero skipped)", got)
	}
}

func TestSessionAudioSamplesDispatches(t *testing.T) {
	var got []byte
	s, _ := newTestSession(Callbacks{
		AudioSamplesReceived: func(samples []byte) { got = samples },
	})

	frame := Frame{Command: CmdAudioSamples, Type: TypeCommand, Length: 4}
	s.HandleInbound(append(frame.Encode(), 1, 2, 3, 4))

	if string(got) != "\x01\x02\x03\x04" {
		t.Errorf("AudioSamplesReceived payload = %v, want [1 2 3 4]", got)
	}
}

func TestPerformRumbleFramesPayload(t *testing.T) {
	s, sent := newTestSession(Callbacks{})
	if err := s.PerformRumble(RumbleData{Motors: RumbleAll, Left: 50, Right: 50}); err != nil {
		t.Fatalf("PerformRumble: %v", err)
	}
	if len(*sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(*sent))
	}
	frame := DecodeFrame((*sent)[0][:FrameSize])
	if frame.Command != CmdRumble || frame.Type != TypeCommand {
		t.Errorf("frame = %+v, want command=rumble type=command", frame)
	}
	if frame.Length != 9 {
		t.Errorf("Length = %d, want 9", frame.Length)
	}
}
