package uinput

import (
	"log/slog"
	"testing"
)

func TestFFEffectRumbleDecode(t *testing.T) {
	var e ffEffect
	e.union[0], e.union[1] = 0x34, 0x12 // strong = 0x1234
	e.union[2], e.union[3] = 0x78, 0x56 // weak = 0x5678
	got := e.rumble()
	if got.StrongMagnitude != 0x1234 || got.WeakMagnitude != 0x5678 {
		t.Errorf("rumble() = %+v, want {0x1234 0x5678}", got)
	}
}

func TestEmitFeedbackBuildsEventFromEffect(t *testing.T) {
	var received FeedbackEvent
	d := &Device{
		log: slog.Default(),
		cb:  func(ev FeedbackEvent) { received = ev },
	}
	d.effect.Direction = 0x8000
	d.effect.Replay = ffReplay{Length: 200, Delay: 50}
	d.effect.union[0], d.effect.union[2] = 0xff, 0xaa

	d.emitFeedback(0xffff, 3)

	want := FeedbackEvent{
		StrongMagnitude: 0x00ff,
		WeakMagnitude:   0x00aa,
		Direction:       0x8000,
		LengthMillis:    200,
		DelayMillis:     50,
		Gain:            0xffff,
		Count:           3,
	}
	if received != want {
		t.Errorf("emitFeedback produced %+v, want %+v", received, want)
	}
}

func TestEmitFeedbackNoCallbackIsNoop(t *testing.T) {
	d := &Device{log: slog.Default()}
	d.emitFeedback(1, 1) // must not panic with a nil cb
}

func TestHandleEventGainUpdatesEffectGainWithoutCallback(t *testing.T) {
	called := false
	d := &Device{
		log: slog.Default(),
		cb:  func(FeedbackEvent) { called = true },
	}
	d.handleEvent(inputEvent{Type: evFF, Code: ffGain, Value: 0x4000})

	if d.effectGain != 0x4000 {
		t.Errorf("effectGain = %#x, want 0x4000", d.effectGain)
	}
	if called {
		t.Error("a gain update must not itself invoke the feedback callback")
	}
}

func TestHandleEventEffectPlayInvokesCallbackWithCount(t *testing.T) {
	var received FeedbackEvent
	d := &Device{
		log:        slog.Default(),
		cb:         func(ev FeedbackEvent) { received = ev },
		effectGain: 0xc000,
	}
	d.handleEvent(inputEvent{Type: evFF, Code: 0, Value: 5})

	if received.Gain != 0xc000 {
		t.Errorf("Gain = %#x, want 0xc000", received.Gain)
	}
	if received.Count != 5 {
		t.Errorf("Count = %d, want 5", received.Count)
	}
}

func TestHandleEventEffectStopZeroesGainAndCount(t *testing.T) {
	var received FeedbackEvent
	d := &Device{
		log:        slog.Default(),
		cb:         func(ev FeedbackEvent) { received = ev },
		effectGain: 0xc000,
	}
	d.handleEvent(inputEvent{Type: evFF, Code: 0, Value: 0})

	if received.Gain != 0 || received.Count != 0 {
		t.Errorf("stop event = %+v, want zero gain and count", received)
	}
}
