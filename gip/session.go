package gip

import (
	"log/slog"
	"sync"
)

// Callbacks receives the decoded result of every inbound command a Session
// recognises. Each field maps to one of the virtual methods the protocol
// state machine dispatches to once the matching GIP frame has been
// unmarshalled; fields left nil are simply not invoked.
type Callbacks struct {
	DeviceAnnounced     func(deviceID uint8, announce *AnnounceData)
	StatusReceived      func(deviceID uint8, status *StatusData)
	GuideButtonPressed  func(button *GuideButtonData)
	SerialNumberReceived func(serial *SerialData)
	InputReceived       func(input *InputData)
	AudioConfigReceived func(payload []byte)
	AudioSamplesReceived func(samples []byte)
}

// Session is the per-client GIP state machine: it decodes inbound frames,
// acknowledges the ones that ask for it, and offers builders for every
// outbound command. One Session exists per associated WCID; it implements
// dongle.ClientHandler so the dispatcher can own it opaquely.
type Session struct {
	wcid uint8
	mac  [6]byte
	send func([]byte) error
	log  *slog.Logger
	cb   Callbacks

	mu               sync.Mutex
	sequence         uint8
	accessorySequence uint8
	lastBatteryLevel  uint8
	haveBatteryLevel  bool
}

// NewSession constructs a Session for a newly associated client. send
// transmits a fully-framed GIP payload to the client over the radio.
func NewSession(wcid uint8, mac [6]byte, send func([]byte) error, log *slog.Logger, cb Callbacks) *Session {
	return &Session{
		wcid:     wcid,
		mac:      mac,
		send:     send,
		log:      log,
		cb:       cb,
		sequence: 0x01,
		accessorySequence: 0x01,
	}
}

// nextSequence returns the next value of the requested counter, both of
// which are monotonic mod 256 and skip zero (zero is not a valid sequence
// number).
func (s *Session) nextSequence(accessory bool) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if accessory {
		if s.accessorySequence == 0 {
			s.accessorySequence = 1
		}
		v := s.accessorySequence
		s.accessorySequence++
		return v
	}

	if s.sequence == 0 {
		s.sequence = 1
	}
	v := s.sequence
	s.sequence++
	return v
}

// HandleInbound decodes one payload addressed to this client's WCID and
// dispatches it by command. Unknown commands are ignored: a controller
// from a newer generation must not abort the session.
func (s *Session) HandleInbound(payload []byte) {
	if len(payload) < FrameSize {
		s.log.Warn("short gip frame", "wcid", s.wcid, "len", len(payload))
		return
	}

	frame := DecodeFrame(payload)
	data := payload[FrameSize:]

	if frame.HasAck() {
		if err := s.send(buildAck(frame)); err != nil {
			s.log.Error("failed to acknowledge gip frame", "wcid", s.wcid, "err", err)
		}
	}

	switch frame.Command {
	case CmdAnnounce:
		if int(frame.Length) != announceDataSize || len(data) < announceDataSize {
			return
		}
		var announce AnnounceData
		if announce.UnmarshalBinary(data) == nil && s.cb.DeviceAnnounced != nil {
			s.cb.DeviceAnnounced(frame.DeviceID, &announce)
		}

	case CmdStatus:
		if int(frame.Length) != statusDataSize || len(data) < statusDataSize {
			return
		}
		var status StatusData
		if status.UnmarshalBinary(data) != nil {
			return
		}
		s.mu.Lock()
		unchanged := s.haveBatteryLevel && s.lastBatteryLevel == status.BatteryLevel
		s.lastBatteryLevel = status.BatteryLevel
		s.haveBatteryLevel = true
		s.mu.Unlock()
		if unchanged {
			return
		}
		if s.cb.StatusReceived != nil {
			s.cb.StatusReceived(frame.DeviceID, &status)
		}

	case CmdGuideButton:
		if int(frame.Length) != guideButtonDataSize || len(data) < guideButtonDataSize {
			return
		}
		var button GuideButtonData
		if button.UnmarshalBinary(data) == nil && s.cb.GuideButtonPressed != nil {
			s.cb.GuideButtonPressed(&button)
		}

	case CmdSerialNum:
		if int(frame.Length) != serialDataSize || len(data) < serialDataSize {
			return
		}
		var serial SerialData
		if serial.UnmarshalBinary(data) == nil && s.cb.SerialNumberReceived != nil {
			s.cb.SerialNumberReceived(&serial)
		}

	case CmdInput:
		// Elite controllers send a longer payload; the non-remapped
		// input is appended after the fixed portion decoded here.
		if int(frame.Length) < inputDataSize || len(data) < inputDataSize {
			return
		}
		var input InputData
		if input.UnmarshalBinary(data) == nil && s.cb.InputReceived != nil {
			s.cb.InputReceived(&input)
		}

	case CmdAudioConfig:
		if s.cb.AudioConfigReceived != nil {
			s.cb.AudioConfigReceived(data)
		}

	case CmdAudioSamples:
		if s.cb.AudioSamplesReceived != nil {
			s.cb.AudioSamplesReceived(data)
		}
	}
}

// Close is a no-op: a Session owns no resources of its own. Higher layers
// (the virtual input device, the audio pipeline) register their own
// cleanup via the owning ClientSlot.
func (s *Session) Close() {}

func (s *Session) sendFrame(cmd Command, typ Type, accessory bool, payload []byte) error {
	frame := Frame{
		Command:  cmd,
		Type:     typ,
		Sequence: s.nextSequence(accessory),
		Length:   uint8(len(payload)),
	}
	out := append(frame.Encode(), payload...)
	return s.send(out)
}

// SetPowerMode sends a power-mode request for the device identified by id
// (0 for the controller itself, nonzero for an attached accessory).
func (s *Session) SetPowerMode(deviceID uint8, mode PowerMode) error {
	frame := Frame{
		Command:  CmdPowerMode,
		DeviceID: deviceID,
		Type:     TypeRequest,
		Sequence: s.nextSequence(false),
		Length:   1,
	}
	return s.send(append(frame.Encode(), uint8(mode)))
}

// PerformRumble sends a rumble command.
func (s *Session) PerformRumble(rumble RumbleData) error {
	payload, _ := rumble.MarshalBinary()
	return s.sendFrame(CmdRumble, TypeCommand, false, payload)
}

// SetLedMode sends an LED-mode request.
func (s *Session) SetLedMode(mode LedModeData) error {
	payload, _ := mode.MarshalBinary()
	return s.sendFrame(CmdLedMode, TypeRequest, false, payload)
}

// RequestSerialNumber requests the controller's serial number. The purpose
// of the 0x04 payload byte is undocumented upstream; it is required for
// the controller to respond.
func (s *Session) RequestSerialNumber() error {
	return s.sendFrame(CmdSerialNum, TypeRequest|TypeAck, false, []byte{0x04})
}

// SendAudioConfig enables the controller's audio accessory with the given
// negotiated configuration payload.
func (s *Session) SendAudioConfig(payload []byte) error {
	return s.sendFrame(CmdAudioConfig, TypeRequest, false, payload)
}

// SendAudioSamples transmits one packet of recorded PCM audio, framed with
// the accessory sequence counter.
func (s *Session) SendAudioSamples(samples []byte) error {
	return s.sendFrame(CmdAudioSamples, TypeCommand, true, samples)
}
