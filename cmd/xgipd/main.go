// Command xgipd is a user-space driver for a proprietary MT76xx-based
// wireless gamepad dongle: it boots the radio, associates clients, runs
// the per-client GIP protocol, and exposes each gamepad to the host as a
// virtual input device with rumble and (optionally) audio.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
	"golang.org/x/sys/unix"

	"github.com/xgipd/xgipd/audio"
	"github.com/xgipd/xgipd/controller"
	"github.com/xgipd/xgipd/dongle"
	"github.com/xgipd/xgipd/gip"
	"github.com/xgipd/xgipd/internal/config"
	"github.com/xgipd/xgipd/internal/configpaths"
	"github.com/xgipd/xgipd/internal/interrupt"
	"github.com/xgipd/xgipd/internal/log"
	"github.com/xgipd/xgipd/internal/xerr"
	"github.com/xgipd/xgipd/mt76"
	"github.com/xgipd/xgipd/uinput"
	"github.com/xgipd/xgipd/usb"
	"github.com/xgipd/xgipd/usb/gousb"
)

// lockFilePath enforces the single-instance requirement: only one xgipd
// may hold the radio at a time.
const lockFilePath = "/var/run/xgipd.lock"

// supportedDevices are the vendor/product pairs the dongle firmware
// recognises: new, old, and Surface-integrated hardware revisions.
var supportedDevices = []usb.DeviceID{
	{Vendor: 0x045e, Product: 0x02e6},
	{Vendor: 0x045e, Product: 0x02fe},
	{Vendor: 0x045e, Product: 0x091e},
}

func main() {
	os.Exit(run())
}

func run() int {
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("xgipd"),
		kong.Description("User-space driver for MT76xx wireless gamepad dongles"),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, closers, err := log.SetupLogger(cli.Log.Level, cli.Log.File)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to set up logger:", err)
		return 2
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	var rawLogger log.RawLogger
	if cli.Log.RawFile != "" {
		f, err := os.OpenFile(cli.Log.RawFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("failed to open raw log file", "err", err)
			rawLogger = log.NewRaw(nil)
		} else {
			rawLogger = log.NewRaw(f)
			defer f.Close()
		}
	} else {
		rawLogger = log.NewRaw(nil)
	}

	unlock, err := acquireSingleInstanceLock(lockFilePath)
	if err != nil {
		logger.Error("another instance is already running", "lockfile", lockFilePath, "err", err)
		return 1
	}
	defer unlock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	src := interrupt.New(ctx)

	terminate := make(chan error, 1)
	waiter := gousb.NewWaiter(logger, func(err error) {
		select {
		case terminate <- err:
		default:
		}
	})

	transport, err := waiter.WaitForArrival(ctx, supportedDevices)
	if err != nil {
		logger.Error("no supported dongle found", "err", err)
		return 1
	}
	defer transport.Close()

	radio := mt76.New(transport, logger)
	if err := radio.Init(ctx); err != nil {
		bootErr := xerr.New(xerr.RadioInit, "radio boot", err)
		logger.Error("radio initialisation failed", "err", bootErr)
		return 1
	}
	defer radio.Shutdown()

	compat := config.CompatibilityMode()
	session := dongle.NewSession(radio, newClientHandler(logger, rawLogger, cli.Audio.Enabled, compat))
	dispatcher := dongle.New(transport, radio, session, logger, rawLogger)

	go handlePairingToggle(src, radio, logger)

	logger.Info("xgipd ready", "mac", radio.MACAddress(), "compatibility_mode", compat)

	done := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(done)
	}()

	select {
	case <-src.Done():
		logger.Info("shutting down")
	case err := <-terminate:
		logger.Error("fatal transport error, shutting down", "err", xerr.New(xerr.UsbFatal, "transport", err))
	case <-done:
		logger.Warn("dispatcher exited unexpectedly")
	}

	session.Close()
	return 0
}

// findUserConfig looks for an explicit --config before kong has parsed
// anything, so its value can steer which config-candidate paths kong
// itself searches.
func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--config=") {
			return a[len("--config="):]
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	if v := os.Getenv("XGIPD_CONFIG"); v != "" {
		return v
	}
	return ""
}

// acquireSingleInstanceLock takes an exclusive, non-blocking flock on
// path, creating it if necessary. The returned func releases it.
func acquireSingleInstanceLock(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lockfile: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("flock: %w", err)
	}
	return func() {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}

// handlePairingToggle flips pairing mode each time SIGUSR1 arrives,
// matching spec.md's runtime control contract.
func handlePairingToggle(src *interrupt.Source, radio *mt76.Controller, logger *slog.Logger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	defer signal.Stop(sigs)

	for {
		select {
		case <-src.Done():
			return
		case <-sigs:
			enabled := !radio.PairingEnabled()
			if err := radio.SetPairingStatus(enabled); err != nil {
				logger.Error("failed to toggle pairing mode", "err", err)
				continue
			}
			logger.Info("pairing mode toggled", "enabled", enabled)
		}
	}
}

// newClientHandler builds the dongle.NewClientHandler factory that wires
// a freshly-associated client's gip.Session to a controller.Device (and,
// when the controller advertises audio and audioEnabled is set, an
// audio.Pipeline), completing the two-step construction each of those
// types requires.
func newClientHandler(logger *slog.Logger, rawLogger log.RawLogger, audioEnabled, compat bool) dongle.NewClientHandler {
	return func(wcid uint8, mac [6]byte, send func([]byte) error) dongle.ClientHandler {
		clientLog := logger.With("wcid", wcid, "mac", mac)

		input, err := uinput.Open(clientLog, nil)
		if err != nil {
			clientLog.Error("failed to open uinput device, dropping client", "err", xerr.New(xerr.InputIoctl, "uinput.Open", err))
			return noopClientHandler{}
		}

		device, cb := controller.NewDevice(input, clientLog, compat)
		input.SetCallback(device.FeedbackReceived)

		var pipeline *audio.Pipeline
		var session *gip.Session
		session = gip.NewSession(wcid, mac, send, clientLog, withAudio(cb, &pipeline, &session, clientLog, audioEnabled, mac))
		device.BindSession(session)

		handlerCtx, cancel := context.WithCancel(context.Background())
		go device.Run(handlerCtx)
		go input.Run(handlerCtx)

		return &clientHandler{session: session, device: device, input: input, pipeline: &pipeline, cancel: cancel}
	}
}

// noopClientHandler is returned when a client cannot be given a virtual
// input device; it discards inbound traffic until the dongle removes the
// slot.
type noopClientHandler struct{}

func (noopClientHandler) HandleInbound([]byte) {}
func (noopClientHandler) Close()               {}

// withAudio augments cb with an AudioConfigReceived/AudioSamplesReceived
// pair that lazily opens an audio.Pipeline once the controller announces
// its accessory's sample rate, when audioEnabled is set. session is bound
// by the caller immediately after NewSession returns, before any inbound
// traffic can reach these callbacks.
func withAudio(cb gip.Callbacks, pipeline **audio.Pipeline, session **gip.Session, logger *slog.Logger, audioEnabled bool, mac [6]byte) gip.Callbacks {
	if !audioEnabled {
		return cb
	}

	cb.AudioConfigReceived = func(payload []byte) {
		rate := audio.SampleRateFromConfig(payload)
		p, err := audio.Start(logger, fmt.Sprintf("xgipd-%x", mac), rate, func(samples []byte) {
			if err := (*session).SendAudioSamples(samples); err != nil {
				logger.Error("failed to send recorded audio", "err", err)
			}
		})
		if err != nil {
			logger.Error("failed to open audio pipeline", "err", xerr.New(xerr.AudioOpen, "audio.Start", err))
			return
		}
		*pipeline = p
	}
	cb.AudioSamplesReceived = func(samples []byte) {
		if *pipeline != nil {
			(*pipeline).Write(samples)
		}
	}
	return cb
}

// clientHandler adapts the per-client resources into dongle.ClientHandler.
type clientHandler struct {
	session  *gip.Session
	device   *controller.Device
	input    *uinput.Device
	pipeline **audio.Pipeline
	cancel   context.CancelFunc
}

func (h *clientHandler) HandleInbound(payload []byte) { h.session.HandleInbound(payload) }

func (h *clientHandler) Close() {
	h.cancel()
	h.device.Close()
	if h.pipeline != nil && *h.pipeline != nil {
		(*h.pipeline).Close()
	}
}
