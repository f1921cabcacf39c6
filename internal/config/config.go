// Package config defines the command-line surface and optional config
// file tunables for xgipd.
package config

import "os"

// CLI is the root command parsed by kong. Flags/env take precedence over
// any loaded config file; the config file only supplies defaults for the
// optional tunables below. Besides kong's built-in -h/--help there is no
// version flag.
type CLI struct {
	Config string `help:"Path to an optional JSON/YAML/TOML config file." type:"path"`

	Log struct {
		Level   string `help:"Log level: trace, debug, info, warn, error." default:"info" enum:"trace,debug,info,warn,error"`
		File    string `help:"Write logs to this file in addition to stderr." type:"path"`
		RawFile string `help:"Write raw hex dumps of USB/GIP traffic to this file." type:"path"`
	} `embed:"" prefix:"log-"`

	Audio struct {
		Enabled bool `help:"Open a PulseAudio pipeline for accessories that advertise audio." default:"true" negatable:""`
	} `embed:"" prefix:"audio-"`
}

// CompatEnvVar is the environment variable that switches the reported
// virtual device identity to the one some games hard-code a check
// against (name "Microsoft X-Box 360 pad", PID 0x028e, version 0x0104).
const CompatEnvVar = "XOW_COMPATIBILITY"

// CompatibilityMode reports whether CompatEnvVar is set to "1".
func CompatibilityMode() bool {
	return os.Getenv(CompatEnvVar) == "1"
}
