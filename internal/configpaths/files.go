// Package configpaths locates xgipd's optional config file across the
// usual Linux config locations, in priority order, discriminated by
// format so each can be handed to its matching kong loader.
package configpaths

import (
	"errors"
	"os"
	"path/filepath"
)

// DefaultConfigDir returns xgipd's XDG-style config directory.
func DefaultConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "xgipd"), nil
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "xgipd"), nil
	}
	return "", errors.New("HOME not set")
}

// ConfigCandidatePaths builds candidate paths for config files per
// format. If userPath is set it is routed to the matching loader by
// extension and searched first; everything else is a fallback location
// searched in working-directory, user-config, then system-wide order.
func ConfigCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	add := func(slice *[]string, p string) { *slice = append(*slice, p) }

	if userPath != "" {
		switch filepath.Ext(userPath) {
		case ".json":
			add(&jsonPaths, userPath)
		case ".yaml", ".yml":
			add(&yamlPaths, userPath)
		case ".toml":
			add(&tomlPaths, userPath)
		default:
			add(&jsonPaths, userPath)
		}
	}

	wd, _ := os.Getwd()
	add(&jsonPaths, filepath.Join(wd, "xgipd.json"))
	add(&yamlPaths, filepath.Join(wd, "xgipd.yaml"))
	add(&yamlPaths, filepath.Join(wd, "xgipd.yml"))
	add(&tomlPaths, filepath.Join(wd, "xgipd.toml"))

	if dir, err := DefaultConfigDir(); err == nil {
		add(&jsonPaths, filepath.Join(dir, "config.json"))
		add(&yamlPaths, filepath.Join(dir, "config.yaml"))
		add(&yamlPaths, filepath.Join(dir, "config.yml"))
		add(&tomlPaths, filepath.Join(dir, "config.toml"))
	}

	add(&jsonPaths, "/etc/xgipd/config.json")
	add(&yamlPaths, "/etc/xgipd/config.yaml")
	add(&yamlPaths, "/etc/xgipd/config.yml")
	add(&tomlPaths, "/etc/xgipd/config.toml")

	return
}
