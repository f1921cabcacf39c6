package configpaths

import (
	"path/filepath"
	"testing"
)

func TestConfigCandidatePathsRoutesUserPathByExtension(t *testing.T) {
	jsonPaths, yamlPaths, tomlPaths := ConfigCandidatePaths("/tmp/custom.toml")
	if len(tomlPaths) == 0 || tomlPaths[0] != "/tmp/custom.toml" {
		t.Errorf("tomlPaths[0] = %v, want /tmp/custom.toml first", tomlPaths)
	}
	for _, p := range jsonPaths {
		if p == "/tmp/custom.toml" {
			t.Error("toml user path leaked into jsonPaths")
		}
	}
	if len(yamlPaths) == 0 {
		t.Error("yamlPaths should still contain fallback candidates")
	}
}

func TestConfigCandidatePathsUnknownExtensionFallsBackToJSON(t *testing.T) {
	jsonPaths, _, _ := ConfigCandidatePaths("/tmp/custom.conf")
	if jsonPaths[0] != "/tmp/custom.conf" {
		t.Errorf("jsonPaths[0] = %v, want unknown-extension path routed to json", jsonPaths[0])
	}
}

func TestConfigCandidatePathsEmptyUserPathOnlyFallbacks(t *testing.T) {
	jsonPaths, _, _ := ConfigCandidatePaths("")
	if len(jsonPaths) == 0 {
		t.Fatal("expected fallback json candidates")
	}
	if filepath.Base(jsonPaths[0]) != "xgipd.json" {
		t.Errorf("jsonPaths[0] = %v, want working-directory xgipd.json first", jsonPaths[0])
	}
}
