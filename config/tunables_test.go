package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTunablesOverride(t *testing.T) {
	defer SetTunables(DefaultTunables())

	path := filepath.Join(t.TempDir(), "tunables.yaml")
	body := "max_coord_magnitude: 1000\nstrict_formats: true\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	if err := LoadTunables(path); err != nil {
		t.Fatal(err)
	}

	tun := GetTunables()
	if tun.MaxCoordMagnitude != 1000 {
		t.Errorf("MaxCoordMagnitude = %v, want 1000", tun.MaxCoordMagnitude)
	}
	if !tun.StrictFormats {
		t.Error("StrictFormats not applied")
	}
	if tun.MaxTreeDepth != DefaultTunables().MaxTreeDepth {
		t.Error("unset fields should keep defaults")
	}
}
