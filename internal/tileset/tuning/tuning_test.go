package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_TuningYAML(t *testing.T) {
	tu, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load tuning.yaml: %v", err)
	}
	if tu.TickMs != 50 {
		t.Fatalf("tick_ms: got %d", tu.TickMs)
	}
	if tu.Wang.Set != "Unnamed Set" || tu.Wang.Seed != 1337 {
		t.Fatalf("wang: %+v", tu.Wang)
	}
	if tu.FallbackTileID == nil || *tu.FallbackTileID != 0 {
		t.Fatalf("fallback_tile_id: %v", tu.FallbackTileID)
	}
	if !tu.Trace.Enabled {
		t.Fatalf("trace should be enabled")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("tick_ms: 16\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tu, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	d := Defaults()
	if tu.TickMs != 16 {
		t.Fatalf("tick_ms: got %d want 16", tu.TickMs)
	}
	if tu.Tileset != d.Tileset || tu.SnapshotEveryTicks != d.SnapshotEveryTicks || tu.Wang.Seed != d.Wang.Seed {
		t.Fatalf("defaults lost: %+v", tu)
	}
	if tu.FallbackTileID != nil {
		t.Fatalf("fallback_tile_id should stay unset")
	}
}

func TestLoad_EmptyPathAndErrors(t *testing.T) {
	tu, err := Load("")
	if err != nil {
		t.Fatalf("empty path: %v", err)
	}
	if tu != Defaults() {
		t.Fatalf("empty path should yield defaults: %+v", tu)
	}

	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"zero tick", "tick_ms: 0\n"},
		{"negative snapshot interval", "snapshot_every_ticks: -1\n"},
		{"negative fallback", "fallback_tile_id: -2\n"},
		{"bad yaml", "tick_ms: [\n"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "t"+string(rune('a'+i))+".yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
