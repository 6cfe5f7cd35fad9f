package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	Tileset            string `yaml:"tileset"`
	TickMs             int64  `yaml:"tick_ms"`
	FallbackTileID     *int   `yaml:"fallback_tile_id"`
	SnapshotEveryTicks int    `yaml:"snapshot_every_ticks"`

	Wang  Wang  `yaml:"wang"`
	Trace Trace `yaml:"trace"`
}

type Wang struct {
	Set  string `yaml:"set"`
	Seed int64  `yaml:"seed"`
}

type Trace struct {
	Enabled bool `yaml:"enabled"`
}

func Defaults() Tuning {
	return Tuning{
		Tileset:            "configs/tilesets/heartgold.tsx",
		TickMs:             50,
		SnapshotEveryTicks: 600,
		Wang:               Wang{Seed: 1337},
		Trace:              Trace{Enabled: true},
	}
}

// Load reads a tuning file over Defaults. An empty path yields the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if strings.TrimSpace(t.Tileset) == "" {
		return fmt.Errorf("tileset must not be empty")
	}
	if t.TickMs <= 0 {
		return fmt.Errorf("tick_ms must be > 0")
	}
	if t.SnapshotEveryTicks < 0 {
		return fmt.Errorf("snapshot_every_ticks must be >= 0")
	}
	if t.FallbackTileID != nil && *t.FallbackTileID < 0 {
		return fmt.Errorf("fallback_tile_id must be >= 0")
	}
	return nil
}
