package tilemap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Map is an autotiled grid of tile ids as written next to a run.
type Map struct {
	Tileset string `json:"tileset"`
	Set     string `json:"wang_set"`
	Seed    int64  `json:"wang_seed"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Tiles   string `json:"tiles_rle"`
}

// New flattens a row-major grid. Rows must share one width.
func New(tileset, set string, seed int64, grid [][]int) (Map, error) {
	m := Map{Tileset: tileset, Set: set, Seed: seed, Height: len(grid)}
	if len(grid) > 0 {
		m.Width = len(grid[0])
	}
	flat := make([]int, 0, m.Width*m.Height)
	for y, row := range grid {
		if len(row) != m.Width {
			return Map{}, fmt.Errorf("row %d has %d cells, want %d", y, len(row), m.Width)
		}
		flat = append(flat, row...)
	}
	enc, err := EncodeRLE(flat)
	if err != nil {
		return Map{}, err
	}
	m.Tiles = enc
	return m, nil
}

func (m Map) Grid() ([][]int, error) {
	flat, err := DecodeRLE(m.Tiles, m.Width*m.Height)
	if err != nil {
		return nil, err
	}
	if len(flat) != m.Width*m.Height {
		return nil, fmt.Errorf("decoded %d cells, want %dx%d", len(flat), m.Width, m.Height)
	}
	grid := make([][]int, m.Height)
	for y := range grid {
		grid[y] = flat[y*m.Width : (y+1)*m.Width]
	}
	return grid, nil
}

func Write(path string, m Map) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func Read(path string) (Map, error) {
	var m Map
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return m, nil
}
