package tilemap

import (
	"encoding/base64"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestRLE_RoundTrip(t *testing.T) {
	in := []int{0, 0, 0, 4, 4, 982}
	for i := 0; i < 50; i++ {
		in = append(in, 7)
	}
	in = append(in, 4999, 1, 1)

	enc, err := EncodeRLE(in)
	if err != nil {
		t.Fatalf("EncodeRLE: %v", err)
	}
	out, err := DecodeRLE(enc, len(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}

	if _, err := DecodeRLE(enc, len(in)-1); err == nil {
		t.Fatalf("expected limit error")
	}
	if _, err := EncodeRLE([]int{1, -1}); err == nil {
		t.Fatalf("expected error for negative id")
	}
}

func TestDecodeRLE_RejectsOversizedID(t *testing.T) {
	buf := binary.AppendUvarint(nil, 1<<63)
	buf = binary.AppendUvarint(buf, 1)
	ids, err := DecodeRLE(base64.StdEncoding.EncodeToString(buf), 10)
	if err == nil {
		t.Fatalf("expected range error, got ids %v", ids)
	}
}

func TestMap_WriteRead(t *testing.T) {
	grid := [][]int{
		{0, 0, 0},
		{0, 3, 0},
	}
	m, err := New("heartgold", "Unnamed Set", 1337, grid)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	path := filepath.Join(t.TempDir(), "map.json")
	if err := Write(path, m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != m {
		t.Fatalf("read back %+v want %+v", got, m)
	}
	g, err := got.Grid()
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	if g[1][1] != 3 || len(g) != 2 || len(g[0]) != 3 {
		t.Fatalf("grid: %v", g)
	}

	if _, err := New("t", "s", 0, [][]int{{1, 2}, {3}}); err == nil {
		t.Fatalf("ragged grid should fail")
	}
}
