package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReadSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, 120)
	if filepath.Base(path) != "120.snap.zst" {
		t.Fatalf("path: %s", path)
	}

	in := ClockV1{
		Header:        Header{Tileset: "heartgold", Tick: 120},
		CatalogDigest: "abc",
		TickMs:        50,
		WangSeed:      1337,
		Elapsed:       map[int]int64{384: 1000, 385: 0, 392: 1999},
		Digest:        "frames",
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.Version != Version || h.Tick != 120 || h.Tileset != "heartgold" {
		t.Fatalf("header: %+v", h)
	}

	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.TickMs != 50 || out.WangSeed != 1337 || out.Digest != "frames" {
		t.Fatalf("snapshot: %+v", out)
	}
	if len(out.Elapsed) != 3 || out.Elapsed[392] != 1999 {
		t.Fatalf("elapsed: %v", out.Elapsed)
	}
	if err := out.Check("abc"); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := out.Check("other"); !errors.Is(err, ErrCatalogMismatch) {
		t.Fatalf("want ErrCatalogMismatch, got %v", err)
	}
}

func TestReadSnapshot_NotZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.snap.zst")
	if err := os.WriteFile(path, []byte("plain text\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWriteSnapshot_FailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, 7)
	// A directory in the way makes the final rename fail.
	if err := os.MkdirAll(filepath.Join(path, "busy"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := WriteSnapshot(path, ClockV1{Header: Header{Tick: 7}}); err == nil {
		t.Fatalf("expected rename error")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}
