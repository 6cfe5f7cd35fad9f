package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

var ErrCatalogMismatch = errors.New("snapshot: catalog digest mismatch")

type Header struct {
	Version int    `json:"version"`
	Tileset string `json:"tileset"`
	Tick    uint64 `json:"tick"`
}

// ClockV1 captures everything needed to resume an animation clock deterministically.
type ClockV1 struct {
	Header Header `json:"header"`

	CatalogDigest string `json:"catalog_digest"`
	TickMs        int64  `json:"tick_ms"`
	WangSeed      int64  `json:"wang_seed"`

	// Accumulated milliseconds per animated tile, already reduced by the cycle length.
	Elapsed map[int]int64 `json:"elapsed"`
	Digest  string        `json:"digest"`
}

// Check rejects a snapshot taken against a different tileset description.
func (s ClockV1) Check(catalogDigest string) error {
	if s.CatalogDigest != catalogDigest {
		return fmt.Errorf("%w: snapshot=%s catalog=%s", ErrCatalogMismatch, s.CatalogDigest, catalogDigest)
	}
	return nil
}

func Path(dir string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d.snap.zst", tick))
}

func WriteSnapshot(path string, snap ClockV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	var enc *zstd.Encoder
	defer func() {
		if err != nil {
			if enc != nil {
				_ = enc.Close()
			}
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	enc, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 32*1024)

	snap.Header.Version = Version
	hb, err := json.Marshal(snap.Header)
	if err != nil {
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	cerr := enc.Close()
	enc = nil
	if cerr != nil {
		return cerr
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadHeader decodes only the leading header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	err := read(path, func(br *bufio.Reader) error {
		line, err := br.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("header: %w", err)
		}
		return json.Unmarshal(line, &h)
	})
	return h, err
}

func ReadSnapshot(path string) (ClockV1, error) {
	var snap ClockV1
	err := read(path, func(br *bufio.Reader) error {
		if _, err := br.ReadBytes('\n'); err != nil {
			return fmt.Errorf("header: %w", err)
		}
		if err := gob.NewDecoder(br).Decode(&snap); err != nil {
			return fmt.Errorf("gob decode: %w", err)
		}
		return nil
	})
	if err != nil {
		return snap, err
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("snapshot: unsupported version %d", snap.Header.Version)
	}
	return snap, nil
}

func read(path string, fn func(*bufio.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	return fn(bufio.NewReaderSize(dec, 32*1024))
}
