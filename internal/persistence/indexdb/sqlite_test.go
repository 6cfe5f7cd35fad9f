package indexdb

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	persistlog "tilecraft.ai/internal/persistence/log"
	"tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/tileset/catalogs"
	"tilecraft.ai/internal/tileset/tuning"
)

const heartgold = "../../../configs/tilesets/heartgold.tsx"

func TestSQLiteIndex_UpsertCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	cat, err := catalogs.Load(heartgold)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Twice: the second upsert must replace rather than duplicate.
	for i := 0; i < 2; i++ {
		if err := idx.UpsertCatalog(cat, tuning.Defaults()); err != nil {
			t.Fatalf("UpsertCatalog: %v", err)
		}
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	checks := []struct {
		query string
		want  int
	}{
		{`SELECT COUNT(*) FROM tiles`, 5000},
		{`SELECT COUNT(*) FROM tiles WHERE frames > 0`, 4},
		{`SELECT COUNT(*) FROM animation_frames`, 8},
		{`SELECT COUNT(*) FROM shapes WHERE tile_id = 982`, 2},
		{`SELECT COUNT(*) FROM wang_tiles`, 5},
		{`SELECT COUNT(*) FROM catalogs`, 2},
	}
	for _, c := range checks {
		var n int
		if err := db.QueryRow(c.query).Scan(&n); err != nil {
			t.Fatalf("%s: %v", c.query, err)
		}
		if n != c.want {
			t.Fatalf("%s = %d want %d", c.query, n, c.want)
		}
	}

	var (
		x, y, w, h float64
		digest     string
	)
	if err := db.QueryRow(`SELECT x,y,w,h FROM shapes WHERE tile_id=982 AND seq=0`).Scan(&x, &y, &w, &h); err != nil {
		t.Fatalf("scan shape: %v", err)
	}
	if x != -3 || y != 1 || w != 34 || h != 30 {
		t.Fatalf("first shape of 982: %v,%v,%v,%v", x, y, w, h)
	}
	if err := db.QueryRow(`SELECT digest FROM catalogs WHERE name='tileset'`).Scan(&digest); err != nil {
		t.Fatalf("scan digest: %v", err)
	}
	if digest != cat.Digest() {
		t.Fatalf("digest %s want %s", digest, cat.Digest())
	}
}

func TestSQLiteIndex_FramesAndSnapshots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	for tick := uint64(1); tick <= 10; tick++ {
		_ = idx.WriteFrame(persistlog.FrameLogEntry{Tick: tick, ElapsedMs: int64(tick) * 50, Digest: "d"})
	}
	idx.RecordSnapshot("/abs/10.snap.zst", snapshot.ClockV1{
		Header:        snapshot.Header{Tick: 10},
		CatalogDigest: "cat",
		Digest:        "frames",
		Elapsed:       map[int]int64{384: 500, 385: 500},
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Writes after close are ignored.
	_ = idx.WriteFrame(persistlog.FrameLogEntry{Tick: 11})

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ticks`).Scan(&n); err != nil {
		t.Fatalf("count ticks: %v", err)
	}
	if n != 10 {
		t.Fatalf("ticks=%d want 10", n)
	}
	var (
		p      string
		tracks int
	)
	if err := db.QueryRow(`SELECT path,tracks FROM snapshots WHERE tick=10`).Scan(&p, &tracks); err != nil {
		t.Fatalf("scan snapshot: %v", err)
	}
	if p != "/abs/10.snap.zst" || tracks != 2 {
		t.Fatalf("snapshot row: path=%q tracks=%d", p, tracks)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqFrame}

	_ = s.WriteFrame(persistlog.FrameLogEntry{Tick: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.ClockV1{})

	st := s.Stats()
	if st.DropFrameTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("drops: %+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_StoredTilesetMatchesDigest(t *testing.T) {
	dir := t.TempDir()
	raw, err := os.ReadFile(heartgold)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	desc := filepath.Join(dir, "heartgold.tsx")
	if err := os.WriteFile(desc, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cat, err := catalogs.Load(desc)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// The description changes on disk after the catalog was built.
	if err := os.WriteFile(desc, []byte("<tileset/>"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	path := filepath.Join(dir, "index.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.UpsertCatalog(cat, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalog: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var digest, doc string
	if err := db.QueryRow(`SELECT digest, json FROM catalogs WHERE name='tileset'`).Scan(&digest, &doc); err != nil {
		t.Fatalf("scan: %v", err)
	}
	sum := sha256.Sum256([]byte(doc))
	if digest != cat.Digest() || hex.EncodeToString(sum[:]) != digest {
		t.Fatalf("stored description does not match digest %s", digest)
	}
	if doc != string(raw) {
		t.Fatalf("stored description is not the one the catalog was built from")
	}
}
