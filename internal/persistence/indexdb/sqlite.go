package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	persistlog "tilecraft.ai/internal/persistence/log"
	"tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/tileset/catalogs"
	"tilecraft.ai/internal/tileset/tuning"
)

// SQLiteIndex is a queryable read-model of a run: the catalog it used, the frame trace
// and the snapshots taken. The zstd trace stays the source of truth; the index may
// drop writes under load.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropFrame    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqFrame reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	frame    persistlog.FrameLogEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick          uint64
	Path          string
	CatalogDigest string
	Digest        string
	Tracks        int
}

type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropFrameTotal    uint64 `json:"drop_frame_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tiles (
			tile_id INTEGER PRIMARY KEY,
			type TEXT NOT NULL,
			probability REAL NOT NULL,
			frames INTEGER NOT NULL,
			total_ms INTEGER NOT NULL,
			shapes INTEGER NOT NULL,
			wang_sets INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS animation_frames (
			tile_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			frame_tile_id INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			PRIMARY KEY (tile_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS shapes (
			tile_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			w REAL NOT NULL,
			h REAL NOT NULL,
			PRIMARY KEY (tile_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS wang_tiles (
			set_name TEXT NOT NULL,
			tile_id INTEGER NOT NULL,
			wangid TEXT NOT NULL,
			PRIMARY KEY (set_name, tile_id)
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			elapsed_ms INTEGER NOT NULL,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			catalog_digest TEXT NOT NULL,
			digest TEXT NOT NULL,
			tracks INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropFrameTotal:    s.dropFrame.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) WriteFrame(entry persistlog.FrameLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqFrame, frame: entry}:
	default:
		s.dropFrame.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.ClockV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Tick:          snap.Header.Tick,
		Path:          path,
		CatalogDigest: snap.CatalogDigest,
		Digest:        snap.Digest,
		Tracks:        len(snap.Elapsed),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// UpsertCatalog replaces the catalog tables with cat. It runs synchronously so tools
// can query the catalog as soon as the run starts. The stored description is the one
// cat was parsed from, so it always matches cat.Digest().
func (s *SQLiteIndex) UpsertCatalog(cat *catalogs.Catalog, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	raw := cat.Raw()
	tb, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(tb)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('tileset',?)`, cat.Name()); err != nil {
		return err
	}
	for _, r := range []struct {
		name, digest, json string
	}{
		{"tileset", cat.Digest(), string(raw)},
		{"tuning", hex.EncodeToString(sum[:]), string(tb)},
	} {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`, r.name, r.digest, r.json, now); err != nil {
			return err
		}
	}

	for _, table := range []string{"tiles", "animation_frames", "shapes", "wang_tiles"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return err
		}
	}

	insertTile, err := tx.Prepare(`INSERT INTO tiles(tile_id,type,probability,frames,total_ms,shapes,wang_sets) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer insertTile.Close()
	insertFrame, err := tx.Prepare(`INSERT INTO animation_frames(tile_id,seq,frame_tile_id,duration_ms) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer insertFrame.Close()
	insertShape, err := tx.Prepare(`INSERT INTO shapes(tile_id,seq,x,y,w,h) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer insertShape.Close()

	for id := 0; id < cat.TileCount(); id++ {
		def, err := cat.Lookup(id)
		if err != nil {
			return err
		}
		var frames int
		var total int64
		if def.Animation != nil {
			frames = len(def.Animation.Frames)
			total = def.Animation.TotalMs
			for i, f := range def.Animation.Frames {
				if _, err := insertFrame.Exec(id, i, f.TileID, f.DurationMs); err != nil {
					return err
				}
			}
		}
		var shapes int
		if def.Collision != nil {
			shapes = len(def.Collision.Shapes)
			for i, r := range def.Collision.Shapes {
				if _, err := insertShape.Exec(id, i, r.X, r.Y, r.W, r.H); err != nil {
					return err
				}
			}
		}
		if _, err := insertTile.Exec(id, def.Type, def.Probability, frames, total, shapes, len(def.Wang)); err != nil {
			return err
		}
	}

	for _, set := range cat.WangSets() {
		for _, wt := range set.Tiles {
			b, _ := json.Marshal(wt.WangID)
			if _, err := tx.Exec(`INSERT OR REPLACE INTO wang_tiles(set_name,tile_id,wangid) VALUES(?,?,?)`, set.Name, wt.TileID, string(b)); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,elapsed_ms,digest,raw_json) VALUES(?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,path,catalog_digest,digest,tracks) VALUES(?,?,?,?,?)`)
	defer func() {
		if insertTick != nil {
			_ = insertTick.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqFrame:
			if insertTick == nil {
				continue
			}
			b, _ := json.Marshal(r.frame)
			if _, err := tx.Stmt(insertTick).Exec(int64(r.frame.Tick), r.frame.ElapsedMs, r.frame.Digest, string(b)); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqSnapshot:
			if insertSnapshot == nil {
				continue
			}
			sn := r.snapshot
			if _, err := tx.Stmt(insertSnapshot).Exec(int64(sn.Tick), sn.Path, sn.CatalogDigest, sn.Digest, sn.Tracks); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
