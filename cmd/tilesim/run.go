package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	persistlog "tilecraft.ai/internal/persistence/log"
	"tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/tileset/anim"
	"tilecraft.ai/internal/tileset/catalogs"
	"tilecraft.ai/internal/tileset/tuning"
)

type frameWriter interface {
	WriteFrame(persistlog.FrameLogEntry) error
}

type snapshotRecorder interface {
	RecordSnapshot(path string, snap snapshot.ClockV1)
}

type multiFrameWriter struct {
	a frameWriter
	b frameWriter
}

func (m multiFrameWriter) WriteFrame(entry persistlog.FrameLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteFrame(entry)
	}
	if m.b != nil {
		_ = m.b.WriteFrame(entry)
	}
	return nil
}

// runner drives the animation clock one fixed tick at a time. It is the clock's only
// writer.
type runner struct {
	cat    *catalogs.Catalog
	clock  *anim.Clock
	tune   tuning.Tuning
	runDir string
	logger *log.Logger

	tick      uint64
	elapsedMs int64

	frames frameWriter
	snaps  snapshotRecorder
}

func newRunner(cat *catalogs.Catalog, tune tuning.Tuning, runDir string, logger *log.Logger) *runner {
	return &runner{
		cat:    cat,
		clock:  anim.NewClock(cat),
		tune:   tune,
		runDir: runDir,
		logger: logger,
	}
}

// resume restores clock state from a snapshot taken against the same catalog.
func (r *runner) resume(path string) error {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return err
	}
	if err := snap.Check(r.cat.Digest()); err != nil {
		return err
	}
	if err := r.clock.Restore(anim.State{Elapsed: snap.Elapsed}); err != nil {
		return err
	}
	if got := r.clock.Digest(); got != snap.Digest {
		return fmt.Errorf("snapshot %s: frame digest mismatch after restore: got=%s want=%s", filepath.Base(path), got, snap.Digest)
	}
	r.tick = snap.Header.Tick
	r.elapsedMs = int64(snap.Header.Tick) * snap.TickMs
	return nil
}

func (r *runner) step() error {
	if err := r.clock.Advance(r.tune.TickMs); err != nil {
		return err
	}
	r.tick++
	r.elapsedMs += r.tune.TickMs

	if r.frames != nil {
		if err := r.frames.WriteFrame(persistlog.FrameLogEntry{
			Tick:      r.tick,
			ElapsedMs: r.elapsedMs,
			Frames:    r.clock.Frames(),
			Digest:    r.clock.Digest(),
		}); err != nil {
			r.logger.Printf("frame trace: %v", err)
		}
	}
	if every := r.tune.SnapshotEveryTicks; every > 0 && r.tick%uint64(every) == 0 {
		if _, err := r.snapshot(); err != nil {
			r.logger.Printf("snapshot write: %v", err)
		}
	}
	return nil
}

func (r *runner) snapshot() (string, error) {
	snap := snapshot.ClockV1{
		Header:        snapshot.Header{Tileset: r.cat.Name(), Tick: r.tick},
		CatalogDigest: r.cat.Digest(),
		TickMs:        r.tune.TickMs,
		WangSeed:      r.tune.Wang.Seed,
		Elapsed:       r.clock.State().Elapsed,
		Digest:        r.clock.Digest(),
	}
	path := snapshot.Path(snapshotDir(r.runDir), r.tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	if r.snaps != nil {
		r.snaps.RecordSnapshot(path, snap)
	}
	return path, nil
}

func snapshotDir(runDir string) string { return filepath.Join(runDir, "snapshots") }

func latestSnapshot(runDir string) string {
	dir := snapshotDir(runDir)
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}
