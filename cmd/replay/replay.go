package main

import (
	"errors"
	"fmt"

	persistlog "tilecraft.ai/internal/persistence/log"
	"tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/tileset/anim"
	"tilecraft.ai/internal/tileset/catalogs"
)

var errDone = errors.New("replay: reached to_tick")

type replayer struct {
	clock *anim.Clock

	tick      uint64
	elapsedMs int64

	verifyFrom uint64
	toTick     uint64
	checked    uint64
}

func (rp *replayer) start(cat *catalogs.Catalog, snap snapshot.ClockV1) error {
	if err := snap.Check(cat.Digest()); err != nil {
		return err
	}
	if err := rp.clock.Restore(anim.State{Elapsed: snap.Elapsed}); err != nil {
		return err
	}
	rp.tick = snap.Header.Tick
	rp.elapsedMs = int64(snap.Header.Tick) * snap.TickMs
	return nil
}

// apply advances the clock by the entry's elapsed delta and compares frame digests.
func (rp *replayer) apply(entry persistlog.FrameLogEntry) error {
	if entry.Tick <= rp.tick {
		return nil
	}
	if rp.toTick != 0 && entry.Tick > rp.toTick {
		return errDone
	}
	if entry.Tick != rp.tick+1 {
		return fmt.Errorf("tick gap: want=%d got=%d", rp.tick+1, entry.Tick)
	}
	if err := rp.clock.Advance(entry.ElapsedMs - rp.elapsedMs); err != nil {
		return fmt.Errorf("tick %d: %w", entry.Tick, err)
	}
	rp.tick = entry.Tick
	rp.elapsedMs = entry.ElapsedMs

	if rp.tick >= rp.verifyFrom {
		rp.checked++
		if got := rp.clock.Digest(); got != entry.Digest {
			return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", rp.tick, got, entry.Digest)
		}
	}
	return nil
}
