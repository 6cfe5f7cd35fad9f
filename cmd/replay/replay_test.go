package main

import (
	"errors"
	"testing"

	persistlog "tilecraft.ai/internal/persistence/log"
	"tilecraft.ai/internal/tileset/anim"
	"tilecraft.ai/internal/tileset/catalogs"
)

func recordTrace(t *testing.T, cat *catalogs.Catalog, steps []int64) []persistlog.FrameLogEntry {
	t.Helper()
	c := anim.NewClock(cat)
	var out []persistlog.FrameLogEntry
	var elapsed int64
	for i, ms := range steps {
		if err := c.Advance(ms); err != nil {
			t.Fatalf("advance: %v", err)
		}
		elapsed += ms
		out = append(out, persistlog.FrameLogEntry{Tick: uint64(i + 1), ElapsedMs: elapsed, Frames: c.Frames(), Digest: c.Digest()})
	}
	return out
}

func TestReplayer_VerifiesDigests(t *testing.T) {
	cat, err := catalogs.Load("../../configs/tilesets/heartgold.tsx")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Uneven steps: the replay takes each delta from the trace, not a fixed tick.
	entries := recordTrace(t, cat, []int64{300, 700, 50, 1950, 1000, 1})

	rp := &replayer{clock: anim.NewClock(cat), verifyFrom: 1}
	for _, e := range entries {
		if err := rp.apply(e); err != nil {
			t.Fatalf("apply tick %d: %v", e.Tick, err)
		}
	}
	if rp.checked != uint64(len(entries)) {
		t.Fatalf("checked=%d", rp.checked)
	}

	tampered := recordTrace(t, cat, []int64{300, 700})
	tampered[1].Digest = "bogus"
	rp = &replayer{clock: anim.NewClock(cat), verifyFrom: 1}
	_ = rp.apply(tampered[0])
	if err := rp.apply(tampered[1]); err == nil {
		t.Fatalf("expected digest mismatch")
	}
}

func TestReplayer_GapAndStop(t *testing.T) {
	cat, err := catalogs.Load("../../configs/tilesets/heartgold.tsx")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	entries := recordTrace(t, cat, []int64{100, 100, 100})

	rp := &replayer{clock: anim.NewClock(cat), verifyFrom: 1}
	_ = rp.apply(entries[0])
	if err := rp.apply(entries[2]); err == nil {
		t.Fatalf("expected tick gap error")
	}

	rp = &replayer{clock: anim.NewClock(cat), verifyFrom: 1, toTick: 1}
	_ = rp.apply(entries[0])
	if err := rp.apply(entries[1]); !errors.Is(err, errDone) {
		t.Fatalf("want errDone, got %v", err)
	}
}
