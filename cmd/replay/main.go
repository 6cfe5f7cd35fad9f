package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	persistlog "tilecraft.ai/internal/persistence/log"
	"tilecraft.ai/internal/persistence/snapshot"
	"tilecraft.ai/internal/tileset/anim"
	"tilecraft.ai/internal/tileset/catalogs"
)

func main() {
	var (
		tilesetPath = flag.String("tileset", "./configs/tilesets/heartgold.tsx", "tileset description the run used")
		snapPath    = flag.String("snapshot", "", "path to .snap.zst to start from (optional; default tick 0)")
		framesDir   = flag.String("frames", "", "frames dir containing frames-*.jsonl.zst")
		fromTick    = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick      = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	if *framesDir == "" {
		fmt.Fprintln(os.Stderr, "missing -frames")
		os.Exit(2)
	}

	cat, err := catalogs.Load(*tilesetPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tileset:", err)
		os.Exit(1)
	}

	rp := &replayer{clock: anim.NewClock(cat), toTick: *toTick}
	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		if err := rp.start(cat, snap); err != nil {
			fmt.Fprintln(os.Stderr, "snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d tileset=%s tick=%d tracks=%d\n", snap.Header.Version, snap.Header.Tileset, snap.Header.Tick, len(snap.Elapsed))
	}
	rp.verifyFrom = *fromTick
	if rp.verifyFrom == 0 {
		rp.verifyFrom = rp.tick + 1
	}

	files, err := persistlog.ListFrameFiles(*framesDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list frames:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no frames files found in", *framesDir)
		os.Exit(1)
	}

	startTick := rp.tick
	for _, path := range files {
		if err := persistlog.ReadFrames(path, rp.apply); err != nil {
			if errors.Is(err, errDone) {
				break
			}
			fmt.Fprintf(os.Stderr, "replay %s: %v\n", filepath.Base(path), err)
			os.Exit(1)
		}
	}
	fmt.Printf("replay ok: checked=%d ticks (from tick=%d)\n", rp.checked, startTick)
}
