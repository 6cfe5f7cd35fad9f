package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tilecraft.ai/internal/persistence/indexdb"
	persistlog "tilecraft.ai/internal/persistence/log"
	"tilecraft.ai/internal/tileset/catalogs"
	"tilecraft.ai/internal/tileset/collision"
	"tilecraft.ai/internal/tileset/tilemap"
	"tilecraft.ai/internal/tileset/tuning"
	"tilecraft.ai/internal/tileset/wang"
)

func main() {
	var (
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		runID      = flag.String("run", "run_1", "run id")
		ticks      = flag.Int("ticks", 200, "number of ticks to simulate")
		realtime   = flag.Bool("realtime", false, "pace ticks at tick_ms wall-clock intervals")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index")
		gridW      = flag.Int("grid_w", 12, "width of the printed autotile sample")
		gridH      = flag.Int("grid_h", 6, "height of the printed autotile sample")

		snapPath   = flag.String("snapshot", "", "path to snapshot to resume from (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", false, "resume from the latest snapshot of the run when -snapshot is empty")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[tilesim] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	cat, err := catalogs.Load(tune.Tileset)
	if err != nil {
		logger.Fatalf("load tileset: %v", err)
	}
	logger.Printf("tileset %q: %d tiles, %d animated, %d wang sets, digest=%s",
		cat.Name(), cat.TileCount(), len(cat.Animated()), len(cat.WangSets()), cat.Digest()[:12])

	opts := []wang.Option{wang.WithSet(tune.Wang.Set), wang.WithSeed(tune.Wang.Seed)}
	if tune.FallbackTileID != nil {
		opts = append(opts, wang.WithFallback(*tune.FallbackTileID))
	}
	resolver, err := wang.NewResolver(cat, opts...)
	if err != nil {
		logger.Fatalf("wang: %v", err)
	}
	shapes := collision.NewIndex(cat)

	runDir := filepath.Join(*dataDir, "runs", *runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		logger.Fatalf("run dir: %v", err)
	}

	r := newRunner(cat, tune, runDir, logger)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(runDir, "index", "tiles.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalog(cat, tune); err != nil {
			logger.Printf("index: upsert catalog: %v", err)
		}
		r.snaps = idx
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(runDir)
	}
	if snapshotToLoad != "" {
		if err := r.resume(snapshotToLoad); err != nil {
			logger.Fatalf("resume: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), r.tick)
	}

	var frames frameWriter
	if tune.Trace.Enabled {
		trace := persistlog.NewFrameLogger(runDir)
		defer trace.Close()
		frames = trace
	}
	if idx != nil {
		frames = multiFrameWriter{a: frames, b: idx}
	}
	r.frames = frames

	ctx, cancel := signalContext()
	defer cancel()

	var pace <-chan time.Time
	if *realtime {
		t := time.NewTicker(time.Duration(tune.TickMs) * time.Millisecond)
		defer t.Stop()
		pace = t.C
	}

	start := time.Now()
loop:
	for i := 0; i < *ticks; i++ {
		if pace != nil {
			select {
			case <-ctx.Done():
				break loop
			case <-pace:
			}
		} else if ctx.Err() != nil {
			break
		}
		if err := r.step(); err != nil {
			logger.Fatalf("tick %d: %v", r.tick+1, err)
		}
	}
	logger.Printf("ran to tick=%d elapsed_ms=%d in %s digest=%s", r.tick, r.elapsedMs, time.Since(start).Round(time.Millisecond), r.clock.Digest()[:12])

	if path, err := r.snapshot(); err != nil {
		logger.Printf("final snapshot: %v", err)
	} else {
		logger.Printf("snapshot=%s", path)
	}

	for _, id := range cat.Animated() {
		logger.Printf("tile %d shows %d", id, r.clock.FrameOr(id))
	}
	solid := 0
	for id := 0; id < cat.TileCount(); id++ {
		if s, _ := shapes.ShapesFor(id); len(s) > 0 {
			solid++
		}
	}
	logger.Printf("%d tiles carry collision geometry", solid)

	grid := resolver.Fill(sampleTerrain(*gridW, *gridH))
	m, err := tilemap.New(cat.Name(), resolver.SetName(), tune.Wang.Seed, grid)
	if err != nil {
		logger.Fatalf("tilemap: %v", err)
	}
	if err := tilemap.Write(filepath.Join(runDir, "map.json"), m); err != nil {
		logger.Printf("tilemap write: %v", err)
	}
	printGrid(grid)
}

// sampleTerrain is a field of colour 1 with an unpainted border, so edge cells exercise
// the fallback.
func sampleTerrain(w, h int) [][]int {
	out := make([][]int, h)
	for y := range out {
		out[y] = make([]int, w)
		for x := range out[y] {
			if x > 0 && y > 0 && x < w-1 && y < h-1 {
				out[y][x] = 1
			}
		}
	}
	return out
}

func printGrid(grid [][]int) {
	for _, row := range grid {
		cells := make([]string, len(row))
		for i, id := range row {
			cells[i] = fmt.Sprintf("%4d", id)
		}
		fmt.Println(strings.Join(cells, ""))
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
