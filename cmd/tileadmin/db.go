package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	runID := fs.String("run", "", "run id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	tile := fs.Int("tile", -1, "tile id filter (animations, shapes, wang)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "tiles"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*runID) == "" {
			fmt.Fprintln(os.Stderr, "missing -run or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "runs", *runID, "index", "tiles.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	rows, err := query(db, q, *tile, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, q+":", err)
		os.Exit(1)
	}
	for _, r := range rows {
		printJSON(r)
	}
}

type tileRow struct {
	TileID      int     `json:"tile_id"`
	Type        string  `json:"type,omitempty"`
	Probability float64 `json:"probability"`
	Frames      int     `json:"frames"`
	TotalMs     int64   `json:"total_ms"`
	Shapes      int     `json:"shapes"`
	WangSets    int     `json:"wang_sets"`
}

type frameRow struct {
	TileID      int `json:"tile_id"`
	Seq         int `json:"seq"`
	FrameTileID int `json:"frame_tile_id"`
	DurationMs  int `json:"duration_ms"`
}

type shapeRow struct {
	TileID int     `json:"tile_id"`
	Seq    int     `json:"seq"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	W      float64 `json:"w"`
	H      float64 `json:"h"`
}

type wangRow struct {
	Set    string `json:"set"`
	TileID int    `json:"tile_id"`
	WangID string `json:"wangid"`
}

type tickRow struct {
	Tick      int64  `json:"tick"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Digest    string `json:"digest"`
}

type snapshotRow struct {
	Tick          int64  `json:"tick"`
	Path          string `json:"path"`
	CatalogDigest string `json:"catalog_digest"`
	Digest        string `json:"digest"`
	Tracks        int    `json:"tracks"`
}

// query runs one of the named read-model queries. tile < 0 means no tile filter.
func query(db *sql.DB, q string, tile, limit int) ([]any, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		stmt string
		args []any
		scan func(*sql.Rows) (any, error)
	)
	tileFilter := func(base, order string) {
		stmt = base
		if tile >= 0 {
			stmt += ` WHERE tile_id = ?`
			args = append(args, tile)
		}
		stmt += ` ORDER BY ` + order + ` LIMIT ?`
		args = append(args, limit)
	}

	switch q {
	case "tiles":
		// Only tiles carrying metadata; the rest are plain atlas cells.
		stmt = `SELECT tile_id,type,probability,frames,total_ms,shapes,wang_sets FROM tiles
			WHERE frames > 0 OR shapes > 0 OR wang_sets > 0 OR type != '' OR probability != 1
			ORDER BY tile_id LIMIT ?`
		args = []any{limit}
		scan = func(rs *sql.Rows) (any, error) {
			var r tileRow
			err := rs.Scan(&r.TileID, &r.Type, &r.Probability, &r.Frames, &r.TotalMs, &r.Shapes, &r.WangSets)
			return r, err
		}
	case "animations":
		tileFilter(`SELECT tile_id,seq,frame_tile_id,duration_ms FROM animation_frames`, "tile_id, seq")
		scan = func(rs *sql.Rows) (any, error) {
			var r frameRow
			err := rs.Scan(&r.TileID, &r.Seq, &r.FrameTileID, &r.DurationMs)
			return r, err
		}
	case "shapes":
		tileFilter(`SELECT tile_id,seq,x,y,w,h FROM shapes`, "tile_id, seq")
		scan = func(rs *sql.Rows) (any, error) {
			var r shapeRow
			err := rs.Scan(&r.TileID, &r.Seq, &r.X, &r.Y, &r.W, &r.H)
			return r, err
		}
	case "wang":
		tileFilter(`SELECT set_name,tile_id,wangid FROM wang_tiles`, "set_name, tile_id")
		scan = func(rs *sql.Rows) (any, error) {
			var r wangRow
			err := rs.Scan(&r.Set, &r.TileID, &r.WangID)
			return r, err
		}
	case "ticks":
		stmt = `SELECT tick,elapsed_ms,digest FROM ticks ORDER BY tick DESC LIMIT ?`
		args = []any{limit}
		scan = func(rs *sql.Rows) (any, error) {
			var r tickRow
			err := rs.Scan(&r.Tick, &r.ElapsedMs, &r.Digest)
			return r, err
		}
	case "snapshots":
		stmt = `SELECT tick,path,catalog_digest,digest,tracks FROM snapshots ORDER BY tick DESC LIMIT ?`
		args = []any{limit}
		scan = func(rs *sql.Rows) (any, error) {
			var r snapshotRow
			err := rs.Scan(&r.Tick, &r.Path, &r.CatalogDigest, &r.Digest, &r.Tracks)
			return r, err
		}
	default:
		return nil, fmt.Errorf("unknown query %q (tiles, animations, shapes, wang, ticks, snapshots)", q)
	}

	rows, err := db.Query(stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []any
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
