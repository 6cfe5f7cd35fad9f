package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tilecraft.ai/internal/tileset/catalogs"
	"tilecraft.ai/internal/tileset/collision"
	"tilecraft.ai/internal/tileset/wang"
)

func loadTileset(path string) *catalogs.Catalog {
	cat, err := catalogs.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load tileset [%s]: %v\n", catalogs.Code(err), err)
		os.Exit(1)
	}
	return cat
}

type lookupOut struct {
	Tile       catalogs.TileDef `json:"tile"`
	SourceRect [4]int           `json:"source_rect"`
	Shapes     []catalogs.Rect  `json:"shapes"`
}

func lookupCmd(args []string) {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	tilesetPath := fs.String("tileset", "./configs/tilesets/heartgold.tsx", "tileset description")
	id := fs.Int("id", 0, "tile id")
	_ = fs.Parse(args)

	out, err := lookup(loadTileset(*tilesetPath), *id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lookup [%s]: %v\n", catalogs.Code(err), err)
		os.Exit(1)
	}
	printJSON(out)
}

func lookup(cat *catalogs.Catalog, id int) (lookupOut, error) {
	def, err := cat.Lookup(id)
	if err != nil {
		return lookupOut{}, err
	}
	rect, err := cat.SourceRect(id)
	if err != nil {
		return lookupOut{}, err
	}
	shapes, err := collision.NewIndex(cat).ShapesFor(id)
	if err != nil {
		return lookupOut{}, err
	}
	return lookupOut{
		Tile:       def,
		SourceRect: [4]int{rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy()},
		Shapes:     shapes,
	}, nil
}

type resolveOut struct {
	Set        string           `json:"set"`
	Candidates []wang.Candidate `json:"candidates"`
	TileID     int              `json:"tile_id"`
	Fallback   bool             `json:"fallback,omitempty"`
}

func resolveCmd(args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	tilesetPath := fs.String("tileset", "./configs/tilesets/heartgold.tsx", "tileset description")
	set := fs.String("set", "", "wang set name (default: first)")
	seed := fs.Int64("seed", 1337, "wang seed")
	n := fs.String("n", "", "neighborhood colours N,NE,E,SE,S,SW,W,NW")
	x := fs.Int("x", 0, "cell x")
	y := fs.Int("y", 0, "cell y")
	_ = fs.Parse(args)

	nb, err := parseNeighborhood(*n)
	if err != nil {
		fmt.Fprintln(os.Stderr, "resolve:", err)
		os.Exit(2)
	}
	r, err := wang.NewResolver(loadTileset(*tilesetPath), wang.WithSet(*set), wang.WithSeed(*seed))
	if err != nil {
		fmt.Fprintln(os.Stderr, "resolve:", err)
		os.Exit(1)
	}
	printJSON(resolve(r, nb, *x, *y))
}

func resolve(r *wang.Resolver, n wang.Neighborhood, x, y int) resolveOut {
	out := resolveOut{Set: r.SetName(), Candidates: r.Match(n)}
	id, err := r.ResolveAt(n, x, y)
	if errors.Is(err, wang.ErrNoMatch) {
		out.TileID = r.FallbackTileID()
		out.Fallback = true
		return out
	}
	out.TileID = id
	return out
}

func parseNeighborhood(s string) (wang.Neighborhood, error) {
	var n wang.Neighborhood
	parts := strings.Split(s, ",")
	if len(parts) != len(n) {
		return n, fmt.Errorf("neighborhood needs %d comma-separated colours, got %q", len(n), s)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return n, fmt.Errorf("bad colour %q at slot %d", p, i)
		}
		n[i] = v
	}
	return n, nil
}
