package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
)

type Format int

const (
	FormatTSX Format = iota + 1
	FormatJSON
)

// FormatFor picks the description format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx", ".xml":
		return FormatTSX, nil
	case ".json", ".tsj":
		return FormatJSON, nil
	}
	return 0, parseErr("path", fmt.Errorf("unsupported tileset extension %q", filepath.Ext(path)))
}

// Compass slots of a WangID.
const (
	N = iota
	NE
	E
	SE
	S
	SW
	W
	NW

	WangSlots
)

// WangID holds one terrain colour per compass slot. 0 is a wildcard.
type WangID [WangSlots]int

type Frame struct {
	TileID     int `json:"tile_id"`
	DurationMs int `json:"duration_ms"`
}

type Animation struct {
	Frames  []Frame `json:"frames"`
	TotalMs int64   `json:"total_ms"`
}

// Rect is a collision rectangle in tile-local pixels. Offsets may be negative and
// extents may overhang the tile.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type Collision struct {
	DrawOrder string `json:"draw_order"` // "index" or "topdown"
	Shapes    []Rect `json:"shapes"`
}

type WangAssignment struct {
	Set int    `json:"set"`
	ID  WangID `json:"wang_id"`
}

// TileDef is one entry of the catalog. Optional parts are nil when the description
// declares nothing for the tile. Values handed out by the catalog are copies.
type TileDef struct {
	ID          int              `json:"id"`
	Type        string           `json:"type,omitempty"`
	Probability float64          `json:"probability"`
	Animation   *Animation       `json:"animation,omitempty"`
	Collision   *Collision       `json:"collision,omitempty"`
	Wang        []WangAssignment `json:"wang,omitempty"`
}

func (t TileDef) IsAnimated() bool { return t.Animation != nil }

func (t TileDef) HasShapes() bool { return t.Collision != nil && len(t.Collision.Shapes) > 0 }

func (t TileDef) clone() TileDef {
	if t.Animation != nil {
		a := *t.Animation
		a.Frames = append([]Frame(nil), a.Frames...)
		t.Animation = &a
	}
	if t.Collision != nil {
		col := *t.Collision
		col.Shapes = append([]Rect(nil), col.Shapes...)
		t.Collision = &col
	}
	if t.Wang != nil {
		t.Wang = append([]WangAssignment(nil), t.Wang...)
	}
	return t
}

type WangColor struct {
	ID          int     `json:"id"` // 1-based, as referenced by WangID slots
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Tile        int     `json:"tile"`
	Probability float64 `json:"probability"`
}

type WangTile struct {
	TileID int    `json:"tile_id"`
	WangID WangID `json:"wang_id"`
}

type WangSet struct {
	Index  int         `json:"index"`
	Name   string      `json:"name"`
	Type   string      `json:"type"` // "corner", "edge" or "mixed"
	Tile   int         `json:"tile"`
	Colors []WangColor `json:"colors"`
	Tiles  []WangTile  `json:"tiles"`
}

// Color returns the colour with the given 1-based id.
func (s WangSet) Color(id int) (WangColor, bool) {
	if id < 1 || id > len(s.Colors) {
		return WangColor{}, false
	}
	return s.Colors[id-1], true
}

func (s WangSet) clone() WangSet {
	s.Colors = append([]WangColor(nil), s.Colors...)
	s.Tiles = append([]WangTile(nil), s.Tiles...)
	return s
}

type Image struct {
	Source   string     `json:"source"`
	Trans    string     `json:"trans,omitempty"`
	ColorKey color.RGBA `json:"-"`
	HasKey   bool       `json:"-"`
	Width    int        `json:"width"`
	Height   int        `json:"height"`
}

// Catalog is the immutable, index-addressed table of tile definitions built from one
// tileset description. Safe for concurrent reads.
type Catalog struct {
	name       string
	tileWidth  int
	tileHeight int
	columns    int
	margin     int
	spacing    int
	image      Image
	fallback   int

	tiles    []TileDef
	animated []int
	wangSets []WangSet

	raw    []byte
	digest string
}

// Load reads and validates a tileset description from disk.
func Load(path string) (*Catalog, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return c, nil
}

// Parse decodes and validates a description. Every invariant is checked before the
// catalog is returned.
func Parse(raw []byte, format Format) (*Catalog, error) {
	var (
		d   *description
		err error
	)
	switch format {
	case FormatTSX:
		d, err = decodeTSX(raw)
	case FormatJSON:
		d, err = decodeJSON(raw)
	default:
		err = parseErr("format", fmt.Errorf("unknown format %d", format))
	}
	if err != nil {
		return nil, err
	}
	c, err := build(d)
	if err != nil {
		return nil, err
	}
	c.raw = append([]byte(nil), raw...)
	c.digest = sha256Hex(c.raw)
	return c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Lookup returns a copy of the definition of a tile id in O(1).
func (c *Catalog) Lookup(id int) (TileDef, error) {
	if id < 0 || id >= len(c.tiles) {
		return TileDef{}, LookupError(id)
	}
	return c.tiles[id].clone(), nil
}

// Has reports whether id is a tile of the catalog.
func (c *Catalog) Has(id int) bool { return id >= 0 && id < len(c.tiles) }

func (c *Catalog) Name() string       { return c.name }
func (c *Catalog) TileCount() int     { return len(c.tiles) }
func (c *Catalog) TileWidth() int     { return c.tileWidth }
func (c *Catalog) TileHeight() int    { return c.tileHeight }
func (c *Catalog) Columns() int       { return c.columns }
func (c *Catalog) Image() Image       { return c.image }
func (c *Catalog) Digest() string     { return c.digest }
func (c *Catalog) FallbackTileID() int { return c.fallback }

// Raw returns a copy of the description the catalog was built from. Digest is its
// sha256.
func (c *Catalog) Raw() []byte { return append([]byte(nil), c.raw...) }

// Animated returns the ids of animated tiles in ascending order.
func (c *Catalog) Animated() []int {
	out := make([]int, len(c.animated))
	copy(out, c.animated)
	return out
}

func (c *Catalog) WangSets() []WangSet {
	out := make([]WangSet, len(c.wangSets))
	for i, s := range c.wangSets {
		out[i] = s.clone()
	}
	return out
}

func (c *Catalog) WangSet(name string) (WangSet, bool) {
	for _, s := range c.wangSets {
		if s.Name == name {
			return s.clone(), true
		}
	}
	return WangSet{}, false
}

// SourceRect is the pixel rectangle of a tile inside the atlas image.
func (c *Catalog) SourceRect(id int) (image.Rectangle, error) {
	if !c.Has(id) {
		return image.Rectangle{}, LookupError(id)
	}
	if c.columns <= 0 {
		return image.Rectangle{}, validationErr(id, "columns", "tileset has no atlas grid")
	}
	col, row := id%c.columns, id/c.columns
	x := c.margin + col*(c.tileWidth+c.spacing)
	y := c.margin + row*(c.tileHeight+c.spacing)
	return image.Rect(x, y, x+c.tileWidth, y+c.tileHeight), nil
}
