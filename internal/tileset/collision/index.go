package collision

import (
	"tilecraft.ai/internal/tileset/catalogs"
)

// Index answers collision-geometry queries over an immutable catalog. It holds no
// mutable state and is safe for concurrent use.
type Index struct {
	cat *catalogs.Catalog
}

func NewIndex(cat *catalogs.Catalog) *Index {
	return &Index{cat: cat}
}

// ShapesFor returns the tile's rectangles in declaration order. The result is a copy;
// an empty result means the tile has no geometry. Shapes are a union of regions and
// are never merged or deduplicated.
func (x *Index) ShapesFor(id int) ([]catalogs.Rect, error) {
	def, err := x.cat.Lookup(id)
	if err != nil {
		return nil, err
	}
	if def.Collision == nil {
		return []catalogs.Rect{}, nil
	}
	out := make([]catalogs.Rect, len(def.Collision.Shapes))
	copy(out, def.Collision.Shapes)
	return out, nil
}

// Placed returns the tile's shapes translated to world pixels for a tile drawn at
// grid cell (col,row).
func (x *Index) Placed(id, col, row int) ([]catalogs.Rect, error) {
	shapes, err := x.ShapesFor(id)
	if err != nil {
		return nil, err
	}
	ox := float64(col * x.cat.TileWidth())
	oy := float64(row * x.cat.TileHeight())
	for i := range shapes {
		shapes[i].X += ox
		shapes[i].Y += oy
	}
	return shapes, nil
}

// Collides reports whether r (world pixels) overlaps any shape of the tile placed at
// (col,row). Touching edges do not count.
func (x *Index) Collides(id, col, row int, r catalogs.Rect) (bool, error) {
	shapes, err := x.Placed(id, col, row)
	if err != nil {
		return false, err
	}
	for _, s := range shapes {
		if Overlaps(s, r) {
			return true, nil
		}
	}
	return false, nil
}

// Overlaps is a strict AABB intersection test. Rectangles with negative extents are
// normalised first; zero-area rectangles never overlap anything.
func Overlaps(a, b catalogs.Rect) bool {
	a, b = normalize(a), normalize(b)
	if a.W == 0 || a.H == 0 || b.W == 0 || b.H == 0 {
		return false
	}
	return a.X < b.X+b.W && b.X < a.X+a.W && a.Y < b.Y+b.H && b.Y < a.Y+a.H
}

func normalize(r catalogs.Rect) catalogs.Rect {
	if r.W < 0 {
		r.X += r.W
		r.W = -r.W
	}
	if r.H < 0 {
		r.Y += r.H
		r.H = -r.H
	}
	return r
}
