package wang

import "tilecraft.ai/internal/tileset/catalogs"

// compass offsets in WangID slot order.
var compass = [catalogs.WangSlots][2]int{
	catalogs.N:  {0, -1},
	catalogs.NE: {1, -1},
	catalogs.E:  {1, 0},
	catalogs.SE: {1, 1},
	catalogs.S:  {0, 1},
	catalogs.SW: {-1, 1},
	catalogs.W:  {-1, 0},
	catalogs.NW: {-1, -1},
}

// Sample reads the neighborhood of (x,y) from a row-major terrain colour grid. Cells
// outside the grid read as 0.
func Sample(terrain [][]int, x, y int) Neighborhood {
	var n Neighborhood
	for i, d := range compass {
		nx, ny := x+d[0], y+d[1]
		if ny < 0 || ny >= len(terrain) || nx < 0 || nx >= len(terrain[ny]) {
			continue
		}
		n[i] = terrain[ny][nx]
	}
	return n
}

// Fill resolves every cell of a terrain grid, substituting the fallback tile for
// unmatched cells.
func (r *Resolver) Fill(terrain [][]int) [][]int {
	out := make([][]int, len(terrain))
	for y := range terrain {
		out[y] = make([]int, len(terrain[y]))
		for x := range terrain[y] {
			out[y][x] = r.ResolveOr(Sample(terrain, x, y), x, y)
		}
	}
	return out
}
