package catalogs

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"strings"
)

func build(d *description) (*Catalog, error) {
	if d.TileWidth <= 0 {
		return nil, validationErr(NoTile, "tilewidth", "must be positive, got %d", d.TileWidth)
	}
	if d.TileHeight <= 0 {
		return nil, validationErr(NoTile, "tileheight", "must be positive, got %d", d.TileHeight)
	}
	if d.TileCount <= 0 {
		return nil, validationErr(NoTile, "tilecount", "must be positive, got %d", d.TileCount)
	}
	if d.Columns < 0 || d.Margin < 0 || d.Spacing < 0 {
		return nil, validationErr(NoTile, "columns", "grid values must not be negative (columns=%d margin=%d spacing=%d)", d.Columns, d.Margin, d.Spacing)
	}

	c := &Catalog{
		name:       d.Name,
		tileWidth:  d.TileWidth,
		tileHeight: d.TileHeight,
		columns:    d.Columns,
		margin:     d.Margin,
		spacing:    d.Spacing,
		image:      d.Image,
		tiles:      make([]TileDef, d.TileCount),
	}
	if d.Image.Trans != "" {
		key, err := parseColorKey(d.Image.Trans)
		if err != nil {
			return nil, parseErr("image.trans", err)
		}
		c.image.ColorKey = key
		c.image.HasKey = true
	}
	for i := range c.tiles {
		c.tiles[i] = TileDef{ID: i, Probability: 1}
	}

	declared := make([]bool, d.TileCount)
	for _, td := range d.Tiles {
		if td.ID < 0 || td.ID >= d.TileCount {
			return nil, validationErr(td.ID, "id", "outside tileset of %d tiles", d.TileCount)
		}
		if declared[td.ID] {
			return nil, validationErr(td.ID, "id", "duplicate tile id")
		}
		declared[td.ID] = true

		t := &c.tiles[td.ID]
		t.Type = td.Type
		if td.Probability != nil {
			if *td.Probability < 0 {
				return nil, validationErr(td.ID, "probability", "must not be negative, got %v", *td.Probability)
			}
			t.Probability = *td.Probability
		}
		if td.HasAnimation {
			anim, err := buildAnimation(td, d.TileCount)
			if err != nil {
				return nil, err
			}
			t.Animation = anim
		}
		if td.HasShapes {
			order := td.DrawOrder
			switch order {
			case "":
				order = "topdown"
			case "index", "topdown":
			default:
				return nil, validationErr(td.ID, "objectgroup.draworder", "unknown draw order %q", order)
			}
			shapes := make([]Rect, 0, len(td.Shapes))
			for _, sh := range td.Shapes {
				if sh.Kind != "" {
					return nil, validationErr(td.ID, fmt.Sprintf("objectgroup.object[%d]", sh.Object),
						"%s objects are not supported, only rectangles", sh.Kind)
				}
				shapes = append(shapes, sh.Rect)
			}
			t.Collision = &Collision{DrawOrder: order, Shapes: shapes}
		}
	}

	for i, sd := range d.WangSets {
		set, err := buildWangSet(i, sd, d.TileCount)
		if err != nil {
			return nil, err
		}
		for _, wt := range set.Tiles {
			t := &c.tiles[wt.TileID]
			t.Wang = append(t.Wang, WangAssignment{Set: i, ID: wt.WangID})
		}
		c.wangSets = append(c.wangSets, set)
	}

	if d.Fallback != nil {
		if *d.Fallback < 0 || *d.Fallback >= d.TileCount {
			return nil, referenceErr(*d.Fallback, "properties."+fallbackProperty, "fallback tile outside tileset of %d tiles", d.TileCount)
		}
		c.fallback = *d.Fallback
	}

	for i := range c.tiles {
		if c.tiles[i].Animation != nil {
			c.animated = append(c.animated, i)
		}
	}
	return c, nil
}

func buildAnimation(td tileDesc, tileCount int) (*Animation, error) {
	if len(td.Frames) < 2 {
		return nil, validationErr(td.ID, "animation", "needs at least 2 frames, got %d", len(td.Frames))
	}
	anim := &Animation{Frames: make([]Frame, len(td.Frames))}
	for i, f := range td.Frames {
		if f.DurationMs <= 0 {
			return nil, validationErr(td.ID, fmt.Sprintf("animation[%d].duration", i), "must be positive, got %d", f.DurationMs)
		}
		if f.TileID < 0 || f.TileID >= tileCount {
			return nil, referenceErr(td.ID, fmt.Sprintf("animation[%d].tileid", i), "frame tile %d not in tileset", f.TileID)
		}
		anim.Frames[i] = f
		anim.TotalMs += int64(f.DurationMs)
	}
	return anim, nil
}

func buildWangSet(index int, sd wangSetDesc, tileCount int) (WangSet, error) {
	prefix := fmt.Sprintf("wangsets[%d]", index)
	set := WangSet{
		Index: index,
		Name:  sd.Name,
		Type:  sd.Type,
		Tile:  sd.Tile,
	}
	switch set.Type {
	case "":
		set.Type = "mixed"
	case "corner", "edge", "mixed":
	default:
		return WangSet{}, validationErr(NoTile, prefix+".type", "unknown wang set type %q", set.Type)
	}
	if set.Tile != -1 && (set.Tile < 0 || set.Tile >= tileCount) {
		return WangSet{}, referenceErr(set.Tile, prefix+".tile", "wang set tile not in tileset")
	}

	for i, wc := range sd.Colors {
		if wc.Probability < 0 {
			return WangSet{}, validationErr(NoTile, fmt.Sprintf("%s.colors[%d].probability", prefix, i), "must not be negative, got %v", wc.Probability)
		}
		if wc.Tile != -1 && (wc.Tile < 0 || wc.Tile >= tileCount) {
			return WangSet{}, referenceErr(wc.Tile, fmt.Sprintf("%s.colors[%d].tile", prefix, i), "wang color tile not in tileset")
		}
		wc.ID = i + 1
		set.Colors = append(set.Colors, wc)
	}

	seen := make(map[int]struct{}, len(sd.Tiles))
	for j, wt := range sd.Tiles {
		field := fmt.Sprintf("%s.wangtiles[%d]", prefix, j)
		if wt.TileID < 0 || wt.TileID >= tileCount {
			return WangSet{}, referenceErr(wt.TileID, field+".tileid", "wang tile not in tileset")
		}
		if _, dup := seen[wt.TileID]; dup {
			return WangSet{}, validationErr(wt.TileID, field+".tileid", "tile assigned twice in wang set %q", sd.Name)
		}
		seen[wt.TileID] = struct{}{}
		if len(wt.Slots) != WangSlots {
			return WangSet{}, validationErr(wt.TileID, field+".wangid", "want %d slots, got %d", WangSlots, len(wt.Slots))
		}
		var id WangID
		for k, v := range wt.Slots {
			if v < 0 {
				return WangSet{}, validationErr(wt.TileID, field+".wangid", "negative color %d in slot %d", v, k)
			}
			if v > len(set.Colors) {
				return WangSet{}, referenceErr(wt.TileID, field+".wangid", "color %d in slot %d not declared (set has %d)", v, k, len(set.Colors))
			}
			id[k] = v
		}
		set.Tiles = append(set.Tiles, WangTile{TileID: wt.TileID, WangID: id})
	}
	return set, nil
}

// parseColorKey reads a Tiled colour key, "ffffff" or "#ffffff".
func parseColorKey(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("color key %q: want 6 hex digits", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color key %q: %w", s, err)
	}
	return color.RGBA{R: b[0], G: b[1], B: b[2], A: 0xff}, nil
}
