package catalogs

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

const heartgoldTSX = "../../../configs/tilesets/heartgold.tsx"
const heartgoldJSON = "../../../configs/tilesets/heartgold.tsj"

func TestLoad_Heartgold(t *testing.T) {
	for _, path := range []string{heartgoldTSX, heartgoldJSON} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			c, err := Load(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if c.TileCount() != 5000 || c.TileWidth() != 32 || c.TileHeight() != 32 || c.Columns() != 8 {
				t.Fatalf("geometry: count=%d w=%d h=%d cols=%d", c.TileCount(), c.TileWidth(), c.TileHeight(), c.Columns())
			}
			img := c.Image()
			if !img.HasKey || img.ColorKey != (color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}) {
				t.Fatalf("color key: %+v", img)
			}
			if img.Width != 256 || img.Height != 20000 {
				t.Fatalf("image size: %dx%d", img.Width, img.Height)
			}

			want := []int{384, 385, 392, 393}
			got := c.Animated()
			if len(got) != len(want) {
				t.Fatalf("animated: got %v want %v", got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("animated: got %v want %v", got, want)
				}
			}

			def, err := c.Lookup(384)
			if err != nil {
				t.Fatalf("lookup 384: %v", err)
			}
			if !def.IsAnimated() || len(def.Animation.Frames) != 2 || def.Animation.TotalMs != 2000 {
				t.Fatalf("tile 384 animation: %+v", def.Animation)
			}
			if def.Animation.Frames[1] != (Frame{TileID: 386, DurationMs: 1000}) {
				t.Fatalf("tile 384 frame 1: %+v", def.Animation.Frames[1])
			}

			def, err = c.Lookup(982)
			if err != nil {
				t.Fatalf("lookup 982: %v", err)
			}
			if !def.HasShapes() || def.Collision.DrawOrder != "index" || len(def.Collision.Shapes) != 2 {
				t.Fatalf("tile 982 collision: %+v", def.Collision)
			}

			sets := c.WangSets()
			if len(sets) != 1 || len(sets[0].Tiles) != 5 || len(sets[0].Colors) != 1 {
				t.Fatalf("wang sets: %+v", sets)
			}
			if sets[0].Colors[0].ID != 1 || sets[0].Colors[0].Probability != 1 {
				t.Fatalf("wang color: %+v", sets[0].Colors[0])
			}
			def, _ = c.Lookup(0)
			if len(def.Wang) != 1 || def.Wang[0].ID != (WangID{1, 1, 1, 1, 1, 1, 1, 1}) {
				t.Fatalf("tile 0 wang: %+v", def.Wang)
			}
			if c.Digest() == "" {
				t.Fatalf("missing digest")
			}
		})
	}
}

func TestLookup_EveryDeclaredIDAndNothingElse(t *testing.T) {
	c, err := Load(heartgoldTSX)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for id := 0; id < c.TileCount(); id++ {
		def, err := c.Lookup(id)
		if err != nil {
			t.Fatalf("lookup %d: %v", id, err)
		}
		if def.ID != id {
			t.Fatalf("lookup %d returned id %d", id, def.ID)
		}
	}
	for _, id := range []int{-1, c.TileCount(), 1 << 20} {
		_, err := c.Lookup(id)
		if !errors.Is(err, ErrLookup) {
			t.Fatalf("lookup %d: want ErrLookup, got %v", id, err)
		}
		if Code(err) != string(KindLookup) {
			t.Fatalf("lookup %d: code %q", id, Code(err))
		}
	}
}

func TestSourceRect(t *testing.T) {
	c, err := Parse([]byte(`<tileset tilewidth="16" tileheight="8" tilecount="12" columns="4" margin="1" spacing="2"/>`), FormatTSX)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r, err := c.SourceRect(6)
	if err != nil {
		t.Fatalf("source rect: %v", err)
	}
	// col 2, row 1
	want := image.Rect(1+2*18, 1+1*10, 1+2*18+16, 1+1*10+8)
	if r != want {
		t.Fatalf("got %v want %v", r, want)
	}
	if _, err := c.SourceRect(12); !errors.Is(err, ErrLookup) {
		t.Fatalf("want ErrLookup, got %v", err)
	}
}

func TestFallbackProperty(t *testing.T) {
	c, err := Parse([]byte(`<tileset tilewidth="8" tileheight="8" tilecount="4">
 <properties><property name="fallback_tile" type="int" value="3"/></properties>
</tileset>`), FormatTSX)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.FallbackTileID() != 3 {
		t.Fatalf("fallback: %d", c.FallbackTileID())
	}

	c, err = Parse([]byte(`{"tilewidth":8,"tileheight":8,"tilecount":4,"properties":[{"name":"fallback_tile","type":"int","value":2}]}`), FormatJSON)
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if c.FallbackTileID() != 2 {
		t.Fatalf("fallback json: %d", c.FallbackTileID())
	}

	c, err = Parse([]byte(`<tileset tilewidth="8" tileheight="8" tilecount="4"/>`), FormatTSX)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.FallbackTileID() != 0 {
		t.Fatalf("default fallback: %d", c.FallbackTileID())
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tiles.yaml")
	if err := os.WriteFile(p, []byte("x: 1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); !errors.Is(err, ErrParse) {
		t.Fatalf("want ErrParse, got %v", err)
	}
}

func TestCatalog_ReturnedValuesDoNotAlias(t *testing.T) {
	c, err := Load(heartgoldTSX)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	def, _ := c.Lookup(384)
	def.Animation.Frames[1].TileID = 999999
	def.Animation.TotalMs = 1
	shapes, _ := c.Lookup(982)
	shapes.Collision.Shapes[0].X = 100
	wangTile, _ := c.Lookup(0)
	wangTile.Wang[0].ID[0] = 7

	sets := c.WangSets()
	sets[0].Tiles[0].WangID[0] = 7
	sets[0].Colors[0].Probability = 42
	named, _ := c.WangSet(sets[0].Name)
	named.Tiles[0].WangID[1] = 7

	again, _ := c.Lookup(384)
	if again.Animation.Frames[1].TileID != 386 || again.Animation.TotalMs != 2000 {
		t.Fatalf("animation mutated through Lookup: %+v", again.Animation)
	}
	if s, _ := c.Lookup(982); s.Collision.Shapes[0].X != -3 {
		t.Fatalf("shapes mutated through Lookup: %+v", s.Collision.Shapes)
	}
	if w, _ := c.Lookup(0); w.Wang[0].ID != (WangID{1, 1, 1, 1, 1, 1, 1, 1}) {
		t.Fatalf("wang assignment mutated through Lookup: %v", w.Wang[0].ID)
	}
	set := c.WangSets()[0]
	if set.Tiles[0].WangID != (WangID{1, 1, 1, 1, 1, 1, 1, 1}) {
		t.Fatalf("wang tiles mutated through WangSets: %v", set.Tiles[0].WangID)
	}
	if set.Colors[0].Probability != 1 {
		t.Fatalf("wang colours mutated through WangSets: %+v", set.Colors[0])
	}
}
