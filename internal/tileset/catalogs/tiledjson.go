package catalogs

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/tileset.schema.json
var tilesetSchemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func tilesetSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("tileset.schema.json", tilesetSchemaJSON)
	})
	return schema, schemaErr
}

type jsonTileset struct {
	Name             string         `json:"name"`
	TileWidth        int            `json:"tilewidth"`
	TileHeight       int            `json:"tileheight"`
	TileCount        int            `json:"tilecount"`
	Columns          int            `json:"columns"`
	Margin           int            `json:"margin"`
	Spacing          int            `json:"spacing"`
	Image            string         `json:"image"`
	ImageWidth       int            `json:"imagewidth"`
	ImageHeight      int            `json:"imageheight"`
	TransparentColor string         `json:"transparentcolor"`
	Properties       []jsonProperty `json:"properties"`
	Tiles            []jsonTile     `json:"tiles"`
	WangSets         []jsonWangSet  `json:"wangsets"`
}

type jsonProperty struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type jsonTile struct {
	ID          int              `json:"id"`
	Type        string           `json:"type"`
	Class       string           `json:"class"`
	Probability *float64         `json:"probability"`
	Animation   []jsonFrame      `json:"animation"`
	ObjectGroup *jsonObjectGroup `json:"objectgroup"`
}

type jsonFrame struct {
	TileID   int `json:"tileid"`
	Duration int `json:"duration"`
}

type jsonObjectGroup struct {
	DrawOrder string       `json:"draworder"`
	Objects   []jsonObject `json:"objects"`
}

type jsonObject struct {
	ID       int          `json:"id"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	Width    float64      `json:"width"`
	Height   float64      `json:"height"`
	Ellipse  bool         `json:"ellipse"`
	Point    bool         `json:"point"`
	Polygon  *[]jsonPoint `json:"polygon"`
	Polyline *[]jsonPoint `json:"polyline"`
	Text     *struct{}    `json:"text"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (o jsonObject) kind() string {
	switch {
	case o.Ellipse:
		return "ellipse"
	case o.Point:
		return "point"
	case o.Polygon != nil:
		return "polygon"
	case o.Polyline != nil:
		return "polyline"
	case o.Text != nil:
		return "text"
	}
	return ""
}

type jsonWangSet struct {
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Tile      int             `json:"tile"`
	Colors    []jsonWangColor `json:"colors"`
	WangTiles []jsonWangTile  `json:"wangtiles"`
}

type jsonWangColor struct {
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	Tile        int      `json:"tile"`
	Probability *float64 `json:"probability"`
}

type jsonWangTile struct {
	TileID int   `json:"tileid"`
	WangID []int `json:"wangid"`
}

func decodeJSON(raw []byte) (*description, error) {
	s, err := tilesetSchema()
	if err != nil {
		return nil, fmt.Errorf("compile tileset schema: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, parseErr("tileset", err)
	}
	if err := s.Validate(doc); err != nil {
		return nil, parseErr("tileset", err)
	}

	var ts jsonTileset
	if err := json.Unmarshal(raw, &ts); err != nil {
		return nil, parseErr("tileset", err)
	}

	d := &description{
		Name:       ts.Name,
		TileWidth:  ts.TileWidth,
		TileHeight: ts.TileHeight,
		TileCount:  ts.TileCount,
		Columns:    ts.Columns,
		Margin:     ts.Margin,
		Spacing:    ts.Spacing,
		Image: Image{
			Source: ts.Image,
			Trans:  ts.TransparentColor,
			Width:  ts.ImageWidth,
			Height: ts.ImageHeight,
		},
	}
	for _, p := range ts.Properties {
		if p.Name != fallbackProperty {
			continue
		}
		v, err := propertyInt(p.Value)
		if err != nil {
			return nil, parseErr("properties."+fallbackProperty, err)
		}
		d.Fallback = &v
	}

	for _, t := range ts.Tiles {
		td := tileDesc{
			ID:          t.ID,
			Type:        t.Type,
			Probability: t.Probability,
		}
		if td.Type == "" {
			td.Type = t.Class
		}
		if t.Animation != nil {
			td.HasAnimation = true
			for _, f := range t.Animation {
				td.Frames = append(td.Frames, Frame{TileID: f.TileID, DurationMs: f.Duration})
			}
		}
		if t.ObjectGroup != nil {
			td.HasShapes = true
			td.DrawOrder = t.ObjectGroup.DrawOrder
			for _, o := range t.ObjectGroup.Objects {
				td.Shapes = append(td.Shapes, shapeDesc{
					Object: o.ID,
					Kind:   o.kind(),
					Rect:   Rect{X: o.X, Y: o.Y, W: o.Width, H: o.Height},
				})
			}
		}
		d.Tiles = append(d.Tiles, td)
	}

	for _, ws := range ts.WangSets {
		sd := wangSetDesc{Name: ws.Name, Type: ws.Type, Tile: ws.Tile}
		for _, c := range ws.Colors {
			sd.Colors = append(sd.Colors, WangColor{
				Name:        c.Name,
				Color:       c.Color,
				Tile:        c.Tile,
				Probability: probabilityOr1(c.Probability),
			})
		}
		for _, wt := range ws.WangTiles {
			sd.Tiles = append(sd.Tiles, wangTileDesc{TileID: wt.TileID, Slots: wt.WangID})
		}
		d.WangSets = append(d.WangSets, sd)
	}
	return d, nil
}

// propertyInt accepts both the typed ("int") and the string form Tiled writes.
func propertyInt(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("property value %s is not an integer", string(raw))
	}
	return strconv.Atoi(s)
}
