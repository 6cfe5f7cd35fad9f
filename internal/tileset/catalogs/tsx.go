package catalogs

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// description is the format-neutral form both decoders produce. build() owns every
// invariant check.
type description struct {
	Name       string
	TileWidth  int
	TileHeight int
	TileCount  int
	Columns    int
	Margin     int
	Spacing    int
	Image      Image
	Fallback   *int

	Tiles    []tileDesc
	WangSets []wangSetDesc
}

type tileDesc struct {
	ID          int
	Type        string
	Probability *float64

	HasAnimation bool
	Frames       []Frame

	HasShapes bool
	DrawOrder string
	Shapes    []shapeDesc
}

// shapeDesc is one collision object. Kind is empty for rectangles and names the
// Tiled object type otherwise.
type shapeDesc struct {
	Object int
	Kind   string
	Rect   Rect
}

type wangSetDesc struct {
	Name   string
	Type   string
	Tile   int
	Colors []WangColor
	Tiles  []wangTileDesc
}

type wangTileDesc struct {
	TileID int
	Slots  []int
}

// fallbackProperty names the tileset property designating the substitute tile for
// unresolved cells.
const fallbackProperty = "fallback_tile"

// probabilityOr1 applies the Tiled default for an absent probability attribute.
func probabilityOr1(p *float64) float64 {
	if p == nil {
		return 1
	}
	return *p
}

type xmlTileset struct {
	XMLName    xml.Name      `xml:"tileset"`
	Name       string        `xml:"name,attr"`
	TileWidth  int           `xml:"tilewidth,attr"`
	TileHeight int           `xml:"tileheight,attr"`
	TileCount  int           `xml:"tilecount,attr"`
	Columns    int           `xml:"columns,attr"`
	Margin     int           `xml:"margin,attr"`
	Spacing    int           `xml:"spacing,attr"`
	Image      *xmlImage     `xml:"image"`
	Properties []xmlProperty `xml:"properties>property"`
	Tiles      []xmlTile     `xml:"tile"`
	WangSets   []xmlWangSet  `xml:"wangsets>wangset"`
}

type xmlImage struct {
	Source string `xml:"source,attr"`
	Trans  string `xml:"trans,attr"`
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
}

type xmlProperty struct {
	Name  string `xml:"name,attr"`
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
}

type xmlTile struct {
	ID          int             `xml:"id,attr"`
	Type        string          `xml:"type,attr"`
	Class       string          `xml:"class,attr"`
	Probability *float64        `xml:"probability,attr"`
	Animation   *xmlAnimation   `xml:"animation"`
	ObjectGroup *xmlObjectGroup `xml:"objectgroup"`
}

type xmlAnimation struct {
	Frames []xmlFrame `xml:"frame"`
}

type xmlFrame struct {
	TileID   int `xml:"tileid,attr"`
	Duration int `xml:"duration,attr"`
}

type xmlObjectGroup struct {
	DrawOrder string      `xml:"draworder,attr"`
	Objects   []xmlObject `xml:"object"`
}

type xmlObject struct {
	ID       int       `xml:"id,attr"`
	X        float64   `xml:"x,attr"`
	Y        float64   `xml:"y,attr"`
	Width    float64   `xml:"width,attr"`
	Height   float64   `xml:"height,attr"`
	Ellipse  *struct{} `xml:"ellipse"`
	Point    *struct{} `xml:"point"`
	Polygon  *struct{} `xml:"polygon"`
	Polyline *struct{} `xml:"polyline"`
	Text     *struct{} `xml:"text"`
}

func (o xmlObject) kind() string {
	switch {
	case o.Ellipse != nil:
		return "ellipse"
	case o.Point != nil:
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

type xmlWangSet struct {
	Name   string         `xml:"name,attr"`
	Type   string         `xml:"type,attr"`
	Tile   int            `xml:"tile,attr"`
	Colors []xmlWangColor `xml:"wangcolor"`
	Tiles  []xmlWangTile  `xml:"wangtile"`
}

type xmlWangColor struct {
	Name        string   `xml:"name,attr"`
	Color       string   `xml:"color,attr"`
	Tile        int      `xml:"tile,attr"`
	Probability *float64 `xml:"probability,attr"`
}

type xmlWangTile struct {
	TileID int    `xml:"tileid,attr"`
	WangID string `xml:"wangid,attr"`
}

func decodeTSX(raw []byte) (*description, error) {
	var ts xmlTileset
	dec := xml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&ts); err != nil {
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
	}
	if ts.Image != nil {
		d.Image = Image{
			Source: ts.Image.Source,
			Trans:  ts.Image.Trans,
			Width:  ts.Image.Width,
			Height: ts.Image.Height,
		}
	}
	for _, p := range ts.Properties {
		if p.Name != fallbackProperty {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(p.Value))
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
			for _, f := range t.Animation.Frames {
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

	for i, ws := range ts.WangSets {
		sd := wangSetDesc{Name: ws.Name, Type: ws.Type, Tile: ws.Tile}
		for _, c := range ws.Colors {
			sd.Colors = append(sd.Colors, WangColor{
				Name:        c.Name,
				Color:       c.Color,
				Tile:        c.Tile,
				Probability: probabilityOr1(c.Probability),
			})
		}
		for _, wt := range ws.Tiles {
			slots, err := parseWangCSV(wt.WangID)
			if err != nil {
				return nil, &Error{
					Kind:   KindParse,
					TileID: wt.TileID,
					Field:  fmt.Sprintf("wangsets[%d].wangid", i),
					Err:    err,
				}
			}
			sd.Tiles = append(sd.Tiles, wangTileDesc{TileID: wt.TileID, Slots: slots})
		}
		d.WangSets = append(d.WangSets, sd)
	}
	return d, nil
}

// parseWangCSV splits a wangid attribute. The slot count is left to build() so a
// wrong-length array is reported as a validation failure, not a parse failure.
func parseWangCSV(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("wangid %q: %w", s, err)
		}
		out = append(out, v)
	}
	return out, nil
}
