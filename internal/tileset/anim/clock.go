// Package anim advances tile animations over elapsed time.
//
// The visible frame is always derived from the absolute accumulated time of a tile,
// never from per-call deltas, so any sequence of Advance calls with the same total
// yields the same frames.
package anim

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"tilecraft.ai/internal/tileset/catalogs"
)

var ErrNegativeElapsed = errors.New("anim: negative elapsed time")

type track struct {
	tileID int
	frames []catalogs.Frame
	total  int64
	acc    int64
}

// Clock holds the only mutable per-tile state of the subsystem. It is not
// synchronised: one goroutine advances it once per tick and readers query it after
// the tick completes.
type Clock struct {
	cat    *catalogs.Catalog
	tracks []track
	slot   map[int]int // tile id -> index into tracks
}

func NewClock(cat *catalogs.Catalog) *Clock {
	ids := cat.Animated()
	c := &Clock{
		cat:    cat,
		tracks: make([]track, 0, len(ids)),
		slot:   make(map[int]int, len(ids)),
	}
	for _, id := range ids {
		def, _ := cat.Lookup(id)
		c.slot[id] = len(c.tracks)
		c.tracks = append(c.tracks, track{
			tileID: id,
			frames: def.Animation.Frames,
			total:  def.Animation.TotalMs,
		})
	}
	return c
}

// Advance adds elapsedMs to every animated tile's accumulator.
func (c *Clock) Advance(elapsedMs int64) error {
	if elapsedMs < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeElapsed, elapsedMs)
	}
	for i := range c.tracks {
		t := &c.tracks[i]
		// Keep the accumulator bounded; the frame only depends on acc mod total.
		t.acc = (t.acc + elapsedMs%t.total) % t.total
	}
	return nil
}

// CurrentFrame returns the tile id visible for id. Static tiles are their own frame.
func (c *Clock) CurrentFrame(id int) (int, error) {
	t, err := c.track(id)
	if err != nil || t == nil {
		return id, err
	}
	return t.frames[t.frameIndex()].TileID, nil
}

// FrameOr is CurrentFrame with the documented fallback: unknown ids are returned
// unchanged.
func (c *Clock) FrameOr(id int) int {
	f, err := c.CurrentFrame(id)
	if err != nil {
		return id
	}
	return f
}

// FrameIndex returns the position of the visible frame in the tile's sequence, 0 for
// static tiles.
func (c *Clock) FrameIndex(id int) (int, error) {
	t, err := c.track(id)
	if err != nil || t == nil {
		return 0, err
	}
	return t.frameIndex(), nil
}

// Elapsed returns the accumulated time of id within its current cycle.
func (c *Clock) Elapsed(id int) (int64, error) {
	t, err := c.track(id)
	if err != nil || t == nil {
		return 0, err
	}
	return t.acc, nil
}

// Reset returns id to its first frame. Resetting a static tile is a no-op.
func (c *Clock) Reset(id int) error {
	t, err := c.track(id)
	if err != nil || t == nil {
		return err
	}
	t.acc = 0
	return nil
}

func (c *Clock) ResetAll() {
	for i := range c.tracks {
		c.tracks[i].acc = 0
	}
}

// track returns nil, nil for known static tiles.
func (c *Clock) track(id int) (*track, error) {
	if !c.cat.Has(id) {
		return nil, catalogs.LookupError(id)
	}
	i, ok := c.slot[id]
	if !ok {
		return nil, nil
	}
	return &c.tracks[i], nil
}

func (t *track) frameIndex() int {
	effective := t.acc % t.total
	var sum int64
	for i, f := range t.frames {
		sum += int64(f.DurationMs)
		if sum > effective {
			return i
		}
	}
	return len(t.frames) - 1
}

// State is the serialisable accumulator set of a Clock.
type State struct {
	Elapsed map[int]int64 `json:"elapsed"`
}

func (c *Clock) State() State {
	s := State{Elapsed: make(map[int]int64, len(c.tracks))}
	for _, t := range c.tracks {
		s.Elapsed[t.tileID] = t.acc
	}
	return s
}

// Restore replaces the accumulators with s. Tiles missing from s are reset.
func (c *Clock) Restore(s State) error {
	for id, acc := range s.Elapsed {
		if _, ok := c.slot[id]; !ok {
			return fmt.Errorf("anim: restore: tile %d is not animated in this catalog", id)
		}
		if acc < 0 {
			return fmt.Errorf("%w: tile %d elapsed %d", ErrNegativeElapsed, id, acc)
		}
	}
	for i := range c.tracks {
		t := &c.tracks[i]
		t.acc = s.Elapsed[t.tileID] % t.total
	}
	return nil
}

// Frames returns the visible frame of every animated tile, keyed by tile id.
func (c *Clock) Frames() map[int]int {
	out := make(map[int]int, len(c.tracks))
	for i := range c.tracks {
		t := &c.tracks[i]
		out[t.tileID] = t.frames[t.frameIndex()].TileID
	}
	return out
}

// Digest hashes the visible frame of every animated tile in tile id order.
func (c *Clock) Digest() string {
	ids := make([]int, 0, len(c.tracks))
	for _, t := range c.tracks {
		ids = append(ids, t.tileID)
	}
	sort.Ints(ids)

	h := sha256.New()
	var buf [16]byte
	for _, id := range ids {
		t := &c.tracks[c.slot[id]]
		binary.LittleEndian.PutUint64(buf[:8], uint64(id))
		binary.LittleEndian.PutUint64(buf[8:], uint64(t.frames[t.frameIndex()].TileID))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
