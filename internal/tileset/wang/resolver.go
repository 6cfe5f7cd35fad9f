package wang

import (
	"errors"
	"fmt"
	"sort"

	"tilecraft.ai/internal/tileset/catalogs"
)

// Neighborhood is the terrain colour seen around a cell, in the same compass order as
// a tile's WangID.
type Neighborhood = catalogs.WangID

var (
	ErrNoMatch   = errors.New("wang: no tile matches neighborhood")
	ErrNoWangSet = errors.New("wang: no such wang set")
)

// MatchError reports a neighborhood no tile of the set satisfies.
type MatchError struct {
	Set          string
	Neighborhood Neighborhood
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("wang: set %q: no tile matches %v", e.Set, e.Neighborhood)
}

func (e *MatchError) Is(target error) bool { return target == ErrNoMatch }

type Candidate struct {
	TileID int
	WangID catalogs.WangID
	Weight float64
}

type config struct {
	set      string
	seed     int64
	fallback *int
}

type Option func(*config)

// WithSet selects the wang set by name. The first set is used otherwise.
func WithSet(name string) Option { return func(c *config) { c.set = name } }

// WithSeed sets the seed of the positional draw used by ResolveAt.
func WithSeed(seed int64) Option { return func(c *config) { c.seed = seed } }

// WithFallback overrides the catalog's fallback tile for ResolveOr.
func WithFallback(id int) Option { return func(c *config) { c.fallback = &id } }

// Resolver selects tiles for neighborhoods. It is a pure function of the catalog and
// its options and is safe for concurrent use.
type Resolver struct {
	set        catalogs.WangSet
	seed       int64
	fallback   int
	candidates []Candidate // sorted by tile id
}

func NewResolver(cat *catalogs.Catalog, opts ...Option) (*Resolver, error) {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}

	sets := cat.WangSets()
	var set catalogs.WangSet
	switch {
	case cfg.set != "":
		s, ok := cat.WangSet(cfg.set)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNoWangSet, cfg.set)
		}
		set = s
	case len(sets) > 0:
		set = sets[0]
	default:
		return nil, fmt.Errorf("%w: catalog %q declares none", ErrNoWangSet, cat.Name())
	}

	r := &Resolver{set: set, seed: cfg.seed, fallback: cat.FallbackTileID()}
	if cfg.fallback != nil {
		if _, err := cat.Lookup(*cfg.fallback); err != nil {
			return nil, fmt.Errorf("wang: fallback: %w", err)
		}
		r.fallback = *cfg.fallback
	}

	for _, wt := range set.Tiles {
		def, err := cat.Lookup(wt.TileID)
		if err != nil {
			return nil, err
		}
		r.candidates = append(r.candidates, Candidate{
			TileID: wt.TileID,
			WangID: wt.WangID,
			Weight: weight(set, def.Probability, wt.WangID),
		})
	}
	sort.Slice(r.candidates, func(i, j int) bool { return r.candidates[i].TileID < r.candidates[j].TileID })
	return r, nil
}

// weight is the tile probability times the probability of each distinct colour the
// wangid constrains. Tiles sharing a wangid get equal weights.
func weight(set catalogs.WangSet, tileProb float64, id catalogs.WangID) float64 {
	w := tileProb
	var seen [catalogs.WangSlots]int
	n := 0
outer:
	for _, c := range id {
		if c == 0 {
			continue
		}
		for _, s := range seen[:n] {
			if s == c {
				continue outer
			}
		}
		seen[n] = c
		n++
		if col, ok := set.Color(c); ok {
			w *= col.Probability
		}
	}
	return w
}

func (r *Resolver) SetName() string     { return r.set.Name }
func (r *Resolver) FallbackTileID() int { return r.fallback }

// Matches reports whether a tile's wangid accepts n: every non-zero slot must equal
// the neighborhood's colour in that slot.
func Matches(id catalogs.WangID, n Neighborhood) bool {
	for i, c := range id {
		if c != 0 && c != n[i] {
			return false
		}
	}
	return true
}

// Match returns every candidate accepting n, ordered by tile id.
func (r *Resolver) Match(n Neighborhood) []Candidate {
	var out []Candidate
	for _, c := range r.candidates {
		if Matches(c.WangID, n) {
			out = append(out, c)
		}
	}
	return out
}

// Resolve draws one matching tile using roll as the random source.
func (r *Resolver) Resolve(n Neighborhood, roll uint64) (int, error) {
	cands := r.Match(n)
	if len(cands) == 0 {
		return 0, &MatchError{Set: r.set.Name, Neighborhood: n}
	}
	return sampleWeighted(cands, roll), nil
}

// ResolveAt draws with a roll derived from the seed and the cell position, so a cell
// resolves the same way on every run.
func (r *Resolver) ResolveAt(n Neighborhood, x, y int) (int, error) {
	return r.Resolve(n, hash3(r.seed, x, y, r.set.Index))
}

// ResolveOr applies the fallback policy: unmatched neighborhoods yield the fallback
// tile instead of an error.
func (r *Resolver) ResolveOr(n Neighborhood, x, y int) int {
	id, err := r.ResolveAt(n, x, y)
	if err != nil {
		return r.fallback
	}
	return id
}

func sampleWeighted(cands []Candidate, roll uint64) int {
	var total float64
	for _, c := range cands {
		if c.Weight > 0 {
			total += c.Weight
		}
	}
	if total <= 0 {
		return cands[roll%uint64(len(cands))].TileID
	}

	// Deterministic pick in [0,total).
	target := float64(roll%1_000_000_000) / 1_000_000_000.0 * total
	var acc float64
	last := cands[0].TileID
	for _, c := range cands {
		if c.Weight <= 0 {
			continue
		}
		acc += c.Weight
		last = c.TileID
		if target < acc {
			return c.TileID
		}
	}
	return last
}
