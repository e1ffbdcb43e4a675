package batcher

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"packed-flame/internal/graphics"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrVertexCountMismatch = errors.New("per-vertex arrays differ in length")
	ErrIndexOutOfRange     = errors.New("index refers past the last vertex")
	ErrEmptyEntry          = errors.New("draw entry has no geometry")
	ErrLimitExceeded       = errors.New("batch limit exceeded")
	ErrUnknownShader       = errors.New("unknown shader type")
)

// ObjectID identifies one logical drawable across frames.
type ObjectID uint64

// IDGenerator mints object ids. The zero value starts at 1.
type IDGenerator struct {
	last atomic.Uint64
}

func (g *IDGenerator) Next() ObjectID {
	return ObjectID(g.last.Add(1))
}

// DrawEntry is the geometry of one object. Every per-vertex slice that is
// non-empty must be as long as Positions; empty ones are filled with zeros.
type DrawEntry struct {
	ID               ObjectID
	Indices          []uint32
	Positions        []mgl32.Vec3
	TransformIndices []uint32
	PageIndices      []int32
	UVs              []mgl32.Vec2
	BBoxIndices      []int32
}

func (e *DrawEntry) validate() error {
	n := len(e.Positions)
	if n == 0 || len(e.Indices) == 0 {
		return ErrEmptyEntry
	}
	for _, l := range []int{len(e.TransformIndices), len(e.PageIndices), len(e.UVs), len(e.BBoxIndices)} {
		if l != 0 && l != n {
			return fmt.Errorf("%w: %d positions, array of %d", ErrVertexCountMismatch, n, l)
		}
	}
	for _, idx := range e.Indices {
		if int(idx) >= n {
			return fmt.Errorf("%w: index %d with %d vertices", ErrIndexOutOfRange, idx, n)
		}
	}
	for _, ti := range e.TransformIndices {
		if ti >= graphics.TransformSlots {
			return fmt.Errorf("%w: %d", graphics.ErrTransformIndexOutOfRange, ti)
		}
	}
	return nil
}

func (e *DrawEntry) clone() DrawEntry {
	return DrawEntry{
		ID:               e.ID,
		Indices:          slices.Clone(e.Indices),
		Positions:        slices.Clone(e.Positions),
		TransformIndices: slices.Clone(e.TransformIndices),
		PageIndices:      slices.Clone(e.PageIndices),
		UVs:              slices.Clone(e.UVs),
		BBoxIndices:      slices.Clone(e.BBoxIndices),
	}
}

// Equal reports whether two entries carry the same payload.
func (e *DrawEntry) Equal(o *DrawEntry) bool {
	return e.ID == o.ID &&
		slices.Equal(e.Indices, o.Indices) &&
		slices.Equal(e.Positions, o.Positions) &&
		slices.Equal(e.TransformIndices, o.TransformIndices) &&
		slices.Equal(e.PageIndices, o.PageIndices) &&
		slices.Equal(e.UVs, o.UVs) &&
		slices.Equal(e.BBoxIndices, o.BBoxIndices)
}

// Limits caps the combined size of one shader type's batch. Zero means no cap.
type Limits struct {
	MaxVertices int `yaml:"max_vertices"`
	MaxIndices  int `yaml:"max_indices"`
	MaxEntries  int `yaml:"max_entries"`
}

func (l Limits) check(entries, vertices, indices int) error {
	switch {
	case l.MaxEntries > 0 && entries > l.MaxEntries:
		return fmt.Errorf("%w: %d entries, max %d", ErrLimitExceeded, entries, l.MaxEntries)
	case l.MaxVertices > 0 && vertices > l.MaxVertices:
		return fmt.Errorf("%w: %d vertices, max %d", ErrLimitExceeded, vertices, l.MaxVertices)
	case l.MaxIndices > 0 && indices > l.MaxIndices:
		return fmt.Errorf("%w: %d indices, max %d", ErrLimitExceeded, indices, l.MaxIndices)
	}
	return nil
}
