// Package batcher collects per-object geometry into one set of vertex buffers
// per shader type and submits a single indexed draw per type each frame.
// Buffers are rebuilt only for shader types whose entries changed.
package batcher

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"packed-flame/internal/graphics"
	"packed-flame/internal/graphics/gpu"
)

// Attribute buffer slots, equal to the shader input locations.
const (
	attrPosition = iota
	attrUV
	attrTransform
	attrPage
	attrBBox
)

var layout = []gpu.Attribute{
	attrPosition:  {Location: attrPosition, Components: 3, Kind: gpu.AttribFloat},
	attrUV:        {Location: attrUV, Components: 2, Kind: gpu.AttribFloat},
	attrTransform: {Location: attrTransform, Components: 1, Kind: gpu.AttribUint},
	attrPage:      {Location: attrPage, Components: 1, Kind: gpu.AttribInt},
	attrBBox:      {Location: attrBBox, Components: 1, Kind: gpu.AttribInt},
}

// ProgramBinder makes the program for a shader type current.
type ProgramBinder interface {
	Use(st graphics.ShaderType) error
}

// Stats describes the last DrawEverything call.
type Stats struct {
	DrawCalls int
	Uploads   int
	Vertices  int
	Skipped   int
}

type batch struct {
	entries  map[ObjectID]*DrawEntry
	dirty    bool
	va       *gpu.VertexArray
	count    int32
	vertices int
}

// Batcher owns every queued DrawEntry. It is not safe for concurrent use.
type Batcher struct {
	backend  gpu.Backend
	programs ProgramBinder
	limits   Limits
	log      *slog.Logger

	batches map[graphics.ShaderType]*batch
	owner   map[ObjectID]graphics.ShaderType
	queued  map[ObjectID]struct{}
	stats   Stats
}

func New(backend gpu.Backend, programs ProgramBinder, limits Limits, log *slog.Logger) *Batcher {
	if log == nil {
		log = slog.Default()
	}
	return &Batcher{
		backend:  backend,
		programs: programs,
		limits:   limits,
		log:      log.With("component", "batcher"),
		batches:  make(map[graphics.ShaderType]*batch),
		owner:    make(map[ObjectID]graphics.ShaderType),
		queued:   make(map[ObjectID]struct{}),
	}
}

func (b *Batcher) batch(st graphics.ShaderType) *batch {
	bt, ok := b.batches[st]
	if !ok {
		bt = &batch{entries: make(map[ObjectID]*DrawEntry)}
		b.batches[st] = bt
	}
	return bt
}

// QueueDraw records e under st. An entry whose id is already queued with an
// equal payload is left alone unless forceUpdate is set; otherwise the stored
// entry is replaced and st is rebuilt on the next DrawEverything. Invalid
// entries are rejected without touching existing state.
func (b *Batcher) QueueDraw(st graphics.ShaderType, e DrawEntry, forceUpdate bool) error {
	if !st.Valid() {
		return fmt.Errorf("%w: %v", ErrUnknownShader, st)
	}
	if err := e.validate(); err != nil {
		b.log.Warn("rejected draw", "shader", st, "id", e.ID, "error", err)
		return err
	}

	b.queued[e.ID] = struct{}{}
	if prevST, ok := b.owner[e.ID]; ok && prevST != st {
		prev := b.batches[prevST]
		delete(prev.entries, e.ID)
		prev.dirty = true
	}

	bt := b.batch(st)
	if cur, ok := bt.entries[e.ID]; ok && !forceUpdate && cur.Equal(&e) {
		return nil
	}
	stored := e.clone()
	bt.entries[e.ID] = &stored
	bt.dirty = true
	b.owner[e.ID] = st
	return nil
}

// Remove drops the entry for id. It reports whether one existed.
func (b *Batcher) Remove(id ObjectID) bool {
	st, ok := b.owner[id]
	if !ok {
		return false
	}
	bt := b.batches[st]
	delete(bt.entries, id)
	bt.dirty = true
	delete(b.owner, id)
	delete(b.queued, id)
	return true
}

// PruneUnqueued removes every entry that was not queued since the last
// DrawEverything and returns how many were dropped.
func (b *Batcher) PruneUnqueued() int {
	n := 0
	for id := range b.owner {
		if _, ok := b.queued[id]; !ok {
			b.Remove(id)
			n++
		}
	}
	return n
}

// Len returns the number of entries held for st.
func (b *Batcher) Len(st graphics.ShaderType) int {
	if bt, ok := b.batches[st]; ok {
		return len(bt.entries)
	}
	return 0
}

func (b *Batcher) Stats() Stats { return b.stats }

// DrawEverything submits one indexed draw per shader type that holds entries,
// in shader type order, rebuilding the buffers of types that changed.
func (b *Batcher) DrawEverything() {
	b.stats = Stats{}
	for _, st := range graphics.ShaderTypes() {
		bt, ok := b.batches[st]
		if !ok {
			continue
		}
		if bt.dirty && len(bt.entries) == 0 {
			bt.dirty, bt.count, bt.vertices = false, 0, 0
		}
		if bt.dirty {
			if err := b.upload(st, bt); err != nil {
				b.log.Error("skipping shader batch", "shader", st, "error", err)
				b.stats.Skipped++
				continue
			}
		}
		if len(bt.entries) == 0 || bt.count == 0 {
			continue
		}
		if err := b.programs.Use(st); err != nil {
			b.log.Error("cannot bind program", "shader", st, "error", err)
			b.stats.Skipped++
			continue
		}
		b.backend.DrawIndexed(bt.va, bt.count)
		b.stats.DrawCalls++
		b.stats.Vertices += bt.vertices
	}
	clear(b.queued)
}

type combined struct {
	positions  []float32
	uvs        []float32
	transforms []uint32
	pages      []int32
	bboxes     []int32
	indices    []uint32
}

func build(entries map[ObjectID]*DrawEntry) (combined, int) {
	ids := slices.Sorted(maps.Keys(entries))
	var c combined
	vertices := 0
	for _, id := range ids {
		e := entries[id]
		n := len(e.Positions)
		for i, p := range e.Positions {
			c.positions = append(c.positions, p[0], p[1], p[2])
			if len(e.UVs) == n {
				c.uvs = append(c.uvs, e.UVs[i][0], e.UVs[i][1])
			} else {
				c.uvs = append(c.uvs, 0, 0)
			}
		}
		c.transforms = appendOrZero(c.transforms, e.TransformIndices, n)
		c.pages = appendOrZero(c.pages, e.PageIndices, n)
		c.bboxes = appendOrZero(c.bboxes, e.BBoxIndices, n)
		base := uint32(vertices)
		for _, idx := range e.Indices {
			c.indices = append(c.indices, idx+base)
		}
		vertices += n
	}
	return c, vertices
}

func appendOrZero[T uint32 | int32](dst, src []T, n int) []T {
	if len(src) == n {
		return append(dst, src...)
	}
	return append(dst, make([]T, n)...)
}

func (b *Batcher) upload(st graphics.ShaderType, bt *batch) error {
	c, vertices := build(bt.entries)
	if err := b.limits.check(len(bt.entries), vertices, len(c.indices)); err != nil {
		return err
	}
	if bt.va == nil {
		bt.va = b.backend.NewVertexArray(layout)
	}
	b.backend.UploadAttribute(bt.va, attrPosition, c.positions)
	b.backend.UploadAttribute(bt.va, attrUV, c.uvs)
	b.backend.UploadAttribute(bt.va, attrTransform, c.transforms)
	b.backend.UploadAttribute(bt.va, attrPage, c.pages)
	b.backend.UploadAttribute(bt.va, attrBBox, c.bboxes)
	b.backend.UploadIndices(bt.va, c.indices)
	bt.count = int32(len(c.indices))
	bt.vertices = vertices
	bt.dirty = false

	b.stats.Uploads++
	b.log.Debug("rebuilt batch", "shader", st, "entries", len(bt.entries), "vertices", vertices, "indices", len(c.indices))
	return nil
}
