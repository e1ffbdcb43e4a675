package graphics

import (
	"errors"
	"fmt"

	"packed-flame/internal/graphics/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// TransformSlots is the number of matrices in the transformation block.
const TransformSlots = 1024

// ErrTransformIndexOutOfRange is returned for slots outside [0, TransformSlots).
var ErrTransformIndexOutOfRange = errors.New("transform index out of range")

// TransformTable is the CPU mirror of the transformation uniform block. Slot 0
// holds identity unless a caller overwrites it.
type TransformTable struct {
	backend gpu.Backend
	buffer  uint32
	mats    [TransformSlots]mgl32.Mat4
	dirty   bool
	staging []float32
}

// NewTransformTable creates the uniform buffer at binding and fills every slot
// with identity. The table starts dirty so the first Flush uploads it.
func NewTransformTable(backend gpu.Backend, binding uint32) *TransformTable {
	t := &TransformTable{
		backend: backend,
		buffer:  backend.NewUniformBuffer(binding, TransformSlots*16*4),
		dirty:   true,
		staging: make([]float32, TransformSlots*16),
	}
	for i := range t.mats {
		t.mats[i] = mgl32.Ident4()
	}
	return t
}

// Set writes m into slot index and marks the table dirty.
func (t *TransformTable) Set(index int, m mgl32.Mat4) error {
	if index < 0 || index >= TransformSlots {
		return fmt.Errorf("%w: %d", ErrTransformIndexOutOfRange, index)
	}
	if t.mats[index] == m {
		return nil
	}
	t.mats[index] = m
	t.dirty = true
	return nil
}

func (t *TransformTable) Get(index int) (mgl32.Mat4, error) {
	if index < 0 || index >= TransformSlots {
		return mgl32.Mat4{}, fmt.Errorf("%w: %d", ErrTransformIndexOutOfRange, index)
	}
	return t.mats[index], nil
}

func (t *TransformTable) Dirty() bool { return t.dirty }

// Flush uploads all slots when the table changed since the last flush.
// It reports whether an upload happened.
func (t *TransformTable) Flush() bool {
	if !t.dirty {
		return false
	}
	for i := range t.mats {
		copy(t.staging[i*16:(i+1)*16], t.mats[i][:])
	}
	t.backend.UpdateUniformBuffer(t.buffer, t.staging)
	t.dirty = false
	return true
}
