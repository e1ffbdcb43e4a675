package game

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// flickerPeriod is the length of one swell or fade of the flame, in seconds.
const flickerPeriod = 0.35

// Flicker oscillates a scale factor between 1 and 1+amount with eased tweens.
type Flicker struct {
	amount float32
	tween  *gween.Tween
	rising bool
	value  float32
}

func NewFlicker(amount float32) *Flicker {
	f := &Flicker{amount: amount, value: 1}
	if amount != 0 {
		f.rising = true
		f.tween = gween.New(1, 1+amount, flickerPeriod, ease.InOutSine)
	}
	return f
}

// Update advances the flicker by dt seconds and returns the current scale.
func (f *Flicker) Update(dt float64) float32 {
	if f.tween == nil {
		return 1
	}
	val, finished := f.tween.Update(float32(dt))
	f.value = val
	if finished {
		f.rising = !f.rising
		if f.rising {
			f.tween = gween.New(1, 1+f.amount, flickerPeriod, ease.InOutSine)
		} else {
			f.tween = gween.New(1+f.amount, 1, flickerPeriod, ease.InOutSine)
		}
	}
	return f.value
}

func (f *Flicker) Value() float32 { return f.value }
