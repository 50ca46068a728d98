package light

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/google/uuid"
)

// DefaultRange is the range stored for lights that do not set one.
const DefaultRange float32 = 1.0

// Params are the editable properties of a point light.
type Params struct {
	Position [3]float32
	// Color is linear RGB.
	Color     [3]float32
	Intensity float32
	// Range is carried to the GPU for culling. Falloff is inverse-square regardless.
	Range   float32
	Enabled bool
}

// DefaultParams is an enabled white light of intensity 1 at the origin.
func DefaultParams() Params {
	return Params{
		Color:     [3]float32{1, 1, 1},
		Intensity: 1,
		Range:     DefaultRange,
		Enabled:   true,
	}
}

// Record builds the light table entry. The position goes in the translation column.
func (p Params) Record() GPULightRecord {
	return GPULightRecord{
		Transform: common.TRS(p.Position, [3]float32{}, [3]float32{1, 1, 1}),
		Color:     p.Color,
		Intensity: p.Intensity,
		Range:     p.Range,
	}
}

// Light is a point light owned by a scene. Each frame the scene packs the records of the
// enabled lights into the light table and reports their count in the camera block.
type Light interface {
	// ID returns the handle of the light in its scene.
	ID() uuid.UUID

	// Params returns a copy of the current properties.
	Params() Params

	// Update edits the properties under the light's lock.
	Update(fn func(p *Params))

	// SetPosition moves the light.
	SetPosition(pos [3]float32)

	// SetEnabled switches the light on or off.
	SetEnabled(enabled bool)

	// Enabled reports whether the light contributes to shading.
	Enabled() bool

	// Record returns the light table entry for the current properties.
	Record() GPULightRecord
}

type pointLight struct {
	id uuid.UUID

	mu     sync.Mutex
	params Params
}

var _ Light = &pointLight{}

// NewLight creates a light from DefaultParams and the given options.
func NewLight(opts ...LightBuilderOption) Light {
	l := &pointLight{id: uuid.New(), params: DefaultParams()}
	for _, opt := range opts {
		opt(&l.params)
	}
	return l
}

func (l *pointLight) ID() uuid.UUID { return l.id }

func (l *pointLight) Params() Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params
}

func (l *pointLight) Update(fn func(p *Params)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.params)
	if l.params.Range <= 0 {
		l.params.Range = DefaultRange
	}
}

func (l *pointLight) SetPosition(pos [3]float32) {
	l.Update(func(p *Params) { p.Position = pos })
}

func (l *pointLight) SetEnabled(enabled bool) {
	l.Update(func(p *Params) { p.Enabled = enabled })
}

func (l *pointLight) Enabled() bool { return l.Params().Enabled }

func (l *pointLight) Record() GPULightRecord { return l.Params().Record() }
