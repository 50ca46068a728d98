package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUCameraUniformLayout(t *testing.T) {
	u := GPUCameraUniform{LightCount: 3}
	u.ProjView[0] = 2
	u.UnprojView[15] = 4
	u.ViewPosition = [4]float32{1, 2, 3, 1}

	buf := u.Marshal()
	require.Len(t, buf, 160)
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])))
	assert.Equal(t, float32(4), math.Float32frombits(binary.LittleEndian.Uint32(buf[64+60:])))
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(buf[136:])))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[144:]))
}

func TestUniformKeepsUnprojInverseAfterChanges(t *testing.T) {
	ctrl := NewCameraController(WithRadius(10), WithTarget([3]float32{1, 0, -2}))
	cam := NewCamera(WithController(ctrl), WithAspect(16.0/9.0))

	check := func(step string) {
		u := cam.Uniform(0)
		assert.LessOrEqual(t, common.InverseError(u.ProjView, u.UnprojView), float32(1e-3), step)
	}

	check("initial")
	ctrl.Orbit(0.4, 0.2)
	check("orbit")
	ctrl.Pan(3, -1, 2)
	check("pan")
	ctrl.Zoom(4)
	check("zoom")
	cam.SetAspect(1)
	check("aspect")
	lens := cam.Lens()
	lens.FovY = math32.Pi / 3
	cam.SetLens(lens)
	check("fov")
}

func TestMatricesFollowControllerRevision(t *testing.T) {
	ctrl := NewCameraController()
	cam := NewCamera(WithController(ctrl))

	before := cam.Matrices()
	assert.Equal(t, before, cam.Matrices(), "unchanged state reuses the cached matrices")

	ctrl.Orbit(0.5, 0)
	after := cam.Matrices()
	assert.NotEqual(t, before.View, after.View)
	assert.Equal(t, before.Projection, after.Projection)

	cam.SetAspect(2)
	assert.NotEqual(t, after.Projection, cam.Matrices().Projection)
}

func TestUniformReportsEyeAndLightCount(t *testing.T) {
	ctrl := NewCameraController(WithOrbit(Orbit{Radius: 5}))
	cam := NewCamera(WithController(ctrl))

	u := cam.Uniform(7)
	assert.Equal(t, uint32(7), u.LightCount)
	assert.InDelta(t, 0, u.ViewPosition[0], 1e-5)
	assert.InDelta(t, 0, u.ViewPosition[1], 1e-5)
	assert.InDelta(t, 5, u.ViewPosition[2], 1e-5)
	assert.Equal(t, float32(1), u.ViewPosition[3])
}

func TestCameraWithoutController(t *testing.T) {
	cam := NewCamera()
	assert.Equal(t, [3]float32{}, cam.Position())
	u := cam.Uniform(0)
	assert.LessOrEqual(t, common.InverseError(u.ProjView, u.UnprojView), float32(1e-3))
}

func TestControllerClampsRadiusAndElevation(t *testing.T) {
	ctrl := NewCameraController(
		WithLimits(Limits{MinRadius: 1, MaxRadius: 10, MinElevation: -0.5, MaxElevation: 0.5}),
		WithRadius(50),
	)
	assert.Equal(t, float32(10), ctrl.State().Radius)

	o := ctrl.State()
	o.Radius = 0.1
	ctrl.SetState(o)
	assert.Equal(t, float32(1), ctrl.State().Radius)

	ctrl.Orbit(0, 3)
	assert.Equal(t, float32(0.5), ctrl.State().Elevation)
	ctrl.Orbit(0, -3)
	assert.Equal(t, float32(-0.5), ctrl.State().Elevation)
}

func TestControllerPanMovesEyeAndTargetTogether(t *testing.T) {
	ctrl := NewCameraController(WithRadius(4), WithSpeeds(0.03, 0.005, 0.5, 1))
	before := common.Sub3(ctrl.Position(), ctrl.Target())
	rev := ctrl.Revision()

	ctrl.Pan(1, 1, 1)
	after := common.Sub3(ctrl.Position(), ctrl.Target())
	for i := range 3 {
		assert.InDelta(t, before[i], after[i], 1e-5)
	}
	assert.Greater(t, ctrl.Revision(), rev)
	assert.InDelta(t, 4, ctrl.State().Radius, 1e-6)
}

func TestOrbitAxesMatchLookAt(t *testing.T) {
	o := Orbit{Target: [3]float32{1, 2, 3}, Radius: 6, Azimuth: 0.7, Elevation: 0.3}
	right, up, forward := o.axes()
	view := common.LookAt(o.Eye(), o.Target, [3]float32{0, 1, 0})

	// the rows of the view rotation are the right, up and back axes
	for i := range 3 {
		assert.InDelta(t, right[i], view[i*4], 1e-5)
		assert.InDelta(t, up[i], view[i*4+1], 1e-5)
		assert.InDelta(t, -forward[i], view[i*4+2], 1e-5)
	}
}
