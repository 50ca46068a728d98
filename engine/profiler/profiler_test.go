package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTickReportsAfterInterval(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	clock := time.Unix(0, 0)
	p := NewProfiler(WithLogger(zap.New(core)), withClock(func() time.Time { return clock }))

	for range 59 {
		clock = clock.Add(10 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	p.Reject()
	clock = clock.Add(410 * time.Millisecond)
	assert.True(t, p.Tick())

	s := p.Last()
	assert.InDelta(t, 60.0, s.FPS, 1e-9)
	assert.Equal(t, time.Second/60, s.FrameTime)
	assert.Equal(t, 1, s.Rejected)
	assert.Equal(t, 1, logs.FilterMessage("frame stats").Len())

	// counters restart with the next interval
	clock = clock.Add(100 * time.Millisecond)
	assert.False(t, p.Tick())
}

func TestWithIntervalIgnoresNonPositive(t *testing.T) {
	p := NewProfiler(WithInterval(0))
	assert.Equal(t, time.Second, p.updateInterval)
	p = NewProfiler(WithInterval(250 * time.Millisecond))
	assert.Equal(t, 250*time.Millisecond, p.updateInterval)
}
