package descriptor

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDimensions(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_123)

	// hash = 640*1000 + 480 + 123 = 640603, seed = 3
	d := FromDimensions(640, 480, now)
	require.Len(t, d, Dim)
	for _, i := range []int{0, 1, 63, 127} {
		want := math.Sin(float64(i+1)*3/50) * 0.5
		assert.InDelta(t, want, float64(d[i]), 1e-6, "slot %d", i)
	}

	assert.Equal(t, d, FromDimensions(640, 480, now), "same clock must give same vector")
	assert.NotEqual(t, d, FromDimensions(640, 480, now.Add(time.Millisecond)))
}

func TestFromBox(t *testing.T) {
	d := FromBox(Box{X: 0, Y: 0, Width: 100, Height: 50})
	require.Len(t, d, Dim)

	// center (50, 25), aspect ratio 2
	assert.InDelta(t, 0.0, float64(d[0]), 1e-6)
	assert.InDelta(t, 0.5, float64(d[32]), 1e-6)
	assert.InDelta(t, 0.0, float64(d[64]), 1e-6)
	assert.InDelta(t, 0.5, float64(d[96]), 1e-6)
	assert.InDelta(t, math.Sin(50.0/1000)*0.5, float64(d[1]), 1e-6)
	assert.InDelta(t, math.Cos(25.0/1000)*0.5, float64(d[33]), 1e-6)
	assert.InDelta(t, math.Sin(1.0)*0.5, float64(d[65]), 1e-6)
	assert.InDelta(t, math.Cos(20.0)*0.5, float64(d[97]), 1e-6)
}

func TestBoxFromCorners(t *testing.T) {
	box, ok := BoxFromCorners([]float64{10, 20, 110, 220})
	require.True(t, ok)
	assert.Equal(t, Box{X: 10, Y: 20, Width: 100, Height: 200}, box)

	for _, bad := range [][]float64{nil, {1, 2, 3}, {10, 10, 5, 20}, {10, 10, 20, 10}} {
		_, ok := BoxFromCorners(bad)
		assert.False(t, ok, "%v", bad)
	}
}

func TestFromIdentity(t *testing.T) {
	d := FromIdentity("ab", 7, "سارة")
	require.Len(t, d, Dim)

	// idSum = 'a' + 'b' = 195, name has 4 runes
	assert.InDelta(t, math.Sin(195.0/10)*0.5, float64(d[0]), 1e-6)
	assert.InDelta(t, math.Cos(7.0/5)*0.5, float64(d[32]), 1e-6)
	assert.InDelta(t, math.Sin(4.0/8)*0.5, float64(d[64]), 1e-6)
	assert.InDelta(t, 0.5, float64(d[96]), 1e-6)

	assert.Equal(t, d, FromIdentity("ab", 7, "سارة"))
	assert.NotEqual(t, d, FromIdentity("ac", 7, "سارة"))
}
