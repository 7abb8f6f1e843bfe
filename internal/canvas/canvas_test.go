package canvas

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/session"
)

func stroke(from, ctrl, to detector.Point3D, comp session.Composite) session.Effect {
	return session.Effect{
		Kind: session.KindStroke,
		Stroke: &session.Stroke{
			From:      from,
			Control:   ctrl,
			To:        to,
			Color:     "#ff0055",
			Width:     6,
			Composite: comp,
		},
	}
}

func TestQuadratic(t *testing.T) {
	p0 := detector.Point3D{X: 0, Y: 0}
	p1 := detector.Point3D{X: 10, Y: 20}
	p2 := detector.Point3D{X: 20, Y: 0}

	assert.Equal(t, p0, Quadratic(p0, p1, p2, 0))
	assert.Equal(t, p2, Quadratic(p0, p1, p2, 1))

	mid := Quadratic(p0, p1, p2, 0.5)
	assert.InDelta(t, 10, mid.X, 1e-9)
	assert.InDelta(t, 10, mid.Y, 1e-9)
}

func TestSamples(t *testing.T) {
	p := detector.Point3D{X: 5, Y: 5}
	assert.Equal(t, 1, samples(session.Stroke{From: p, Control: p, To: p}))

	long := session.Stroke{To: detector.Point3D{X: 10000}}
	assert.Equal(t, maxSamples, samples(long))
}

func TestCanvas_StrokeAndClear(t *testing.T) {
	c := New(100, 60)
	defer c.Close()

	assert.Zero(t, c.Alpha(50, 30))

	n := c.Apply([]session.Effect{
		stroke(detector.Point3D{X: 10, Y: 30}, detector.Point3D{X: 50, Y: 30}, detector.Point3D{X: 90, Y: 30}, session.CompositeDraw),
		{Kind: session.KindCursor},
	})
	assert.Equal(t, 1, n)
	assert.Equal(t, uint64(1), c.Version())
	assert.Equal(t, uint8(255), c.Alpha(50, 30))
	assert.Zero(t, c.Alpha(50, 5))

	c.Apply([]session.Effect{
		stroke(detector.Point3D{X: 40, Y: 30}, detector.Point3D{X: 50, Y: 30}, detector.Point3D{X: 60, Y: 30}, session.CompositeErase),
	})
	assert.Zero(t, c.Alpha(50, 30), "erase clears alpha")
	assert.Equal(t, uint8(255), c.Alpha(15, 30))

	c.Apply([]session.Effect{{Kind: session.KindClear}})
	assert.Zero(t, c.Alpha(15, 30))
	assert.Equal(t, uint64(3), c.Version())
}

func TestCanvas_IgnoresOtherEffects(t *testing.T) {
	c := New(10, 10)
	defer c.Close()

	n := c.Apply([]session.Effect{{Kind: session.KindBlast}, {Kind: session.KindStroke}})
	assert.Zero(t, n)
	assert.Zero(t, c.Version())
}

func TestCanvas_PNG(t *testing.T) {
	c := New(40, 30)
	defer c.Close()

	first, v0, err := c.PNG()
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(first, []byte("\x89PNG")))
	assert.Equal(t, c.Version(), v0)

	again, _, err := c.PNG()
	require.NoError(t, err)
	assert.Equal(t, first, again)

	c.Apply([]session.Effect{
		stroke(detector.Point3D{X: 5, Y: 5}, detector.Point3D{X: 20, Y: 15}, detector.Point3D{X: 35, Y: 25}, session.CompositeDraw),
	})
	changed, v1, err := c.PNG()
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)
	assert.Equal(t, v0+1, v1, "encoded version follows the stroke")

	// Round trip through Load.
	other := New(40, 30)
	defer other.Close()
	require.NoError(t, other.Load(changed))
	assert.Equal(t, c.Alpha(20, 15), other.Alpha(20, 15))

	small := New(10, 10)
	defer small.Close()
	assert.Error(t, small.Load(changed))
}

func TestCanvas_Closed(t *testing.T) {
	c := New(10, 10)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, _, err := c.PNG()
	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, c.Apply([]session.Effect{{Kind: session.KindClear}}))
}

func TestParseColor(t *testing.T) {
	c := parseColor("#ff0055")
	assert.Equal(t, uint8(0xff), c.R)
	assert.Equal(t, uint8(0x00), c.G)
	assert.Equal(t, uint8(0x55), c.B)
	assert.Equal(t, uint8(0xff), c.A)

	assert.Equal(t, uint8(255), parseColor("nope").G)
}
