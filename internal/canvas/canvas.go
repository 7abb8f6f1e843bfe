// Package canvas keeps the persistent drawing surface of paint mode. Stroke
// and clear effects are rasterized with OpenCV onto a BGRA image.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/session"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("canvas closed")

// pixels per curve sample
const sampleStep = 4.0

const maxSamples = 64

// Canvas is a fixed size transparent image that strokes accumulate on.
type Canvas struct {
	mu      sync.RWMutex
	mat     gocv.Mat
	width   int
	height  int
	version uint64
	closed  bool
	cache   *gocache.Cache
}

// New creates an empty width x height canvas.
func New(width, height int) *Canvas {
	c := &Canvas{
		mat:    gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC4),
		width:  width,
		height: height,
		cache:  gocache.New(time.Minute, 5*time.Minute),
	}
	c.clear()
	return c
}

// Size returns the canvas dimensions in pixels.
func (c *Canvas) Size() (width, height int) {
	return c.width, c.height
}

// Version increases every time the pixels change.
func (c *Canvas) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Apply draws stroke effects and handles clear effects. Other kinds are
// ignored. It returns how many effects changed the canvas.
func (c *Canvas) Apply(effects []session.Effect) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0
	}

	applied := 0
	for _, e := range effects {
		switch e.Kind {
		case session.KindStroke:
			if e.Stroke == nil {
				continue
			}
			c.stroke(*e.Stroke)
			applied++
		case session.KindClear:
			c.clear()
			applied++
		}
	}
	if applied > 0 {
		c.version++
	}
	return applied
}

// Clear wipes the canvas.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.clear()
	c.version++
}

func (c *Canvas) clear() {
	c.mat.SetTo(gocv.NewScalar(0, 0, 0, 0))
}

// stroke rasterizes a quadratic segment as a polyline of round-capped lines.
func (c *Canvas) stroke(s session.Stroke) {
	col := color.RGBA{}
	if s.Composite != session.CompositeErase {
		col = parseColor(s.Color)
	}
	thickness := max(1, int(math.Round(s.Width)))

	n := samples(s)
	prev := toPoint(s.From)
	for i := 1; i <= n; i++ {
		p := toPoint(Quadratic(s.From, s.Control, s.To, float64(i)/float64(n)))
		gocv.Line(&c.mat, prev, p, col, thickness)
		prev = p
	}
	// Round caps at both ends.
	radius := max(1, thickness/2)
	gocv.Circle(&c.mat, toPoint(s.From), radius, col, -1)
	gocv.Circle(&c.mat, toPoint(s.To), radius, col, -1)
}

// samples picks the number of line pieces from the control polygon length.
func samples(s session.Stroke) int {
	length := math.Hypot(s.Control.X-s.From.X, s.Control.Y-s.From.Y) +
		math.Hypot(s.To.X-s.Control.X, s.To.Y-s.Control.Y)
	n := int(math.Ceil(length / sampleStep))
	return min(max(n, 1), maxSamples)
}

// Quadratic evaluates the Bezier curve from p0 through control p1 to p2.
func Quadratic(p0, p1, p2 detector.Point3D, t float64) detector.Point3D {
	u := 1 - t
	return detector.Point3D{
		X: u*u*p0.X + 2*u*t*p1.X + t*t*p2.X,
		Y: u*u*p0.Y + 2*u*t*p1.Y + t*t*p2.Y,
	}
}

// PNG encodes the canvas and returns the version it encoded. Encodings
// are cached per version so idle pollers do not re-encode an unchanged
// image.
func (c *Canvas) PNG() ([]byte, uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, 0, ErrClosed
	}

	version := c.version
	key := strconv.FormatUint(version, 10)
	if v, ok := c.cache.Get(key); ok {
		return v.([]byte), version, nil
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, c.mat)
	if err != nil {
		return nil, 0, fmt.Errorf("encode canvas: %w", err)
	}
	defer buf.Close()

	data := append([]byte(nil), buf.GetBytes()...)
	c.cache.Set(key, data, gocache.DefaultExpiration)
	return data, version, nil
}

// Load replaces the canvas content with a PNG of the same size.
func (c *Canvas) Load(data []byte) error {
	img, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		return fmt.Errorf("decode canvas: %w", err)
	}
	defer img.Close()

	if img.Cols() != c.width || img.Rows() != c.height {
		return fmt.Errorf("image is %dx%d, canvas is %dx%d", img.Cols(), img.Rows(), c.width, c.height)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	if img.Channels() == 4 {
		img.CopyTo(&c.mat)
	} else {
		gocv.CvtColor(img, &c.mat, gocv.ColorBGRToBGRA)
	}
	c.version++
	return nil
}

// Alpha returns the alpha value at (x, y), or 0 outside the canvas.
func (c *Canvas) Alpha(x, y int) uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || x < 0 || y < 0 || x >= c.width || y >= c.height {
		return 0
	}
	return c.mat.GetVecbAt(y, x)[3]
}

// Close releases the image.
func (c *Canvas) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.cache.Flush()
	return c.mat.Close()
}

func toPoint(p detector.Point3D) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// parseColor reads #rrggbb. Invalid colors draw white.
func parseColor(s string) color.RGBA {
	if !session.ValidColor(s) {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	v, _ := strconv.ParseUint(s[1:], 16, 32)
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
