// Package ingest receives landmark frames from an external detector over a
// ZeroMQ PULL socket. Messages are CBOR maps shaped like
//
//	{"type": "hands", "timestamp_ms": <int>, "hands": [{"points": [...], "handedness": "Right", "score": 0.9}]}
package ingest

import (
	"context"
	"fmt"
	"log"
	"syscall"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/session"
)

// MessageHands is the type of a landmark frame.
const MessageHands = "hands"

// Message is the wire form of one frame.
type Message struct {
	Type        string `cbor:"type"`
	TimestampMs int64  `cbor:"timestamp_ms"`
	Hands       []Hand `cbor:"hands"`
}

// Hand is the wire form of one hand.
type Hand struct {
	Points     []detector.Point3D `cbor:"points"`
	Handedness string             `cbor:"handedness"`
	Score      float64            `cbor:"score"`
}

// Config configures the ingest socket.
type Config struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint" json:"endpoint"`
	LogEvery int           `yaml:"log_every" mapstructure:"log_every" json:"log_every"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout"` // receive timeout, bounds shutdown latency
}

// DefaultConfig returns a disabled feed on the conventional local port.
func DefaultConfig() Config {
	return Config{
		Endpoint: "tcp://127.0.0.1:5557",
		LogEvery: 100,
		Timeout:  250 * time.Millisecond,
	}
}

// Stream connects to endpoint and returns a channel of observations. The
// channel closes when ctx is done.
func Stream(ctx context.Context, cfg Config) (<-chan session.Observation, error) {
	if cfg.LogEvery < 1 {
		cfg.LogEvery = 1
	}

	socket, err := zmq4.NewSocket(zmq4.PULL)
	if err != nil {
		return nil, fmt.Errorf("create socket: %w", err)
	}
	if cfg.Timeout > 0 {
		if err := socket.SetRcvtimeo(cfg.Timeout); err != nil {
			_ = socket.Close()
			return nil, fmt.Errorf("set receive timeout: %w", err)
		}
	}
	if err := socket.Connect(cfg.Endpoint); err != nil {
		_ = socket.Close()
		return nil, fmt.Errorf("connect %s: %w", cfg.Endpoint, err)
	}

	l := &limitedLog{every: cfg.LogEvery}
	out := make(chan session.Observation, 16)
	go func() {
		defer close(out)
		defer socket.Close()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msg, err := socket.RecvBytes(0)
			if err != nil {
				if zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN) {
					continue
				}
				l.printf("ingest recv error: %v", err)
				continue
			}

			obs, err := Decode(msg)
			if err != nil {
				l.printf("ingest skipped message: %v", err)
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- obs:
			}
		}
	}()

	return out, nil
}

// Decode parses one CBOR message. Hands with fewer than 21 points are
// dropped and at most two hands are kept.
func Decode(msg []byte) (session.Observation, error) {
	var m Message
	if err := cbor.Unmarshal(msg, &m); err != nil {
		return session.Observation{}, fmt.Errorf("decode cbor: %w", err)
	}
	if m.Type != MessageHands {
		return session.Observation{}, fmt.Errorf("unexpected message type %q", m.Type)
	}

	// A missing timestamp stays zero so the receiver stamps the frame.
	var obs session.Observation
	if m.TimestampMs > 0 {
		obs.Timestamp = time.UnixMilli(m.TimestampMs)
	}
	for _, h := range m.Hands {
		if len(obs.Hands) == 2 {
			break
		}
		if len(h.Points) < detector.NumLandmarks {
			continue
		}
		hand := detector.HandLandmarks{Handedness: h.Handedness, Score: h.Score}
		copy(hand.Points[:], h.Points)
		obs.Hands = append(obs.Hands, hand)
	}
	return obs, nil
}

// Encode is the inverse of Decode, used by producers and tests.
func Encode(obs session.Observation) ([]byte, error) {
	m := Message{Type: MessageHands}
	if !obs.Timestamp.IsZero() {
		m.TimestampMs = obs.Timestamp.UnixMilli()
	}
	for _, h := range obs.Hands {
		m.Hands = append(m.Hands, Hand{
			Points:     append([]detector.Point3D(nil), h.Points[:]...),
			Handedness: h.Handedness,
			Score:      h.Score,
		})
	}
	return cbor.Marshal(m)
}

// limitedLog prints one message out of every n.
type limitedLog struct {
	every int
	count int
}

func (l *limitedLog) printf(format string, args ...any) {
	l.count++
	if l.count%l.every == 0 {
		log.Printf(format, args...)
	}
}
