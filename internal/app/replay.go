package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/session"
)

// maxReplayLine bounds one recorded frame.
const maxReplayLine = 1 << 20

// ReplayStats counts what a replay produced.
type ReplayStats struct {
	Frames  int                   `json:"frames"`
	Effects map[session.Kind]int  `json:"effects"`
	Labels  map[gesture.Label]int `json:"labels"` // per frame, slot 0
}

// Replay feeds recorded frames through the session, one JSON object per
// line in the landmark helper's format with an optional "timestamp_ms".
// With realtime set, frames are paced by their timestamps. Blank lines are
// skipped; a malformed line stops the replay.
func (a *App) Replay(ctx context.Context, r io.Reader, realtime bool) (ReplayStats, error) {
	a.mu.Lock()
	a.source = SourceReplay
	a.mu.Unlock()

	stats := ReplayStats{
		Effects: make(map[session.Kind]int),
		Labels:  make(map[gesture.Label]int),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxReplayLine)

	start := time.Now()
	var (
		first    int64
		base     time.Time
		anchored bool
	)
	line := 0

	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}

		var header struct {
			TimestampMs *int64 `json:"timestamp_ms"`
		}
		if err := json.Unmarshal(data, &header); err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		hands, err := detector.DecodeFrame(data, gesture.MaxHands)
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}

		// Frames are spaced 1/30 s apart until the first timestamped frame,
		// which anchors later timestamps at its position.
		ts := start.Add(time.Duration(stats.Frames) * time.Second / 30)
		if header.TimestampMs != nil {
			if !anchored {
				anchored = true
				first = *header.TimestampMs
				base = ts
			}
			ts = base.Add(time.Duration(*header.TimestampMs-first) * time.Millisecond)
		}

		if realtime {
			if err := sleepUntil(ctx, ts); err != nil {
				return stats, err
			}
		} else if err := ctx.Err(); err != nil {
			return stats, err
		}

		effects := a.Process(session.Observation{Hands: hands, Timestamp: ts})
		stats.Frames++
		for _, e := range effects {
			stats.Effects[e.Kind]++
		}
		a.mu.RLock()
		stats.Labels[a.last.Hands[0].Label]++
		a.mu.RUnlock()
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read replay: %w", err)
	}
	return stats, nil
}

func sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
