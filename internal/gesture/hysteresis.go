package gesture

// Hysteresis is a two-threshold latch. A value below Start turns it on, a
// value above Stop turns it off, and anything in between keeps the previous
// state so jitter around a single boundary cannot toggle it.
type Hysteresis struct {
	Start float64 `yaml:"start" mapstructure:"start" json:"start"`
	Stop  float64 `yaml:"stop" mapstructure:"stop" json:"stop"`
}

// Next returns the latch state after observing v.
func (h Hysteresis) Next(on bool, v float64) bool {
	switch {
	case v < h.Start:
		return true
	case v > h.Stop:
		return false
	default:
		return on
	}
}

// Valid reports whether the dead zone is well formed.
func (h Hysteresis) Valid() bool {
	return h.Start > 0 && h.Stop >= h.Start
}
