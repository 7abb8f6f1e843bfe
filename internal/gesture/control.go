package gesture

// Control maps hand motion onto a bounded parameter relative to where the
// hand was when control started, so re-acquiring the hand never makes the
// value jump to an absolute position.
type Control struct {
	Scale float64 `yaml:"scale" mapstructure:"scale" json:"scale"`
	Min   float64 `yaml:"min" mapstructure:"min" json:"min"`
	Max   float64 `yaml:"max" mapstructure:"max" json:"max"`
}

// Anchor is the snapshot taken when control starts.
type Anchor struct {
	Active bool    `json:"active"`
	Value  float64 `json:"value"`
	Coord  float64 `json:"coord"`
}

// Begin snapshots the current value and hand coordinate.
func (c Control) Begin(value, coord float64) Anchor {
	return Anchor{Active: true, Value: c.Clamp(value), Coord: coord}
}

// Value computes the parameter for the current coordinate.
func (c Control) Value(a Anchor, coord float64) float64 {
	return c.Clamp(a.Value + c.Scale*(coord-a.Coord))
}

// Clamp bounds v to [Min, Max]. A zero range disables clamping.
func (c Control) Clamp(v float64) float64 {
	if c.Min == 0 && c.Max == 0 {
		return v
	}
	if v < c.Min {
		return c.Min
	}
	if v > c.Max {
		return c.Max
	}
	return v
}
