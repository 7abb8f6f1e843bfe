package gesture

// Label is the discrete gesture assigned to a hand for one frame.
type Label string

const (
	LabelNone  Label = "NONE"
	LabelPinch Label = "PINCH"
	LabelFist  Label = "FIST"
	LabelOpen  Label = "OPEN"
	LabelPoint Label = "POINT"

	// Paint labels.
	LabelDrawing Label = "DRAWING"
	LabelErasing Label = "ERASING"
	LabelHover   Label = "HOVER"
)

// Thresholds bound the pinch and fist distances, in the units of the Space
// the features were extracted in.
type Thresholds struct {
	Pinch float64 `yaml:"pinch" mapstructure:"pinch" json:"pinch"`
	Fist  float64 `yaml:"fist" mapstructure:"fist" json:"fist"`
}

// Classify maps features to a label. Pinch is tested before fist, so a
// pinch made with a curled hand still counts as a pinch.
func Classify(f Features, t Thresholds) Label {
	switch {
	case f.Pinch < t.Pinch:
		return LabelPinch
	case f.Fist < t.Fist:
		return LabelFist
	case f.ExtendedCount() == 4:
		return LabelOpen
	case f.Extended[Index] && f.ExtendedCount() == 1:
		return LabelPoint
	default:
		return LabelNone
	}
}
