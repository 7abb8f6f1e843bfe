package gesture

import (
	"fmt"

	"github.com/ayusman/mudra/internal/detector"
)

// MaxHands is the number of hand slots tracked across frames.
const MaxHands = 2

// Side is the anatomical side of a hand.
type Side string

const (
	SideUnknown Side = ""
	SideLeft    Side = detector.HandLeft
	SideRight   Side = detector.HandRight
)

// IdentityPolicy decides which slot a detected hand is assigned to.
type IdentityPolicy string

const (
	// IdentitySlot uses the detector's output order. Roles swap whenever the
	// detector reorders hands.
	IdentitySlot IdentityPolicy = "slot"
	// IdentityLabel trusts the detector's handedness label.
	IdentityLabel IdentityPolicy = "label"
	// IdentityGeometry recomputes the side from the thumb and pinky tips.
	IdentityGeometry IdentityPolicy = "geometry"
)

// ParseIdentityPolicy validates a policy name. Empty selects geometry.
func ParseIdentityPolicy(s string) (IdentityPolicy, error) {
	switch p := IdentityPolicy(s); p {
	case IdentitySlot, IdentityLabel, IdentityGeometry:
		return p, nil
	case "":
		return IdentityGeometry, nil
	default:
		return "", fmt.Errorf("unknown identity policy %q", s)
	}
}

// AnatomicalSide infers the side of a palm-forward hand. On an un-mirrored
// image a right hand shows its thumb tip to the right of its pinky tip.
func AnatomicalSide(h *detector.HandLandmarks, mirrored bool) Side {
	right := h.At(detector.ThumbTip).X > h.At(detector.PinkyTip).X
	if mirrored {
		right = !right
	}
	if right {
		return SideRight
	}
	return SideLeft
}

// Assignment places one detected hand into a slot.
type Assignment struct {
	Present bool
	Index   int // position in the detector output
	Side    Side
}

// slotFor maps a side to its preferred slot: right hands drive slot 0.
func slotFor(s Side) int {
	if s == SideLeft {
		return 1
	}
	return 0
}

// Assign distributes up to MaxHands hands over the slots according to p.
// When two hands claim the same slot the detector order breaks the tie.
func Assign(hands []detector.HandLandmarks, p IdentityPolicy, mirrored bool) [MaxHands]Assignment {
	var slots [MaxHands]Assignment

	n := len(hands)
	if n > MaxHands {
		n = MaxHands
	}

	for i := 0; i < n; i++ {
		h := &hands[i]

		var side Side
		switch p {
		case IdentityGeometry:
			side = AnatomicalSide(h, mirrored)
		default:
			side = Side(h.Handedness)
		}

		slot := i
		if p != IdentitySlot {
			slot = slotFor(side)
			if slots[slot].Present {
				slot = 1 - slot
			}
		}
		slots[slot] = Assignment{Present: true, Index: i, Side: side}
	}

	return slots
}
