// Package tier maps continuous values onto discrete display classes.
package tier

import (
	"errors"
	"fmt"
	"math"
)

// Tier is one discrete display class.
type Tier struct {
	Name  string `json:"name"`
	Icon  int    `json:"icon"`
	Color string `json:"color,omitempty"`
}

// Boundary starts a tier at From (inclusive). The tier extends up to the From
// of the next boundary (exclusive), or to +Inf for the last boundary.
type Boundary struct {
	From float64
	Tier Tier
}

// Rules is an ordered set of boundaries.
type Rules struct {
	boundaries []Boundary
}

// NewRules validates that the boundaries are non-empty and strictly ascending.
func NewRules(boundaries ...Boundary) (Rules, error) {
	if len(boundaries) == 0 {
		return Rules{}, errors.New("at least one boundary is required")
	}
	for i := 1; i < len(boundaries); i++ {
		if !(boundaries[i].From > boundaries[i-1].From) {
			return Rules{}, fmt.Errorf(
				"boundary %d (%v) is not above boundary %d (%v)",
				i, boundaries[i].From, i-1, boundaries[i-1].From,
			)
		}
	}
	return Rules{boundaries: append([]Boundary(nil), boundaries...)}, nil
}

// MustRules is like NewRules but panics on invalid boundaries.
func MustRules(boundaries ...Boundary) Rules {
	r, err := NewRules(boundaries...)
	if err != nil {
		panic(err)
	}
	return r
}

// Classify returns the tier whose interval contains v. Values below the first
// boundary, and NaN, fall into the first tier.
func (r Rules) Classify(v float64) Tier {
	if len(r.boundaries) == 0 {
		return Tier{}
	}
	idx := r.Index(v)
	return r.boundaries[idx].Tier
}

// Index returns the position of the tier containing v.
func (r Rules) Index(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	idx := 0
	for i, b := range r.boundaries {
		if v >= b.From {
			idx = i
		} else {
			break
		}
	}
	return idx
}

// Tiers returns a copy of the tiers in ascending order.
func (r Rules) Tiers() []Tier {
	tiers := make([]Tier, len(r.boundaries))
	for i, b := range r.boundaries {
		tiers[i] = b.Tier
	}
	return tiers
}
