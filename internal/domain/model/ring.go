// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Ring is the adoption level a voter assigns to a technology.
type Ring string

// Ring values.
const (
	RingAssess Ring = "assess"
	RingTrial  Ring = "trial"
	RingAdopt  Ring = "adopt"
	RingHold   Ring = "hold"
)

// Rings lists every valid ring in radar order.
var Rings = []Ring{RingAdopt, RingTrial, RingAssess, RingHold} //nolint:gochecknoglobals // fixed enumeration

// ParseRing accepts a ring name in any case, ignoring surrounding whitespace.
func ParseRing(s string) (Ring, error) {
	r := Ring(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown ring %q", ErrInvalidInput, s)
	}
	return r, nil
}

// Valid reports whether r is one of the four rings.
func (r Ring) Valid() bool {
	switch r {
	case RingAssess, RingTrial, RingAdopt, RingHold:
		return true
	}
	return false
}

func (r Ring) String() string { return string(r) }
