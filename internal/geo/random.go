// Package geo generates synthetic well coordinates and measures distances
// between them.
package geo

import (
	"errors"
	"fmt"
	"math/rand"

	"well-report/internal/models"
)

var (
	ErrInvalidCount     = errors.New("number must be at least 1")
	ErrInvalidCenter    = errors.New("center must be a positive latitude and longitude pair")
	ErrInvalidThreshold = errors.New("threshold must not be negative")
)

// Generator produces random coordinates around a center point. The
// longitude spread is the threshold multiplied by ThresholdModifier.
//
// With SeedEnabled every call starts from Seed, so equal inputs give equal
// output. Otherwise the shared math/rand source is used.
type Generator struct {
	ThresholdModifier float64
	SeedEnabled       bool
	Seed              int64
}

// Generate returns number coordinates uniformly distributed in
// lat ∈ [center[0]-threshold, center[0]+threshold] and
// lon ∈ [center[1]-threshold*m, center[1]+threshold*m].
func (g Generator) Generate(center []float64, threshold float64, number int) ([]models.Coordinate, error) {
	if number < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, number)
	}
	if len(center) != 2 {
		return nil, fmt.Errorf("%w: got %d values", ErrInvalidCenter, len(center))
	}
	for _, c := range center {
		if !(c > 0) {
			return nil, fmt.Errorf("%w: got %v", ErrInvalidCenter, center)
		}
	}
	if threshold < 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, threshold)
	}

	next := rand.Float64
	if g.SeedEnabled {
		next = rand.New(rand.NewSource(g.Seed)).Float64
	}
	uniform := func(lo, hi float64) float64 {
		return lo + (hi-lo)*next()
	}

	lonSpread := threshold * g.ThresholdModifier
	coords := make([]models.Coordinate, 0, number)
	for i := 0; i < number; i++ {
		lat := uniform(center[0]-threshold, center[0]+threshold)
		lon := uniform(center[1]-lonSpread, center[1]+lonSpread)
		coords = append(coords, models.Coordinate{Lat: lat, Lon: lon})
	}
	return coords, nil
}
