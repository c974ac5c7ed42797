package geo

import (
	"math"

	"well-report/internal/models"
)

const earthRadius = 6371000.0 // meters

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Haversine computes the distance between two points in meters
func Haversine(a, b models.Coordinate) float64 {
	lat1Rad := toRadians(a.Lat)
	lat2Rad := toRadians(b.Lat)

	dLat := lat2Rad - lat1Rad
	dLon := toRadians(b.Lon) - toRadians(a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadius * c
}

// Locate pairs well ids with coordinates and measures the distance from each
// well to the target. Pairing stops at the shorter list. Distances stay zero
// when the target is not among the ids.
func Locate(wellIDs []string, coords []models.Coordinate, target string) []models.WellLocation {
	n := len(wellIDs)
	if len(coords) < n {
		n = len(coords)
	}

	locs := make([]models.WellLocation, n)
	targetIdx := -1
	for i := 0; i < n; i++ {
		locs[i] = models.WellLocation{WellID: wellIDs[i], Loc: coords[i]}
		if wellIDs[i] == target {
			locs[i].Target = true
			targetIdx = i
		}
	}
	if targetIdx < 0 {
		return locs
	}

	origin := locs[targetIdx].Loc
	for i := range locs {
		if i != targetIdx {
			locs[i].DistanceToTarget = int(math.Round(Haversine(origin, locs[i].Loc)))
		}
	}
	return locs
}
