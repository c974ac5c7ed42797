package models

type Coordinate struct {
	Lat float64
	Lon float64
}

// WellLocation is a well placed on the map.
type WellLocation struct {
	WellID string
	Loc    Coordinate
	Target bool
	// DistanceToTarget is in whole meters; zero for the target itself.
	DistanceToTarget int
}
