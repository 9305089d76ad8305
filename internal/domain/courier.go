package domain

import "github.com/google/uuid"

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// Zero reports whether the point is the degenerate (0,0) "no GPS fix yet"
// value that location pushes send before the receiver acquires a fix.
func (p GeoPoint) Zero() bool {
	return p.Lat == 0 && p.Lng == 0
}

// InRange validates coordinate bounds.
func (p GeoPoint) InRange() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// NearbyCourier is one geospatial index hit: a courier id with its last
// reported point and the distance from the query point, in meters.
type NearbyCourier struct {
	CourierID      uuid.UUID
	Point          GeoPoint
	DistanceMeters float64
}
