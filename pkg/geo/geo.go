// Package geo provides great-circle distance calculations for job-site
// geofencing and radius-based job discovery.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by the Haversine formula.
const EarthRadiusMeters = 6371000

// Point is a WGS84 coordinate pair.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Verification is the outcome of comparing a reported position against a
// job site: the rounded distance and whether it falls inside the geofence.
type Verification struct {
	DistanceMeters int
	Verified       bool
}

// Distance returns the great-circle distance between two points in meters,
// computed with the Haversine formula. Symmetric in its arguments.
func Distance(a, b Point) float64 {
	phi1 := a.Latitude * math.Pi / 180
	phi2 := b.Latitude * math.Pi / 180
	dPhi := (b.Latitude - a.Latitude) * math.Pi / 180
	dLambda := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Verify compares a reported position against a site and a geofence radius
// in meters. The distance is rounded to the nearest integer meter before the
// threshold comparison, matching what gets persisted.
func Verify(site, reported Point, radiusMeters int) Verification {
	d := int(math.Round(Distance(site, reported)))
	return Verification{
		DistanceMeters: d,
		Verified:       d <= radiusMeters,
	}
}

// BoundingBox returns the min/max latitude and longitude of a box that
// encloses a circle of the given radius around center. Used to pre-filter
// nearby-job queries before exact distance refinement.
func BoundingBox(center Point, radiusMeters float64) (minLat, maxLat, minLng, maxLng float64) {
	latDelta := radiusMeters / EarthRadiusMeters * 180 / math.Pi

	// Longitude degrees shrink with latitude; guard the poles.
	cosLat := math.Cos(center.Latitude * math.Pi / 180)
	if cosLat < 1e-6 {
		cosLat = 1e-6
	}
	lngDelta := latDelta / cosLat

	return center.Latitude - latDelta, center.Latitude + latDelta,
		center.Longitude - lngDelta, center.Longitude + lngDelta
}
