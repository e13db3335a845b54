package services

import "math"

const (
	kmPerDegreeLat = 111.0
	earthRadiusKm  = 6371.0
)

// boundingBox is an axis-aligned lat/lon rectangle around a point. When the
// longitude span wraps the antimeridian, MinLon > MaxLon.
type boundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
	// AllLon is set when every longitude is within range (near a pole or a huge radius).
	AllLon bool
}

// boxAround converts a radius to a lat/lon rectangle used as a cheap SQL prefilter.
// The longitude span grows as 1/cos(lat); near the equator cos is ~1, so lat=0 is safe,
// and at the poles the box simply covers every longitude.
func boxAround(lat, lon, radiusKm float64) boundingBox {
	latDelta := radiusKm / kmPerDegreeLat
	b := boundingBox{
		MinLat: math.Max(lat-latDelta, -90),
		MaxLat: math.Min(lat+latDelta, 90),
	}
	if b.MinLat <= -90 || b.MaxLat >= 90 {
		b.AllLon = true
		return b
	}

	cosLat := math.Cos(degreesToRadians(lat))
	if cosLat < 1e-9 {
		b.AllLon = true
		return b
	}
	lonDelta := radiusKm / (kmPerDegreeLat * cosLat)
	if lonDelta >= 180 {
		b.AllLon = true
		return b
	}

	b.MinLon = normalizeLon(lon - lonDelta)
	b.MaxLon = normalizeLon(lon + lonDelta)
	return b
}

func normalizeLon(lon float64) float64 {
	switch {
	case lon < -180:
		return lon + 360
	case lon > 180:
		return lon - 360
	}
	return lon
}

// haversineKm is the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
