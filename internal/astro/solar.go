// Package astro computes low-precision solar geometry: altitude and
// azimuth for a point and instant, nominal sunrise/sunset instants,
// and the twilight visibility test used for compositing masks.
// Accuracy is a fraction of a degree, which is sufficient for path
// sampling; this is not ephemeris-grade.
package astro

import (
	"math"
	"time"
)

// Position is the apparent solar position for one point and instant.
type Position struct {
	Altitude  float64 // degrees above the horizon, negative below
	Azimuth   float64 // degrees clockwise from north
	HourAngle float64 // degrees, negative before local solar noon
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
func radToDeg(r float64) float64 { return r * 180 / math.Pi }

// fixAngle normalizes an angle to [0, 360).
func fixAngle(a float64) float64 { return a - 360*math.Floor(a/360) }

// julianDay converts a UTC time to a Julian Day number.
func julianDay(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Year(), int(t.Month()), t.Day()
	if month <= 2 {
		year--
		month += 12
	}
	a := year / 100
	b := 2 - a + a/4
	jd := float64(int(365.25*float64(year+4716))) +
		float64(int(30.6001*float64(month+1))) +
		float64(day) + float64(b) - 1524.5
	frac := (float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600) / 24
	return jd + frac
}

// SolarPosition computes the sun's altitude and azimuth at (lat, lon)
// for a UTC instant, using the low-precision solar coordinates of the
// Astronomical Almanac. Longitude is degrees east, either convention
// ([-180,180] or [0,360]).
func SolarPosition(lat, lon float64, t time.Time) Position {
	if lon > 180 {
		lon -= 360
	}
	n := julianDay(t) - 2451545.0

	// Mean longitude and mean anomaly of the sun.
	L := fixAngle(280.460 + 0.9856474*n)
	g := degToRad(fixAngle(357.528 + 0.9856003*n))

	// Ecliptic longitude and obliquity.
	lambda := degToRad(L + 1.915*math.Sin(g) + 0.020*math.Sin(2*g))
	eps := degToRad(23.439 - 0.0000004*n)

	// Equatorial coordinates.
	ra := math.Atan2(math.Cos(eps)*math.Sin(lambda), math.Cos(lambda))
	dec := math.Asin(math.Sin(eps) * math.Sin(lambda))

	// Local hour angle via Greenwich mean sidereal time.
	gmst := fixAngle(280.46061837 + 360.98564736629*n)
	ha := fixAngle(gmst + lon - radToDeg(ra))
	if ha > 180 {
		ha -= 360
	}
	haRad := degToRad(ha)

	latRad := degToRad(lat)
	sinAlt := math.Sin(latRad)*math.Sin(dec) + math.Cos(latRad)*math.Cos(dec)*math.Cos(haRad)
	alt := math.Asin(sinAlt)

	// Azimuth measured clockwise from north.
	az := math.Atan2(math.Sin(haRad),
		math.Cos(haRad)*math.Sin(latRad)-math.Tan(dec)*math.Cos(latRad))
	azDeg := fixAngle(radToDeg(az) + 180)

	return Position{
		Altitude:  radToDeg(alt),
		Azimuth:   azDeg,
		HourAngle: ha,
	}
}

// DestinationPoint returns the point reached by travelling distanceKM
// along the great circle with the given initial bearing (degrees
// clockwise from north) from (lat, lon).
func DestinationPoint(lat, lon, bearing, distanceKM float64) (float64, float64) {
	const earthRadiusKM = 6371.0
	latR := degToRad(lat)
	lonR := degToRad(lon)
	brgR := degToRad(bearing)
	d := distanceKM / earthRadiusKM

	lat2 := math.Asin(math.Sin(latR)*math.Cos(d) + math.Cos(latR)*math.Sin(d)*math.Cos(brgR))
	lon2 := lonR + math.Atan2(
		math.Sin(brgR)*math.Sin(d)*math.Cos(latR),
		math.Cos(d)-math.Sin(latR)*math.Sin(lat2),
	)
	return radToDeg(lat2), radToDeg(lon2)
}
