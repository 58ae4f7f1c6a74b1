// Package solar computes the sun's apparent altitude using the NOAA
// solar-position algorithm (Meeus, Astronomical Algorithms, ch. 25).
// All functions are pure; accuracy is well under 0.1 degrees for years
// 1900-2100, far below what a brightness curve can resolve.
package solar

import (
	"math"
	"time"
)

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi

	// j2000 is the Julian day of the J2000.0 epoch.
	j2000 = 2451545.0
	// julianCentury is days per Julian century.
	julianCentury = 36525.0
)

// Altitude returns the sun's apparent elevation above the horizon in degrees
// (roughly -90..90) for the given observer position and instant. The result
// includes atmospheric refraction, matching what a human perceives at the
// horizon.
func Altitude(lat, lon float64, t time.Time) float64 {
	jd := julianDay(t)
	jc := (jd - j2000) / julianCentury

	decl := declination(jc)
	eot := equationOfTime(jc)

	utc := t.UTC()
	minutesUTC := float64(utc.Hour())*60 + float64(utc.Minute()) +
		float64(utc.Second())/60 + float64(utc.Nanosecond())/6e10

	// True solar time in minutes, wrapped to [0, 1440).
	tst := math.Mod(minutesUTC+eot+4*lon, 1440)
	if tst < 0 {
		tst += 1440
	}
	hourAngle := tst/4 - 180

	latR := lat * degToRad
	declR := decl * degToRad
	haR := hourAngle * degToRad

	cosZenith := math.Sin(latR)*math.Sin(declR) +
		math.Cos(latR)*math.Cos(declR)*math.Cos(haR)
	cosZenith = math.Max(-1, math.Min(1, cosZenith))

	elevation := 90 - math.Acos(cosZenith)*radToDeg
	return elevation + refractionCorrection(elevation)
}

// julianDay converts a time to a Julian day number (UT).
func julianDay(t time.Time) float64 {
	return float64(t.UnixMilli())/86400000.0 + 2440587.5
}

// geometricMeanLongitude returns the sun's geometric mean longitude in
// degrees, normalized to [0, 360).
func geometricMeanLongitude(jc float64) float64 {
	l0 := math.Mod(280.46646+jc*(36000.76983+jc*0.0003032), 360)
	if l0 < 0 {
		l0 += 360
	}
	return l0
}

// geometricMeanAnomaly returns the sun's mean anomaly in degrees.
func geometricMeanAnomaly(jc float64) float64 {
	return 357.52911 + jc*(35999.05029-0.0001537*jc)
}

// orbitEccentricity returns the eccentricity of Earth's orbit.
func orbitEccentricity(jc float64) float64 {
	return 0.016708634 - jc*(0.000042037+0.0000001267*jc)
}

// apparentLongitude returns the sun's apparent ecliptic longitude in degrees,
// corrected for nutation and aberration.
func apparentLongitude(jc float64) float64 {
	m := geometricMeanAnomaly(jc) * degToRad
	center := math.Sin(m)*(1.914602-jc*(0.004817+0.000014*jc)) +
		math.Sin(2*m)*(0.019993-0.000101*jc) +
		math.Sin(3*m)*0.000289
	trueLong := geometricMeanLongitude(jc) + center
	omega := (125.04 - 1934.136*jc) * degToRad
	return trueLong - 0.00569 - 0.00478*math.Sin(omega)
}

// obliquityCorrected returns the corrected obliquity of the ecliptic in
// degrees.
func obliquityCorrected(jc float64) float64 {
	seconds := 21.448 - jc*(46.815+jc*(0.00059-jc*0.001813))
	mean := 23 + (26+seconds/60)/60
	omega := (125.04 - 1934.136*jc) * degToRad
	return mean + 0.00256*math.Cos(omega)
}

// declination returns the sun's declination in degrees.
func declination(jc float64) float64 {
	eps := obliquityCorrected(jc) * degToRad
	lambda := apparentLongitude(jc) * degToRad
	return math.Asin(math.Sin(eps)*math.Sin(lambda)) * radToDeg
}

// equationOfTime returns the equation of time in minutes: the difference
// between apparent and mean solar time.
func equationOfTime(jc float64) float64 {
	eps := obliquityCorrected(jc) * degToRad
	l0 := geometricMeanLongitude(jc) * degToRad
	m := geometricMeanAnomaly(jc) * degToRad
	e := orbitEccentricity(jc)

	y := math.Tan(eps / 2)
	y *= y

	eot := y*math.Sin(2*l0) -
		2*e*math.Sin(m) +
		4*e*y*math.Sin(m)*math.Cos(2*l0) -
		0.5*y*y*math.Sin(4*l0) -
		1.25*e*e*math.Sin(2*m)
	return eot * radToDeg * 4
}

// refractionCorrection returns the atmospheric refraction correction in
// degrees for a given true elevation, using the NOAA piecewise model.
func refractionCorrection(elevation float64) float64 {
	if elevation > 85 {
		return 0
	}

	te := math.Tan(elevation * degToRad)
	var correction float64
	switch {
	case elevation > 5:
		correction = 58.1/te - 0.07/(te*te*te) + 0.000086/(te*te*te*te*te)
	case elevation > -0.575:
		correction = 1735 + elevation*(-518.2+elevation*(103.4+elevation*(-12.79+elevation*0.711)))
	default:
		correction = -20.774 / te
	}
	return correction / 3600
}
