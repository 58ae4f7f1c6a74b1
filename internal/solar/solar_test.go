package solar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reference location used throughout: Poznań, Poland.
const (
	poznanLat = 52.3821038
	poznanLon = 16.9141764
)

func TestAltitude_EquatorEquinoxNoon(t *testing.T) {
	t.Parallel()

	// At the March equinox the sun stands nearly overhead at the equator
	// around 12:00 UTC on the prime meridian.
	noon := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)
	alt := Altitude(0, 0, noon)
	assert.Greater(t, alt, 85.0, "equinox noon at (0,0) should be near zenith, got %v", alt)
}

func TestAltitude_EquatorEquinoxMidnight(t *testing.T) {
	t.Parallel()

	midnight := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
	alt := Altitude(0, 0, midnight)
	assert.Less(t, alt, -80.0, "equinox midnight at (0,0) should be near nadir, got %v", alt)
}

func TestAltitude_SolsticeNoonPoznan(t *testing.T) {
	t.Parallel()

	// Local solar noon in Poznań is about 4*16.91 ≈ 68 minutes before
	// 12:00 UTC. Expected culmination: 90 - lat + decl.
	solarNoon := time.Date(2024, time.June, 20, 10, 52, 0, 0, time.UTC)
	alt := Altitude(poznanLat, poznanLon, solarNoon)
	assert.InDelta(t, 90-poznanLat+23.44, alt, 1.5)

	winterNoon := time.Date(2024, time.December, 21, 10, 52, 0, 0, time.UTC)
	winterAlt := Altitude(poznanLat, poznanLon, winterNoon)
	assert.InDelta(t, 90-poznanLat-23.44, winterAlt, 1.5)
}

func TestAltitude_Deterministic(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, time.September, 1, 14, 30, 0, 0, time.UTC)
	first := Altitude(poznanLat, poznanLon, at)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Altitude(poznanLat, poznanLon, at))
	}
}

func TestAltitude_WithinPhysicalRange(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24*7; h++ {
		at := start.Add(time.Duration(h) * time.Hour)
		alt := Altitude(poznanLat, poznanLon, at)
		require.GreaterOrEqual(t, alt, -90.5)
		require.LessOrEqual(t, alt, 90.5)
	}
}

func TestAltitude_MorningRise(t *testing.T) {
	t.Parallel()

	// Altitude must be monotonic non-decreasing through the morning hours.
	day := time.Date(2024, time.June, 20, 4, 0, 0, 0, time.UTC)
	prev := Altitude(poznanLat, poznanLon, day)
	for m := 10; m <= 6*60; m += 10 {
		alt := Altitude(poznanLat, poznanLon, day.Add(time.Duration(m)*time.Minute))
		require.GreaterOrEqual(t, alt, prev, "altitude dipped at +%dm", m)
		prev = alt
	}
}

func TestAltitude_TimezoneIndependent(t *testing.T) {
	t.Parallel()

	// The same instant expressed in different zones must give the same
	// altitude.
	utc := time.Date(2024, time.April, 10, 9, 15, 0, 0, time.UTC)
	warsaw := utc.In(time.FixedZone("CEST", 2*3600))
	assert.InDelta(t,
		Altitude(poznanLat, poznanLon, utc),
		Altitude(poznanLat, poznanLon, warsaw),
		1e-9)
}

func TestEquationOfTime_Bounded(t *testing.T) {
	t.Parallel()

	// The equation of time stays within about ±17 minutes over a year.
	for d := 0; d < 365; d += 5 {
		at := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, d)
		jc := (julianDay(at) - j2000) / julianCentury
		eot := equationOfTime(jc)
		require.InDelta(t, 0, eot, 17.5, "day %d", d)
	}
}

func TestDeclination_Bounded(t *testing.T) {
	t.Parallel()

	for d := 0; d < 365; d += 5 {
		at := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, d)
		jc := (julianDay(at) - j2000) / julianCentury
		decl := declination(jc)
		require.InDelta(t, 0, decl, 23.6, "day %d", d)
	}
}
