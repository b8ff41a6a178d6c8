package domain

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/zktrails/zktrails/internal/catalog"
)

func TestGeofenceVerifier_Madrid(t *testing.T) {
	g := NewGeofenceVerifier(catalog.Default(), nil)

	assert.True(t, g.Verify("m0", 40.414, -3.706))
	assert.False(t, g.Verify("m0", 40.420, -3.706))
}

func TestGeofenceVerifier_InclusiveBounds(t *testing.T) {
	g := NewGeofenceVerifier(catalog.Default(), nil)

	corners := [][2]float64{
		{40.413, -3.708},
		{40.413, -3.705},
		{40.416, -3.708},
		{40.416, -3.705},
	}
	for _, c := range corners {
		assert.True(t, g.Verify("m0", c[0], c[1]), "corner %v", c)
	}
	assert.False(t, g.Verify("m0", 40.412999, -3.706))
	assert.False(t, g.Verify("m0", 40.414, -3.704999))
}

func TestGeofenceVerifier_FailsClosed(t *testing.T) {
	g := NewGeofenceVerifier(catalog.Default(), nil)

	assert.False(t, g.Verify("nope", 40.414, -3.706), "unknown mission")
	assert.False(t, g.Verify("m1", 40.414, -3.706), "non-geofence mission")
	assert.False(t, g.Verify("m0", math.NaN(), -3.706))
	assert.False(t, g.Verify("m0", 40.414, math.Inf(1)))
	assert.False(t, InZone(nil, 40.414, -3.706))
}

func TestGeofenceVerifier_MaxAge(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	g := NewGeofenceVerifier(catalog.Default(), clock)
	m, err := catalog.Default().Get("m0")
	if err != nil {
		t.Fatal(err)
	}

	ts := func(d time.Duration) *time.Time {
		v := clock.Now().Add(d)
		return &v
	}

	assert.True(t, g.VerifyAt(m, Location{Lat: 40.414, Lon: -3.706}).Verified, "no timestamp skips the age check")
	assert.True(t, g.VerifyAt(m, Location{Lat: 40.414, Lon: -3.706, ReportedAt: ts(-299 * time.Second)}).Verified)

	stale := g.VerifyAt(m, Location{Lat: 40.414, Lon: -3.706, ReportedAt: ts(-301 * time.Second)})
	assert.False(t, stale.Verified)
	assert.Equal(t, reasonStaleReport, stale.Reason)

	future := g.VerifyAt(m, Location{Lat: 40.414, Lon: -3.706, ReportedAt: ts(10 * time.Minute)})
	assert.False(t, future.Verified)
}

func TestGeofenceVerifier_ReasonDoesNotLeakBounds(t *testing.T) {
	g := NewGeofenceVerifier(catalog.Default(), nil)
	m, _ := catalog.Default().Get("m0")

	res := g.VerifyAt(m, Location{Lat: 40.420, Lon: -3.706})
	assert.False(t, res.Verified)
	assert.NotContains(t, res.Reason, "40.4")
	assert.NotContains(t, res.Reason, "3.70")
}

func TestInZone_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		latMin := rapid.Int64Range(-90_000_000, 89_000_000).Draw(t, "latMin")
		lonMin := rapid.Int64Range(-180_000_000, 179_000_000).Draw(t, "lonMin")
		g := &catalog.GeofenceParams{
			LatMin: latMin,
			LatMax: latMin + rapid.Int64Range(0, 1_000_000).Draw(t, "latSpan"),
			LonMin: lonMin,
			LonMax: lonMin + rapid.Int64Range(0, 1_000_000).Draw(t, "lonSpan"),
		}

		lat := rapid.Int64Range(g.LatMin, g.LatMax).Draw(t, "lat")
		lon := rapid.Int64Range(g.LonMin, g.LonMax).Draw(t, "lon")
		if !InZone(g, float64(lat)/1e6, float64(lon)/1e6) {
			t.Fatalf("(%d, %d) inside %+v reported out of zone", lat, lon, g)
		}

		off := rapid.Int64Range(1, 1_000_000).Draw(t, "offset")
		outLat := g.LatMax + off
		if rapid.Bool().Draw(t, "below") {
			outLat = g.LatMin - off
		}
		if InZone(g, float64(outLat)/1e6, float64(lon)/1e6) {
			t.Fatalf("lat %d outside %+v reported in zone", outLat, g)
		}

		outLon := g.LonMax + off
		if rapid.Bool().Draw(t, "west") {
			outLon = g.LonMin - off
		}
		if InZone(g, float64(lat)/1e6, float64(outLon)/1e6) {
			t.Fatalf("lon %d outside %+v reported in zone", outLon, g)
		}
	})
}
