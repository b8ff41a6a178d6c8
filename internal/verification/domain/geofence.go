package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/zktrails/zktrails/internal/catalog"
	"github.com/zktrails/zktrails/internal/validation"
)

// maxClockSkew is how far in the future a reported timestamp may be.
const maxClockSkew = time.Minute

const (
	reasonInZone      = "Location verified"
	reasonOutOfZone   = "Location is outside the mission zone"
	reasonStaleReport = "Location report is too old"
	reasonNotLocation = "Mission does not accept location proofs"
)

// InZone reports whether a coordinate lies inside the inclusive bounding box.
// Coordinates are compared in micro-degrees. Non-finite or out-of-range
// coordinates are never in zone.
func InZone(g *catalog.GeofenceParams, lat, lon float64) bool {
	if g == nil || validation.ValidateCoordinates(lat, lon) != nil {
		return false
	}
	la, lo := catalog.ToMicroDegrees(lat), catalog.ToMicroDegrees(lon)
	return la >= g.LatMin && la <= g.LatMax && lo >= g.LonMin && lo <= g.LonMax
}

// GeofenceVerifier checks player locations against geofence missions.
type GeofenceVerifier struct {
	missions MissionSource
	clock    clockwork.Clock
}

// NewGeofenceVerifier creates a GeofenceVerifier.
func NewGeofenceVerifier(missions MissionSource, clock clockwork.Clock) *GeofenceVerifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &GeofenceVerifier{missions: missions, clock: clock}
}

// Verify reports whether the coordinate is inside the mission's zone. It
// fails closed for unknown and non-geofence missions.
func (g *GeofenceVerifier) Verify(missionID string, lat, lon float64) bool {
	m, err := g.missions.Get(missionID)
	if err != nil || m.Method != catalog.MethodGeofence {
		return false
	}
	return InZone(m.Geofence, lat, lon)
}

// VerifyAt checks a location report, also rejecting reports older than the
// mission's maximum age when both the mission and the report carry one.
func (g *GeofenceVerifier) VerifyAt(m *catalog.Mission, loc Location) Result {
	if m.Method != catalog.MethodGeofence || m.Geofence == nil {
		return Result{Reason: reasonNotLocation}
	}
	if !InZone(m.Geofence, loc.Lat, loc.Lon) {
		return Result{Reason: reasonOutOfZone}
	}
	if maxAge := m.Geofence.MaxAgeSeconds; maxAge > 0 && loc.ReportedAt != nil {
		age := g.clock.Since(*loc.ReportedAt)
		if age > time.Duration(maxAge)*time.Second || age < -maxClockSkew {
			return Result{Reason: reasonStaleReport}
		}
	}
	return Result{Verified: true, Reason: reasonInZone}
}

// VerifyAttempt verifies the location evidence of an attempt.
func (g *GeofenceVerifier) VerifyAttempt(_ context.Context, a Attempt) (Result, error) {
	if a.Evidence.Location == nil {
		return Result{}, fmt.Errorf("%w: lat and lon are required", ErrInvalidInput)
	}
	return g.VerifyAt(a.Mission, *a.Evidence.Location), nil
}
