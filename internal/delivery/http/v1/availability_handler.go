package v1

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"zone-coverage-backend/internal/domain"
	"zone-coverage-backend/pkg/utils"
)

type AvailabilityResolver interface {
	Resolve(ctx context.Context, zoneID int32, instant time.Time, distanceKm float64) (domain.Decision, error)
}

type AvailabilityHandler struct {
	resolver AvailabilityResolver
	loc      *time.Location
	now      func() time.Time
}

// NewAvailabilityHandler reads zone-less at values as wall time in loc.
func NewAvailabilityHandler(resolver AvailabilityResolver, loc *time.Location) *AvailabilityHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityHandler{resolver: resolver, loc: loc, now: time.Now}
}

// localInstantLayouts are accepted after RFC3339 and read in the service timezone.
var localInstantLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04"}

func parseInstant(raw string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	for _, layout := range localInstantLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type availabilityResponse struct {
	ZoneID     int32     `json:"zoneId"`
	At         time.Time `json:"at"`
	DistanceKm float64   `json:"distanceKm"`
	domain.Decision
}

// GET /api/v1/zones/{id}/availability?at=RFC3339|YYYY-MM-DDTHH:MM[:SS]&distance=km
// at defaults to the current time.
func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	zoneID, err := pathInt32(r, "id")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid zone ID")
		return
	}

	q := r.URL.Query()
	at := h.now()
	if raw := q.Get("at"); raw != "" {
		var ok bool
		if at, ok = parseInstant(raw, h.loc); !ok {
			utils.WriteError(w, http.StatusBadRequest, "at must be an RFC3339 timestamp or local YYYY-MM-DDTHH:MM[:SS]")
			return
		}
	}

	rawDistance := q.Get("distance")
	if rawDistance == "" {
		utils.WriteError(w, http.StatusBadRequest, "distance is required")
		return
	}
	distance, err := strconv.ParseFloat(rawDistance, 64)
	if err != nil || math.IsNaN(distance) || math.IsInf(distance, 0) || distance < 0 {
		utils.WriteError(w, http.StatusBadRequest, "distance must be a non-negative number of kilometres")
		return
	}

	decision, err := h.resolver.Resolve(r.Context(), zoneID, at, distance)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}

	// Decisions depend on the clock; never let intermediaries cache them.
	w.Header().Set("Cache-Control", "no-store")
	utils.WriteJSON(w, http.StatusOK, availabilityResponse{
		ZoneID:     zoneID,
		At:         at,
		DistanceKm: distance,
		Decision:   decision,
	})
}
