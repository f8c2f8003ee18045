package v1

import (
	"net/http"

	"zone-coverage-backend/internal/domain"
	"zone-coverage-backend/pkg/cache"
	"zone-coverage-backend/pkg/utils"
)

// AdminConfigHandler exposes the zone directory and lets operators refresh
// the cached enums after the geography service changed zones.
type AdminConfigHandler struct {
	cache    cache.CacheService
	zoneRepo domain.ZoneRepository
}

func NewAdminConfigHandler(cache cache.CacheService, zoneRepo domain.ZoneRepository) *AdminConfigHandler {
	return &AdminConfigHandler{cache: cache, zoneRepo: zoneRepo}
}

// GET /api/v1/admin/zones
func (h *AdminConfigHandler) ListZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.zoneRepo.ListZones(r.Context())
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, newListResponse(zones))
}

// GET /api/v1/admin/zones/{id}
func (h *AdminConfigHandler) GetZone(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt32(r, "id")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid zone ID")
		return
	}
	zone, err := h.zoneRepo.GetZoneByID(r.Context(), id)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, zone)
}

// POST /api/v1/admin/config/refresh
func (h *AdminConfigHandler) RefreshEnums(w http.ResponseWriter, r *http.Request) {
	h.cache.Delete(enumsCacheKey)
	w.WriteHeader(http.StatusNoContent)
}
