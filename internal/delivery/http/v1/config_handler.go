package v1

import (
	"net/http"
	"time"

	"zone-coverage-backend/internal/domain"
	"zone-coverage-backend/pkg/cache"
	"zone-coverage-backend/pkg/utils"
)

const enumsCacheKey = "system:config:enums"

type ConfigHandler struct {
	cache    cache.CacheService
	zoneRepo domain.ZoneRepository
}

func NewConfigHandler(cache cache.CacheService, zoneRepo domain.ZoneRepository) *ConfigHandler {
	return &ConfigHandler{cache: cache, zoneRepo: zoneRepo}
}

type enumsResponse struct {
	domain.Enums
	Zones []domain.Zone `json:"zones"`
}

// GET /api/v1/config/enums
func (h *ConfigHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if val, found := h.cache.Get(enumsCacheKey); found {
		utils.WriteJSON(w, http.StatusOK, val)
		return
	}

	zones, err := h.zoneRepo.ListZones(r.Context())
	if err != nil {
		w.Header().Del("Cache-Control")
		writeUsecaseError(w, r, err)
		return
	}
	active := make([]domain.Zone, 0, len(zones))
	for _, z := range zones {
		if z.IsActive {
			active = append(active, z)
		}
	}

	response := enumsResponse{Enums: domain.ListEnums(), Zones: active}
	h.cache.Set(enumsCacheKey, response, 1*time.Hour)
	utils.WriteJSON(w, http.StatusOK, response)
}
