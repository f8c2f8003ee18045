package v1

import (
	"net/http"

	"zone-coverage-backend/internal/usecase"
	"zone-coverage-backend/pkg/utils"
)

type AdminZoneRulesHandler struct {
	rules *usecase.ZoneRulesUsecase
}

func NewAdminZoneRulesHandler(rules *usecase.ZoneRulesUsecase) *AdminZoneRulesHandler {
	return &AdminZoneRulesHandler{rules: rules}
}

type listResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

func newListResponse[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Data: items, Total: len(items)}
}

// --- Schedules ---

// GET /api/v1/admin/zones/{id}/schedules
func (h *AdminZoneRulesHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	zoneID, err := pathInt32(r, "id")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid zone ID")
		return
	}
	entries, err := h.rules.ListSchedules(r.Context(), zoneID)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, newListResponse(entries))
}

// POST /api/v1/admin/zones/{id}/schedules
func (h *AdminZoneRulesHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	zoneID, err := pathInt32(r, "id")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid zone ID")
		return
	}
	var req usecase.CreateScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := h.rules.CreateSchedule(r.Context(), zoneID, req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, entry)
}

// PUT /api/v1/admin/schedules/{id}
func (h *AdminZoneRulesHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid schedule ID")
		return
	}
	var req usecase.UpdateScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := h.rules.UpdateSchedule(r.Context(), id, req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, entry)
}

// DELETE /api/v1/admin/schedules/{id}
func (h *AdminZoneRulesHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid schedule ID")
		return
	}
	if err := h.rules.DeleteSchedule(r.Context(), id); err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Distance bands ---

// GET /api/v1/admin/zones/{id}/bands
func (h *AdminZoneRulesHandler) ListBands(w http.ResponseWriter, r *http.Request) {
	zoneID, err := pathInt32(r, "id")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid zone ID")
		return
	}
	bands, err := h.rules.ListBands(r.Context(), zoneID)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, newListResponse(bands))
}

// POST /api/v1/admin/zones/{id}/bands
func (h *AdminZoneRulesHandler) CreateBand(w http.ResponseWriter, r *http.Request) {
	zoneID, err := pathInt32(r, "id")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid zone ID")
		return
	}
	var req usecase.CreateBandRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	band, err := h.rules.CreateBand(r.Context(), zoneID, req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, band)
}

// PUT /api/v1/admin/bands/{id}
func (h *AdminZoneRulesHandler) UpdateBand(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid band ID")
		return
	}
	var req usecase.UpdateBandRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	band, err := h.rules.UpdateBand(r.Context(), id, req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, band)
}

// DELETE /api/v1/admin/bands/{id}
func (h *AdminZoneRulesHandler) DeleteBand(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid band ID")
		return
	}
	if err := h.rules.DeleteBand(r.Context(), id); err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Exceptions ---

// GET /api/v1/admin/zones/{id}/exceptions
func (h *AdminZoneRulesHandler) ListExceptions(w http.ResponseWriter, r *http.Request) {
	zoneID, err := pathInt32(r, "id")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid zone ID")
		return
	}
	list, err := h.rules.ListExceptions(r.Context(), zoneID)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, newListResponse(list))
}

// POST /api/v1/admin/zones/{id}/exceptions
func (h *AdminZoneRulesHandler) CreateException(w http.ResponseWriter, r *http.Request) {
	zoneID, err := pathInt32(r, "id")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid zone ID")
		return
	}
	var req usecase.CreateExceptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	exc, err := h.rules.CreateException(r.Context(), zoneID, req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, exc)
}

// PUT /api/v1/admin/exceptions/{id}
func (h *AdminZoneRulesHandler) UpdateException(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid exception ID")
		return
	}
	var req usecase.UpdateExceptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	exc, err := h.rules.UpdateException(r.Context(), id, req)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, exc)
}

// DELETE /api/v1/admin/exceptions/{id}
func (h *AdminZoneRulesHandler) DeleteException(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid exception ID")
		return
	}
	if err := h.rules.DeleteException(r.Context(), id); err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
