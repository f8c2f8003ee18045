package v1

import (
	"net/http"

	"zone-coverage-backend/internal/usecase"
	"zone-coverage-backend/pkg/utils"
)

type AdminCoverageHandler struct {
	coverage *usecase.CoverageUsecase
}

func NewAdminCoverageHandler(coverage *usecase.CoverageUsecase) *AdminCoverageHandler {
	return &AdminCoverageHandler{coverage: coverage}
}

// GET /api/v1/admin/zones/{id}/coverage
func (h *AdminCoverageHandler) GetZoneCoverage(w http.ResponseWriter, r *http.Request) {
	zoneID, err := pathInt32(r, "id")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid zone ID")
		return
	}
	report, err := h.coverage.AnalyzeZone(r.Context(), zoneID)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, report)
}

// GET /api/v1/admin/coverage
func (h *AdminCoverageHandler) GetCoverageSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.coverage.AnalyzeAllZones(r.Context())
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}

// POST /api/v1/admin/coverage/snapshots
func (h *AdminCoverageHandler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	result, err := h.coverage.ArchiveSnapshot(r.Context())
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, result)
}

// GET /api/v1/admin/coverage/snapshots?limit=n
func (h *AdminCoverageHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := utils.ParseInt(r.URL.Query().Get("limit"), 20)
	objects, err := h.coverage.ListSnapshots(r.Context(), limit)
	if err != nil {
		writeUsecaseError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, newListResponse(objects))
}
