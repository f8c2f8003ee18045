package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"zone-coverage-backend/internal/domain"
	"zone-coverage-backend/internal/usecase"
	"zone-coverage-backend/pkg/logger"
	"zone-coverage-backend/pkg/utils"

	"github.com/goccy/go-json"
)

// maxBodyBytes bounds admin payloads; rule records are tiny.
const maxBodyBytes = 64 << 10

func pathInt32(r *http.Request, name string) (int32, error) {
	v, err := strconv.ParseInt(r.PathValue(name), 10, 32)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return int32(v), nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeUsecaseError maps domain errors onto status codes.
func writeUsecaseError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.WriteValidationError(w, verr.Messages)
	case errors.Is(err, domain.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrZoneLocked):
		utils.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, usecase.ErrArchiveDisabled):
		utils.WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
