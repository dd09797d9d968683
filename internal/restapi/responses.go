package restapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"subwaychallenge.org/pathfinder/internal/logging"
	"subwaychallenge.org/pathfinder/internal/models"
	"subwaychallenge.org/pathfinder/internal/transit"
)

func setJSONResponseType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
}

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	setJSONResponseType(w)
	if response.Code != 0 && response.Code != http.StatusOK {
		w.WriteHeader(response.Code)
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(api.requestLogger(r), "failed to encode response", err)
	}
}

func (api *RestAPI) sendStatus(w http.ResponseWriter, r *http.Request, code int, text string) {
	api.sendResponse(w, r, models.NewResponseWithClock(code, nil, text, api.Clock))
}

// invalidAPIKeyResponse sends a 401 Unauthorized response
func (api *RestAPI) invalidAPIKeyResponse(w http.ResponseWriter, r *http.Request) {
	api.sendStatus(w, r, http.StatusUnauthorized, "permission denied")
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	api.sendStatus(w, r, http.StatusNotFound, "resource not found")
}

func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(api.requestLogger(r), "request failed", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))
	api.sendStatus(w, r, http.StatusInternalServerError, "internal server error")
}

// validationErrorResponse sends a 400 Bad Request response with field-specific validation errors
func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	response := struct {
		Code        int                 `json:"code"`
		CurrentTime int64               `json:"currentTime"`
		Text        string              `json:"text"`
		FieldErrors map[string][]string `json:"fieldErrors"`
		Version     int                 `json:"version"`
	}{
		Code:        http.StatusBadRequest,
		CurrentTime: models.ResponseCurrentTimeWithClock(api.Clock),
		Text:        "validation failed",
		FieldErrors: fieldErrors,
		Version:     2,
	}

	setJSONResponseType(w)
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.LogError(api.requestLogger(r), "failed to encode validation error response", err)
	}
}

// sendError maps a domain error to its HTTP status. Anything that is not a
// known kind is a server error.
func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, transit.ErrNotFound):
		api.sendStatus(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, transit.ErrValidation):
		api.sendStatus(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, transit.ErrEmptyResult):
		api.sendStatus(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		api.serverErrorResponse(w, r, err)
	}
}

func (api *RestAPI) requestLogger(r *http.Request) *slog.Logger {
	if api.Logger != nil {
		return api.Logger
	}
	return logging.FromContext(r.Context())
}
