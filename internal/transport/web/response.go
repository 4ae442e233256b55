package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"scrapbook/internal/domain"
)

// Error codes carried in the error envelope.
const (
	CodeBadParams      = 1000
	CodeUnauthorized   = 1001
	CodeNotFound       = 1004
	CodeUploadInFlight = 1009
	CodeUpstream       = 1502
	CodeUnexpected     = 1500
)

type envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code int    `json:"code"`
	Text string `json:"text"`
}

// mapError picks the HTTP status and envelope error for err.
func mapError(err error) (int, apiError) {
	var failure *domain.Failure
	switch {
	case errors.Is(err, domain.ErrInvalidBlock):
		return http.StatusBadRequest, apiError{CodeBadParams, err.Error()}
	case errors.Is(err, domain.ErrNoUser), errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, apiError{CodeUnauthorized, "unauthorized"}
	case errors.Is(err, domain.ErrBlockNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, apiError{CodeNotFound, err.Error()}
	case errors.Is(err, domain.ErrUploadInProgress):
		return http.StatusConflict, apiError{CodeUploadInFlight, "an upload is already pending for this block"}
	case errors.As(err, &failure):
		return http.StatusBadGateway, apiError{CodeUpstream, failure.Error()}
	default:
		return http.StatusInternalServerError, apiError{CodeUnexpected, "unexpected"}
	}
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(env)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeEnvelope(w, r, status, envelope{Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, e := mapError(err)
	writeEnvelope(w, r, status, envelope{Error: &e})
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, text string) {
	writeEnvelope(w, r, http.StatusBadRequest, envelope{Error: &apiError{CodeBadParams, text}})
}
