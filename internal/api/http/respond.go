package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxBodyBytes    = 1 << 20
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type page struct {
	Items      interface{} `json:"items"`
	Page       int32       `json:"page"`
	PageSize   int32       `json:"page_size"`
	TotalCount int32       `json:"total_count"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeRaw writes data without the envelope, for callers that dictate the body shape.
func writeRaw(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErrorBody(w http.ResponseWriter, status int, e apiError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &e})
}

// writeError maps domain error kinds to HTTP statuses. Anything unclassified is a 500
// whose cause is logged but not returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorBody(w, http.StatusInternalServerError, apiError{
			Code: "internal", Reason: "internal_error", Message: "an unexpected error occurred",
		})
		return
	}

	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(de, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(de, domain.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(de, domain.ErrValidation):
		status, code = http.StatusBadRequest, "validation"
	case errors.Is(de, domain.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(de, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	}
	writeErrorBody(w, status, apiError{Code: code, Reason: de.Reason, Message: de.Message})
}

// decodeJSON reads a single JSON object into dst and runs struct validation.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Validation("invalid_body", fmt.Sprintf("malformed JSON body: %v", err))
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.Validation("invalid_body", err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return domain.Validation("invalid_body", strings.Join(fields, "; "))
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, domain.Validation("invalid_id", name+" must be a UUID")
	}
	return id, nil
}

func pagination(r *http.Request) (int32, int32) {
	q := r.URL.Query()
	p, err := strconv.Atoi(q.Get("page"))
	if err != nil || p < 1 {
		p = 1
	}
	size, err := strconv.Atoi(q.Get("page_size"))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return int32(p), int32(size)
}

func optionalUUID(raw string, field string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.Validation("invalid_id", field+" must be a UUID")
	}
	return &id, nil
}
