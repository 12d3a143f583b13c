// Package handler provides shared response helpers for the API and
// webhook handlers. Error responses always carry a machine-readable
// "code" the dashboard can branch on.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/tickerdeck/tickerdeck/internal/domain"
	"github.com/tickerdeck/tickerdeck/internal/middleware"
)

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorResponse writes a domain error as JSON. Internal errors are
// logged with their cause but surface only a generic message.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	class := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(class)

	logger := middleware.GetLogger(r.Context())
	attrs := []any{
		"error", err.Error(),
		"code", class,
		"status", status,
	}
	if status >= 500 {
		logger.Error("request failed", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	JSON(w, status, map[string]string{
		"error": domain.ErrorMessage(err),
		"code":  domain.ErrorReason(err),
	})
}

// ErrorCodeToHTTPStatus maps domain error classes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads a JSON request body into v. Returns a domain EINVALID
// error on malformed input.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.Errorf(domain.EINVALID, "", "Invalid request body")
	}
	return nil
}
