// Package http serves the ledger as a JSON API.
//
// This file holds the fluent builder every handler uses to write JSON
// responses, and the mapping from domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"financeflow/internal/auth"
	"financeflow/internal/core"
	"financeflow/internal/ledger"
	"financeflow/internal/log"
	"financeflow/internal/transfer"
)

// ErrorBody is the payload of every non-2xx response.
type ErrorBody struct {
	Error  string `json:"error"`
	Type   string `json:"type"`
	CardID string `json:"card_id,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(key, value string) *JSONResponseBuilder {
	b.headers[key] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes no
// content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

func (b *JSONResponseBuilder) Error(errType, msg string) *JSONResponseBuilder {
	b.body = ErrorBody{Error: msg, Type: errType}
	return b
}

// Write sends the response.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for k, v := range b.headers {
		w.Header().Set(k, v)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

func BadRequest(msg string) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusBadRequest).Error(log.ErrorTypeValidation, msg)
}

func Unauthorized(msg string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusUnauthorized).
		Header("WWW-Authenticate", `Bearer realm="financeflow"`).
		Error(log.ErrorTypeAuth, msg)
}

// errorResponse maps err onto a status code and body. Unknown errors are
// logged and reported without detail.
func errorResponse(r *http.Request, err error) *JSONResponseBuilder {
	b := NewJSONResponse()

	var inconsistent *ledger.InconsistencyError
	switch {
	case errors.As(err, &inconsistent):
		log.LogError(r.Context(), "Card balance left out of sync", err, log.ComponentHTTP, inconsistent.Op,
			log.LogFields{log.FieldCardID: inconsistent.CardID})
		return b.Status(http.StatusInternalServerError).Body(ErrorBody{
			Error:  "the change was saved but the card balance could not be updated; a reconciliation has been requested",
			Type:   "inconsistency_error",
			CardID: inconsistent.CardID,
		})
	case errors.Is(err, errMalformedBody):
		return BadRequest(err.Error())
	case errors.Is(err, core.ErrNotFound):
		return b.Status(http.StatusNotFound).Error(log.ErrorTypeNotFound, err.Error())
	case core.IsValidation(err),
		errors.Is(err, transfer.ErrMalformed),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword):
		return b.Status(http.StatusUnprocessableEntity).Error(log.ErrorTypeValidation, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return Unauthorized(err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		return b.Status(http.StatusConflict).Error(log.ErrorTypeConflict, err.Error())
	}

	log.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, r.Method+" "+r.URL.Path, nil)
	return b.Status(http.StatusInternalServerError).Error(log.ErrorTypeInternal, "internal server error")
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(r, err).Write(w)
}
