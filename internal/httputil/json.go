package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/priyanshp28/noteZipper/pkg/domain"
)

// Flow statuses carried in the "status" field of account flow responses.
const (
	StatusPending  = "PENDING"
	StatusFailed   = "FAILED"
	StatusVerified = "VERIFIED"
	StatusSuccess  = "SUCCESS"
)

// ErrBodyTooLarge is returned by DecodeJSON when the body exceeds the
// configured request size limit.
var ErrBodyTooLarge = errors.New("request body too large")

// StatusResponse is the envelope of account flow responses.
type StatusResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	AuthToken string `json:"authToken,omitempty"`
}

// FieldErrorResponse lists rejected request fields.
type FieldErrorResponse struct {
	Status string       `json:"status"`
	Errors []FieldError `json:"errors"`
}

// FieldError is one rejected request field.
type FieldError struct {
	Param string `json:"param"`
	Msg   string `json:"msg"`
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes {"error": message} with the given status code.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Status writes a StatusResponse.
func Status(w http.ResponseWriter, code int, status, message string, data any) {
	JSON(w, code, StatusResponse{Status: status, Message: message, Data: data})
}

// Invalid writes a 400 listing the rejected field when err carries one, or
// a plain FAILED status otherwise.
func Invalid(w http.ResponseWriter, err error) {
	var fe *domain.FieldError
	if errors.As(err, &fe) {
		JSON(w, http.StatusBadRequest, FieldErrorResponse{
			Status: StatusFailed,
			Errors: []FieldError{{Param: fe.Field, Msg: fe.Message}},
		})
		return
	}
	Status(w, http.StatusBadRequest, StatusFailed, err.Error(), nil)
}

// DecodeJSON decodes the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrBodyTooLarge
	}
	return err
}

// StatusCode maps an error's kind to an HTTP status code.
func StatusCode(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindDispatch:
		return http.StatusBadGateway
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
