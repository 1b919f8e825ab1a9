package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// errorBody is the JSON envelope of every error response.
type errorBody struct {
	Error string           `json:"error"`
	Code  domain.ErrorKind `json:"code"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// NoContent writes an empty 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindConflict, domain.KindIllegalState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error writes an error JSON response. Internal causes are logged and never
// sent to the client.
func Error(w http.ResponseWriter, err error) {
	appErr, ok := domain.AsAppError(err)
	if !ok {
		slog.Error("unhandled error", "error", err)
		JSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error", Code: domain.KindInternal})
		return
	}

	status := StatusFor(appErr.Kind)
	if status == http.StatusInternalServerError {
		slog.Error("internal error", "message", appErr.Message, "error", appErr.Err)
		JSON(w, status, errorBody{Error: "internal server error", Code: domain.KindInternal})
		return
	}
	JSON(w, status, errorBody{Error: appErr.Message, Code: appErr.Kind})
}

// DecodeJSON decodes a JSON request body into the given struct.
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrBadRequest("invalid JSON body")
	}
	return nil
}

// DecodeValid decodes a JSON body and validates it against its struct tags.
func DecodeValid(r *http.Request, v interface{}) error {
	if err := DecodeJSON(r, v); err != nil {
		return err
	}
	return Validate(v)
}

// Validate checks v against its struct tags.
func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return domain.ErrValidation(formatValidationErrors(err))
	}
	return nil
}

func formatValidationErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// pageRequest reads zero-based page and size query parameters.
func pageRequest(r *http.Request) (domain.PageRequest, error) {
	page, err := intQuery(r, "page", 0)
	if err != nil {
		return domain.PageRequest{}, err
	}
	size, err := intQuery(r, "size", domain.DefaultPageSize)
	if err != nil {
		return domain.PageRequest{}, err
	}
	return domain.PageRequest{Page: page, Size: size}.Normalize(), nil
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrBadRequest(name + " must be an integer")
	}
	return v, nil
}

func floatQuery(r *http.Request, name string) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, domain.ErrBadRequest(name + " is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, domain.ErrBadRequest(name + " must be a number")
	}
	return v, nil
}

func floatQueryDefault(r *http.Request, name string, def float64) (float64, error) {
	if strings.TrimSpace(r.URL.Query().Get(name)) == "" {
		return def, nil
	}
	return floatQuery(r, name)
}

// optionalQuery returns nil for an absent or blank parameter.
func optionalQuery(r *http.Request, name string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil
	}
	return &v
}

func int64Param(raw, name string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.ErrBadRequest(name + " must be an integer")
	}
	return v, nil
}
