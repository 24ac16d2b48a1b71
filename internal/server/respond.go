package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/genrefy/internal/shared"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v with status. A nil v writes only the header.
func writeJSON(w http.ResponseWriter, status int, v any) {
	if v == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the shared error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrAuthFailed):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrExternalDependency):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError writes {"error": ...}. Internal failures are logged and not echoed.
func writeError(w http.ResponseWriter, logger *log.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "err", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", shared.ErrInvalidArgument)
		}
		return fmt.Errorf("%w: invalid request body: %v", shared.ErrInvalidArgument, err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError flattens validator field errors into one message.
func validationError(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, fieldMessage(f))
	}
	return fmt.Errorf("%w: %s", shared.ErrInvalidArgument, strings.Join(msgs, "; "))
}

func fieldMessage(f validator.FieldError) string {
	switch f.Tag() {
	case "required":
		return f.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", f.Field(), f.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", f.Field(), f.Param())
	case "contains":
		return fmt.Sprintf("%s must contain %s", f.Field(), f.Param())
	}
	return fmt.Sprintf("%s failed %s validation", f.Field(), f.Tag())
}
