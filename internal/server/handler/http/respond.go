package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
	"github.com/atinyakov/HeroKeeper/internal/middleware"
)

const (
	// MaxJSONBody caps ordinary JSON request bodies.
	MaxJSONBody = 1 << 20
	// MaxImportBody caps import documents.
	MaxImportBody = 16 << 20
)

type errorBody struct {
	Message string              `json:"message"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

type conflictBody struct {
	Message  string `json:"message"`
	HeroID   int64  `json:"heroId"`
	HeroName string `json:"heroName"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError is the only place where errors become status codes. Anything
// not in the taxonomy is logged and reported as a generic 500.
func writeError(log *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr     *apperr.ValidationError
		conflict *apperr.ConflictError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "validation failed", Errors: verr.Errors})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, conflictBody{
			Message:  conflict.Error(),
			HeroID:   conflict.HeroID,
			HeroName: conflict.HeroName,
		})
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
			Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
		})
	case errors.Is(err, apperr.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody{Message: "authentication required"})
	case errors.Is(err, apperr.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Message: "forbidden"})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Message: "not found"})
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Message: "already exists"})
	default:
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "internal error"})
	}
}

// errorWriter adapts writeError for the middleware package.
func errorWriter(log *zap.Logger) middleware.ErrorWriter {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(log, w, r, err)
	}
}

// decodeJSON reads one JSON value of at most limit bytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("body", "must not be empty")
		}
		return apperr.Invalid("body", "malformed JSON: "+err.Error())
	}
	return nil
}
