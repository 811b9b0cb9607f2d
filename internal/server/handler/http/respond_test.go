package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atinyakov/HeroKeeper/internal/apperr"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantLogged bool
	}{
		{"validation", apperr.Invalid("name", "is required"), http.StatusBadRequest, false},
		{"unauthenticated", apperr.ErrUnauthenticated, http.StatusUnauthorized, false},
		{"forbidden", fmt.Errorf("hero 1: %w", apperr.ErrForbidden), http.StatusForbidden, false},
		{"not found", fmt.Errorf("get hero: %w", apperr.ErrNotFound), http.StatusNotFound, false},
		{"import conflict", &apperr.ConflictError{HeroID: 3, HeroName: "Thalia"}, http.StatusConflict, false},
		{"duplicate", fmt.Errorf("create user: %w", apperr.ErrConflict), http.StatusConflict, false},
		{"too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, false},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.ErrorLevel)
			rec := httptest.NewRecorder()
			writeError(zap.New(core), rec, httptest.NewRequest(http.MethodGet, "/api/x", nil), tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d; want %d", rec.Code, tt.wantStatus)
			}
			if got := logs.Len() > 0; got != tt.wantLogged {
				t.Errorf("logged = %v; want %v", got, tt.wantLogged)
			}
			if strings.Contains(rec.Body.String(), "connection reset") {
				t.Error("internal error details leaked to the client")
			}
		})
	}
}

func TestWriteError_Bodies(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &apperr.ValidationError{}
	err.Add("name", "is required")
	err.Add("level", "must be a positive integer")
	writeError(zap.NewNop(), rec, httptest.NewRequest(http.MethodPost, "/", nil), err)

	var body struct {
		Message string              `json:"message"`
		Errors  []apperr.FieldError `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Message == "" || len(body.Errors) != 2 || body.Errors[1].Field != "level" {
		t.Errorf("unexpected validation body %+v", body)
	}

	rec = httptest.NewRecorder()
	writeError(zap.NewNop(), rec, httptest.NewRequest(http.MethodPost, "/", nil),
		fmt.Errorf("import: %w", &apperr.ConflictError{HeroID: 9, HeroName: "Thalia"}))
	var conflict map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &conflict); err != nil {
		t.Fatal(err)
	}
	if conflict["heroId"] != float64(9) || conflict["heroName"] != "Thalia" || conflict["message"] == "" {
		t.Errorf("unexpected conflict body %v", conflict)
	}
}

func TestDecodeJSON_Limit(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("x", 64)+`"}`))
	var dst map[string]string
	err := decodeJSON(rec, req, 16, &dst)
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("error = %v; want MaxBytesError", err)
	}
}
