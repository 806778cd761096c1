package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	dErrors "leadgate/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error gets a generic message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.ErrorCode != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body.ErrorCode)
		}
		if body.Message != "internal error" {
			t.Fatalf("expected a generic message, got %q", body.Message)
		}
	})

	t.Run("validation error passes message and fields through", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid input").
			WithFields(map[string]string{"email": "must be a valid email address"}))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body.ErrorCode != "validation_error" {
			t.Fatalf("expected error code validation_error, got %q", body.ErrorCode)
		}
		if body.Message != "invalid input" {
			t.Fatalf("expected the domain message, got %q", body.Message)
		}
		if body.Errors["email"] == "" {
			t.Fatalf("expected per-field errors to pass through")
		}
	})

	t.Run("non-domain error is treated as internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, fmt.Errorf("plumbing broke"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
	})

	t.Run("rate limit error maps to 429", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeRateLimited, "window not elapsed"))

		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, w.Code)
		}
	})
}
