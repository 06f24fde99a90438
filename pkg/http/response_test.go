package http

import (
	"encoding/json"
	"errors"
	apperrors "medbook/pkg/errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperrors.NotFound("Slot"), http.StatusNotFound, apperrors.CodeNotFound},
		{"validation", apperrors.Validation("bad", nil), http.StatusUnprocessableEntity, apperrors.CodeValidation},
		{"conflict", apperrors.ConflictReason(errors.New("x"), "already_booked", "taken"), http.StatusConflict, apperrors.CodeConflict},
		{"unavailable", apperrors.Unavailable("Store"), http.StatusServiceUnavailable, apperrors.CodeUnavailable},
		{"plain error", errors.New("db exploded"), http.StatusInternalServerError, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
			}
			if strings.Contains(body.Error, "db exploded") {
				t.Error("internal error text must not leak")
			}
		})
	}
}

func TestWriteError_ConflictReason(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, apperrors.ConflictReason(errors.New("x"), "slot_unavailable", "Slot is no longer available"))

	var body ErrorResponse
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.Details["reason"] != "slot_unavailable" {
		t.Errorf("expected reason in details, got %v", body.Details)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	if err := DecodeJSON(req, &dst); err != nil || dst.Name != "x" {
		t.Fatalf("unexpected result %v %q", err, dst.Name)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	if err := DecodeJSON(req, &dst); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected invalid input for unknown field, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	if err := DecodeJSON(req, &dst); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected invalid input for empty body, got %v", err)
	}
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2026-01-05&to=bad&available=true", nil)

	if from, err := QueryDate(req, "from"); err != nil || from != "2026-01-05" {
		t.Errorf("QueryDate(from) = %q, %v", from, err)
	}
	if _, err := QueryDate(req, "to"); err == nil {
		t.Error("expected error for malformed date")
	}
	if missing, err := QueryDate(req, "since"); err != nil || missing != "" {
		t.Errorf("absent date should be empty, got %q %v", missing, err)
	}

	available, err := QueryBool(req, "available")
	if err != nil || available == nil || !*available {
		t.Errorf("QueryBool(available) = %v, %v", available, err)
	}
	if b, err := QueryBool(req, "other"); err != nil || b != nil {
		t.Errorf("absent bool should be nil")
	}
}

func TestExtractLimitOffset(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&offset=20", nil)
	limit, offset, err := ExtractLimitOffset(req)
	if err != nil || limit != 5 || offset != 20 {
		t.Errorf("got %d %d %v", limit, offset, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/?limit=abc", nil)
	if _, _, err := ExtractLimitOffset(req); err == nil {
		t.Error("expected error for non numeric limit")
	}
}
