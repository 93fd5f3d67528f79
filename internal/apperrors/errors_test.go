package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
		wantMsg    string
	}{
		{"missing field", MissingField([]string{"Purpose"}), CodeMissingField, http.StatusUnprocessableEntity, MsgMissingField},
		{"invalid interval", InvalidInterval(), CodeInvalidInterval, http.StatusUnprocessableEntity, MsgInvalidInterval},
		{"slot conflict", SlotConflict(3), CodeSlotConflict, http.StatusConflict, MsgSlotConflict},
		{"not found", NotFoundWithID("room booking", 9), CodeNotFound, http.StatusNotFound, MsgNotFound},
		{"unauthorized", Unauthorized(MsgAdminOnly), CodeUnauthorized, http.StatusUnauthorized, MsgAdminOnly},
		{"invalid input", InvalidInput("bad date"), CodeInvalidInput, http.StatusBadRequest, "bad date"},
		{"too many requests", TooManyRequests("slow down"), CodeTooManyRequests, http.StatusTooManyRequests, "slow down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", tt.err.StatusCode(), tt.wantStatus)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", tt.err.Message, tt.wantMsg)
			}
		})
	}
}

func TestIsMatchesOnCode(t *testing.T) {
	err := fmt.Errorf("submit: %w", SlotConflict(1))
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatal("wrapped slot conflict should match ErrSlotConflict")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("slot conflict must not match ErrNotFound")
	}
}

func TestAsAppError(t *testing.T) {
	plain := errors.New("boom")
	got := AsAppError(plain)
	if got.Code != CodeInternal || !errors.Is(got, plain) {
		t.Fatalf("expected internal wrapper around cause, got %+v", got)
	}

	orig := InvalidInterval()
	if AsAppError(fmt.Errorf("wrap: %w", orig)) != orig {
		t.Fatal("expected the original AppError back")
	}
}

func TestErrorString(t *testing.T) {
	err := Internal("db down", errors.New("dial tcp"))
	if err.Error() != "INTERNAL_ERROR: db down (caused by: dial tcp)" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
}

func TestWithDetails(t *testing.T) {
	err := InvalidInput("bad time").WithDetails(map[string]any{"field": "start"})
	resp := err.Response()
	if resp.Code != CodeInvalidInput || resp.Details["field"] != "start" {
		t.Fatalf("unexpected response %+v", resp)
	}
}
