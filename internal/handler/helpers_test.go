package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/oakhollow/hearth/internal/apperr"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apperr.Validation("title", "is required"), 400},
		{"not found", apperr.NotFound("event", 7), 404},
		{"invalid state", apperr.InvalidState("reward instance", "fulfilled", "approve"), 409},
		{"transient", &apperr.TransientStoreError{Err: errors.New("database is locked")}, 503},
		{"index missing typed", &apperr.IndexMissingError{Err: errors.New("no such index: idx_events_family")}, 500},
		{"index missing by message", errors.New("query requires an index on events(family_id)"), 500},
		{"unknown", errors.New("boom"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestWriteErrorIndexMissingDistinctFromInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, &apperr.IndexMissingError{Err: fmt.Errorf("no such index: idx_chores_day")})
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] == "internal error" {
		t.Error("index missing should not be reported as a generic internal error")
	}

	rec = httptest.NewRecorder()
	writeError(rec, errors.New("boom"))
	body = map[string]string{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "internal error" {
		t.Errorf("unknown error message = %q, want generic", body["error"])
	}
}
