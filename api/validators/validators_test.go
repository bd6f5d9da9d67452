package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/personacast-backend/pkg/errors"
)

type generateBody struct {
	Platform string `json:"platform" validate:"required,platform"`
	Action   string `json:"action" validate:"omitempty,content_action"`
	Topic    string `json:"topic" validate:"max=10"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"platform":"myspace"}`))
	var body generateBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if !strings.HasPrefix(details["platform"], "must be one of") {
		t.Fatalf("unexpected platform message %q", details["platform"])
	}
}

func TestContentActionTag(t *testing.T) {
	if err := ValidateStruct(generateBody{Platform: "tiktok", Action: "schedule"}); err != nil {
		t.Fatalf("expected schedule to validate: %v", err)
	}
	err := ValidateStruct(generateBody{Platform: "tiktok", Action: "archive"})
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if msg := typed.Details().(map[string]string)["action"]; !strings.Contains(msg, "unschedule") {
		t.Fatalf("unexpected action message %q", msg)
	}
}

func TestSanitizeStringTruncatesRunes(t *testing.T) {
	if got := SanitizeString("  café au lait  ", 4); got != "café" {
		t.Fatalf("expected rune-safe truncation, got %q", got)
	}
	if got := SanitizeString("line\x00one\tok", 0); got != "lineone\tok" {
		t.Fatalf("expected control characters stripped, got %q", got)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"platform":"twitter","extra":1}`))
	var body generateBody
	if err := DecodeJSONBody(req, &body); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestParseQueryIntBounds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 25, 1, 100); err == nil {
		t.Fatal("expected out of range error")
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	v, err := ParseQueryInt(req, "limit", 25, 1, 100)
	if err != nil || v != 25 {
		t.Fatalf("expected default 25, got %d %v", v, err)
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rc := chi.NewRouteContext()
	rc.URLParams.Add("id", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := ParseUUIDParam(req, "id")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s %v", id, got, err)
	}

	rc.URLParams = chi.RouteParams{}
	rc.URLParams.Add("id", "nope")
	if _, err := ParseUUIDParam(req, "id"); err == nil {
		t.Fatal("expected malformed id error")
	}
}

func TestParseOptionalTime(t *testing.T) {
	if ts, err := ParseOptionalTime(nil, "scheduled_for"); ts != nil || err != nil {
		t.Fatalf("expected nil for absent value, got %v %v", ts, err)
	}
	raw := "2026-05-01T10:00:00+02:00"
	ts, err := ParseOptionalTime(&raw, "scheduled_for")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts.Hour() != 8 || ts.Location().String() != "UTC" {
		t.Fatalf("expected UTC normalisation, got %v", ts)
	}
	bad := "tomorrow"
	if _, err := ParseOptionalTime(&bad, "scheduled_for"); err == nil {
		t.Fatal("expected parse error")
	}
}
