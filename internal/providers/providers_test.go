package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDoJSONSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing bearer header")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing content type")
		}
		w.Write([]byte(`{"id":"42"}`))
	}))
	defer srv.Close()

	c := &Client{Name: "test", BaseURL: srv.URL + "/", HTTP: srv.Client(), Authorize: Bearer("k")}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.DoJSON(context.Background(), "create", http.MethodPost, "/things", map[string]string{"a": "b"}, &out); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.ID != "42" {
		t.Fatalf("unexpected id %q", out.ID)
	}
}

func TestDoJSONNonSuccessBecomesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c := &Client{Name: "voice", BaseURL: srv.URL, HTTP: srv.Client()}
	err := c.DoJSON(context.Background(), "synthesize", http.MethodGet, "/x", nil, nil)
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if perr.StatusCode != http.StatusTooManyRequests || perr.Body != "slow down" {
		t.Fatalf("unexpected error %+v", perr)
	}
	if !perr.Temporary() {
		t.Fatal("429 should be temporary")
	}
	if !strings.Contains(perr.Error(), "voice synthesize: status 429") {
		t.Fatalf("unexpected message %q", perr.Error())
	}
}

func TestBearerRequiresToken(t *testing.T) {
	c := &Client{Name: "script", BaseURL: "http://unused", Authorize: Bearer(" ")}
	err := c.DoJSON(context.Background(), "complete", http.MethodPost, "/", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "missing api credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestErrorTemporary(t *testing.T) {
	if (&Error{StatusCode: http.StatusBadRequest}).Temporary() {
		t.Fatal("400 is permanent")
	}
	if !(&Error{StatusCode: http.StatusBadGateway}).Temporary() {
		t.Fatal("502 is temporary")
	}
}
