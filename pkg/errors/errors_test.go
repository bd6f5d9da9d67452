package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded", retryable: true, detailsOK: true},
		{code: CodeGeneration, status: http.StatusBadGateway, publicMsg: "content could not be generated", retryable: true, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsFindsWrappedTypedError(t *testing.T) {
	typed := New(CodeGeneration, "script provider failed")
	outer := fmt.Errorf("generate: %w", typed)
	got := As(outer)
	if got == nil || got.Code() != CodeGeneration {
		t.Fatalf("expected generation error through wrap, got %v", got)
	}
	if !got.Retryable() {
		t.Fatalf("generation failures should be retryable")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "load persona")
	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", dump.Chain)
	}
	if dump.PG.Code != "" {
		t.Fatalf("did not expect pg details, got %q", dump.PG.Code)
	}
	if !dump.Retryable {
		t.Fatalf("dependency errors should dump as retryable")
	}
}

func TestFromDBClassifiesRepositoryErrors(t *testing.T) {
	if FromDB(nil, "content", "load content") != nil {
		t.Fatal("nil should stay nil")
	}
	if !IsCode(FromDB(fmt.Errorf("first: %w", gorm.ErrRecordNotFound), "content", "load content"), CodeNotFound) {
		t.Fatal("record not found should map to NotFound")
	}

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "personas_user_id_key"}
	if !IsCode(FromDB(unique, "persona", "save persona"), CodeConflict) {
		t.Fatal("unique violation should map to Conflict")
	}

	check := &pgconn.PgError{Code: "23514", ConstraintName: "content_items_published_at_requires_published"}
	typed := As(FromDB(check, "content", "update content"))
	if typed == nil || typed.Code() != CodeStateConflict {
		t.Fatalf("check violation should map to StateConflict, got %v", typed)
	}
	if typed.Details().(map[string]any)["constraint"] != check.ConstraintName {
		t.Fatalf("expected constraint in details, got %v", typed.Details())
	}

	outage := FromDB(stdErrors.New("dial tcp: refused"), "content", "load content")
	if !IsCode(outage, CodeDependency) {
		t.Fatalf("unknown errors should be dependency failures, got %v", outage)
	}

	already := New(CodeValidation, "bad")
	if FromDB(already, "content", "x") != error(already) {
		t.Fatal("typed errors should pass through")
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}
