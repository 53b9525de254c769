package utils

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("list competitors: %w", NewAppError("sqlite.ListCompetitors", "query failed", cause))

	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if got := ErrorOp(err); got != "sqlite.ListCompetitors" {
		t.Fatalf("unexpected op %q", got)
	}
	if got := err.Error(); got != "list competitors: sqlite.ListCompetitors: query failed: connection refused" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestErrorOpWithoutAppError(t *testing.T) {
	if got := ErrorOp(errors.New("plain")); got != "" {
		t.Fatalf("expected empty op, got %q", got)
	}
	if got := NewAppError("evidence.SourcesByDomain", "no domain", nil).Error(); got != "evidence.SourcesByDomain: no domain" {
		t.Fatalf("unexpected message %q", got)
	}
}
