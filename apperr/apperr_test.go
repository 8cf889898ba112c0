package apperr

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("redeem: %w", AlreadyUsed("token has already been used"))
	if !errors.Is(err, ErrAlreadyUsed) {
		t.Fatal("wrapped error must match its kind")
	}
	if errors.Is(err, ErrExpired) {
		t.Fatal("kinds must not cross-match")
	}
	if KindOf(err) != KindAlreadyUsed {
		t.Fatalf("KindOf = %s", KindOf(err))
	}
	if KindOf(errors.New("boom")) != KindStorage {
		t.Fatal("unclassified errors are storage faults")
	}
}

func TestFromDB(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", gorm.ErrRecordNotFound, KindNotFound},
		{"duplicate", gorm.ErrDuplicatedKey, KindConflict},
		{"sqlite text", errors.New("constraint failed: UNIQUE constraint failed: establishments.name (2067)"), KindConflict},
		{"postgres text", errors.New(`ERROR: duplicate key value violates unique constraint "idx_categories_name" (SQLSTATE 23505)`), KindConflict},
		{"other", errors.New("database is locked"), KindStorage},
		{"already classified", Expired("token has expired"), KindExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(FromDB(tt.err, "thing", "thing exists")); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
	if FromDB(nil, "thing", "") != nil {
		t.Fatal("nil stays nil")
	}
}

func TestStorageKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Storage("issue token", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause must be reachable through Unwrap")
	}
	if err.Message != "storage failure during issue token" {
		t.Fatalf("message = %q", err.Message)
	}
}
