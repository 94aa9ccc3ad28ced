package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

// 各Postgresリポジトリがインターフェースをみたすことはコンパイル時に検証される。

func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresUserRepo(nil) == nil {
		t.Error("expected non-nil user repo")
	}
	if NewPostgresIdentityRepo(nil) == nil {
		t.Error("expected non-nil identity repo")
	}
	if NewPostgresSessionRepo(nil) == nil {
		t.Error("expected non-nil session repo")
	}
	if NewPostgresCategoryRepo(nil) == nil {
		t.Error("expected non-nil category repo")
	}
	if NewPostgresItemRepo(nil) == nil {
		t.Error("expected non-nil item repo")
	}
}

func TestUniqueViolation_MatchesSQLState23505(t *testing.T) {
	pqErr := &pq.Error{Code: "23505", Constraint: "identities_provider_user_unique"}

	if !uniqueViolation(pqErr) {
		t.Error("expected 23505 to be detected as unique violation")
	}
	if !uniqueViolation(fmt.Errorf("failed to insert identity: %w", pqErr)) {
		t.Error("expected wrapped 23505 to be detected as unique violation")
	}
}

func TestUniqueViolation_IgnoresOtherErrors(t *testing.T) {
	if uniqueViolation(errors.New("connection refused")) {
		t.Error("plain errors should not be unique violations")
	}
	if uniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("foreign key violations should not be unique violations")
	}
	if uniqueViolation(nil) {
		t.Error("nil should not be a unique violation")
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{ErrDuplicateIdentity, ErrDuplicateSlug, ErrCategoryNotEmpty, ErrCategoryNotFound}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel errors %v and %v should be distinct", a, b)
			}
		}
	}
}
