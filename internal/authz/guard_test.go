package authz

import (
	"errors"
	"testing"

	"github.com/raideer/udacity-project-catalog/internal/model"
)

func TestAssertOwner_ExactOwner_Succeeds(t *testing.T) {
	caller := &model.User{ID: "user-1", Name: "Alice"}

	if err := AssertOwner(caller, "user-1", "Books"); err != nil {
		t.Errorf("owner should pass, got %v", err)
	}
}

func TestAssertOwner_DifferentUser_Fails(t *testing.T) {
	caller := &model.User{ID: "user-2", Name: "Bob"}

	err := AssertOwner(caller, "user-1", "Books")
	if err == nil {
		t.Fatal("non-owner must be rejected")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeNotOwner {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeNotOwner)
	}
}

func TestAssertOwner_Anonymous_AlwaysFails(t *testing.T) {
	if err := AssertOwner(model.Anonymous, "user-1", "Books"); err == nil {
		t.Error("anonymous caller must be rejected")
	}

	var nilUser *model.User
	if err := AssertOwner(nilUser, "user-1", "Books"); err == nil {
		t.Error("nil caller must be rejected")
	}

	// 所有者IDが空でも匿名は通さない
	if err := AssertOwner(model.Anonymous, "", "Books"); err == nil {
		t.Error("anonymous caller must be rejected even for empty owner ID")
	}
}
