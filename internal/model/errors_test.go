package model

import (
	"errors"
	"strings"
	"testing"
)

func TestAPIError_Error_ContainsCodeAndMessage(t *testing.T) {
	err := NewCategoryNotEmptyError("Books")

	if !strings.Contains(err.Error(), ErrCodeCategoryNotEmpty) {
		t.Errorf("Error() = %q, should contain %q", err.Error(), ErrCodeCategoryNotEmpty)
	}
	if !strings.Contains(err.Error(), "Books") {
		t.Errorf("Error() = %q, should contain category name", err.Error())
	}
}

func TestAPIError_ErrorsAs(t *testing.T) {
	var wrapped error = NewNotOwnerError("Dune")

	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As should match *APIError")
	}
	if apiErr.Code != ErrCodeNotOwner {
		t.Errorf("Code = %q, want %q", apiErr.Code, ErrCodeNotOwner)
	}
}

func TestAnonymous_IsAnonymous(t *testing.T) {
	if !Anonymous.IsAnonymous() {
		t.Error("Anonymous sentinel should be anonymous")
	}

	var nilUser *User
	if !nilUser.IsAnonymous() {
		t.Error("nil user should be anonymous")
	}

	u := &User{ID: "user-1", Name: "Alice"}
	if u.IsAnonymous() {
		t.Error("user with ID should not be anonymous")
	}
}
