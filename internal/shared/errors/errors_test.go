package errors

import "testing"

func TestWrapAddsContext(t *testing.T) {
	base := NotFound("member", "abc")
	wrapped := Wrap(base, "loading roster")

	if wrapped.Message != "loading roster: member not found" {
		t.Errorf("message = %q", wrapped.Message)
	}
	if wrapped.Code != base.Code {
		t.Errorf("code = %q, want %q", wrapped.Code, base.Code)
	}
	if wrapped.HTTPStatus != base.HTTPStatus {
		t.Errorf("status = %d, want %d", wrapped.HTTPStatus, base.HTTPStatus)
	}
	if !Is(wrapped, ErrNotFound) {
		t.Error("wrapped error lost its sentinel")
	}
}

func TestWrapDoesNotMutateOriginal(t *testing.T) {
	base := Conflict("member with this email already exists")

	first := Wrap(base, "provisioning")
	second := Wrap(base, "reconciling")

	if base.Message != "member with this email already exists" {
		t.Errorf("original mutated: %q", base.Message)
	}
	if first.Message != "provisioning: member with this email already exists" {
		t.Errorf("first = %q", first.Message)
	}
	if second.Message != "reconciling: member with this email already exists" {
		t.Errorf("second wrap accumulated prefixes: %q", second.Message)
	}
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrap(ErrInternal, "scanning row")
	if wrapped.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q", wrapped.Code)
	}
	if !Is(wrapped, ErrInternal) {
		t.Error("wrapped error lost its cause")
	}
}
