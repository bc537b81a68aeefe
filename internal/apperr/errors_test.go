package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(KindAccountNotFound, "account 1 not found")
	if KindOf(err) != KindAccountNotFound {
		t.Errorf("Expected ACCOUNT_NOT_FOUND, got %s", KindOf(err))
	}

	wrapped := fmt.Errorf("handler: %w", err)
	if KindOf(wrapped) != KindAccountNotFound {
		t.Errorf("KindOf must see through wrapping, got %s", KindOf(wrapped))
	}

	if KindOf(errors.New("plain")) != KindInternal {
		t.Errorf("Untyped errors must classify as INTERNAL")
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindServiceUnavailable, "customer service is unreachable", cause)

	if !errors.Is(err, cause) {
		t.Errorf("The cause must remain reachable through Unwrap")
	}
	if err.Error() != "SERVICE_UNAVAILABLE: customer service is unreachable: connection reset" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestWithDetailsAndFields(t *testing.T) {
	err := New(KindInsufficientBalance, "overdraft floor").
		WithDetails(map[string]any{"overdraftLimit": -10000}).
		WithFields(FieldError{Field: "amount", Message: "too large"})

	if err.Details["overdraftLimit"] != -10000 {
		t.Errorf("Details lost: %v", err.Details)
	}
	if len(err.Fields) != 1 || err.Fields[0].Field != "amount" {
		t.Errorf("Fields lost: %v", err.Fields)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
	}{
		{KindValidation, 400},
		{KindCustomerNotActive, 400},
		{KindInvalidAmount, 400},
		{KindCustomerNotFound, 404},
		{KindMovementNotFound, 404},
		{KindDuplicateTransaction, 409},
		{KindDuplicateIdempotencyKey, 409},
		{KindVersionConflict, 409},
		{KindCustomerAlreadyExists, 409},
		{KindInvalidReversal, 409},
		{KindInsufficientBalance, 422},
		{KindBusinessRuleViolation, 422},
		{KindServiceUnavailable, 503},
		{KindInternal, 500},
		{Kind("SOMETHING_ELSE"), 500},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.kind); got != tc.status {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tc.kind, got, tc.status)
		}
	}
}

func TestIs_MatchesByKind(t *testing.T) {
	err := Newf(KindVersionConflict, "customer %s was modified concurrently", "cust-1")
	target := New(KindVersionConflict, "")

	if !errors.Is(err, target) {
		t.Errorf("Errors of the same kind must match through errors.Is")
	}
	if errors.Is(err, New(KindValidation, "")) {
		t.Errorf("Different kinds must not match")
	}
}
