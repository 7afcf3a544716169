package errors

import (
	"errors"
	"fmt"
	"testing"
)

// TestRecover_WithPanic tests the Recover function when a panic occurs
func TestRecover_WithPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		panic("test panic message")
	}

	err := testFunc()

	if err == nil {
		t.Fatal("Expected error from recovered panic, got nil")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}

	if panicErr.Operation != "TestOperation" {
		t.Errorf("Expected operation 'TestOperation', got '%s'", panicErr.Operation)
	}

	if panicErr.PanicValue != "test panic message" {
		t.Errorf("Expected panic value 'test panic message', got '%v'", panicErr.PanicValue)
	}

	if panicErr.StackTrace == "" {
		t.Error("Expected non-empty stack trace")
	}

	expectedMsg := "panic in TestOperation: test panic message"
	if panicErr.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, panicErr.Error())
	}
}

// TestRecover_WithoutPanic tests the Recover function when no panic occurs
func TestRecover_WithoutPanic(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TestOperation")
		return nil // Normal return, no panic
	}

	err := testFunc()

	if err != nil {
		t.Fatalf("Expected no error when no panic occurs, got: %v", err)
	}
}

// TestRecover_WithExistingError tests panic recovery when an error was already set
func TestRecover_WithExistingError(t *testing.T) {
	testFunc := func() (err error) {
		defer Recover(&err, "TrialEval")
		err = fmt.Errorf("original error")
		panic("panic after error")
	}

	err := testFunc()

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if err.Error() != "panic in TrialEval: panic after error (original error: original error)" {
		t.Errorf("unexpected wrapped message: %v", err)
	}
}

// TestSafeExecute tests SafeExecute with both panicking and normal functions
func TestSafeExecute(t *testing.T) {
	err := SafeExecute("trial", func() error {
		panic("bad configuration")
	})
	if err == nil {
		t.Fatal("Expected error from panicking function")
	}

	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("Expected PanicError, got %T", err)
	}

	err = SafeExecute("trial", func() error {
		return nil
	})
	if err != nil {
		t.Fatalf("Expected nil error, got: %v", err)
	}
}
