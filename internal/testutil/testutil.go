// Package testutil provides shared test utilities for the capture pipeline
// packages.
package testutil

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertClose fails the test when got is not within tol of want.
func AssertClose(t *testing.T, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("value = %v, want %v (tol %v)", got, want, tol)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
