package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("capture: %d", 1)
	if got != "capture: %d" {
		t.Errorf("custom logger saw %q, want %q", got, "capture: %d")
	}

	// nil installs a no-op rather than a nil func
	SetLogger(nil)
	Logf("must not panic")
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf must not be nil by default")
	}
}
