package gpio

import (
	"errors"
	"testing"

	"github.com/sweeney/relay-latch/internal/config"
)

func TestFakeOutputSetAndGet(t *testing.T) {
	f := NewFakeOutput()

	if err := f.Set(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := f.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v {
		t.Error("expected high after Set(true)")
	}

	f.Set(false)
	if v, _ := f.Get(); v {
		t.Error("expected low after Set(false)")
	}

	if len(f.Writes) != 2 || f.Writes[0] != true || f.Writes[1] != false {
		t.Errorf("unexpected writes: %v", f.Writes)
	}
}

func TestFakeOutputWriteError(t *testing.T) {
	f := NewFakeOutput()
	f.WriteError = errors.New("simulated error")

	err := f.Set(true)
	if err == nil || err.Error() != "simulated error" {
		t.Fatalf("expected simulated error, got %v", err)
	}
	if f.Level {
		t.Error("level should not change on write error")
	}
	if len(f.Writes) != 0 {
		t.Errorf("expected no recorded writes, got %v", f.Writes)
	}
}

func TestFakeOutputReadError(t *testing.T) {
	f := NewFakeOutput()
	f.ReadError = errors.New("simulated error")

	if _, err := f.Get(); err == nil {
		t.Error("expected error to be returned")
	}
}

func TestFakeOutputCloseAndReset(t *testing.T) {
	f := NewFakeOutput()
	f.Set(true)

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Reset()
	if f.Closed || f.Level || f.Writes != nil {
		t.Errorf("reset did not clear state: %+v", f)
	}
}

func TestOpenFakeDriver(t *testing.T) {
	out, err := Open(config.GPIOConfig{Driver: DriverFake})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out.(*FakeOutput); !ok {
		t.Errorf("expected *FakeOutput, got %T", out)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(config.GPIOConfig{Driver: "bogus"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
