package gpio

// FakeOutput is a test double that records every write.
type FakeOutput struct {
	// Level is the current logical level.
	Level bool

	// Writes contains every level passed to Set, in order.
	Writes []bool

	// WriteError, if set, is returned by Set and the level is left unchanged.
	WriteError error

	// ReadError, if set, is returned by Get.
	ReadError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeOutput creates a FakeOutput at logical low.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records the write.
func (f *FakeOutput) Set(high bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Level = high
	f.Writes = append(f.Writes, high)
	return nil
}

// Get returns the current level.
func (f *FakeOutput) Get() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	return f.Level, nil
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes and injected errors.
func (f *FakeOutput) Reset() {
	f.Level = false
	f.Writes = nil
	f.WriteError = nil
	f.ReadError = nil
	f.Closed = false
}
