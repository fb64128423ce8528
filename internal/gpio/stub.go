//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// CdevOutput is not available on non-Linux platforms.
type CdevOutput struct{}

// NewCdevOutput returns an error on non-Linux platforms.
func NewCdevOutput(chip string, pin int, activeLow bool) (*CdevOutput, error) {
	return nil, errUnsupported
}

// Set is not implemented on non-Linux platforms.
func (o *CdevOutput) Set(high bool) error { return errUnsupported }

// Get is not implemented on non-Linux platforms.
func (o *CdevOutput) Get() (bool, error) { return false, errUnsupported }

// Close is not implemented on non-Linux platforms.
func (o *CdevOutput) Close() error { return nil }

// RPIOOutput is not available on non-Linux platforms.
type RPIOOutput struct{}

// NewRPIOOutput returns an error on non-Linux platforms.
func NewRPIOOutput(pin int, activeLow bool) (*RPIOOutput, error) {
	return nil, errUnsupported
}

// Set is not implemented on non-Linux platforms.
func (o *RPIOOutput) Set(high bool) error { return errUnsupported }

// Get is not implemented on non-Linux platforms.
func (o *RPIOOutput) Get() (bool, error) { return false, errUnsupported }

// Close is not implemented on non-Linux platforms.
func (o *RPIOOutput) Close() error { return nil }
