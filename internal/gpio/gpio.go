// Package gpio drives the single output line with hardware abstraction.
// The cdev implementation uses the Linux GPIO character device, the rpio
// implementation maps /dev/gpiomem directly, and the fake implementation
// allows testing without hardware.
package gpio

import (
	"fmt"

	"github.com/sweeney/relay-latch/internal/config"
)

// Output is a single binary actuator.
type Output interface {
	// Set drives the line to the logical level (true = active).
	Set(high bool) error

	// Get reads the logical level back from the line.
	Get() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults (BCM numbering). GPIO5 is wired to D1 on the relay HAT.
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 5
)

// Driver names accepted by Open.
const (
	DriverCdev = "cdev"
	DriverRPIO = "rpio"
	DriverFake = "fake"
)

// Open returns the Output selected by cfg.Driver.
func Open(cfg config.GPIOConfig) (Output, error) {
	switch cfg.Driver {
	case "", DriverCdev:
		out, err := NewCdevOutput(cfg.Chip, cfg.Pin, cfg.ActiveLow)
		if err != nil {
			return nil, err
		}
		return out, nil
	case DriverRPIO:
		out, err := NewRPIOOutput(cfg.Pin, cfg.ActiveLow)
		if err != nil {
			return nil, err
		}
		return out, nil
	case DriverFake:
		return NewFakeOutput(), nil
	default:
		return nil, fmt.Errorf("gpio: unknown driver %q", cfg.Driver)
	}
}
