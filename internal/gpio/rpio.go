//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
	"go.uber.org/multierr"
)

// rpio maps one register window per process.
var rpioMu sync.Mutex

// RPIOOutput drives a line through /dev/gpiomem. Used on older kernels
// without the character device.
type RPIOOutput struct {
	pin       rpio.Pin
	activeLow bool
}

// NewRPIOOutput maps GPIO memory and configures pin as an output, initially inactive.
func NewRPIOOutput(pin int, activeLow bool) (*RPIOOutput, error) {
	rpioMu.Lock()
	defer rpioMu.Unlock()

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio memory: %w", err)
	}
	o := &RPIOOutput{pin: rpio.Pin(pin), activeLow: activeLow}
	o.pin.Output()
	o.pin.Write(o.raw(false))
	return o, nil
}

func (o *RPIOOutput) raw(high bool) rpio.State {
	if high != o.activeLow {
		return rpio.High
	}
	return rpio.Low
}

// Set drives the logical level.
func (o *RPIOOutput) Set(high bool) error {
	o.pin.Write(o.raw(high))
	return nil
}

// Get reads the logical level.
func (o *RPIOOutput) Get() (bool, error) {
	high := o.pin.Read() == rpio.High
	return high != o.activeLow, nil
}

// Close returns the pin to input with pull-down and unmaps GPIO memory.
func (o *RPIOOutput) Close() error {
	rpioMu.Lock()
	defer rpioMu.Unlock()

	var err error
	o.pin.Input()
	o.pin.PullDown()
	if cerr := rpio.Close(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("close gpio memory: %w", cerr))
	}
	return err
}
