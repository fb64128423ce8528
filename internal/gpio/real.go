//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
)

// CdevOutput drives a line through the Linux GPIO character device.
type CdevOutput struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	pin  int
}

// NewCdevOutput requests pin on chip as an output, initially inactive.
func NewCdevOutput(chipName string, pin int, activeLow bool) (*CdevOutput, error) {
	if chipName == "" {
		chipName = DefaultChip
	}
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := chip.RequestLine(pin, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}

	return &CdevOutput{chip: chip, line: line, pin: pin}, nil
}

// Set drives the logical level. Active-low inversion is handled by the kernel.
func (o *CdevOutput) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("set pin %d: %w", o.pin, err)
	}
	return nil
}

// Get reads the logical level of the line.
func (o *CdevOutput) Get() (bool, error) {
	v, err := o.line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", o.pin, err)
	}
	return v == 1, nil
}

// Close releases the line.
// The line is returned to input with pull-down (the Pi boot default) first,
// so the relay does not stay energised after the daemon exits.
func (o *CdevOutput) Close() error {
	var err error
	if o.line != nil {
		err = multierr.Append(err, wrap("reconfigure pin", o.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown)))
		err = multierr.Append(err, wrap("close pin", o.line.Close()))
	}
	if o.chip != nil {
		err = multierr.Append(err, wrap("close chip", o.chip.Close()))
	}
	return err
}

func wrap(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", what, err)
}
