//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "hardware-ui"

// CdevChip requests lines from the Linux GPIO character device.
type CdevChip struct {
	chip *gpiocdev.Chip
}

func NewCdevChip(name string) (*CdevChip, error) {
	chip, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	return &CdevChip{chip: chip}, nil
}

func (c *CdevChip) Output(offset int, initial bool) (Pin, error) {
	line, err := c.chip.RequestLine(offset, gpiocdev.AsOutput(btoi(initial)), gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, err
	}
	return &cdevPin{line: line}, nil
}

func (c *CdevChip) Input(offset int) (Pin, error) {
	line, err := c.chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullDown, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, err
	}
	return &cdevPin{line: line, input: true}, nil
}

func (c *CdevChip) Close() error {
	return c.chip.Close()
}

type cdevPin struct {
	line  *gpiocdev.Line
	input bool
}

func (p *cdevPin) Set(level bool) error {
	return p.line.SetValue(btoi(level))
}

func (p *cdevPin) Get() (bool, error) {
	v, err := p.line.Value()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Close releases the line. Inputs are left with the pull-down the Pi boots
// with so the line does not float.
func (p *cdevPin) Close() error {
	if p.input {
		if err := p.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			p.line.Close()
			return fmt.Errorf("reconfigure line: %w", err)
		}
	}
	return p.line.Close()
}
