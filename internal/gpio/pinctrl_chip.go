package gpio

import (
	"github.com/thatsimonsguy/hardware-ui/internal/pinctrl"
)

// PinctrlChip drives lines through the pinctrl tool. Every edge forks a
// process, so a full ADC transaction takes tens of milliseconds.
type PinctrlChip struct{}

func NewPinctrlChip() *PinctrlChip {
	return &PinctrlChip{}
}

func (c *PinctrlChip) Output(offset int, initial bool) (Pin, error) {
	if err := pinctrl.SetPin(offset, pinctrl.OutputOpts(initial)...); err != nil {
		return nil, err
	}
	return &pinctrlPin{offset: offset}, nil
}

func (c *PinctrlChip) Input(offset int) (Pin, error) {
	if err := pinctrl.SetPin(offset, pinctrl.InputOpts()...); err != nil {
		return nil, err
	}
	return &pinctrlPin{offset: offset}, nil
}

func (c *PinctrlChip) Close() error {
	return nil
}

type pinctrlPin struct {
	offset int
}

func (p *pinctrlPin) Set(level bool) error {
	return pinctrl.SetPin(p.offset, pinctrl.OutputOpts(level)...)
}

func (p *pinctrlPin) Get() (bool, error) {
	return pinctrl.ReadLevel(p.offset)
}

func (p *pinctrlPin) Close() error {
	return nil
}
