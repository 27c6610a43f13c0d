// Package gpio hands out individual digital lines on the Pi header.
// The gpiocdev backend talks to the Linux GPIO character device, the pinctrl
// backend shells out to the Raspberry Pi pinctrl tool, and the fake backend
// lets tests run without hardware.
package gpio

import (
	"errors"
	"fmt"

	"github.com/thatsimonsguy/hardware-ui/internal/config"
)

// Pin is a single digital line.
type Pin interface {
	Set(level bool) error
	Get() (bool, error)
	Close() error
}

// Chip requests lines by BCM offset.
type Chip interface {
	Output(offset int, initial bool) (Pin, error)
	Input(offset int) (Pin, error)
	Close() error
}

// Open returns the chip for the configured backend.
func Open(backend, chipName string) (Chip, error) {
	switch backend {
	case config.BackendPinctrl:
		return NewPinctrlChip(), nil
	case config.BackendGPIOCdev:
		return NewCdevChip(chipName)
	default:
		return nil, fmt.Errorf("unknown gpio backend %q", backend)
	}
}

// SPILines are the four bit-banged SPI lines wired to the ADC.
type SPILines struct {
	Clock      Pin
	ChipSelect Pin
	MOSI       Pin
	MISO       Pin
}

// RequestSPI claims the SPI lines parked at their idle levels: clock low,
// chip-select high (ADC deselected), MOSI low.
func RequestSPI(chip Chip, pins config.GPIO) (*SPILines, error) {
	lines := &SPILines{}
	var err error

	if lines.Clock, err = chip.Output(*pins.SPIClock, false); err != nil {
		return nil, fmt.Errorf("request spi clock pin %d: %w", *pins.SPIClock, err)
	}
	if lines.ChipSelect, err = chip.Output(*pins.SPIChipSelect, true); err != nil {
		lines.Close()
		return nil, fmt.Errorf("request spi chip-select pin %d: %w", *pins.SPIChipSelect, err)
	}
	if lines.MOSI, err = chip.Output(*pins.SPIMOSI, false); err != nil {
		lines.Close()
		return nil, fmt.Errorf("request spi mosi pin %d: %w", *pins.SPIMOSI, err)
	}
	if lines.MISO, err = chip.Input(*pins.SPIMISO); err != nil {
		lines.Close()
		return nil, fmt.Errorf("request spi miso pin %d: %w", *pins.SPIMISO, err)
	}
	return lines, nil
}

// Close releases whichever lines were claimed.
func (l *SPILines) Close() error {
	var errs []error
	for _, p := range []Pin{l.Clock, l.ChipSelect, l.MOSI, l.MISO} {
		if p == nil {
			continue
		}
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RequestLamp claims the lamp output, initially off.
func RequestLamp(chip Chip, pins config.GPIO) (Pin, error) {
	lamp, err := chip.Output(*pins.Lamp, false)
	if err != nil {
		return nil, fmt.Errorf("request lamp pin %d: %w", *pins.Lamp, err)
	}
	return lamp, nil
}

func btoi(level bool) int {
	if level {
		return 1
	}
	return 0
}
