// Package adc reads the MCP3008 over four bit-banged SPI lines.
package adc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/thatsimonsguy/hardware-ui/internal/gpio"
)

// Channel is an MCP3008 input, 0 through 7.
type Channel int

// Sample is a 10-bit conversion result, 0 through 1023.
type Sample uint16

const (
	MaxChannel Channel = 7
	MaxSample  Sample  = 1023

	commandBits  = 5
	responseBits = 12
)

// ErrInvalidChannel is returned for channels outside [0,7]. No line is
// touched when it is returned.
var ErrInvalidChannel = errors.New("adc: invalid channel")

// Reader is anything that can produce a sample for a channel.
type Reader interface {
	Read(ch Channel) (Sample, error)
}

// MCP3008 bit-bangs the ADC protocol. Transactions are serialised so
// chip-select stays asserted for the whole 17-clock exchange.
type MCP3008 struct {
	mu    sync.Mutex
	lines *gpio.SPILines
}

func NewMCP3008(lines *gpio.SPILines) *MCP3008 {
	return &MCP3008{lines: lines}
}

func (a *MCP3008) Read(ch Channel) (Sample, error) {
	if ch < 0 || ch > MaxChannel {
		return 0, fmt.Errorf("%w: %d", ErrInvalidChannel, ch)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	raw, err := a.transfer(ch)
	if err != nil {
		// best effort: leave the ADC deselected so the next read starts clean
		_ = a.lines.ChipSelect.Set(true)
		return 0, fmt.Errorf("adc: read channel %d: %w", ch, err)
	}

	// the first bit clocked in is the null bit
	return Sample(raw>>1) & MaxSample, nil
}

func (a *MCP3008) transfer(ch Channel) (uint16, error) {
	l := a.lines

	if err := l.ChipSelect.Set(true); err != nil {
		return 0, err
	}
	if err := l.Clock.Set(false); err != nil {
		return 0, err
	}
	if err := l.ChipSelect.Set(false); err != nil {
		return 0, err
	}

	// start bit, single-ended bit, then D2..D0
	command := (0x18 | uint8(ch)) << 3
	for i := 0; i < commandBits; i++ {
		if err := l.MOSI.Set(command&0x80 != 0); err != nil {
			return 0, err
		}
		command <<= 1
		if err := a.pulse(); err != nil {
			return 0, err
		}
	}

	var raw uint16
	for i := 0; i < responseBits; i++ {
		if err := a.pulse(); err != nil {
			return 0, err
		}
		bit, err := l.MISO.Get()
		if err != nil {
			return 0, err
		}
		raw <<= 1
		if bit {
			raw |= 0x1
		}
	}

	if err := l.ChipSelect.Set(true); err != nil {
		return 0, err
	}
	return raw, nil
}

func (a *MCP3008) pulse() error {
	if err := a.lines.Clock.Set(true); err != nil {
		return err
	}
	return a.lines.Clock.Set(false)
}
