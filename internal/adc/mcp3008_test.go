package adc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/hardware-ui/internal/gpio"
)

// fakePeer plays the MCP3008 side of the bus: it latches MOSI on each rising
// clock edge and, once the command is in, shifts response out MSB first on
// each falling edge.
type fakePeer struct {
	clk, cs, mosi, miso *gpio.FakePin

	response uint16
	command  []bool
	rising   int
	sent     int
}

func newFakePeer(response uint16) (*fakePeer, *gpio.SPILines) {
	p := &fakePeer{
		clk:      gpio.NewFakePin(11),
		cs:       gpio.NewFakePin(8),
		mosi:     gpio.NewFakePin(10),
		miso:     gpio.NewFakePin(9),
		response: response,
	}
	p.cs.SetLevel(true)
	p.cs.OnSet = func(level bool) {
		if !level {
			p.command = nil
			p.rising = 0
			p.sent = 0
		}
	}
	p.clk.OnSet = p.onClock
	return p, &gpio.SPILines{Clock: p.clk, ChipSelect: p.cs, MOSI: p.mosi, MISO: p.miso}
}

func (p *fakePeer) onClock(level bool) {
	if p.cs.Level() {
		return
	}
	if level {
		p.rising++
		if len(p.command) < commandBits {
			p.command = append(p.command, p.mosi.Level())
		}
		return
	}
	if p.rising > commandBits && p.sent < responseBits {
		p.miso.SetLevel(p.response>>(responseBits-1-p.sent)&1 == 1)
		p.sent++
	}
}

func (p *fakePeer) totalWrites() int {
	return len(p.clk.Writes()) + len(p.cs.Writes()) + len(p.mosi.Writes()) + len(p.miso.Writes())
}

func TestRead_InvalidChannelTouchesNoLines(t *testing.T) {
	for _, ch := range []Channel{-1, 8, 42} {
		peer, lines := newFakePeer(0)
		adc := NewMCP3008(lines)

		_, err := adc.Read(ch)

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidChannel), "channel %d", ch)
		assert.Equal(t, 0, peer.totalWrites(), "channel %d caused bus activity", ch)
	}
}

func TestRead_BitOrder(t *testing.T) {
	values := []Sample{0, 1, 2, 341, 512, 682, 1022, 1023}

	for ch := Channel(0); ch <= MaxChannel; ch++ {
		for _, want := range values {
			// leading null bit low, trailing bit high to prove it is discarded
			response := uint16(want)<<1 | 1
			peer, lines := newFakePeer(response)
			adc := NewMCP3008(lines)

			got, err := adc.Read(ch)

			require.NoError(t, err)
			assert.Equal(t, Sample(response>>1), got, "channel %d value %d", ch, want)
			assert.Equal(t, want, got)
			assert.Equal(t, []bool{
				true,
				true,
				ch&0x4 != 0,
				ch&0x2 != 0,
				ch&0x1 != 0,
			}, peer.command, "command bits for channel %d", ch)
		}
	}
}

func TestRead_ClockAndChipSelectDiscipline(t *testing.T) {
	peer, lines := newFakePeer(uint16(700) << 1)
	adc := NewMCP3008(lines)

	_, err := adc.Read(5)
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false, true}, peer.cs.Writes(), "cs idles high, asserts once, releases")
	assert.Equal(t, commandBits+responseBits, peer.rising, "one rising edge per bit")

	clk := peer.clk.Writes()
	require.Len(t, clk, 1+2*(commandBits+responseBits))
	assert.False(t, clk[0], "clock starts low")
	for i := 1; i < len(clk); i += 2 {
		assert.True(t, clk[i], "edge %d rises", i)
		assert.False(t, clk[i+1], "edge %d falls", i+1)
	}
	assert.Len(t, peer.mosi.Writes(), commandBits)
}

func TestRead_SequentialReadsIndependent(t *testing.T) {
	peer, lines := newFakePeer(uint16(100) << 1)
	adc := NewMCP3008(lines)

	first, err := adc.Read(0)
	require.NoError(t, err)
	peer.response = uint16(900) << 1
	second, err := adc.Read(1)
	require.NoError(t, err)

	assert.Equal(t, Sample(100), first)
	assert.Equal(t, Sample(900), second)
}

func TestRead_LineErrorReleasesChipSelect(t *testing.T) {
	peer, lines := newFakePeer(0)
	peer.miso.GetErr = errors.New("line gone")
	adc := NewMCP3008(lines)

	_, err := adc.Read(2)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line gone")
	assert.True(t, peer.cs.Level(), "chip-select released after failure")
}
