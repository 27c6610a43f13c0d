package gpio

import (
	"fmt"
	"sync"
)

// FakePin is a test double that records every level written to it.
type FakePin struct {
	mu sync.Mutex

	Offset int
	Input  bool
	level  bool
	writes []bool
	closed bool

	// OnSet, if set, is called after each Set with the new level.
	OnSet func(level bool)
	// OnGet, if set, supplies the level returned by Get.
	OnGet func() bool

	SetErr error
	GetErr error
}

func NewFakePin(offset int) *FakePin {
	return &FakePin{Offset: offset}
}

func (p *FakePin) Set(level bool) error {
	p.mu.Lock()
	if p.SetErr != nil {
		p.mu.Unlock()
		return p.SetErr
	}
	p.level = level
	p.writes = append(p.writes, level)
	hook := p.OnSet
	p.mu.Unlock()

	if hook != nil {
		hook(level)
	}
	return nil
}

func (p *FakePin) Get() (bool, error) {
	p.mu.Lock()
	if p.GetErr != nil {
		p.mu.Unlock()
		return false, p.GetErr
	}
	hook := p.OnGet
	level := p.level
	p.mu.Unlock()

	if hook != nil {
		return hook(), nil
	}
	return level, nil
}

func (p *FakePin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// SetLevel changes the level without recording a write.
func (p *FakePin) SetLevel(level bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}

func (p *FakePin) Level() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Writes returns a copy of every level passed to Set, in order.
func (p *FakePin) Writes() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.writes...)
}

func (p *FakePin) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// FakeChip hands out FakePins and remembers them by offset.
type FakeChip struct {
	mu   sync.Mutex
	Pins map[int]*FakePin

	// FailOffset makes requests for that offset fail when non-nil.
	FailOffset *int
	closed     bool
}

func NewFakeChip() *FakeChip {
	return &FakeChip{Pins: make(map[int]*FakePin)}
}

func (c *FakeChip) Output(offset int, initial bool) (Pin, error) {
	return c.request(offset, initial, false)
}

func (c *FakeChip) Input(offset int) (Pin, error) {
	return c.request(offset, false, true)
}

func (c *FakeChip) request(offset int, initial, input bool) (Pin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailOffset != nil && *c.FailOffset == offset {
		return nil, fmt.Errorf("fake: line %d busy", offset)
	}
	p := &FakePin{Offset: offset, Input: input, level: initial}
	c.Pins[offset] = p
	return p, nil
}

func (c *FakeChip) Pin(offset int) *FakePin {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Pins[offset]
}

func (c *FakeChip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *FakeChip) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
