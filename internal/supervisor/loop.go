// Package supervisor runs the periodic loops and stops them together.
package supervisor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// now is the loop clock; tests replace it.
var now = time.Now

// Loop calls step every period until stopped. A stop request interrupts the
// sleep, so shutdown waits for at most the step in flight.
type Loop struct {
	name   string
	period time.Duration
	step   func(now time.Time)

	onStart func(now time.Time)
	onExit  func()

	stopRequested atomic.Bool
	alive         atomic.Bool
	stopOnce      sync.Once
	stopCh        chan struct{}
	done          chan struct{}
	err           error
}

func NewLoop(name string, period time.Duration, step func(now time.Time)) *Loop {
	return &Loop{
		name:   name,
		period: period,
		step:   step,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// OnStart runs once on the loop goroutine before the first step.
func (l *Loop) OnStart(fn func(now time.Time)) *Loop {
	l.onStart = fn
	return l
}

// OnExit runs on the loop goroutine however the loop ends, panics included.
func (l *Loop) OnExit(fn func()) *Loop {
	l.onExit = fn
	return l
}

func (l *Loop) Name() string {
	return l.name
}

func (l *Loop) Start() {
	l.alive.Store(true)
	go l.run()
}

// Stop asks the loop to finish. It does not wait; use Done for that.
func (l *Loop) Stop() {
	l.stopRequested.Store(true)
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *Loop) StopRequested() bool {
	return l.stopRequested.Load()
}

func (l *Loop) Alive() bool {
	return l.alive.Load()
}

// Done is closed once the loop goroutine has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Err reports a panic that ended the loop. Only valid after Done.
func (l *Loop) Err() error {
	return l.err
}

func (l *Loop) run() {
	defer close(l.done)
	defer l.alive.Store(false)
	defer func() {
		if l.onExit != nil {
			l.onExit()
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			l.err = fmt.Errorf("panic: %v", r)
			log.Error().Str("loop", l.name).Interface("panic", r).Msg("Loop panicked")
		}
	}()

	log.Info().Str("loop", l.name).Dur("period", l.period).Msg("Loop started")
	if l.onStart != nil {
		l.onStart(now())
	}

	timer := time.NewTimer(l.period)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for !l.stopRequested.Load() {
		l.step(now())

		timer.Reset(l.period)
		select {
		case <-l.stopCh:
		case <-timer.C:
		}
	}

	log.Info().Str("loop", l.name).Msg("Loop stopped")
}
