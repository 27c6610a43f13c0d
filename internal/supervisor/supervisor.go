package supervisor

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// monitorHook runs at the top of every monitoring cycle. Tests use it to
// inject a fault.
var monitorHook = func() {}

// SupervisorFault is a panic that escaped the monitoring cycle.
type SupervisorFault struct {
	Cause any
}

func (f *SupervisorFault) Error() string {
	return fmt.Sprintf("supervisor fault: %v", f.Cause)
}

// ErrUnexpectedExit is wrapped when a loop ends without having been asked to.
var ErrUnexpectedExit = errors.New("loop exited unexpectedly")

type Supervisor struct {
	loops       []*Loop
	joinTimeout time.Duration
}

func New(joinTimeout time.Duration, loops ...*Loop) *Supervisor {
	return &Supervisor{loops: loops, joinTimeout: joinTimeout}
}

// Run starts every loop and blocks until all of them have finished. A signal
// stops everything cleanly and Run returns nil. A fault or a loop that dies on
// its own also stops everything, and Run returns the first such error.
func (s *Supervisor) Run(signals <-chan os.Signal) error {
	exited := make(chan *Loop, len(s.loops))
	for _, l := range s.loops {
		l.Start()
		go func(l *Loop) {
			<-l.Done()
			exited <- l
		}(l)
	}

	running := append([]*Loop(nil), s.loops...)
	stopping := false
	var fault error

	for len(running) > 0 {
		var err error
		if stopping {
			s.wait(signals, exited)
		} else {
			stopping, err = s.monitor(signals, exited)
		}

		if err != nil {
			log.Error().Err(err).Msg("Stopping all loops")
			if fault == nil {
				fault = err
			}
		}
		if stopping {
			stopAll(running)
		}

		running = prune(running)
	}

	log.Info().Msg("All loops stopped")
	return fault
}

// monitor runs one cycle before shutdown has begun. It reports whether
// shutdown should start, and why if the reason is a failure.
func (s *Supervisor) monitor(signals <-chan os.Signal, exited <-chan *Loop) (stop bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			stop, err = true, &SupervisorFault{Cause: r}
		}
	}()

	monitorHook()

	timer := time.NewTimer(s.joinTimeout)
	defer timer.Stop()

	select {
	case sig := <-signals:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		return true, nil
	case l := <-exited:
		if l.StopRequested() {
			return false, nil
		}
		if l.Err() != nil {
			return true, fmt.Errorf("%s: %w: %w", l.Name(), ErrUnexpectedExit, l.Err())
		}
		return true, fmt.Errorf("%s: %w", l.Name(), ErrUnexpectedExit)
	case <-timer.C:
		return false, nil
	}
}

// wait runs a cycle once shutdown has begun.
func (s *Supervisor) wait(signals <-chan os.Signal, exited <-chan *Loop) {
	timer := time.NewTimer(s.joinTimeout)
	defer timer.Stop()

	select {
	case sig := <-signals:
		log.Info().Str("signal", sig.String()).Msg("Already shutting down")
	case l := <-exited:
		log.Debug().Str("loop", l.Name()).Msg("Loop finished")
	case <-timer.C:
	}
}

func stopAll(loops []*Loop) {
	for _, l := range loops {
		l.Stop()
	}
}

// prune returns a new slice holding the loops that have not finished.
func prune(loops []*Loop) []*Loop {
	var running []*Loop
	for _, l := range loops {
		select {
		case <-l.Done():
		default:
			running = append(running, l)
		}
	}
	return running
}
