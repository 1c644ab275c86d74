package agent

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// SignalController turns the first interrupt into a stop request honoured
// between steps and the second into a context cancellation.
type SignalController struct {
	ch        chan os.Signal
	cancel    context.CancelFunc
	stop      atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

func NewSignalController(cancel context.CancelFunc) *SignalController {
	s := &SignalController{
		ch:     make(chan os.Signal, 2),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	signal.Notify(s.ch, os.Interrupt)
	go s.loop()
	return s
}

func (s *SignalController) loop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ch:
			if s.stop.Swap(true) {
				s.cancel()
			}
		}
	}
}

// StopRequested reports whether an interrupt has been received.
func (s *SignalController) StopRequested() bool {
	return s.stop.Load()
}

// RequestStop behaves like a first interrupt.
func (s *SignalController) RequestStop() {
	s.stop.Store(true)
}

func (s *SignalController) Close() {
	s.closeOnce.Do(func() {
		signal.Stop(s.ch)
		close(s.done)
	})
}
