package winewizard

import (
	"sync"
	"sync/atomic"
)

// Shutdown is the cooperative quit signal. Long-running calls check
// Quitting after they return and stop advancing their workflow.
type Shutdown struct {
	quitting atomic.Bool
	once     sync.Once
	done     chan struct{}
}

func NewShutdown() *Shutdown {
	return &Shutdown{done: make(chan struct{})}
}

// Quit sets the flag. Only the first call closes Done.
func (s *Shutdown) Quit() {
	s.once.Do(func() {
		s.quitting.Store(true)
		close(s.done)
	})
}

func (s *Shutdown) Quitting() bool { return s.quitting.Load() }

// Done is closed once Quit has been called.
func (s *Shutdown) Done() <-chan struct{} { return s.done }
