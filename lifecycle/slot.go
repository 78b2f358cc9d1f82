package lifecycle

import "sync"

// outcomeSlot holds the single outcome of an invocation. The first claim
// wins; later claims are rejected without side effects. The winner must call
// complete once delivery has finished.
type outcomeSlot struct {
	mu      sync.Mutex
	claimed bool
	outcome Outcome
	err     error
	done    chan struct{}
}

func newOutcomeSlot() *outcomeSlot {
	return &outcomeSlot{done: make(chan struct{})}
}

// claim stores o if the slot is still empty and reports whether it did.
func (s *outcomeSlot) claim(o Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.claimed {
		return false
	}
	s.claimed = true
	s.outcome = o
	return true
}

// complete records the delivery error and releases waiters.
func (s *outcomeSlot) complete(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.done)
}

// wait blocks until the claimed outcome has been delivered.
func (s *outcomeSlot) wait() (Outcome, error) {
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.err
}
