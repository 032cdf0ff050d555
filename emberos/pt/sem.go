package pt

// Sem is a counting semaphore for protothreads sharing one call stack.
//
// It needs no locking: only the main thread touches it.
type Sem struct {
	count uint
}

// NewSem returns a semaphore holding count tokens.
func NewSem(count uint) *Sem { return &Sem{count: count} }

// Count returns the number of available tokens.
func (s *Sem) Count() uint { return s.count }

// Wait blocks p at lc until a token is available, then takes it.
// The caller returns Waiting when it reports false.
func (s *Sem) Wait(p *PT, lc LC) bool {
	if !p.WaitUntil(lc, s.count > 0) {
		return false
	}
	s.count--
	return true
}

// Signal returns a token.
func (s *Sem) Signal() { s.count++ }
