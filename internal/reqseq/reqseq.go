// Package reqseq issues per-resource generation tokens so that a response
// belonging to a superseded request can be recognised and dropped.
package reqseq

import "sync"

// Token identifies one request against a resource key.
type Token struct {
	Key        string
	Generation uint64
}

// Sequencer hands out monotonically increasing generations per key.
type Sequencer struct {
	mu      sync.Mutex
	current map[string]uint64
}

func New() *Sequencer {
	return &Sequencer{current: make(map[string]uint64)}
}

// Next starts a new request for key, superseding every earlier token.
func (s *Sequencer) Next(key string) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current[key]++
	return Token{Key: key, Generation: s.current[key]}
}

// Current reports whether t is still the latest token for its key.
func (s *Sequencer) Current(t Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current[t.Key] == t.Generation
}

// Latest reports whether every token in ts is still current.
func (s *Sequencer) Latest(ts ...Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range ts {
		if s.current[t.Key] != t.Generation {
			return false
		}
	}
	return true
}
