package reqseq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequencer_NextSupersedes(t *testing.T) {
	s := New()

	first := s.Next("line-1")
	assert.True(t, s.Current(first))

	second := s.Next("line-1")
	assert.False(t, s.Current(first))
	assert.True(t, s.Current(second))
	assert.Greater(t, second.Generation, first.Generation)
}

func TestSequencer_KeysAreIndependent(t *testing.T) {
	s := New()

	a := s.Next("line-a")
	b := s.Next("line-b")
	s.Next("line-b")

	assert.True(t, s.Current(a))
	assert.False(t, s.Current(b))
}

func TestSequencer_Latest(t *testing.T) {
	s := New()

	a := s.Next("cart")
	b := s.Next("line-1")
	assert.True(t, s.Latest(a, b))

	s.Next("line-1")
	assert.False(t, s.Latest(a, b))
	assert.True(t, s.Latest())
}

func TestSequencer_ZeroTokenIsNeverCurrentAfterNext(t *testing.T) {
	s := New()
	assert.True(t, s.Current(Token{Key: "x"}))

	s.Next("x")
	assert.False(t, s.Current(Token{Key: "x"}))
}

func TestSequencer_ConcurrentNext(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	tokens := make(chan Token, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens <- s.Next("q")
		}()
	}
	wg.Wait()
	close(tokens)

	seen := map[uint64]bool{}
	current := 0
	for tok := range tokens {
		assert.False(t, seen[tok.Generation], "generation issued twice")
		seen[tok.Generation] = true
		if s.Current(tok) {
			current++
		}
	}
	assert.Len(t, seen, 50)
	assert.Equal(t, 1, current)
}
