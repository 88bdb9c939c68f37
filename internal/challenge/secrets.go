package challenge

import (
	"errors"
	"math/bits"
	"sort"
	"sync"

	"github.com/DoyleJ11/maze-team-client/pkg/types"
)

var ErrZeroModulus = errors.New("modulus must be non-zero")

// Secrets is the team-wide table of the last secret each player received.
type Secrets struct {
	mu     sync.Mutex
	values map[string]uint64
}

// NewSecrets seeds every named player with 0 so the sum is defined before
// the first hint arrives.
func NewSecrets(players ...string) *Secrets {
	s := &Secrets{values: make(map[string]uint64, len(players))}
	for _, p := range players {
		s.values[p] = 0
	}
	return s
}

func (s *Secrets) Store(player string, v uint64) {
	s.mu.Lock()
	s.values[player] = v
	s.mu.Unlock()
}

func (s *Secrets) Get(player string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[player]
	return v, ok
}

// Snapshot copies the table.
func (s *Secrets) Snapshot() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Players lists the known names in order.
func (s *Secrets) Players() []string {
	s.mu.Lock()
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	s.mu.Unlock()
	sort.Strings(names)
	return names
}

// SumModulo is (Σ secrets) mod m over the current table.
func (s *Secrets) SumModulo(m uint64) (uint64, error) {
	s.mu.Lock()
	values := make([]uint64, 0, len(s.values))
	for _, v := range s.values {
		values = append(values, v)
	}
	s.mu.Unlock()
	return SumModulo(values, m)
}

// SumModulo adds values in a 128-bit accumulator so the sum never wraps.
func SumModulo(values []uint64, m uint64) (uint64, error) {
	if m == 0 {
		return 0, ErrZeroModulus
	}
	var hi, lo uint64
	for _, v := range values {
		var carry uint64
		lo, carry = bits.Add64(lo, v, 0)
		hi += carry
	}
	return bits.Rem64(hi, lo, m), nil
}

// Pending holds the challenge the team still has to answer.
type Pending struct {
	mu sync.Mutex
	c  *types.Challenge
}

func (p *Pending) Set(c types.Challenge) {
	p.mu.Lock()
	p.c = &c
	p.mu.Unlock()
}

func (p *Pending) Get() (types.Challenge, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.c == nil {
		return types.Challenge{}, false
	}
	return *p.c, true
}

func (p *Pending) Clear() {
	p.mu.Lock()
	p.c = nil
	p.mu.Unlock()
}
