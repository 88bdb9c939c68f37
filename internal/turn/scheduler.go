package turn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var ErrGameOver = errors.New("game over")
var ErrNotYourTurn = errors.New("not your turn")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrNoPlayers = errors.New("scheduler needs at least one player")

// State is a point-in-time view of the scheduler.
type State struct {
	Current  int  `json:"current"`
	GameOver bool `json:"game_over"`
}

// Scheduler admits players one at a time in round-robin order. A single
// token moves between per-player channels; closing done releases every
// waiter at once.
type Scheduler struct {
	turns   []chan struct{}
	done    chan struct{}
	endOnce sync.Once

	current atomic.Int64
	held    atomic.Bool
}

func New(players int) (*Scheduler, error) {
	if players < 1 {
		return nil, ErrNoPlayers
	}
	s := &Scheduler{
		turns: make([]chan struct{}, players),
		done:  make(chan struct{}),
	}
	for i := range s.turns {
		s.turns[i] = make(chan struct{}, 1)
	}
	s.turns[0] <- struct{}{}
	return s, nil
}

func (s *Scheduler) Players() int { return len(s.turns) }

// Wait blocks until it is id's turn. It returns ErrGameOver once the game
// has ended, or ctx.Err() if ctx is done first.
func (s *Scheduler) Wait(ctx context.Context, id int) error {
	if id < 0 || id >= len(s.turns) {
		return fmt.Errorf("turn: %w: %d", ErrUnknownPlayer, id)
	}
	if s.GameOver() {
		return ErrGameOver
	}

	select {
	case <-s.turns[id]:
		if s.GameOver() {
			s.turns[id] <- struct{}{}
			return ErrGameOver
		}
		s.held.Store(true)
		return nil
	case <-s.done:
		return ErrGameOver
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Advance hands the turn from id to the next player.
func (s *Scheduler) Advance(id int) error {
	if int(s.current.Load()) != id || !s.held.CompareAndSwap(true, false) {
		return fmt.Errorf("turn: %w: player %d", ErrNotYourTurn, id)
	}
	next := (id + 1) % len(s.turns)
	s.current.Store(int64(next))
	s.turns[next] <- struct{}{}
	return nil
}

// End finishes the game for everyone. It is safe to call more than once.
func (s *Scheduler) End() {
	s.endOnce.Do(func() { close(s.done) })
}

func (s *Scheduler) GameOver() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done is closed when the game ends.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

func (s *Scheduler) State() State {
	return State{Current: int(s.current.Load()), GameOver: s.GameOver()}
}
