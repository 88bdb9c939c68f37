package turn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper: receive one admission with a timeout so tests never hang
func recvAdmitted(t *testing.T, ch <-chan int, within time.Duration) int {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(within):
		t.Fatalf("timed out waiting for a player to be admitted")
		return -1 // unreachable
	}
}

func recvNoAdmission(t *testing.T, ch <-chan int, within time.Duration) {
	t.Helper()
	select {
	case id := <-ch:
		t.Fatalf("expected nobody admitted within %v, but player %d was", within, id)
	case <-time.After(within):
	}
}

func TestScheduler_AdmitsOnlyCurrentPlayer(t *testing.T) {
	s, err := New(3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	admitted := make(chan int, 3)
	results := make(chan error, 3)
	for id := 2; id >= 0; id-- {
		go func(id int) {
			err := s.Wait(ctx, id)
			if err == nil {
				admitted <- id
			}
			results <- err
		}(id)
	}

	assert.Equal(t, 0, recvAdmitted(t, admitted, time.Second))
	recvNoAdmission(t, admitted, 50*time.Millisecond)

	require.NoError(t, s.Advance(0))
	assert.Equal(t, 1, recvAdmitted(t, admitted, time.Second))
	recvNoAdmission(t, admitted, 50*time.Millisecond)
	assert.Equal(t, State{Current: 1}, s.State())

	s.End()
	deadline := time.After(time.Second)
	for i := 0; i < 3; i++ {
		select {
		case err := <-results:
			if err != nil {
				assert.ErrorIs(t, err, ErrGameOver)
			}
		case <-deadline:
			t.Fatalf("waiter never released after End")
		}
	}
	assert.True(t, s.State().GameOver)
}

func TestScheduler_RoundRobin(t *testing.T) {
	s, err := New(3)
	require.NoError(t, err)
	ctx := context.Background()

	var order []int
	for i := 0; i < 7; i++ {
		id := i % 3
		require.NoError(t, s.Wait(ctx, id))
		order = append(order, id)
		require.NoError(t, s.Advance(id))
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, order)
	assert.Equal(t, 1, s.State().Current)
}

func TestScheduler_AdvanceOutOfTurn(t *testing.T) {
	s, err := New(2)
	require.NoError(t, err)

	assert.ErrorIs(t, s.Advance(1), ErrNotYourTurn)
	// holding the turn is required even for the current player
	assert.ErrorIs(t, s.Advance(0), ErrNotYourTurn)

	require.NoError(t, s.Wait(context.Background(), 0))
	require.NoError(t, s.Advance(0))
	assert.ErrorIs(t, s.Advance(0), ErrNotYourTurn)
}

func TestScheduler_EndIsIdempotent(t *testing.T) {
	s, err := New(1)
	require.NoError(t, err)
	s.End()
	s.End()
	assert.ErrorIs(t, s.Wait(context.Background(), 0), ErrGameOver)

	select {
	case <-s.Done():
	default:
		t.Fatalf("done channel should be closed")
	}
}

func TestScheduler_WaitHonoursContext(t *testing.T) {
	s, err := New(2)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx, 1), context.DeadlineExceeded)

	// the token is untouched
	require.NoError(t, s.Wait(context.Background(), 0))
}

func TestNew_Validates(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, ErrNoPlayers)

	s, err := New(2)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Wait(context.Background(), 5), ErrUnknownPlayer)
}
