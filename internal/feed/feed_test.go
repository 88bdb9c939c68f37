package feed

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/maze-team-client/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper: receive one event with a timeout so tests never hang
func recvEvent(t *testing.T, ch <-chan types.Event, within time.Duration) types.Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return e
	case <-time.After(within):
		t.Fatalf("timed out waiting for event")
		return types.Event{} // unreachable
	}
}

func recvView(t *testing.T, f *Feed, within time.Duration) View {
	t.Helper()
	reply := make(chan View, 1)
	f.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func event(player string, kind types.EventKind, turn int) types.Event {
	return types.Event{Player: player, Kind: kind, Turn: turn}
}

func TestFeed_PublishReachesEveryClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := New(ctx)

	a := make(chan types.Event, 4)
	b := make(chan types.Event, 4)
	f.Inbox() <- Join{ClientID: "a", Outbox: a}
	f.Inbox() <- Join{ClientID: "b", Outbox: b}

	require.True(t, f.Publish(event("Player 1", types.EventMoved, 1)))

	assert.Equal(t, types.EventMoved, recvEvent(t, a, 100*time.Millisecond).Kind)
	assert.Equal(t, "Player 1", recvEvent(t, b, 100*time.Millisecond).Player)

	v := recvView(t, f, 100*time.Millisecond)
	assert.Equal(t, 1, v.Published)
	assert.Equal(t, 2, v.NumClients)
}

func TestFeed_JoinReplaysRecent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := New(ctx)

	for i := 1; i <= 3; i++ {
		f.Inbox() <- Publish{Event: event("Player 1", types.EventMoved, i)}
	}
	out := make(chan types.Event, 2)
	f.Inbox() <- Join{ClientID: "late", Outbox: out}

	// only what fits is replayed, oldest first
	assert.Equal(t, 1, recvEvent(t, out, 100*time.Millisecond).Turn)
	assert.Equal(t, 2, recvEvent(t, out, 100*time.Millisecond).Turn)
	assert.Equal(t, 1, recvView(t, f, 100*time.Millisecond).NumClients)
}

func TestFeed_BacklogIsBounded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := New(ctx)

	for i := 0; i < backlog+10; i++ {
		f.Inbox() <- Publish{Event: event("Player 2", types.EventBlocked, i)}
	}
	v := recvView(t, f, 100*time.Millisecond)
	assert.Equal(t, backlog+10, v.Published)
	require.Len(t, v.Recent, backlog)
	assert.Equal(t, 10, v.Recent[0].Turn)
}

func TestFeed_DropSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := New(ctx)

	out := make(chan types.Event, 1)
	f.Inbox() <- Join{ClientID: "slow", Outbox: out}
	f.Inbox() <- Publish{Event: event("Player 1", types.EventMoved, 1)}
	f.Inbox() <- Publish{Event: event("Player 1", types.EventMoved, 2)}

	v := recvView(t, f, 100*time.Millisecond)
	assert.Equal(t, 0, v.NumClients)

	_ = recvEvent(t, out, 100*time.Millisecond)
	_, ok := <-out
	assert.False(t, ok, "slow client's outbox should be closed")
}

func TestFeed_LeaveClosesOutbox(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := New(ctx)

	out := make(chan types.Event, 1)
	f.Inbox() <- Join{ClientID: "c1", Outbox: out}
	f.Inbox() <- Leave{ClientID: "c1"}
	f.Inbox() <- Leave{ClientID: "c1"} // twice is harmless

	assert.Equal(t, 0, recvView(t, f, 100*time.Millisecond).NumClients)
	_, ok := <-out
	assert.False(t, ok)
}

func TestFeed_ShutdownClosesClients(t *testing.T) {
	f := New(context.Background())

	out := make(chan types.Event, 1)
	f.Inbox() <- Join{ClientID: "c1", Outbox: out}
	f.Inbox() <- Shutdown{}

	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatalf("feed did not stop")
	}
	_, ok := <-out
	assert.False(t, ok)
	assert.False(t, f.Publish(event("Player 1", types.EventMoved, 1)))
}
