package hub

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/maze-team-client/internal/feed"
	"github.com/DoyleJ11/maze-team-client/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_UpdateThenGet(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, nil)

	h.Snapshot(types.PlayerSnapshot{Player: "Player 1", Turn: 1, Row: 3, Col: 3})
	h.Snapshot(types.PlayerSnapshot{Player: "Player 1", Turn: 2, Row: 5, Col: 3})

	p, ok := h.Player(ctx, "Player 1")
	require.True(t, ok)
	assert.Equal(t, 2, p.Snapshot.Turn)
	assert.Equal(t, 5, p.Snapshot.Row)

	_, ok = h.Player(ctx, "Player 9")
	assert.False(t, ok)
}

func TestHub_ListPlayersSorted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, nil)

	h.Snapshot(types.PlayerSnapshot{Player: "Player 2"})
	h.Snapshot(types.PlayerSnapshot{Player: "Player 1"})
	h.Event(types.Event{Player: "Player 3", Kind: types.EventSecret})

	ps := h.Players(ctx)
	require.Len(t, ps, 3)
	assert.Equal(t, "Player 1", ps[0].Snapshot.Player)
	assert.Equal(t, "Player 2", ps[1].Snapshot.Player)
	assert.Equal(t, "Player 3", ps[2].Snapshot.Player)
	require.NotNil(t, ps[2].LastEvent)
	assert.Equal(t, types.EventSecret, ps[2].LastEvent.Kind)
}

func TestHub_ForwardsEventsToFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := feed.New(ctx)
	h := NewHub(ctx, f)

	out := make(chan types.Event, 4)
	f.Inbox() <- feed.Join{ClientID: "watcher", Outbox: out}

	h.Event(types.Event{Player: "Player 1", Kind: types.EventBlocked, Turn: 4})

	select {
	case e := <-out:
		assert.Equal(t, types.EventBlocked, e.Kind)
		assert.Equal(t, 4, e.Turn)
	case <-time.After(time.Second):
		t.Fatalf("event never reached the feed")
	}

	p, ok := h.Player(ctx, "Player 1")
	require.True(t, ok)
	assert.Equal(t, 1, p.Events)
}

func TestHub_ShutdownStopsFeed(t *testing.T) {
	f := feed.New(context.Background())
	h := NewHub(context.Background(), f)

	h.Inbox() <- ShutdownHub{}

	for _, done := range []<-chan struct{}{h.Done(), f.Done()} {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("hub shutdown did not stop everything")
		}
	}

	// observers never block on a stopped hub
	h.Event(types.Event{Player: "Player 1"})
	assert.Nil(t, h.Players(context.Background()))
}
