package agent

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/maze-team-client/internal/challenge"
	"github.com/DoyleJ11/maze-team-client/internal/turn"
	"github.com/DoyleJ11/maze-team-client/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// walls north and east of the start, open to the north and west
const deadEndRadar = "ieysGjGO8papd/a"

// fakeConn replays scripted replies and records what the agent sent. Once
// the script runs out Receive fails like a closed socket.
type fakeConn struct {
	mu        sync.Mutex
	replies   []types.Message
	sent      []types.Message
	panicSend bool
}

func (c *fakeConn) Send(m types.Message) error {
	if c.panicSend {
		panic("send exploded")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m)
	return nil
}

func (c *fakeConn) Receive() (types.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.replies) == 0 {
		return types.Message{}, io.EOF
	}
	m := c.replies[0]
	c.replies = c.replies[1:]
	return m, nil
}

func (c *fakeConn) moves() []types.RelativeDirection {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.RelativeDirection
	for _, m := range c.sent {
		if m.Action != nil && m.Action.MoveTo != nil {
			out = append(out, *m.Action.MoveTo)
		}
	}
	return out
}

func (c *fakeConn) answers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range c.sent {
		if m.Action != nil && m.Action.SolveChallenge != nil {
			out = append(out, m.Action.SolveChallenge.Answer)
		}
	}
	return out
}

type recorder struct {
	mu     sync.Mutex
	events []types.Event
	snaps  []types.PlayerSnapshot
}

func (r *recorder) Event(e types.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) Snapshot(s types.PlayerSnapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) kinds() []types.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type fixture struct {
	sched   *turn.Scheduler
	secrets *challenge.Secrets
	pending *challenge.Pending
	rec     *recorder
}

func newAgent(t *testing.T, players int, conn Conn) (*Agent, fixture) {
	t.Helper()
	sched, err := turn.New(players)
	require.NoError(t, err)

	f := fixture{
		sched:   sched,
		secrets: challenge.NewSecrets("Player 1"),
		pending: &challenge.Pending{},
		rec:     &recorder{},
	}
	log := zaptest.NewLogger(t)
	coord := challenge.NewCoordinator(f.secrets, f.pending, challenge.Config{Attempts: 2, Backoff: time.Millisecond}, log)

	a, err := New(0, "Player 1", conn, deadEndRadar, Deps{
		Scheduler:   sched,
		Coordinator: coord,
		Observer:    f.rec,
		Logger:      log,
	})
	require.NoError(t, err)
	return a, f
}

func runWithTimeout(t *testing.T, a *Agent) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()
	select {
	case err := <-errCh:
		return err
	case <-time.After(3 * time.Second):
		t.Fatalf("agent never returned")
		return nil
	}
}

func wall() types.Message { return types.NewActionError(types.CannotPassThroughWall) }

func TestAgent_WallsUntilExhausted(t *testing.T) {
	conn := &fakeConn{replies: []types.Message{wall(), wall()}}
	a, f := newAgent(t, 1, conn)

	require.NoError(t, runWithTimeout(t, a))

	assert.Equal(t, []types.RelativeDirection{types.Front, types.Left}, conn.moves())
	m := a.Metrics().Snapshot()
	assert.Equal(t, int64(2), m["moves"])
	assert.Equal(t, int64(2), m["walls_hit"])
	assert.True(t, f.sched.GameOver())
	assert.Equal(t, []types.EventKind{types.EventBlocked, types.EventBlocked, types.EventExhausted}, f.rec.kinds())
}

func TestAgent_SolvesChallengeFromSecrets(t *testing.T) {
	conn := &fakeConn{replies: []types.Message{
		types.NewSecretHint(4),
		types.NewSecretSumModulo(3),
		types.NewRadarView(deadEndRadar), // verdict
		wall(),
		wall(),
	}}
	a, f := newAgent(t, 1, conn)

	require.NoError(t, runWithTimeout(t, a))

	v, _ := f.secrets.Get("Player 1")
	assert.Equal(t, uint64(4), v)
	assert.Equal(t, []string{"1"}, conn.answers())
	_, pending := f.pending.Get()
	assert.False(t, pending)
	assert.Contains(t, f.rec.kinds(), types.EventSolved)
	assert.Equal(t, int64(1), a.Metrics().Snapshot()["challenges"])
	// the verdict radar is not treated as a move
	assert.Zero(t, a.Metrics().Snapshot()["radars_merged"])
}

func TestAgent_MergesRadarAfterMove(t *testing.T) {
	conn := &fakeConn{replies: []types.Message{types.NewRadarView("kevQAjIvaaapapa")}}
	a, f := newAgent(t, 2, conn)

	peer := make(chan error, 1)
	go func() {
		err := f.sched.Wait(context.Background(), 1)
		if err == nil {
			err = f.sched.Advance(1)
		}
		peer <- err
	}()

	err := runWithTimeout(t, a)
	require.ErrorIs(t, err, ErrConnection)

	rows, cols := a.Map().Size()
	assert.Equal(t, 9, rows)
	assert.Equal(t, 7, cols)
	r, c := a.Map().Position()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, int64(1), a.Metrics().Snapshot()["radars_merged"])

	// the first turn went through, so the peer got its turn; the failure
	// on the agent's second turn then ended the game
	select {
	case err := <-peer:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("peer never admitted")
	}
	assert.True(t, f.sched.GameOver())
}

func TestAgent_ConnectionLossReleasesPeers(t *testing.T) {
	conn := &fakeConn{}
	a, f := newAgent(t, 3, conn)

	peers := make(chan error, 2)
	for id := 1; id <= 2; id++ {
		go func(id int) { peers <- f.sched.Wait(context.Background(), id) }(id)
	}

	err := runWithTimeout(t, a)
	require.ErrorIs(t, err, ErrConnection)
	require.ErrorIs(t, err, io.EOF)

	for i := 0; i < 2; i++ {
		select {
		case err := <-peers:
			assert.ErrorIs(t, err, turn.ErrGameOver)
		case <-time.After(time.Second):
			t.Fatalf("peer stayed blocked after connection loss")
		}
	}
	assert.Contains(t, f.rec.kinds(), types.EventDisconnected)
}

func TestAgent_BadRadarIsSkipped(t *testing.T) {
	conn := &fakeConn{replies: []types.Message{types.NewRadarView("not*base64"), wall(), wall()}}
	a, _ := newAgent(t, 1, conn)

	require.NoError(t, runWithTimeout(t, a))

	assert.Equal(t, int64(1), a.Metrics().Snapshot()["decode_errors"])
	r, c := a.Map().Position()
	assert.Equal(t, 3, r)
	assert.Equal(t, 3, c)
}

func TestAgent_PanicEndsGame(t *testing.T) {
	conn := &fakeConn{panicSend: true}
	a, f := newAgent(t, 2, conn)

	err := runWithTimeout(t, a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.True(t, f.sched.GameOver())
}

func TestNew_RejectsBadRadar(t *testing.T) {
	sched, err := turn.New(1)
	require.NoError(t, err)
	coord := challenge.NewCoordinator(challenge.NewSecrets(), &challenge.Pending{}, challenge.Config{}, nil)

	_, err = New(0, "Player 1", &fakeConn{}, "@@", Deps{Scheduler: sched, Coordinator: coord})
	assert.Error(t, err)
}

func TestTee(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	obs := Tee(a, nil, b)

	obs.Event(types.Event{Kind: types.EventMoved})
	obs.Snapshot(types.PlayerSnapshot{Player: "Player 1"})

	for _, r := range []*recorder{a, b} {
		assert.Equal(t, []types.EventKind{types.EventMoved}, r.kinds())
		assert.Len(t, r.snaps, 1)
	}
	assert.NotPanics(t, func() { Tee().Event(types.Event{}) })
}
