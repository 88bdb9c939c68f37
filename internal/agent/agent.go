package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/maze-team-client/internal/challenge"
	"github.com/DoyleJ11/maze-team-client/internal/compass"
	"github.com/DoyleJ11/maze-team-client/internal/maze"
	"github.com/DoyleJ11/maze-team-client/internal/radar"
	"github.com/DoyleJ11/maze-team-client/internal/turn"
	"github.com/DoyleJ11/maze-team-client/internal/wire"
	"github.com/DoyleJ11/maze-team-client/pkg/types"
	"go.uber.org/zap"
)

// ErrConnection wraps I/O failures that end an agent.
var ErrConnection = errors.New("connection lost")

// Conn is one player's exclusive session.
type Conn interface {
	Send(types.Message) error
	Receive() (types.Message, error)
}

// Observer receives what the agent does. Calls happen on the agent's
// goroutine and must not block.
type Observer interface {
	Event(types.Event)
	Snapshot(types.PlayerSnapshot)
}

type nopObserver struct{}

func (nopObserver) Event(types.Event)             {}
func (nopObserver) Snapshot(types.PlayerSnapshot) {}

type tee []Observer

func (t tee) Event(e types.Event) {
	for _, o := range t {
		o.Event(e)
	}
}

func (t tee) Snapshot(s types.PlayerSnapshot) {
	for _, o := range t {
		o.Snapshot(s)
	}
}

// Tee fans every call out to obs in order. Nil observers are skipped.
func Tee(obs ...Observer) Observer {
	var t tee
	for _, o := range obs {
		if o != nil {
			t = append(t, o)
		}
	}
	if len(t) == 0 {
		return nopObserver{}
	}
	return t
}

type Deps struct {
	Scheduler   *turn.Scheduler
	Coordinator *challenge.Coordinator
	Observer    Observer
	Logger      *zap.Logger
	// TurnDelay paces the agent after each turn.
	TurnDelay time.Duration
}

type Agent struct {
	id    int
	name  string
	conn  Conn
	m     *maze.Map
	sched *turn.Scheduler
	coord *challenge.Coordinator
	obs   Observer
	log   *zap.Logger
	delay time.Duration

	turns   int
	metrics Metrics
}

// New builds an agent whose map starts from the radar view received at
// subscription. The player is assumed to face North.
func New(id int, name string, conn Conn, firstRadar string, deps Deps) (*Agent, error) {
	if deps.Scheduler == nil || deps.Coordinator == nil {
		return nil, errors.New("agent: scheduler and coordinator are required")
	}
	grid, err := radar.Decode(firstRadar, compass.North)
	if err != nil {
		return nil, fmt.Errorf("agent %s: first radar: %w", name, err)
	}
	m, err := maze.New(grid, compass.North)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", name, err)
	}

	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Agent{
		id:    id,
		name:  name,
		conn:  conn,
		m:     m,
		sched: deps.Scheduler,
		coord: deps.Coordinator,
		obs:   deps.Observer,
		log:   deps.Logger.With(zap.String("player", name), zap.Int("id", id)),
		delay: deps.TurnDelay,
	}, nil
}

func (a *Agent) ID() int           { return a.id }
func (a *Agent) Name() string      { return a.name }
func (a *Agent) Map() *maze.Map    { return a.m }
func (a *Agent) Metrics() *Metrics { return &a.metrics }

// Run plays turns until the game ends. The agent ends the game itself when
// it runs out of moves, loses its connection or panics, so teammates
// waiting for the turn are always released.
func (a *Agent) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.sched.End()
			a.log.Error("agent panicked, ending game", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("agent %s: panic: %v", a.name, r)
		}
	}()

	a.publishSnapshot()
	for {
		if err := a.sched.Wait(ctx, a.id); err != nil {
			if errors.Is(err, turn.ErrGameOver) {
				a.log.Debug("game over, leaving")
				return nil
			}
			a.sched.End()
			return err
		}

		exhausted, err := a.playTurn(ctx)
		if err != nil {
			a.sched.End()
			a.emit(types.EventDisconnected, err.Error())
			return err
		}
		if exhausted {
			a.log.Info("no more moves available, game over", zap.Int("moves", a.turns))
			a.emit(types.EventExhausted, "")
			a.sched.End()
			return nil
		}
		if err := a.sched.Advance(a.id); err != nil {
			a.sched.End()
			return err
		}

		if a.delay > 0 {
			select {
			case <-time.After(a.delay):
			case <-ctx.Done():
				a.sched.End()
				return ctx.Err()
			}
		}
	}
}

// playTurn performs one action/response cycle.
func (a *Agent) playTurn(ctx context.Context) (exhausted bool, err error) {
	if ch, ok := a.coord.Pending().Get(); ok {
		a.log.Info("challenge pending, solving before moving", zap.Stringer("challenge", ch))
		return false, a.solve(ctx)
	}

	mv, ok := a.m.NextMoveTremaux()
	if !ok {
		return true, nil
	}

	a.turns++
	a.metrics.IncMoves()
	if err := a.conn.Send(types.NewMoveTo(mv.Relative)); err != nil {
		return false, a.connErr(err)
	}
	a.log.Info("move sent",
		zap.Int("move", a.turns),
		zap.String("relative", string(mv.Relative)),
		zap.Stringer("cardinal", mv.Cardinal))

	resp, err := a.conn.Receive()
	if err != nil {
		if wire.IsProtocolError(err) {
			a.metrics.IncProtocolErrors()
			a.log.Warn("unreadable response, skipping", zap.Error(err))
			return false, nil
		}
		return false, a.connErr(err)
	}
	return false, a.dispatch(ctx, resp, mv)
}

func (a *Agent) dispatch(ctx context.Context, msg types.Message, mv maze.Move) error {
	switch {
	case msg.RadarView != nil:
		a.mergeRadar(*msg.RadarView, mv.Cardinal)

	case msg.Challenge != nil:
		return a.handleChallenge(ctx, *msg.Challenge)

	case msg.ActionError != nil:
		return a.handleActionError(ctx, *msg.ActionError, mv)

	case msg.Hint != nil:
		a.handleHint(*msg.Hint)

	default:
		a.metrics.IncProtocolErrors()
		a.log.Warn("unexpected message", zap.String("kind", msg.Kind()))
	}
	return nil
}

func (a *Agent) mergeRadar(encoded string, heading compass.Cardinal) {
	grid, err := radar.Decode(encoded, heading)
	if err != nil {
		a.metrics.IncDecodeErrors()
		a.log.Warn("bad radar view, move not recorded", zap.Error(err))
		return
	}
	if err := a.m.MergeRadarView(grid, heading); err != nil {
		a.metrics.IncDecodeErrors()
		a.log.Warn("radar merge failed", zap.Error(err))
		return
	}
	a.metrics.IncRadarsMerged()
	a.emit(types.EventMoved, heading.String())
	a.publishSnapshot()
}

func (a *Agent) handleChallenge(ctx context.Context, ch types.Challenge) error {
	a.emit(types.EventChallenge, ch.String())
	if ch.SecretSumModulo == nil {
		a.log.Info("challenge ignored", zap.Stringer("challenge", ch))
		return nil
	}
	a.log.Info("challenge received", zap.Stringer("challenge", ch))
	a.coord.Pending().Set(ch)
	return a.solve(ctx)
}

func (a *Agent) handleActionError(ctx context.Context, e types.ActionError, mv maze.Move) error {
	switch e {
	case types.SolveChallengeFirst:
		if _, ok := a.coord.Pending().Get(); !ok {
			a.log.Warn("server wants a challenge solved but none is known")
			return nil
		}
		return a.solve(ctx)

	case types.CannotPassThroughWall:
		a.metrics.IncWallsHit()
		a.m.MarkWall(mv.Cardinal)
		a.emit(types.EventBlocked, string(e))
		a.publishSnapshot()

	case types.InvalidChallengeSolution:
		a.log.Debug("stale challenge verdict", zap.String("error", string(e)))

	default:
		a.emit(types.EventBlocked, string(e))
		a.log.Warn("action refused", zap.String("error", string(e)))
	}
	return nil
}

func (a *Agent) handleHint(h types.Hint) {
	switch {
	case h.Secret != nil:
		a.coord.Secrets().Store(a.name, *h.Secret)
		a.log.Info("secret received", zap.Uint64("secret", *h.Secret))
		a.emit(types.EventSecret, fmt.Sprint(*h.Secret))
	case h.RelativeCompass != nil:
		a.log.Info("compass hint", zap.Float32("angle", h.RelativeCompass.Angle))
		a.emit(types.EventHint, fmt.Sprintf("compass %.1f", h.RelativeCompass.Angle))
	case h.GridSize != nil:
		a.log.Info("grid size hint", zap.Uint32("columns", h.GridSize.Columns), zap.Uint32("rows", h.GridSize.Rows))
		a.emit(types.EventHint, fmt.Sprintf("grid %dx%d", h.GridSize.Columns, h.GridSize.Rows))
	case h.SOSHelper:
		a.log.Info("sos helper hint")
		a.emit(types.EventHint, "sos helper")
	}
}

// HandleEarly processes a message that arrived before the first radar view.
func (a *Agent) HandleEarly(msg types.Message) {
	switch {
	case msg.Hint != nil:
		a.handleHint(*msg.Hint)
	case msg.Challenge != nil && msg.Challenge.SecretSumModulo != nil:
		a.coord.Pending().Set(*msg.Challenge)
		a.emit(types.EventChallenge, msg.Challenge.String())
	default:
		a.log.Debug("ignoring early message", zap.String("kind", msg.Kind()))
	}
}

func (a *Agent) solve(ctx context.Context) error {
	res, err := a.coord.Solve(ctx, a.name, a.conn)
	if res.Attempts > 1 {
		a.metrics.AddSolveRetries(int64(res.Attempts - 1))
	}

	switch {
	case err == nil:
	case errors.Is(err, challenge.ErrChallengeUnsolved):
		a.log.Warn("challenge unsolved this turn, passing", zap.Error(err))
		a.emit(types.EventUnsolved, res.Answer)
		return nil
	case errors.Is(err, challenge.ErrZeroModulus), errors.Is(err, challenge.ErrUnsupportedChallenge):
		a.log.Warn("challenge dropped", zap.Error(err))
		return nil
	case wire.IsProtocolError(err):
		a.metrics.IncProtocolErrors()
		a.log.Warn("unreadable challenge verdict", zap.Error(err))
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return a.connErr(err)
	}

	if res.Attempts == 0 {
		return nil
	}
	a.metrics.IncChallenges()
	a.emit(types.EventSolved, res.Answer)

	if res.Response == nil {
		return nil
	}
	switch r := res.Response; {
	case r.Hint != nil:
		a.handleHint(*r.Hint)
	case r.Challenge != nil && r.Challenge.SecretSumModulo != nil:
		a.coord.Pending().Set(*r.Challenge)
		a.emit(types.EventChallenge, r.Challenge.String())
	}
	return nil
}

func (a *Agent) connErr(err error) error {
	return fmt.Errorf("agent %s: %w: %w", a.name, ErrConnection, err)
}

func (a *Agent) emit(kind types.EventKind, detail string) {
	row, col := a.m.Position()
	a.obs.Event(types.Event{
		Time:   time.Now(),
		Player: a.name,
		Kind:   kind,
		Turn:   a.turns,
		Row:    row,
		Col:    col,
		Detail: detail,
	})
}

func (a *Agent) publishSnapshot() {
	snap := a.m.Snapshot()
	snap.Player = a.name
	snap.Turn = a.turns
	snap.UpdatedAt = time.Now()
	a.obs.Snapshot(snap)
}
