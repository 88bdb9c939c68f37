package team

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/maze-team-client/internal/agent"
	"github.com/DoyleJ11/maze-team-client/internal/challenge"
	"github.com/DoyleJ11/maze-team-client/internal/turn"
	apitypes "github.com/DoyleJ11/maze-team-client/internal/types"
	"github.com/DoyleJ11/maze-team-client/internal/wire"
	"github.com/DoyleJ11/maze-team-client/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrUnexpectedReply = errors.New("unexpected reply")

// earlyLimit bounds how many messages may precede the first radar view.
const earlyLimit = 32

// RegistrationError is a refusal from the server during the handshake.
type RegistrationError struct {
	Player string // empty for the team registration itself
	Reason types.RegistrationError
}

func (e *RegistrationError) Error() string {
	if e.Player == "" {
		return fmt.Sprintf("team registration refused: %s", e.Reason)
	}
	return fmt.Sprintf("subscription of %q refused: %s", e.Player, e.Reason)
}

type Config struct {
	Addr string
	Name string
	// RunID tags logs and journal rows; a new one is generated when empty.
	RunID string
	// Players overrides the server's expected player count when > 0.
	Players   int
	TurnDelay time.Duration
	Dial      wire.DialConfig
	Solve     challenge.Config
}

// Team is a registered team with one subscribed session per player.
type Team struct {
	Name     string
	RunID    string
	Token    string
	Expected int

	regConn *wire.Conn
	conns   []*wire.Conn
	agents  []*agent.Agent
	sched   *turn.Scheduler
	coord   *challenge.Coordinator
	log     *zap.Logger
}

// PlayerName is the server-side name of the i-th player, starting at 0.
func PlayerName(i int) string { return fmt.Sprintf("Player %d", i+1) }

// Register registers the team, subscribes every player on its own connection
// and builds their agents from the first radar view each one receives.
func Register(ctx context.Context, cfg Config, obs agent.Observer, log *zap.Logger) (t *Team, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	t = &Team{Name: cfg.Name, RunID: cfg.RunID}
	t.log = log.With(zap.String("team", cfg.Name), zap.String("run", t.RunID))
	defer func() {
		if err != nil {
			err = multierr.Append(err, t.Close())
			t = nil
		}
	}()

	t.regConn, err = wire.Dial(ctx, cfg.Addr, cfg.Dial, t.log)
	if err != nil {
		return t, err
	}
	if err := t.regConn.Send(types.NewRegisterTeam(cfg.Name)); err != nil {
		return t, fmt.Errorf("team: register: %w", err)
	}
	reply, err := t.regConn.Receive()
	if err != nil {
		return t, fmt.Errorf("team: register: %w", err)
	}
	switch res := reply.RegisterTeamResult; {
	case res == nil:
		return t, fmt.Errorf("team: register: %w: %s", ErrUnexpectedReply, reply.Kind())
	case res.Err != nil:
		return t, &RegistrationError{Reason: *res.Err}
	case res.Ok == nil:
		return t, fmt.Errorf("team: register: %w: empty result", ErrUnexpectedReply)
	default:
		t.Token = res.Ok.RegistrationToken
		t.Expected = int(res.Ok.ExpectedPlayers)
	}

	players := cfg.Players
	if players <= 0 {
		players = t.Expected
	}
	t.log.Info("team registered", zap.Int("expected_players", t.Expected), zap.Int("players", players))

	names := make([]string, players)
	for i := range names {
		names[i] = PlayerName(i)
	}
	t.sched, err = turn.New(players)
	if err != nil {
		return t, fmt.Errorf("team: %w", err)
	}
	t.coord = challenge.NewCoordinator(challenge.NewSecrets(names...), &challenge.Pending{}, cfg.Solve, t.log)

	for i, name := range names {
		a, err := t.subscribe(ctx, cfg, i, name, obs)
		if err != nil {
			return t, err
		}
		t.agents = append(t.agents, a)
	}
	return t, nil
}

func (t *Team) subscribe(ctx context.Context, cfg Config, id int, name string, obs agent.Observer) (*agent.Agent, error) {
	conn, err := wire.Dial(ctx, cfg.Addr, cfg.Dial, t.log)
	if err != nil {
		return nil, err
	}
	t.conns = append(t.conns, conn)

	if err := conn.Send(types.NewSubscribePlayer(name, t.Token)); err != nil {
		return nil, fmt.Errorf("team: subscribe %s: %w", name, err)
	}
	reply, err := conn.Receive()
	if err != nil {
		return nil, fmt.Errorf("team: subscribe %s: %w", name, err)
	}
	switch res := reply.SubscribePlayerResult; {
	case res == nil:
		return nil, fmt.Errorf("team: subscribe %s: %w: %s", name, ErrUnexpectedReply, reply.Kind())
	case res.Err != nil:
		return nil, &RegistrationError{Player: name, Reason: *res.Err}
	}

	// hints may arrive before the first radar view
	var early []types.Message
	var radarView string
	for radarView == "" {
		msg, err := conn.Receive()
		if err != nil {
			return nil, fmt.Errorf("team: first radar for %s: %w", name, err)
		}
		if msg.RadarView != nil {
			radarView = *msg.RadarView
			break
		}
		if len(early) == earlyLimit {
			return nil, fmt.Errorf("team: first radar for %s: %w: no radar after %d messages", name, ErrUnexpectedReply, earlyLimit)
		}
		early = append(early, msg)
	}

	a, err := agent.New(id, name, conn, radarView, agent.Deps{
		Scheduler:   t.sched,
		Coordinator: t.coord,
		Observer:    obs,
		Logger:      t.log,
		TurnDelay:   cfg.TurnDelay,
	})
	if err != nil {
		return nil, err
	}
	for _, msg := range early {
		a.HandleEarly(msg)
	}
	t.log.Info("player subscribed", zap.String("player", name), zap.String("remote", conn.RemoteAddr()))
	if obs != nil {
		r, c := a.Map().Position()
		obs.Event(types.Event{Time: time.Now(), Player: name, Kind: types.EventRegistered, Row: r, Col: c, Detail: t.Name})
	}
	return a, nil
}

// Play runs every agent until the game ends. The first agent failure
// cancels the others.
func (t *Team) Play(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range t.agents {
		g.Go(func() error { return a.Run(gctx) })
	}
	err := g.Wait()
	t.sched.End()
	return err
}

func (t *Team) Agents() []*agent.Agent              { return t.agents }
func (t *Team) Scheduler() *turn.Scheduler          { return t.sched }
func (t *Team) Coordinator() *challenge.Coordinator { return t.coord }

// Status describes the team for the status API.
func (t *Team) Status() apitypes.TeamStatus {
	st := apitypes.TeamStatus{
		Name:            t.Name,
		RunID:           t.RunID,
		ExpectedPlayers: t.Expected,
		Metrics:         make(map[string]map[string]int64, len(t.agents)),
	}
	for _, a := range t.agents {
		st.Players = append(st.Players, a.Name())
		st.Metrics[a.Name()] = a.Metrics().Snapshot()
	}
	if t.sched != nil {
		s := t.sched.State()
		st.GameOver = s.GameOver
		if !s.GameOver && s.Current < len(t.agents) {
			st.CurrentTurn = t.agents[s.Current].Name()
		}
	}
	if t.coord != nil {
		st.Secrets = t.coord.Secrets().Snapshot()
		if ch, ok := t.coord.Pending().Get(); ok {
			st.PendingChallenge = ch.String()
		}
		st.ChallengesSolved, st.SolveRetries = t.coord.Stats()
	}
	return st
}

// Close closes every connection the team opened.
func (t *Team) Close() error {
	var err error
	if t.regConn != nil {
		err = multierr.Append(err, t.regConn.Close())
		t.regConn = nil
	}
	for _, c := range t.conns {
		err = multierr.Append(err, c.Close())
	}
	t.conns = nil
	return err
}
