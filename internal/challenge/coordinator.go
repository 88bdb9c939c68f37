package challenge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/DoyleJ11/maze-team-client/pkg/types"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

var ErrChallengeUnsolved = errors.New("challenge still unsolved")
var ErrUnsupportedChallenge = errors.New("unsupported challenge")

// errRejected marks a server refusal that a fresh sum may fix.
var errRejected = errors.New("answer rejected")

// Conn is the part of a player session the coordinator needs.
type Conn interface {
	Send(types.Message) error
	Receive() (types.Message, error)
}

type Config struct {
	// Attempts caps the answers sent per Solve call. Defaults to 5.
	Attempts uint64
	// Backoff is the wait before the first re-send, doubled afterwards
	// and capped at MaxBackoff. Defaults to 50ms.
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.Attempts == 0 {
		c.Attempts = 5
	}
	if c.Backoff == 0 {
		c.Backoff = 50 * time.Millisecond
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 2 * time.Second
	}
	return c
}

// Coordinator answers team challenges from the shared secrets.
type Coordinator struct {
	secrets *Secrets
	pending *Pending
	cfg     Config
	log     *zap.Logger

	solved  atomic.Int64
	retries atomic.Int64
}

func NewCoordinator(secrets *Secrets, pending *Pending, cfg Config, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		secrets: secrets,
		pending: pending,
		cfg:     cfg.withDefaults(),
		log:     log,
	}
}

func (c *Coordinator) Secrets() *Secrets { return c.secrets }
func (c *Coordinator) Pending() *Pending { return c.pending }

// Result describes one Solve call.
type Result struct {
	Challenge types.Challenge
	Answer    string
	Attempts  int
	// Response is the reply that settled the challenge. It may carry a hint
	// the caller still has to handle.
	Response *types.Message
}

// Solve answers the pending challenge over conn. Both SolveChallengeFirst
// and InvalidChallengeSolution count as rejections, since a wrong answer
// usually means a teammate's secret has not arrived yet. Rejections are
// retried with a recomputed sum after a backoff; once the attempts run out
// the challenge stays pending and ErrChallengeUnsolved is returned. Any
// other reply clears it. I/O errors are returned as is. Solve returns a zero
// Result when no challenge is pending.
func (c *Coordinator) Solve(ctx context.Context, player string, conn Conn) (Result, error) {
	log := c.log.With(zap.String("player", player))

	var res Result
	backoff := retry.NewExponential(c.cfg.Backoff)
	backoff = retry.WithCappedDuration(c.cfg.MaxBackoff, backoff)
	backoff = retry.WithMaxRetries(c.cfg.Attempts-1, backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ch, ok := c.pending.Get()
		if !ok {
			return nil
		}
		res.Challenge = ch
		if ch.SecretSumModulo == nil {
			c.pending.Clear()
			return fmt.Errorf("%w: %s", ErrUnsupportedChallenge, ch)
		}

		answer, err := c.secrets.SumModulo(*ch.SecretSumModulo)
		if err != nil {
			c.pending.Clear()
			return fmt.Errorf("challenge: %s: %w", ch, err)
		}
		res.Answer = strconv.FormatUint(answer, 10)
		res.Attempts++
		if res.Attempts > 1 {
			c.retries.Add(1)
		}

		log.Info("solving challenge",
			zap.Stringer("challenge", ch),
			zap.String("answer", res.Answer),
			zap.Int("attempt", res.Attempts))

		if err := conn.Send(types.NewSolveChallenge(res.Answer)); err != nil {
			return fmt.Errorf("challenge: send answer: %w", err)
		}
		resp, err := conn.Receive()
		if err != nil {
			return fmt.Errorf("challenge: receive verdict: %w", err)
		}

		if resp.ActionError != nil {
			switch *resp.ActionError {
			case types.SolveChallengeFirst, types.InvalidChallengeSolution:
				log.Warn("answer rejected, recomputing with current secrets",
					zap.String("reason", string(*resp.ActionError)))
				return retry.RetryableError(fmt.Errorf("%w: %s", errRejected, *resp.ActionError))
			}
		}

		c.pending.Clear()
		c.solved.Add(1)
		res.Response = &resp
		log.Info("challenge settled", zap.String("reply", resp.Kind()))
		return nil
	})

	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, errRejected):
		return res, fmt.Errorf("%w after %d attempt(s): %v", ErrChallengeUnsolved, res.Attempts, err)
	default:
		return res, err
	}
}

// Stats reports challenges settled and answers re-sent since start.
func (c *Coordinator) Stats() (solved, retries int64) {
	return c.solved.Load(), c.retries.Load()
}
