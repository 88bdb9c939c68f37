package wire

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/DoyleJ11/maze-team-client/pkg/types"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Conn is one exclusive TCP session with the game server. It is not safe for
// concurrent use; each agent owns its own.
type Conn struct {
	conn         net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
	maxFrameSize int
}

type Option func(*Conn)

func WithReadTimeout(d time.Duration) Option {
	return func(c *Conn) { c.readTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Conn) { c.writeTimeout = d }
}

func WithMaxFrameSize(n int) Option {
	return func(c *Conn) { c.maxFrameSize = n }
}

func NewConn(nc net.Conn, opts ...Option) *Conn {
	c := &Conn{conn: nc, maxFrameSize: DefaultMaxFrameSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Conn) Send(msg types.Message) error {
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return WriteMessage(c.conn, msg)
}

func (c *Conn) Receive() (types.Message, error) {
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	return ReadMessage(c.conn, c.maxFrameSize)
}

func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

// DialConfig controls connection establishment.
type DialConfig struct {
	// Attempts is the total number of dial attempts. Defaults to 5.
	Attempts uint64
	// Backoff is the delay before the second attempt, doubled afterwards
	// and capped at 5s. Defaults to 200ms.
	Backoff time.Duration
	// Timeout bounds a single dial. Defaults to 5s.
	Timeout time.Duration

	Options []Option
}

// Dial connects to addr, retrying refused or timed-out dials with
// exponential backoff until the attempts run out or ctx is done.
func Dial(ctx context.Context, addr string, cfg DialConfig, log *zap.Logger) (*Conn, error) {
	if cfg.Attempts == 0 {
		cfg.Attempts = 5
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	backoff := retry.NewExponential(cfg.Backoff)
	backoff = retry.WithCappedDuration(5*time.Second, backoff)
	backoff = retry.WithMaxRetries(cfg.Attempts-1, backoff)

	dialer := net.Dialer{Timeout: cfg.Timeout}
	var nc net.Conn
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			log.Warn("dial failed", zap.String("addr", addr), zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		nc = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("wire: dial %s after %d attempt(s): %w", addr, attempt, err)
	}

	log.Debug("connected", zap.String("addr", addr), zap.Int("attempt", attempt))
	return NewConn(nc, cfg.Options...), nil
}
