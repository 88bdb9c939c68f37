package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/maze-team-client/internal/agent"
	"github.com/DoyleJ11/maze-team-client/internal/challenge"
	"github.com/DoyleJ11/maze-team-client/internal/config"
	"github.com/DoyleJ11/maze-team-client/internal/feed"
	"github.com/DoyleJ11/maze-team-client/internal/httpapi"
	"github.com/DoyleJ11/maze-team-client/internal/hub"
	"github.com/DoyleJ11/maze-team-client/internal/journal"
	"github.com/DoyleJ11/maze-team-client/internal/logging"
	"github.com/DoyleJ11/maze-team-client/internal/team"
	"github.com/DoyleJ11/maze-team-client/internal/wire"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	var teamName, envFile string
	flag.StringVar(&teamName, "team", "", "team name, overrides TEAM_NAME")
	flag.StringVar(&envFile, "env", ".env", "dotenv file to load before the environment")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-team NAME] [-env FILE] [server_addr]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if teamName != "" {
		cfg.TeamName = teamName
	}
	if flag.NArg() > 0 {
		cfg.ServerAddr = flag.Arg(0)
	}

	log, closeLog, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer closeLog()
	sugar := log.Sugar()

	// Ctrl+C or SIGTERM stops every agent
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-quit:
			sugar.Infof("received %s, shutting down", s)
			cancel()
		case <-ctx.Done():
		}
	}()

	runID := uuid.NewString()
	f := feed.New(ctx)
	h := hub.NewHub(ctx, f)
	defer func() {
		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		case <-h.Done():
		}
	}()
	observers := []agent.Observer{h}

	var jr *journal.Journal
	if cfg.JournalDriver != "" {
		db, err := journal.Open(cfg.JournalDriver, cfg.JournalDSN)
		if err != nil {
			sugar.Errorf("journal: %v", err)
			return 1
		}
		jr = journal.New(db, runID, cfg.TeamName, log)
		observers = append(observers, jr)
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			if err := jr.Close(closeCtx); err != nil {
				sugar.Warnf("journal close: %v", err)
			}
			written, dropped := jr.Stats()
			sugar.Infof("journal: %s events written, %s dropped", humanize.Comma(int64(written)), humanize.Comma(int64(dropped)))
		}()
	}

	sugar.Infof("registering team %q at %s (run %s)", cfg.TeamName, cfg.ServerAddr, runID)
	start := time.Now()
	tm, err := team.Register(ctx, team.Config{
		Addr:      cfg.ServerAddr,
		Name:      cfg.TeamName,
		RunID:     runID,
		Players:   cfg.Players,
		TurnDelay: cfg.TurnDelay,
		Dial: wire.DialConfig{
			Attempts: cfg.DialAttempts,
			Backoff:  cfg.DialBackoff,
			Options: []wire.Option{
				wire.WithReadTimeout(cfg.ReadTimeout),
				wire.WithMaxFrameSize(cfg.MaxFrameSize),
			},
		},
		Solve: challenge.Config{
			Attempts: cfg.SolveAttempts,
			Backoff:  cfg.SolveBackoff,
		},
	}, agent.Tee(observers...), log)
	if err != nil {
		sugar.Errorf("registration failed: %v", err)
		return 1
	}
	defer func() {
		if err := tm.Close(); err != nil {
			sugar.Debugf("close connections: %v", err)
		}
	}()

	if cfg.HTTPAddr != "" {
		srv := &http.Server{Addr: cfg.HTTPAddr, Handler: httpapi.SetupRoutes(h, f, tm, log)}
		go func() {
			sugar.Infof("status API listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				sugar.Errorf("status API: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	playErr := tm.Play(ctx)
	summarize(log, tm, time.Since(start))

	switch {
	case playErr == nil:
		sugar.Info("game over")
		return 0
	case errors.Is(playErr, context.Canceled):
		sugar.Info("stopped")
		return 0
	default:
		sugar.Errorf("game ended with an error: %v", playErr)
		return 1
	}
}

func summarize(log *zap.Logger, tm *team.Team, elapsed time.Duration) {
	st := tm.Status()
	log.Info("run summary",
		zap.String("team", st.Name),
		zap.String("run", st.RunID),
		zap.Duration("elapsed", elapsed.Round(time.Millisecond)),
		zap.String("challenges_solved", humanize.Comma(st.ChallengesSolved)),
		zap.String("solve_retries", humanize.Comma(st.SolveRetries)))
	for _, a := range tm.Agents() {
		m := a.Metrics().Snapshot()
		log.Info(fmt.Sprintf("%s: %s moves, %s walls hit, %s cells visited",
			a.Name(),
			humanize.Comma(m["moves"]),
			humanize.Comma(m["walls_hit"]),
			humanize.Comma(int64(a.Map().VisitedCells()))))
	}
}
