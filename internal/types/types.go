package types

import game "github.com/DoyleJ11/maze-team-client/pkg/types"

// ClientMessage is sent by websocket clients.
type ClientMessage struct {
	Type   string `json:"type"`             // "Filter" | "Ping"
	Player string `json:"player,omitempty"` // Filter: only this player's events, empty for all
}

type ServerMessage struct {
	Type  string      `json:"type"` // "Event" | "Pong" | "Error"
	Event *game.Event `json:"event,omitempty"`
	Error string      `json:"error,omitempty"`
}

// PlayerStatus is a player's latest known state.
type PlayerStatus struct {
	game.PlayerSnapshot
	Events    int         `json:"events"`
	LastEvent *game.Event `json:"last_event,omitempty"`
}

// TeamStatus describes the running team.
type TeamStatus struct {
	Name             string                      `json:"name"`
	RunID            string                      `json:"run_id"`
	ExpectedPlayers  int                         `json:"expected_players"`
	Players          []string                    `json:"players"`
	CurrentTurn      string                      `json:"current_turn,omitempty"`
	GameOver         bool                        `json:"game_over"`
	Secrets          map[string]uint64           `json:"secrets"`
	PendingChallenge string                      `json:"pending_challenge,omitempty"`
	ChallengesSolved int64                       `json:"challenges_solved"`
	SolveRetries     int64                       `json:"solve_retries"`
	Metrics          map[string]map[string]int64 `json:"metrics"`
}
