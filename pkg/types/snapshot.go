package types

import "time"

type EventKind string

const (
	EventRegistered   EventKind = "registered"
	EventMoved        EventKind = "moved"
	EventBlocked      EventKind = "blocked"
	EventHint         EventKind = "hint"
	EventSecret       EventKind = "secret"
	EventChallenge    EventKind = "challenge"
	EventSolved       EventKind = "solved"
	EventUnsolved     EventKind = "unsolved"
	EventExhausted    EventKind = "exhausted"
	EventDisconnected EventKind = "disconnected"
)

// Event is one notable thing that happened to a player during a run.
type Event struct {
	Time   time.Time `json:"time"`
	Player string    `json:"player"`
	Kind   EventKind `json:"kind"`
	Turn   int       `json:"turn"`
	Row    int       `json:"row"`
	Col    int       `json:"col"`
	Detail string    `json:"detail,omitempty"`
}

// PlayerSnapshot:
//
//	player: string
//	turn: number            // moves sent so far
//	row, col: number        // position in the local map grid
//	heading: "North" | "East" | "South" | "West"
//	rows, cols: number      // current grid size, always odd
//	visited: number         // distinct cells entered at least once
//	map: string             // text rendering, one grid row per line
type PlayerSnapshot struct {
	Player    string    `json:"player"`
	Turn      int       `json:"turn"`
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	Heading   string    `json:"heading"`
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
	Visited   int       `json:"visited"`
	Map       string    `json:"map,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
