package agent

import "sync/atomic"

// Metrics counts what an agent did during a run.
type Metrics struct {
	Moves          int64
	WallsHit       int64
	RadarsMerged   int64
	Challenges     int64
	SolveRetries   int64
	DecodeErrors   int64
	ProtocolErrors int64
}

func (m *Metrics) IncMoves()          { atomic.AddInt64(&m.Moves, 1) }
func (m *Metrics) IncWallsHit()       { atomic.AddInt64(&m.WallsHit, 1) }
func (m *Metrics) IncRadarsMerged()   { atomic.AddInt64(&m.RadarsMerged, 1) }
func (m *Metrics) IncChallenges()     { atomic.AddInt64(&m.Challenges, 1) }
func (m *Metrics) IncDecodeErrors()   { atomic.AddInt64(&m.DecodeErrors, 1) }
func (m *Metrics) IncProtocolErrors() { atomic.AddInt64(&m.ProtocolErrors, 1) }
func (m *Metrics) AddSolveRetries(n int64) {
	atomic.AddInt64(&m.SolveRetries, n)
}

// Snapshot returns a read-only copy for the status API and the summary.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"moves":           atomic.LoadInt64(&m.Moves),
		"walls_hit":       atomic.LoadInt64(&m.WallsHit),
		"radars_merged":   atomic.LoadInt64(&m.RadarsMerged),
		"challenges":      atomic.LoadInt64(&m.Challenges),
		"solve_retries":   atomic.LoadInt64(&m.SolveRetries),
		"decode_errors":   atomic.LoadInt64(&m.DecodeErrors),
		"protocol_errors": atomic.LoadInt64(&m.ProtocolErrors),
	}
}
