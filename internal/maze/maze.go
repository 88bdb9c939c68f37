package maze

import (
	"errors"
	"fmt"
	"strings"

	"github.com/DoyleJ11/maze-team-client/internal/compass"
	"github.com/DoyleJ11/maze-team-client/internal/radar"
	"github.com/DoyleJ11/maze-team-client/pkg/types"
)

var ErrInvalidGrid = errors.New("invalid grid")
var ErrViewSize = errors.New("radar view must be 7x7")

// half the radar window; the view spans position±reach.
const reach = radar.ViewSize / 2

// each expansion inserts one lattice step of padding.
const padding = 2

// Map is one player's picture of the maze. The grid grows as the player
// walks toward its edges. A Map belongs to a single agent and is not safe
// for concurrent use.
type Map struct {
	grid    radar.Grid
	visits  [][]uint32
	row     int
	col     int
	heading compass.Cardinal
}

// Move is a Tremaux decision.
type Move struct {
	Relative types.RelativeDirection
	Cardinal compass.Cardinal
}

func New(initial radar.Grid, heading compass.Cardinal) (*Map, error) {
	rows, cols := initial.Rows(), initial.Cols()
	if rows == 0 || cols == 0 || rows%2 == 0 || cols%2 == 0 {
		return nil, fmt.Errorf("maze: %w: %dx%d", ErrInvalidGrid, rows, cols)
	}
	for i, line := range initial {
		if len(line) != cols {
			return nil, fmt.Errorf("maze: %w: row %d has %d columns, want %d", ErrInvalidGrid, i, len(line), cols)
		}
	}

	visits := make([][]uint32, rows)
	for i := range visits {
		visits[i] = make([]uint32, cols)
	}
	return &Map{
		grid:    initial.Clone(),
		visits:  visits,
		row:     rows / 2,
		col:     cols / 2,
		heading: heading,
	}, nil
}

func (m *Map) Position() (row, col int)   { return m.row, m.col }
func (m *Map) Heading() compass.Cardinal { return m.heading }
func (m *Map) Size() (rows, cols int)    { return m.grid.Rows(), m.grid.Cols() }

// Grid returns a copy of the stored glyphs.
func (m *Map) Grid() radar.Grid { return m.grid.Clone() }

func (m *Map) Visits(row, col int) uint32 {
	if !m.inBounds(row, col) {
		return 0
	}
	return m.visits[row][col]
}

// VisitedCells counts the cells chosen at least once.
func (m *Map) VisitedCells() int {
	n := 0
	for _, row := range m.visits {
		for _, v := range row {
			if v > 0 {
				n++
			}
		}
	}
	return n
}

func (m *Map) inBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < m.grid.Rows() && col < m.grid.Cols()
}

// MergeRadarView records that the player moved one step toward move and
// overlays the radar view taken from the new position. The view must already
// be rotated so North is up.
func (m *Map) MergeRadarView(view radar.Grid, move compass.Cardinal) error {
	if view.Rows() != radar.ViewSize || view.Cols() != radar.ViewSize {
		return fmt.Errorf("maze: %w: got %dx%d", ErrViewSize, view.Rows(), view.Cols())
	}

	m.heading = move
	dr, dc := move.Delta()
	row, col := m.row+padding*dr, m.col+padding*dc

	top, left := 0, 0
	if row-reach < 0 {
		top = padding
	}
	if col-reach < 0 {
		left = padding
	}
	bottom, right := 0, 0
	if row+reach >= m.grid.Rows() {
		bottom = padding
	}
	if col+reach >= m.grid.Cols() {
		right = padding
	}
	if top+left+bottom+right > 0 {
		m.expand(top, bottom, left, right)
		row += top
		col += left
	}

	for i, line := range view {
		for j, g := range line {
			if g == radar.Unknown {
				continue
			}
			m.grid[row-reach+i][col-reach+j] = g
		}
	}

	m.row, m.col = row, col
	return nil
}

// expand surrounds the grid with unknown padding; counts are shifted with
// the glyphs and the player position follows.
func (m *Map) expand(top, bottom, left, right int) {
	rows := m.grid.Rows() + top + bottom
	cols := m.grid.Cols() + left + right

	grid := radar.Filled(rows, cols, radar.Unknown)
	visits := make([][]uint32, rows)
	for i := range visits {
		visits[i] = make([]uint32, cols)
	}
	for i, line := range m.grid {
		copy(grid[i+top][left:], line)
		copy(visits[i+top][left:], m.visits[i])
	}

	m.grid = grid
	m.visits = visits
	m.row += top
	m.col += left
}

// NextMoveTremaux picks the least visited reachable neighbour, preferring
// North, East, South then West on ties, and counts a visit to it. Position
// and heading change only once the server confirms the move through
// MergeRadarView. ok is false when no neighbour is reachable.
func (m *Map) NextMoveTremaux() (mv Move, ok bool) {
	bestRow, bestCol := -1, -1
	var best compass.Cardinal
	var bestVisits uint32

	for _, dir := range compass.Clockwise {
		dr, dc := dir.Delta()
		tr, tc := m.row+padding*dr, m.col+padding*dc
		if !m.inBounds(tr, tc) {
			continue
		}
		if m.grid[m.row+dr][m.col+dc].IsWall() {
			continue
		}
		if g := m.grid[tr][tc]; g.IsWall() || g == radar.Node {
			continue
		}
		if v := m.visits[tr][tc]; bestRow < 0 || v < bestVisits {
			bestRow, bestCol, best, bestVisits = tr, tc, dir, v
		}
	}
	if bestRow < 0 {
		return Move{}, false
	}

	m.visits[bestRow][bestCol]++
	return Move{Relative: compass.Relative(m.heading, best), Cardinal: best}, true
}

// MarkWall closes the edge between the player and its neighbour toward dir.
func (m *Map) MarkWall(dir compass.Cardinal) {
	dr, dc := dir.Delta()
	r, c := m.row+dr, m.col+dc
	if !m.inBounds(r, c) {
		return
	}
	if dr != 0 {
		m.grid[r][c] = radar.HWall
	} else {
		m.grid[r][c] = radar.VWall
	}
}

var headingMarks = [4]radar.Glyph{
	compass.North: '^',
	compass.East:  '>',
	compass.South: 'v',
	compass.West:  '<',
}

// Render draws the grid with the player shown as an arrow.
func (m *Map) Render() string {
	lines := m.grid.Lines()
	var b strings.Builder
	for i, line := range lines {
		if i == m.row {
			runes := []rune(line)
			runes[m.col] = rune(headingMarks[m.heading%4])
			line = string(runes)
		}
		b.WriteString(line)
		if i < len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Snapshot fills the map related fields of a player snapshot.
func (m *Map) Snapshot() types.PlayerSnapshot {
	rows, cols := m.Size()
	return types.PlayerSnapshot{
		Row:     m.row,
		Col:     m.col,
		Heading: m.heading.String(),
		Rows:    rows,
		Cols:    cols,
		Visited: m.VisitedCells(),
		Map:     m.Render(),
	}
}
