package radar

import "strings"

type Glyph rune

const (
	Node    Glyph = '•'
	HWall   Glyph = '-'
	VWall   Glyph = '|'
	Open    Glyph = ' '
	Unknown Glyph = '#'
	Goal    Glyph = 'G'
	Hint    Glyph = 'H'
	Ally    Glyph = 'A'
	Enemy   Glyph = 'E'
	Monster Glyph = 'M'
)

// IsWall reports whether g blocks movement across an edge.
func (g Glyph) IsWall() bool { return g == HWall || g == VWall }

// Grid is a row-major glyph matrix.
type Grid [][]Glyph

// ParseGrid builds a grid from one string per row.
func ParseGrid(rows ...string) Grid {
	g := make(Grid, len(rows))
	for i, row := range rows {
		for _, r := range row {
			g[i] = append(g[i], Glyph(r))
		}
	}
	return g
}

// Filled returns a rows×cols grid of glyph.
func Filled(rows, cols int, glyph Glyph) Grid {
	g := make(Grid, rows)
	for i := range g {
		g[i] = make([]Glyph, cols)
		for j := range g[i] {
			g[i][j] = glyph
		}
	}
	return g
}

func (g Grid) Rows() int { return len(g) }

func (g Grid) Cols() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for i, row := range g {
		out[i] = append([]Glyph(nil), row...)
	}
	return out
}

func (g Grid) Equal(o Grid) bool {
	if len(g) != len(o) {
		return false
	}
	for i := range g {
		if len(g[i]) != len(o[i]) {
			return false
		}
		for j := range g[i] {
			if g[i][j] != o[i][j] {
				return false
			}
		}
	}
	return true
}

// Lines renders one string per row.
func (g Grid) Lines() []string {
	out := make([]string, len(g))
	for i, row := range g {
		var b strings.Builder
		for _, c := range row {
			b.WriteRune(rune(c))
		}
		out[i] = b.String()
	}
	return out
}

func (g Grid) String() string {
	return strings.Join(g.Lines(), "\n")
}

// Rotate turns g clockwise by quarterTurns × 90°. Horizontal and vertical
// wall glyphs trade places on every odd turn.
func Rotate(g Grid, quarterTurns int) Grid {
	out := g.Clone()
	for n := ((quarterTurns % 4) + 4) % 4; n > 0; n-- {
		out = rotateClockwise(out)
	}
	return out
}

func rotateClockwise(g Grid) Grid {
	rows, cols := g.Rows(), g.Cols()
	out := Filled(cols, rows, Unknown)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			glyph := g[r][c]
			switch glyph {
			case HWall:
				glyph = VWall
			case VWall:
				glyph = HWall
			}
			out[c][rows-1-r] = glyph
		}
	}
	return out
}
