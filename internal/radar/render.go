package radar

// ViewSize is the side of a rendered radar view.
const ViewSize = 7

type point struct{ r, c int }

type quad point

var (
	topLeft     = quad{0, 0}
	topRight    = quad{0, 5}
	bottomLeft  = quad{5, 0}
	bottomRight = quad{5, 5}
)

type flank struct {
	wall point
	quad quad
}

// edgeSeal fills the strip behind a closed wall next to the player's cell,
// then the corner quads whose flanking walls are also closed.
type edgeSeal struct {
	wall   point
	glyph  Glyph
	strip  [2]point // inclusive top-left and bottom-right
	flanks [2]flank
}

var edgeSeals = [4]edgeSeal{
	{wall: point{2, 3}, glyph: HWall, strip: [2]point{{0, 2}, {1, 4}},
		flanks: [2]flank{{point{2, 1}, topLeft}, {point{2, 5}, topRight}}},
	{wall: point{3, 2}, glyph: VWall, strip: [2]point{{2, 0}, {4, 1}},
		flanks: [2]flank{{point{1, 2}, topLeft}, {point{5, 2}, bottomLeft}}},
	{wall: point{4, 3}, glyph: HWall, strip: [2]point{{5, 2}, {6, 4}},
		flanks: [2]flank{{point{4, 1}, bottomLeft}, {point{4, 5}, bottomRight}}},
	{wall: point{3, 4}, glyph: VWall, strip: [2]point{{2, 5}, {4, 6}},
		flanks: [2]flank{{point{1, 4}, topRight}, {point{5, 4}, bottomRight}}},
}

type wallAt struct {
	at    point
	glyph Glyph
}

type wallPair [2]wallAt

// cornerSeal fills a quad when either pair of walls closes it off.
type cornerSeal struct {
	quad  quad
	pairs [2]wallPair
}

func pair(a point, ag Glyph, b point, bg Glyph) wallPair {
	return wallPair{{a, ag}, {b, bg}}
}

var cornerSeals = [4]cornerSeal{
	{topLeft, [2]wallPair{
		pair(point{1, 2}, VWall, point{2, 1}, HWall),
		pair(point{2, 3}, HWall, point{3, 2}, VWall),
	}},
	{topRight, [2]wallPair{
		pair(point{2, 5}, HWall, point{1, 4}, VWall),
		pair(point{2, 3}, HWall, point{3, 4}, VWall),
	}},
	{bottomLeft, [2]wallPair{
		pair(point{4, 1}, HWall, point{5, 2}, VWall),
		pair(point{3, 2}, VWall, point{4, 3}, HWall),
	}},
	{bottomRight, [2]wallPair{
		pair(point{4, 5}, HWall, point{5, 4}, VWall),
		pair(point{3, 4}, VWall, point{4, 3}, HWall),
	}},
}

// wallGlyph keeps unknown edges as Unknown so a merge never takes them
// for passages.
func wallGlyph(code WallCode, closed Glyph) Glyph {
	switch code {
	case WallClosed:
		return closed
	case WallOpen:
		return Open
	default:
		return Unknown
	}
}

func (c Cell) glyph() Glyph {
	switch {
	case !c.Known:
		return Unknown
	case c.Goal:
		return Goal
	case c.Hint:
		return Hint
	case c.Entity == AllyEntity:
		return Ally
	case c.Entity == EnemyEntity:
		return Enemy
	case c.Entity == MonsterEntity:
		return Monster
	default:
		return Open
	}
}

// Render draws the view as a 7×7 grid in the player's frame. The player
// stands on the centre cell (3,3). Unknown edges and cells, and areas that
// a closed wall around the player hides from view, are Unknown.
func (v View) Render() Grid {
	g := Filled(ViewSize, ViewSize, Open)

	for i := range v.Horizontal {
		for j, code := range v.Horizontal[i] {
			g[2*i][2*j+1] = wallGlyph(code, HWall)
		}
	}
	for i := range v.Vertical {
		for j, code := range v.Vertical[i] {
			g[2*i+1][2*j] = wallGlyph(code, VWall)
		}
	}
	for i := range v.Cells {
		for j, cell := range v.Cells[i] {
			g[2*i+1][2*j+1] = cell.glyph()
		}
	}
	for r := 0; r < ViewSize; r += 2 {
		for c := 0; c < ViewSize; c += 2 {
			g[r][c] = Node
		}
	}

	seal(g)
	return g
}

// seal applies the edge rules in order and the corner rules after them;
// later rules observe the fills of earlier ones.
func seal(g Grid) {
	at := func(p point) Glyph { return g[p.r][p.c] }

	for _, e := range edgeSeals {
		if at(e.wall) != e.glyph {
			continue
		}
		fillRect(g, e.strip[0], e.strip[1])
		for _, f := range e.flanks {
			if at(f.wall) == closedGlyph(f.wall) {
				fillQuad(g, f.quad)
			}
		}
	}

	for _, cs := range cornerSeals {
		for _, p := range cs.pairs {
			if at(p[0].at) == p[0].glyph && at(p[1].at) == p[1].glyph {
				fillQuad(g, cs.quad)
				break
			}
		}
	}
}

// horizontal walls sit on even rows, vertical ones on odd rows.
func closedGlyph(p point) Glyph {
	if p.r%2 == 0 {
		return HWall
	}
	return VWall
}

func fillRect(g Grid, from, to point) {
	for r := from.r; r <= to.r; r++ {
		for c := from.c; c <= to.c; c++ {
			g[r][c] = Unknown
		}
	}
}

func fillQuad(g Grid, q quad) {
	fillRect(g, point(q), point{q.r + 1, q.c + 1})
}
