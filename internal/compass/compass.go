package compass

import (
	"fmt"

	"github.com/DoyleJ11/maze-team-client/pkg/types"
)

// Cardinal is an absolute heading. The zero value is North.
type Cardinal uint8

const (
	North Cardinal = iota
	East
	South
	West
)

// Clockwise lists the headings in exploration order.
var Clockwise = [4]Cardinal{North, East, South, West}

func (c Cardinal) String() string {
	switch c {
	case North:
		return "North"
	case East:
		return "East"
	case South:
		return "South"
	case West:
		return "West"
	default:
		return fmt.Sprintf("Cardinal(%d)", uint8(c))
	}
}

// Delta is the grid step for one unit toward c; rows grow southward.
func (c Cardinal) Delta() (dRow, dCol int) {
	switch c {
	case North:
		return -1, 0
	case East:
		return 0, 1
	case South:
		return 1, 0
	default:
		return 0, -1
	}
}

func (c Cardinal) Right() Cardinal    { return (c + 1) % 4 }
func (c Cardinal) Left() Cardinal     { return (c + 3) % 4 }
func (c Cardinal) Opposite() Cardinal { return (c + 2) % 4 }

var relativeTable = [4][4]types.RelativeDirection{
	North: {North: types.Front, East: types.Right, South: types.Back, West: types.Left},
	East:  {North: types.Left, East: types.Front, South: types.Right, West: types.Back},
	South: {North: types.Back, East: types.Left, South: types.Front, West: types.Right},
	West:  {North: types.Right, East: types.Back, South: types.Left, West: types.Front},
}

// Relative is the direction a player facing heading must take to go target.
func Relative(heading, target Cardinal) types.RelativeDirection {
	return relativeTable[heading%4][target%4]
}

// Turn is the absolute heading reached by taking rel while facing c.
func (c Cardinal) Turn(rel types.RelativeDirection) (Cardinal, error) {
	switch rel {
	case types.Front:
		return c, nil
	case types.Right:
		return c.Right(), nil
	case types.Back:
		return c.Opposite(), nil
	case types.Left:
		return c.Left(), nil
	default:
		return c, fmt.Errorf("compass: unknown relative direction %q", rel)
	}
}
