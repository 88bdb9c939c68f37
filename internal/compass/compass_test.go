package compass

import (
	"testing"

	"github.com/DoyleJ11/maze-team-client/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelative(t *testing.T) {
	cases := []struct {
		heading, target Cardinal
		want            types.RelativeDirection
	}{
		{North, North, types.Front},
		{North, East, types.Right},
		{North, West, types.Left},
		{North, South, types.Back},
		{East, South, types.Right},
		{East, North, types.Left},
		{South, East, types.Left},
		{West, North, types.Right},
		{West, East, types.Back},
	}
	for _, tc := range cases {
		t.Run(tc.heading.String()+"->"+tc.target.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, Relative(tc.heading, tc.target))
		})
	}
}

func TestTurnInvertsRelative(t *testing.T) {
	for _, heading := range Clockwise {
		for _, target := range Clockwise {
			got, err := heading.Turn(Relative(heading, target))
			require.NoError(t, err)
			assert.Equal(t, target, got, "heading %s", heading)
		}
	}
}

func TestDeltaOpposites(t *testing.T) {
	for _, c := range Clockwise {
		dr, dc := c.Delta()
		or, oc := c.Opposite().Delta()
		assert.Equal(t, 0, dr+or)
		assert.Equal(t, 0, dc+oc)
		assert.Equal(t, c, c.Right().Left())
	}
}
