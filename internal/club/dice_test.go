package club

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRollerStaysOnTheDie(t *testing.T) {
	roll, err := NewRoller()
	require.NoError(t, err)

	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		face := roll()
		require.GreaterOrEqual(t, face, 1)
		require.LessOrEqual(t, face, 6)
		seen[face] = true
	}
	require.Len(t, seen, 6, "a fair die shows every face in a thousand rolls")
}
