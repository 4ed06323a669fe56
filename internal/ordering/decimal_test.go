package ordering

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func some(v float64) Neighbour { return Neighbour{Order: v, Ok: true} }

func TestBetweenCases(t *testing.T) {
	s := DefaultSpacing
	cases := []struct {
		name       string
		prev, next Neighbour
		want       float64
	}{
		{"empty stage", Neighbour{}, Neighbour{}, 100},
		{"tail", some(100), Neighbour{}, 110},
		{"tail rounds half up", some(99.5), Neighbour{}, 110},
		{"tail rounds down", some(104.49), Neighbour{}, 114},
		{"head integer", Neighbour{}, some(100), 99.9},
		{"head fraction", Neighbour{}, some(99.9), 99.89},
		{"head last digit one", Neighbour{}, some(5.01), 5.009},
		{"head zero", Neighbour{}, some(0), -0.1},
		{"middle integers", some(100), some(110), 105},
		{"middle odd gap", some(100), some(101), 100.5},
		{"middle adjacent fractions", some(100.1), some(100.2), 100.15},
		{"middle mixed precision", some(1), some(1.25), 1.125},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Between(tc.prev, tc.next)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestBetweenStaysStrictlyInside(t *testing.T) {
	s := DefaultSpacing
	prev, next := 100.0, 110.0
	// a dozen halvings stay well inside float64's exact decimal range
	for i := 0; i < 12; i++ {
		got, err := s.Between(some(prev), some(next))
		require.NoError(t, err)
		require.Greater(t, got, prev)
		require.Less(t, got, next)
		next = got
	}
}

func TestHeadRepeatedlyDecreases(t *testing.T) {
	s := DefaultSpacing
	first := 100.0
	for i := 0; i < 10; i++ {
		got, err := s.Between(Neighbour{}, some(first))
		require.NoError(t, err)
		require.Less(t, got, first)
		first = got
	}
}

func TestTailRepeatedlyIncreases(t *testing.T) {
	s := Spacing{Empty: 100, Step: 10}
	last, err := s.Between(Neighbour{}, Neighbour{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		got, err := s.Between(some(last), Neighbour{})
		require.NoError(t, err)
		require.Equal(t, last+10, got)
		last = got
	}
}

func TestBetweenHugeOrdersDegradeWithoutError(t *testing.T) {
	s := DefaultSpacing
	got, err := s.Between(some(1e40), Neighbour{})
	require.NoError(t, err)
	require.Equal(t, 1e40, got)

	got, err = s.Between(some(1e40), some(2e40))
	require.NoError(t, err)
	require.Equal(t, 1.5e40, got)

	got, err = s.Between(Neighbour{}, some(1e40))
	require.NoError(t, err)
	require.Equal(t, 1e40, got)
}
