package style

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssigner(t *testing.T) *Assigner {
	t.Helper()
	a, err := NewAssigner(DefaultStyles())
	require.NoError(t, err)
	return a
}

// =========================================================================
// HASH TESTS
// =========================================================================

func TestHash_KnownVectors(t *testing.T) {
	// Values produced by the JavaScript implementation
	// (hash = ((hash << 5) - hash) + charCodeAt(i); hash |= 0).
	tests := []struct {
		in        string
		wantHash  int32
		wantIndex int
	}{
		{"", 0, 0},
		{"a", 97, 1},
		{"A", 65, 5},
		{"foo", 101574, 0},
		{"vitalik", 467438126, 2},
		{"VITALIK", 1185420814, 4},
		{"newuser", 1846199659, 1},
		{"cacheduser", 33737709, 3},
		{"elonmusk", 279120838, 4},
		{"raave_ba", -105467139, 3},
		{"😀", 1772899, 1}, // surrogate pair: two code units
	}

	a := newTestAssigner(t)
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.wantHash, Hash(tt.in))
			assert.Equal(t, tt.wantIndex, a.Index(tt.in))
		})
	}
}

func TestIndex_MinInt32(t *testing.T) {
	// Math.abs(-2147483648) = 2147483648 and 2147483648 % 6 = 2.
	assert.Equal(t, 2, index(math.MinInt32, 6))
}

func TestIndex_NegativeHash(t *testing.T) {
	assert.Equal(t, 1, index(-7, 6))
}

// =========================================================================
// ASSIGN TESTS
// =========================================================================

func TestAssign_Deterministic(t *testing.T) {
	a := newTestAssigner(t)
	first := a.Assign("jesse")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, a.Assign("jesse"))
	}
}

func TestAssign_EmptyIsFirstStyle(t *testing.T) {
	a := newTestAssigner(t)
	assert.Equal(t, HardcoreTechno, a.Assign("").Name)
	assert.Equal(t, a.Default(), a.Assign(""))
}

func TestAssign_CaseSensitive(t *testing.T) {
	a := newTestAssigner(t)
	assert.Equal(t, BeachSunset, a.Assign("a").Name)
	assert.Equal(t, FestivalFreeSpirit, a.Assign("A").Name)
}

func TestAssign_CustomList(t *testing.T) {
	a, err := NewAssigner([]Descriptor{{Name: "ONE"}, {Name: "TWO"}})
	require.NoError(t, err)

	// 97 % 2 = 1
	assert.Equal(t, "TWO", a.Assign("a").Name)
}

func TestNewAssigner_Empty(t *testing.T) {
	_, err := NewAssigner(nil)
	assert.Error(t, err)
}

func TestNewAssigner_CopiesInput(t *testing.T) {
	styles := DefaultStyles()
	a, err := NewAssigner(styles)
	require.NoError(t, err)

	styles[0].Name = "MUTATED"
	assert.Equal(t, HardcoreTechno, a.Assign("").Name)
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestLookup(t *testing.T) {
	a := newTestAssigner(t)

	d, ok := a.Lookup("  neo y2k ")
	require.True(t, ok)
	assert.Equal(t, NeoY2K, d.Name)

	_, ok = a.Lookup("DISCO")
	assert.False(t, ok)
}

func TestDefaultStyles_SixWithPromptBlocks(t *testing.T) {
	styles := DefaultStyles()
	require.Len(t, styles, 6)
	for _, s := range styles {
		assert.Contains(t, s.PromptBlock, "**"+s.Name+"**")
		assert.Contains(t, s.PromptBlock, "ACCESSORIES:")
	}
}
