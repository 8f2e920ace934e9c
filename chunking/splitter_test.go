package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSplitter(t *testing.T) *Splitter {
	t.Helper()
	s, err := NewSplitter()
	require.NoError(t, err)
	return s
}

func TestSplitWithinBudget(t *testing.T) {
	s := newTestSplitter(t)

	text := "A short paragraph that fits comfortably."
	units, counts, err := s.Split(text, 100)
	require.NoError(t, err)

	require.Len(t, units, 1)
	assert.Equal(t, text, units[0])
	assert.Equal(t, s.Measure(text), counts[0])
}

func TestSplitInvalidBudget(t *testing.T) {
	s := newTestSplitter(t)

	_, _, err := s.Split("text", 0)
	assert.ErrorIs(t, err, ErrInvalidTokenBudget)
}

func TestSplitRoundTrip(t *testing.T) {
	s := newTestSplitter(t)

	texts := map[string]string{
		"paragraphs": "First paragraph with several words in it.\n\nSecond paragraph, also with words.\n\n\nThird one after extra blank lines.",
		"sentences":  "One long paragraph. It has many sentences! Does it split well? It should. More filler text here to push past small budgets.",
		"words":      "word " + strings.Repeat("another word ", 50) + "end",
		"mixed":      "# Title\n\nIntro text. More intro.\n\n## Section\n\nBody body body. Final sentence.\n",
		"unicode":    "Héllo wörld. Ünïcode everywhere — naïve café.\n\nSecond paragraph with 中文 text.",
	}

	for name, text := range texts {
		for _, budget := range []int{1, 3, 8, 20} {
			units, counts, err := s.Split(text, budget)
			require.NoError(t, err, "%s budget=%d", name, budget)
			require.Equal(t, len(units), len(counts))

			// Joining the units must reproduce the input exactly
			assert.Equal(t, text, strings.Join(units, ""), "%s budget=%d", name, budget)
		}
	}
}

func TestSplitRespectsBudget(t *testing.T) {
	s := newTestSplitter(t)

	text := "Alpha beta gamma delta. Epsilon zeta eta theta.\n\nIota kappa lambda mu nu xi omicron pi."
	units, counts, err := s.Split(text, 6)
	require.NoError(t, err)

	for i, unit := range units {
		// Single words may exceed the budget; multi-word units may not
		if len(strings.Fields(unit)) > 1 {
			assert.LessOrEqual(t, counts[i], 6, "unit %d: %q", i, unit)
		}
		assert.Equal(t, s.Measure(unit), counts[i], "unit %d", i)
	}
}

func TestSplitIndivisibleWord(t *testing.T) {
	s := newTestSplitter(t)

	// One unbroken token run that cannot fit in the budget
	long := strings.Repeat("abcdef", 40)
	text := "short words here " + long + " more short words"

	units, _, err := s.Split(text, 4)
	require.NoError(t, err)

	assert.Equal(t, text, strings.Join(units, ""))

	found := false
	for _, unit := range units {
		if strings.Contains(unit, long) {
			found = true
		}
	}
	assert.True(t, found, "oversized word should be returned whole")
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	s := newTestSplitter(t)

	para1 := "Alpha beta gamma delta epsilon.\n\n"
	para2 := "Zeta eta theta iota kappa."
	text := para1 + para2

	budget := s.Measure(para1) + 1
	units, _, err := s.Split(text, budget)
	require.NoError(t, err)

	require.True(t, len(units) >= 2)
	assert.Equal(t, para1, units[0])
}

func TestMeasure(t *testing.T) {
	s := newTestSplitter(t)

	assert.Equal(t, 0, s.Measure(""))
	assert.Greater(t, s.Measure("hello world"), 0)
}
