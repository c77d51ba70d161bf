package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpotsWholeValues(t *testing.T) {
	s := SpotsFromCount(10, 30)
	assert.Equal(t, int64(300), s.Seconds())
	assert.Equal(t, "10", s.String())
}

func TestSpotsFractions(t *testing.T) {
	half := SpotsFromSeconds(15, 30)
	assert.Equal(t, "0.5", half.String())

	third := SpotsFromSeconds(10, 30)
	assert.Equal(t, "0.3333", third.String())

	quarter := SpotsFromSeconds(45, 60)
	assert.Equal(t, "0.75", quarter.String())
}

func TestSpotsArithmetic(t *testing.T) {
	a := SpotsFromSeconds(120, 30) // 4 spots
	b := SpotsFromSeconds(15, 30)  // 0.5 spots

	sum := a.Add(b)
	assert.Equal(t, int64(135), sum.Seconds())
	assert.Equal(t, "4.5", sum.String())

	diff := a.Sub(b)
	assert.Equal(t, int64(105), diff.Seconds())
	assert.Equal(t, "3.5", diff.String())

	assert.Equal(t, 1, a.Cmp(b))
	assert.Equal(t, -1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(a))
}

func TestSpotsRepeatedFractionsStayExact(t *testing.T) {
	// 0.1 is not representable in binary floating point; integer
	// seconds must not drift over many additions.
	tick := SpotsFromSeconds(3, 30) // 0.1 spots
	sum := SpotsFromSeconds(0, 30)
	for i := 0; i < 10; i++ {
		sum = sum.Add(tick)
	}
	assert.Equal(t, int64(30), sum.Seconds())
	assert.Equal(t, "1", sum.String())
}

func TestSpotsNegative(t *testing.T) {
	a := SpotsFromSeconds(10, 30)
	b := SpotsFromSeconds(20, 30)
	assert.True(t, a.Sub(b).Negative())
	assert.False(t, b.Sub(a).Negative())
}

func TestSpotsZeroDivisor(t *testing.T) {
	var s Spots
	assert.Equal(t, "0", s.String())
}
