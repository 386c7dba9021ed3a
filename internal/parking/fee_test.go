package parking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCharge_FirstBlockCoversZeroTo899(t *testing.T) {
	for _, elapsed := range []int64{0, 1, 450, 899} {
		assert.Equal(t, UnitRate, Charge(elapsed), "elapsed=%d", elapsed)
	}
}

func TestCharge_BlockBoundaryStartsNextBlock(t *testing.T) {
	assert.Equal(t, 2*UnitRate, Charge(900))
	assert.Equal(t, 2*UnitRate, Charge(905))
	assert.Equal(t, 2*UnitRate, Charge(1799))
	assert.Equal(t, 3*UnitRate, Charge(1800))
	assert.Equal(t, 10.0, Charge(3599))
	assert.Equal(t, 12.5, Charge(3600))
}

func TestCharge_NonDecreasing(t *testing.T) {
	prev := Charge(0)
	for elapsed := int64(1); elapsed <= 4*BlockSeconds; elapsed++ {
		cur := Charge(elapsed)
		if cur < prev {
			t.Fatalf("charge decreased at %d: %v < %v", elapsed, cur, prev)
		}
		prev = cur
	}
}

func TestFormatElapsed(t *testing.T) {
	cases := map[int64]string{
		0:      "00:00:00",
		59:     "00:00:59",
		905:    "00:15:05",
		3600:   "01:00:00",
		86399:  "23:59:59",
		90061:  "25:01:01",
		360000: "100:00:00",
	}
	for elapsed, want := range cases {
		assert.Equal(t, want, FormatElapsed(elapsed), "elapsed=%d", elapsed)
	}
}
