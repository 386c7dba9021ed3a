package parking

import "fmt"

const (
	// BlockSeconds is the billing unit. Every started block is paid.
	BlockSeconds int64 = 900
	// UnitRate is the price of one block.
	UnitRate = 2.5
)

// Blocks returns the number of paid blocks for elapsed seconds. A stay of 0
// seconds still pays one block, and reaching a block boundary starts the
// next one.
func Blocks(elapsed int64) int64 {
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed/BlockSeconds + 1
}

func Charge(elapsed int64) float64 {
	return float64(Blocks(elapsed)) * UnitRate
}

// FormatElapsed renders seconds as HH:MM:SS. Hours are not wrapped at 24.
func FormatElapsed(elapsed int64) string {
	if elapsed < 0 {
		elapsed = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", elapsed/3600, (elapsed/60)%60, elapsed%60)
}
