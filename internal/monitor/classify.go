package monitor

import "stockwatch/internal/models"

// Level is the stock severity classification.
type Level string

const (
	LevelNormal   Level = models.LevelNormal
	LevelLow      Level = models.LevelLow
	LevelCritical Level = models.LevelCritical
)

// Classify maps current stock against the configured minimum:
// at or below 30% of the minimum is CRITICAL, at or below 80% is LOW,
// anything above is NORMAL. Comparisons are done in tenths so the 30%/80%
// boundaries are exact (8 of min 10 is LOW, 3 of min 10 is CRITICAL, and a
// zero minimum classifies zero stock as CRITICAL).
func Classify(currentStock, minStock int) Level {
	switch {
	case currentStock*10 <= minStock*3:
		return LevelCritical
	case currentStock*10 <= minStock*8:
		return LevelLow
	default:
		return LevelNormal
	}
}
