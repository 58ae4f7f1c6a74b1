package controller

import "math"

// driftDetector notices when somebody moved the brightness behind the
// loop's back and folds that move into the user offset.
type driftDetector struct {
	tolerance float64
}

// detect compares the level currently on the device against the loop's own
// last write. A gap beyond the tolerance means a manual change; the returned
// offset is the distance between what the user chose and what the curve
// would have set, so future ticks track the sun from the user's level.
func (d driftDetector) detect(actual, lastSet int, calculated float64) (newOffset int, drifted bool) {
	if math.Abs(float64(actual-lastSet)) <= d.tolerance {
		return 0, false
	}
	return int(math.Round(float64(actual) - calculated)), true
}
