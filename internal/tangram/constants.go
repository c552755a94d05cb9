package tangram

// Snap tolerances. They define how forgiving the board feels and must not drift.
const (
	// DistanceThreshold is the board-local distance below which a piece may snap.
	DistanceThreshold = 60.0

	// RotationThreshold is the circular angle difference (degrees) below which a piece may snap.
	RotationThreshold = 25.0

	// OccupancyRadius is how close a placed piece must sit to a slot to claim it.
	OccupancyRadius = 1.0

	fullTurn = 360.0
)
