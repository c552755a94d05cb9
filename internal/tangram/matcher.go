package tangram

// Snap is a matcher decision: the slot a piece fills and the exact pose it takes there.
type Snap struct {
	SlotID int  `json:"slot_id"`
	Pose   Pose `json:"pose"`
}

// Matcher decides whether a released piece snaps into one of its candidate slots.
type Matcher struct {
	DistanceThreshold float64
	RotationThreshold float64
	OccupancyRadius   float64
}

// NewMatcher returns a matcher with the standard board tolerances.
func NewMatcher() *Matcher {
	return &Matcher{
		DistanceThreshold: DistanceThreshold,
		RotationThreshold: RotationThreshold,
		OccupancyRadius:   OccupancyRadius,
	}
}

// Evaluate checks the piece at current against its candidate slots in level order and
// returns the first slot that accepts it. states is only read, to skip slots already
// claimed by another placed piece.
func (m *Matcher) Evaluate(level *Level, pieceID int, current Pose, states map[int]PieceState) (Snap, bool) {
	def, ok := level.Piece(pieceID)
	if !ok {
		return Snap{}, false
	}

	for _, slot := range level.CandidateSlots(def) {
		if _, taken := m.occupant(level, slot.Solution, states, pieceID, true); taken {
			continue
		}
		// written as !(x < limit) so NaN poses never pass
		if !(current.DistanceTo(slot.Solution) < m.DistanceThreshold) {
			continue
		}
		rot, diff := closestRotation(current.Rotation, def.AcceptableRotations(slot.Solution))
		if !(diff < m.RotationThreshold) {
			continue
		}
		return Snap{
			SlotID: slot.ID,
			Pose:   Pose{X: slot.Solution.X, Y: slot.Solution.Y, Rotation: rot},
		}, true
	}
	return Snap{}, false
}

// Occupant returns the id of the placed piece holding slot, if any. Pieces are checked in
// level order, so the earliest piece wins when several overlap.
func (m *Matcher) Occupant(level *Level, slot Pose, states map[int]PieceState) (int, bool) {
	return m.occupant(level, slot, states, 0, false)
}

// occupant is Occupant, ignoring the piece self when skipSelf is set.
func (m *Matcher) occupant(level *Level, slot Pose, states map[int]PieceState, self int, skipSelf bool) (int, bool) {
	for _, p := range level.Pieces {
		if skipSelf && p.ID == self {
			continue
		}
		st, ok := states[p.ID]
		if ok && st.Placed && st.Pose().DistanceTo(slot) <= m.OccupancyRadius {
			return p.ID, true
		}
	}
	return 0, false
}

// closestRotation picks the candidate nearest to current. Ties keep the earlier offset.
func closestRotation(current float64, candidates []float64) (float64, float64) {
	best := candidates[0]
	bestDiff := AngularDistance(current, best)
	for _, c := range candidates[1:] {
		if d := AngularDistance(current, c); d < bestDiff {
			best, bestDiff = c, d
		}
	}
	return best, bestDiff
}
