package tangram

import "math"

// Pose is a piece placement on the board: centre position plus rotation in degrees.
type Pose struct {
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	Rotation float64 `json:"rotation" yaml:"rotation"`
}

// NormalizeDegrees maps any angle onto [0,360).
func NormalizeDegrees(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	r := math.Mod(deg, fullTurn)
	if r < 0 {
		r += fullTurn
	}
	// -0.0000001 + 360 rounds back up to 360 in float64
	if r >= fullTurn {
		r = 0
	}
	return r
}

// AngularDistance returns the circular difference between two angles, in [0,180].
func AngularDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), fullTurn)
	if d > fullTurn/2 {
		d = fullTurn - d
	}
	return d
}

// DistanceTo returns the Euclidean distance between the two pose centres.
func (p Pose) DistanceTo(o Pose) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Normalized returns the pose with its rotation mapped onto [0,360).
func (p Pose) Normalized() Pose {
	p.Rotation = NormalizeDegrees(p.Rotation)
	return p
}

// Equal reports exact equality. Snapped poses are written verbatim so no epsilon is needed.
func (p Pose) Equal(o Pose) bool {
	return p.X == o.X && p.Y == o.Y && p.Rotation == o.Rotation
}
