package tangram

// BuiltinLevels returns the levels shipped with the server. Each call returns fresh copies.
func BuiltinLevels() []Level {
	return []Level{levelOne()}
}

// levelOne is an arrow: a rectangular shaft, an angled arm and two interchangeable triangles.
func levelOne() Level {
	return Level{
		ID:        1,
		Name:      "Arrow",
		BoardSize: Size{Width: 400, Height: 500},
		Pieces: []Piece{
			{
				ID:             1,
				Type:           "rect",
				Path:           "M -25 -75 L 25 -75 L 25 75 L -25 75 Z",
				Width:          50,
				Height:         150,
				Solution:       Pose{X: 0, Y: 50, Rotation: 0},
				Initial:        Pose{X: 200, Y: 150, Rotation: 90},
				ValidRotations: []float64{0, 180},
			},
			{
				ID:             2,
				Type:           "parallelogram",
				Path:           "M -25 25 L 25 25 L 75 -25 L 25 -25 Z",
				Width:          100,
				Height:         50,
				Solution:       Pose{X: 25, Y: -50, Rotation: 0},
				Initial:        Pose{X: 200, Y: 50, Rotation: 45},
				ValidRotations: []float64{0, 180},
			},
			{
				ID:       3,
				Type:     "small-triangle",
				Path:     "M -25 25 L 25 25 L -25 -25 Z",
				Width:    50,
				Height:   50,
				Solution: Pose{X: 0, Y: -50, Rotation: 0},
				Initial:  Pose{X: 200, Y: -50, Rotation: 0},
			},
			{
				ID:       4,
				Type:     "small-triangle",
				Path:     "M -25 25 L 25 25 L -25 -25 Z",
				Width:    50,
				Height:   50,
				Solution: Pose{X: 75, Y: -75, Rotation: 180},
				Initial:  Pose{X: 200, Y: -120, Rotation: 180},
			},
		},
	}
}
