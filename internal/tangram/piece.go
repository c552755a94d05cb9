package tangram

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownPiece = errors.New("piece not found in level")
	ErrInvalidLevel = errors.New("invalid level definition")
)

// Size is a board or piece extent in board-local units.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Piece is the static definition of one movable shape and the slot it solves.
type Piece struct {
	ID             int       `json:"id" yaml:"id"`
	Type           string    `json:"type,omitempty" yaml:"type,omitempty"` // pieces sharing a type swap slots
	Path           string    `json:"path" yaml:"path"`                     // SVG path around the piece centre
	Width          float64   `json:"width" yaml:"width"`
	Height         float64   `json:"height" yaml:"height"`
	Solution       Pose      `json:"solution" yaml:"solution"`
	Initial        Pose      `json:"initial" yaml:"initial"`
	ValidRotations []float64 `json:"valid_rotations,omitempty" yaml:"valid_rotations,omitempty"`
}

// RotationOffsets returns the symmetry offsets of the piece, defaulting to [0].
func (p Piece) RotationOffsets() []float64 {
	if len(p.ValidRotations) == 0 {
		return []float64{0}
	}
	return p.ValidRotations
}

// AcceptableRotations lists the rotations at which this piece correctly fills slot.
func (p Piece) AcceptableRotations(slot Pose) []float64 {
	offsets := p.RotationOffsets()
	out := make([]float64, len(offsets))
	for i, off := range offsets {
		out[i] = NormalizeDegrees(slot.Rotation + off)
	}
	return out
}

// Interchangeable reports whether p may fill the slot that belongs to other.
func (p Piece) Interchangeable(other Piece) bool {
	if p.Type != "" && p.Type == other.Type {
		return true
	}
	return p.ID == other.ID
}

// Level is a puzzle: a board and the pieces that fill it, in scan order.
type Level struct {
	ID        int     `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	BoardSize Size    `json:"board_size" yaml:"board_size"`
	Pieces    []Piece `json:"pieces" yaml:"pieces"`
}

// Piece looks up a definition by id.
func (l *Level) Piece(id int) (Piece, bool) {
	for _, p := range l.Pieces {
		if p.ID == id {
			return p, true
		}
	}
	return Piece{}, false
}

// CandidateSlots returns every piece whose slot the given piece may fill, in level order.
func (l *Level) CandidateSlots(def Piece) []Piece {
	var out []Piece
	for _, p := range l.Pieces {
		if def.Interchangeable(p) {
			out = append(out, p)
		}
	}
	return out
}

// Validate surfaces authoring mistakes in level data at load time.
func (l *Level) Validate() error {
	if len(l.Pieces) == 0 {
		return fmt.Errorf("%w: level %d has no pieces", ErrInvalidLevel, l.ID)
	}
	if l.BoardSize.Width <= 0 || l.BoardSize.Height <= 0 {
		return fmt.Errorf("%w: level %d has board size %.0fx%.0f", ErrInvalidLevel, l.ID, l.BoardSize.Width, l.BoardSize.Height)
	}

	seen := make(map[int]bool, len(l.Pieces))
	for _, p := range l.Pieces {
		if seen[p.ID] {
			return fmt.Errorf("%w: level %d has duplicate piece id %d", ErrInvalidLevel, l.ID, p.ID)
		}
		seen[p.ID] = true

		if !inTurn(p.Solution.Rotation) || !inTurn(p.Initial.Rotation) {
			return fmt.Errorf("%w: piece %d rotation outside [0,360)", ErrInvalidLevel, p.ID)
		}

		offsets := make(map[float64]bool, len(p.ValidRotations))
		for _, off := range p.ValidRotations {
			if !inTurn(off) {
				return fmt.Errorf("%w: piece %d valid rotation %.2f outside [0,360)", ErrInvalidLevel, p.ID, off)
			}
			if offsets[off] {
				return fmt.Errorf("%w: piece %d repeats valid rotation %.2f", ErrInvalidLevel, p.ID, off)
			}
			offsets[off] = true
		}
	}
	return nil
}

func inTurn(deg float64) bool {
	return deg >= 0 && deg < fullTurn
}
