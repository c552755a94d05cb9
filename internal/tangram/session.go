package tangram

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Status is the lifecycle of a level session.
type Status string

const (
	StatusMenu      Status = "menu"
	StatusPlaying   Status = "playing"
	StatusCompleted Status = "completed"
)

var (
	ErrNotPlaying  = errors.New("level is not being played")
	ErrPieceLocked = errors.New("piece is placed and locked")
)

// PieceState is the run-time pose of one piece.
type PieceState struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	Placed   bool    `json:"placed"`
	Flipped  bool    `json:"flipped"`
}

// Pose returns the geometric part of the state.
func (s PieceState) Pose() Pose {
	return Pose{X: s.X, Y: s.Y, Rotation: s.Rotation}
}

func (s *PieceState) setPose(p Pose) {
	s.X, s.Y, s.Rotation = p.X, p.Y, p.Rotation
}

// Result reports what a release or flip did to a piece.
type Result struct {
	PieceID   int        `json:"piece_id"`
	Snapped   bool       `json:"snapped"`
	SlotID    int        `json:"slot_id,omitempty"`
	State     PieceState `json:"state"`
	Completed bool       `json:"completed"`
}

// Option configures a Session.
type Option func(*Session)

// WithUnlockedPlacement lets players pick a placed piece up again.
func WithUnlockedPlacement() Option {
	return func(s *Session) { s.lockPlaced = false }
}

// WithMatcher swaps the snap matcher, mostly for tests.
func WithMatcher(m *Matcher) Option {
	return func(s *Session) { s.matcher = m }
}

// Session owns the piece states of one level being played. It is not safe for concurrent
// use; callers serialise access (one gesture at a time).
type Session struct {
	level      *Level
	matcher    *Matcher
	states     map[int]PieceState
	status     Status
	paused     bool
	elapsed    time.Duration
	lockPlaced bool
}

// NewSession validates level and lays every piece out at its initial pose.
func NewSession(level *Level, opts ...Option) (*Session, error) {
	if level == nil {
		return nil, fmt.Errorf("%w: nil level", ErrInvalidLevel)
	}
	if err := level.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		level:      level,
		matcher:    NewMatcher(),
		status:     StatusMenu,
		lockPlaced: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.layout()
	return s, nil
}

func (s *Session) layout() {
	s.states = make(map[int]PieceState, len(s.level.Pieces))
	for _, p := range s.level.Pieces {
		init := p.Initial.Normalized()
		s.states[p.ID] = PieceState{X: init.X, Y: init.Y, Rotation: init.Rotation}
	}
}

// Level returns the level definition being played.
func (s *Session) Level() *Level { return s.level }

// Status returns the current lifecycle state.
func (s *Session) Status() Status { return s.status }

// Paused reports whether the clock and gestures are suspended.
func (s *Session) Paused() bool { return s.paused }

// Elapsed returns active play time.
func (s *Session) Elapsed() time.Duration { return s.elapsed }

// State returns the state of one piece.
func (s *Session) State(id int) (PieceState, bool) {
	st, ok := s.states[id]
	return st, ok
}

// Start begins play from the initial layout.
func (s *Session) Start() { s.Reset() }

// Reset puts every piece back to its initial pose and restarts the clock.
func (s *Session) Reset() {
	s.layout()
	s.status = StatusPlaying
	s.paused = false
	s.elapsed = 0
}

func (s *Session) Pause() {
	if s.status == StatusPlaying {
		s.paused = true
	}
}

func (s *Session) Resume() { s.paused = false }

// Tick advances the play clock while the level is running.
func (s *Session) Tick(d time.Duration) {
	if s.status == StatusPlaying && !s.paused && d > 0 {
		s.elapsed += d
	}
}

// Move drags a piece to (x, y).
func (s *Session) Move(id int, x, y float64) (PieceState, error) {
	st, err := s.grab(id)
	if err != nil {
		return PieceState{}, err
	}
	st.X, st.Y = x, y
	st.Placed = false
	s.states[id] = st
	return st, nil
}

// MoveBy drags a piece by a delta.
func (s *Session) MoveBy(id int, dx, dy float64) (PieceState, error) {
	st, err := s.grab(id)
	if err != nil {
		return PieceState{}, err
	}
	return s.Move(id, st.X+dx, st.Y+dy)
}

// Rotate sets a piece's rotation; any angle is accepted and normalised.
func (s *Session) Rotate(id int, degrees float64) (PieceState, error) {
	st, err := s.grab(id)
	if err != nil {
		return PieceState{}, err
	}
	st.Rotation = NormalizeDegrees(degrees)
	st.Placed = false
	s.states[id] = st
	return st, nil
}

// RotateBy turns a piece by delta degrees.
func (s *Session) RotateBy(id int, delta float64) (PieceState, error) {
	st, err := s.grab(id)
	if err != nil {
		return PieceState{}, err
	}
	return s.Rotate(id, st.Rotation+delta)
}

// Release ends a drag or rotate gesture and snaps the piece if it is close enough to a slot.
func (s *Session) Release(id int) (Result, error) {
	if err := s.playable(); err != nil {
		return Result{}, err
	}
	if _, ok := s.states[id]; !ok {
		return Result{}, ErrUnknownPiece
	}
	return s.evaluate(id), nil
}

// Flip mirrors a piece and re-checks its snap. Mirroring does not change the pose the matcher
// tests, so an unplaced piece snaps exactly as it would on release.
func (s *Session) Flip(id int) (Result, error) {
	st, err := s.grab(id)
	if err != nil {
		return Result{}, err
	}
	st.Flipped = !st.Flipped
	st.Placed = false
	s.states[id] = st
	return s.evaluate(id), nil
}

// Completed reports whether every piece is placed.
func (s *Session) Completed() bool {
	for _, p := range s.level.Pieces {
		if !s.states[p.ID].Placed {
			return false
		}
	}
	return true
}

func (s *Session) evaluate(id int) Result {
	st := s.states[id]
	snap, ok := s.matcher.Evaluate(s.level, id, st.Pose(), s.states)
	if ok {
		st.setPose(snap.Pose)
		st.Placed = true
	} else {
		st.Placed = false
	}
	s.states[id] = st

	if s.status == StatusPlaying && s.Completed() {
		s.status = StatusCompleted
	}
	return Result{
		PieceID:   id,
		Snapped:   ok,
		SlotID:    snap.SlotID,
		State:     st,
		Completed: s.status == StatusCompleted,
	}
}

func (s *Session) playable() error {
	if s.status != StatusPlaying || s.paused {
		return ErrNotPlaying
	}
	return nil
}

func (s *Session) grab(id int) (PieceState, error) {
	if err := s.playable(); err != nil {
		return PieceState{}, err
	}
	st, ok := s.states[id]
	if !ok {
		return PieceState{}, ErrUnknownPiece
	}
	if st.Placed && s.lockPlaced {
		return PieceState{}, ErrPieceLocked
	}
	return st, nil
}

// PieceSnapshot is one piece in a Snapshot.
type PieceSnapshot struct {
	ID int `json:"id"`
	PieceState
}

// Snapshot is a serialisable copy of a session.
type Snapshot struct {
	LevelID        int             `json:"level_id"`
	Status         Status          `json:"status"`
	Paused         bool            `json:"paused"`
	ElapsedSeconds float64         `json:"elapsed_seconds"`
	LockPlaced     bool            `json:"lock_placed"`
	Pieces         []PieceSnapshot `json:"pieces"`
}

// Snapshot copies the session state, pieces ordered by id.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		LevelID:        s.level.ID,
		Status:         s.status,
		Paused:         s.paused,
		ElapsedSeconds: s.elapsed.Seconds(),
		LockPlaced:     s.lockPlaced,
		Pieces:         make([]PieceSnapshot, 0, len(s.states)),
	}
	for id, st := range s.states {
		snap.Pieces = append(snap.Pieces, PieceSnapshot{ID: id, PieceState: st})
	}
	sort.Slice(snap.Pieces, func(i, j int) bool { return snap.Pieces[i].ID < snap.Pieces[j].ID })
	return snap
}

// RestoreSession rebuilds a session for level from a snapshot taken earlier.
func RestoreSession(level *Level, snap Snapshot, opts ...Option) (*Session, error) {
	if level != nil && snap.LevelID != level.ID {
		return nil, fmt.Errorf("%w: snapshot is for level %d, not %d", ErrInvalidLevel, snap.LevelID, level.ID)
	}
	s, err := NewSession(level, opts...)
	if err != nil {
		return nil, err
	}
	for _, p := range snap.Pieces {
		if _, ok := s.states[p.ID]; !ok {
			return nil, fmt.Errorf("%w: snapshot piece %d", ErrUnknownPiece, p.ID)
		}
		s.states[p.ID] = p.PieceState
	}
	s.status = snap.Status
	s.paused = snap.Paused
	s.elapsed = time.Duration(snap.ElapsedSeconds * float64(time.Second))
	s.lockPlaced = snap.LockPlaced
	return s, nil
}
