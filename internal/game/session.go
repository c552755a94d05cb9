package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playmatatu/minigames/internal/pairs"
	"github.com/playmatatu/minigames/internal/quiz"
	"github.com/playmatatu/minigames/internal/tangram"
)

// Kind names the game a session plays.
type Kind string

const (
	KindTangram Kind = "tangram"
	KindPairs   Kind = "pairs"
	KindQuiz    Kind = "quiz"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotOwner        = errors.New("session belongs to another player")
	ErrUnknownGesture  = errors.New("unknown gesture")
	ErrWrongGame       = errors.New("gesture does not apply to this game")
	ErrUnknownGame     = errors.New("unknown game")
)

// GestureType is the action carried by a Gesture.
type GestureType string

const (
	GestureStart        GestureType = "start"
	GestureReset        GestureType = "reset"
	GesturePause        GestureType = "pause"
	GestureResume       GestureType = "resume"
	GestureMove         GestureType = "move"
	GestureMoveBy       GestureType = "move_by"
	GestureRotate       GestureType = "rotate"
	GestureRotateBy     GestureType = "rotate_by"
	GestureRelease      GestureType = "release"
	GesturePlace        GestureType = "place"
	GestureFlip         GestureType = "flip"
	GestureSelectBall   GestureType = "select_ball"
	GestureComputerPick GestureType = "computer_pick"
	GestureAnswer       GestureType = "answer"
)

// Gesture is one player action, as sent over HTTP or WebSocket.
type Gesture struct {
	Type     GestureType `json:"type"`
	PieceID  int         `json:"piece_id,omitempty"`
	X        float64     `json:"x,omitempty"`
	Y        float64     `json:"y,omitempty"`
	Rotation float64     `json:"rotation,omitempty"`
	DX       float64     `json:"dx,omitempty"`
	DY       float64     `json:"dy,omitempty"`
	Delta    float64     `json:"delta,omitempty"`
	BallID   int         `json:"ball_id,omitempty"`
	Choice   int         `json:"choice,omitempty"`
}

// Outcome is what a gesture did.
type Outcome struct {
	SessionID string              `json:"session_id"`
	Gesture   GestureType         `json:"gesture"`
	Piece     *tangram.PieceState `json:"piece,omitempty"`
	Result    *tangram.Result     `json:"result,omitempty"`
	Pick      *pairs.PickResult   `json:"pick,omitempty"`
	Answer    *quiz.AnswerResult  `json:"answer,omitempty"`
	Completed bool                `json:"completed"`
}

// View is the serialisable state of a session. It is both the API payload and the Redis
// snapshot.
type View struct {
	ID        string            `json:"id"`
	PlayerID  string            `json:"player_id"`
	Kind      Kind              `json:"game"`
	LevelID   int               `json:"level_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Finished  bool              `json:"finished"`
	Attempt   int               `json:"attempt"`
	Tangram   *tangram.Snapshot `json:"tangram,omitempty"`
	Pairs     *pairs.Snapshot   `json:"pairs,omitempty"`
	Quiz      *quiz.Snapshot    `json:"quiz,omitempty"`
}

// Session is one player's game held by the manager.
type Session struct {
	ID        string
	PlayerID  string
	Kind      Kind
	CreatedAt time.Time

	mu           sync.Mutex
	level        *tangram.Session
	board        *pairs.Board
	quiz         *quiz.Quiz
	lastTick     time.Time
	lastActivity time.Time
	finished     bool
	attempt      int // bumped by every start or reset; keys the result rows
}

// tick moves the play clock up to now.
func (s *Session) tick(now time.Time) {
	if !s.lastTick.IsZero() && now.After(s.lastTick) {
		d := now.Sub(s.lastTick)
		switch s.Kind {
		case KindTangram:
			s.level.Tick(d)
		case KindPairs:
			s.board.Tick(d)
		case KindQuiz:
			s.quiz.Tick(d)
		}
	}
	s.lastTick = now
}

func (s *Session) view() View {
	v := View{
		ID:        s.ID,
		PlayerID:  s.PlayerID,
		Kind:      s.Kind,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.lastActivity,
		Finished:  s.finished,
		Attempt:   s.attempt,
	}
	switch s.Kind {
	case KindTangram:
		snap := s.level.Snapshot()
		v.LevelID = snap.LevelID
		v.Tangram = &snap
	case KindPairs:
		snap := s.board.Snapshot()
		v.Pairs = &snap
	case KindQuiz:
		snap := s.quiz.Snapshot()
		v.Quiz = &snap
	}
	return v
}

func (s *Session) completed() bool {
	switch s.Kind {
	case KindTangram:
		return s.level.Status() == tangram.StatusCompleted
	case KindPairs:
		return s.board.Over()
	case KindQuiz:
		return s.quiz.Finished()
	}
	return false
}

func (s *Session) paused() bool {
	switch s.Kind {
	case KindTangram:
		return s.level.Paused()
	case KindPairs:
		return s.board.Paused()
	case KindQuiz:
		return s.quiz.Paused()
	}
	return false
}

// apply runs one gesture. The caller holds s.mu.
func (s *Session) apply(g Gesture) (*Outcome, error) {
	out := &Outcome{SessionID: s.ID, Gesture: g.Type}

	switch g.Type {
	case GestureStart, GestureReset:
		switch s.Kind {
		case KindTangram:
			s.level.Reset()
		case KindPairs:
			s.board.Reset()
		case KindQuiz:
			s.quiz.Reset()
		}
		s.finished = false
		s.attempt++
	case GesturePause:
		s.pause()
	case GestureResume:
		switch s.Kind {
		case KindTangram:
			s.level.Resume()
		case KindPairs:
			s.board.Resume()
		case KindQuiz:
			s.quiz.Resume()
		}
	case GestureMove, GestureMoveBy, GestureRotate, GestureRotateBy, GestureRelease, GesturePlace, GestureFlip:
		if s.Kind != KindTangram {
			return nil, fmt.Errorf("%w: %s on %s", ErrWrongGame, g.Type, s.Kind)
		}
		if err := s.applyPiece(g, out); err != nil {
			return nil, err
		}
	case GestureSelectBall, GestureComputerPick:
		if s.Kind != KindPairs {
			return nil, fmt.Errorf("%w: %s on %s", ErrWrongGame, g.Type, s.Kind)
		}
		var err error
		if g.Type == GestureSelectBall {
			out.Pick, err = s.board.Select(pairs.SideLeft, g.BallID)
		} else {
			var res pairs.PickResult
			res, err = s.board.ComputerPick()
			out.Pick = &res
		}
		if err != nil {
			return nil, err
		}
	case GestureAnswer:
		if s.Kind != KindQuiz {
			return nil, fmt.Errorf("%w: %s on %s", ErrWrongGame, g.Type, s.Kind)
		}
		res, err := s.quiz.Answer(g.Choice)
		if err != nil {
			return nil, err
		}
		out.Answer = &res
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGesture, g.Type)
	}

	out.Completed = s.completed()
	return out, nil
}

func (s *Session) pause() {
	switch s.Kind {
	case KindTangram:
		s.level.Pause()
	case KindPairs:
		s.board.Pause()
	case KindQuiz:
		s.quiz.Pause()
	}
}

func (s *Session) applyPiece(g Gesture, out *Outcome) error {
	var (
		st  tangram.PieceState
		res tangram.Result
		err error
	)
	switch g.Type {
	case GestureMove:
		st, err = s.level.Move(g.PieceID, g.X, g.Y)
	case GestureMoveBy:
		st, err = s.level.MoveBy(g.PieceID, g.DX, g.DY)
	case GestureRotate:
		st, err = s.level.Rotate(g.PieceID, g.Rotation)
	case GestureRotateBy:
		st, err = s.level.RotateBy(g.PieceID, g.Delta)
	case GesturePlace:
		if _, err = s.level.Move(g.PieceID, g.X, g.Y); err != nil {
			return err
		}
		if _, err = s.level.Rotate(g.PieceID, g.Rotation); err != nil {
			return err
		}
		res, err = s.level.Release(g.PieceID)
		out.Result = &res
	case GestureRelease:
		res, err = s.level.Release(g.PieceID)
		out.Result = &res
	case GestureFlip:
		res, err = s.level.Flip(g.PieceID)
		out.Result = &res
	}
	if err != nil {
		return err
	}
	if out.Result != nil {
		st = out.Result.State
	}
	out.Piece = &st
	return nil
}
