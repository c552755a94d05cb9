package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/minigames/internal/config"
	"github.com/playmatatu/minigames/internal/levels"
	"github.com/playmatatu/minigames/internal/pairs"
	"github.com/playmatatu/minigames/internal/quiz"
	rkeys "github.com/playmatatu/minigames/internal/redis"
	"github.com/playmatatu/minigames/internal/tangram"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() *config.Config {
	return &config.Config{
		SessionTTLMinutes:     60,
		IdlePauseSeconds:      90,
		IdleWorkerPollSeconds: 1,
		ComputerPickDelayMS:   5,
	}
}

func newTestManager(t *testing.T, db *sqlx.DB, rdb *redis.Client) (*GameManager, *fakeClock) {
	t.Helper()
	cat, err := levels.NewCatalogue(tangram.BuiltinLevels()...)
	require.NoError(t, err)
	gm := NewGameManager(db, rdb, testConfig(), cat, NewMetrics(prometheus.NewRegistry()))
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	gm.now = clock.Now
	return gm, clock
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

var solveLevelOne = []Gesture{
	{Type: GesturePlace, PieceID: 1, X: 5, Y: 45, Rotation: 178},
	{Type: GesturePlace, PieceID: 2, X: 20, Y: -40, Rotation: 5},
	{Type: GesturePlace, PieceID: 3, X: 2, Y: -52, Rotation: 3},
	{Type: GesturePlace, PieceID: 4, X: 70, Y: -70, Rotation: 175},
}

func TestCreateTangramStartsPlaying(t *testing.T) {
	gm, _ := newTestManager(t, nil, nil)
	ctx := context.Background()

	v, err := gm.CreateTangram(ctx, "p1", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, KindTangram, v.Kind)
	assert.Equal(t, 1, v.LevelID)
	require.NotNil(t, v.Tangram)
	assert.Equal(t, tangram.StatusPlaying, v.Tangram.Status)
	assert.Equal(t, 1, gm.ActiveSessionCount())

	_, err = gm.CreateTangram(ctx, "p1", 404)
	assert.ErrorIs(t, err, levels.ErrLevelNotFound)
}

func TestApplySnapsAndFinishesLevel(t *testing.T) {
	gm, _ := newTestManager(t, nil, nil)
	ctx := context.Background()
	v, err := gm.CreateTangram(ctx, "p1", 1)
	require.NoError(t, err)

	out, err := gm.Apply(ctx, v.ID, solveLevelOne[0])
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.True(t, out.Result.Snapped)
	assert.Equal(t, tangram.PieceState{X: 0, Y: 50, Rotation: 180, Placed: true}, *out.Piece)
	assert.False(t, out.Completed)

	for _, g := range solveLevelOne[1:] {
		out, err = gm.Apply(ctx, v.ID, g)
		require.NoError(t, err)
		require.True(t, out.Result.Snapped, "piece %d", g.PieceID)
	}
	assert.True(t, out.Completed)

	_, err = gm.Apply(ctx, v.ID, Gesture{Type: GestureRelease, PieceID: 1})
	assert.ErrorIs(t, err, tangram.ErrNotPlaying)

	view, err := gm.View(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, view.Finished)
	assert.Equal(t, tangram.StatusCompleted, view.Tangram.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(gm.metrics.levelsCompleted.WithLabelValues("1")))
	assert.Equal(t, 4.0, testutil.ToFloat64(gm.metrics.releases.WithLabelValues("snapped")))
}

func TestApplyMissLeavesPiece(t *testing.T) {
	gm, _ := newTestManager(t, nil, nil)
	ctx := context.Background()
	v, _ := gm.CreateTangram(ctx, "p1", 1)

	out, err := gm.Apply(ctx, v.ID, Gesture{Type: GesturePlace, PieceID: 1, X: 100, Y: 50, Rotation: 0})
	require.NoError(t, err)
	assert.False(t, out.Result.Snapped)
	assert.Equal(t, tangram.PieceState{X: 100, Y: 50, Rotation: 0}, *out.Piece)

	out, err = gm.Apply(ctx, v.ID, Gesture{Type: GestureRotateBy, PieceID: 1, Delta: -30})
	require.NoError(t, err)
	assert.InDelta(t, 330.0, out.Piece.Rotation, 1e-9)
	assert.Nil(t, out.Result)
}

func TestApplyRejectsMismatchedGestures(t *testing.T) {
	gm, _ := newTestManager(t, nil, nil)
	ctx := context.Background()
	tv, _ := gm.CreateTangram(ctx, "p1", 1)
	pv, _ := gm.CreatePairs(ctx, "p1")

	_, err := gm.Apply(ctx, tv.ID, Gesture{Type: GestureSelectBall, BallID: 1})
	assert.ErrorIs(t, err, ErrWrongGame)
	_, err = gm.Apply(ctx, pv.ID, Gesture{Type: GestureFlip, PieceID: 1})
	assert.ErrorIs(t, err, ErrWrongGame)
	_, err = gm.Apply(ctx, tv.ID, Gesture{Type: "dance"})
	assert.ErrorIs(t, err, ErrUnknownGesture)
	_, err = gm.Apply(ctx, tv.ID, Gesture{Type: GestureMove, PieceID: 99})
	assert.ErrorIs(t, err, tangram.ErrUnknownPiece)
	_, err = gm.Apply(ctx, "missing", Gesture{Type: GestureReset})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPauseBlocksGesturesAndClock(t *testing.T) {
	gm, clock := newTestManager(t, nil, nil)
	ctx := context.Background()
	v, _ := gm.CreateTangram(ctx, "p1", 1)

	clock.Advance(10 * time.Second)
	_, err := gm.Apply(ctx, v.ID, Gesture{Type: GesturePause})
	require.NoError(t, err)
	clock.Advance(time.Minute)

	_, err = gm.Apply(ctx, v.ID, Gesture{Type: GestureMove, PieceID: 1, X: 1, Y: 1})
	assert.ErrorIs(t, err, tangram.ErrNotPlaying)

	view, err := gm.View(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, view.Tangram.Paused)
	assert.InDelta(t, 10.0, view.Tangram.ElapsedSeconds, 1e-9)

	_, err = gm.Apply(ctx, v.ID, Gesture{Type: GestureResume})
	require.NoError(t, err)
	clock.Advance(5 * time.Second)
	view, _ = gm.View(ctx, v.ID)
	assert.InDelta(t, 15.0, view.Tangram.ElapsedSeconds, 1e-9)
}

func TestPairsSessionSelectsBalls(t *testing.T) {
	gm, _ := newTestManager(t, nil, nil)
	ctx := context.Background()
	v, err := gm.CreatePairs(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, v.Pairs)
	pair := v.Pairs.CorrectPair

	out, err := gm.Apply(ctx, v.ID, Gesture{Type: GestureSelectBall, BallID: pair[0]})
	require.NoError(t, err)
	assert.Nil(t, out.Pick)

	out, err = gm.Apply(ctx, v.ID, Gesture{Type: GestureSelectBall, BallID: pair[1]})
	require.NoError(t, err)
	require.NotNil(t, out.Pick)
	assert.True(t, out.Pick.Correct)
	assert.Equal(t, pairs.SideLeft, out.Pick.Scorer)

	view, _ := gm.View(ctx, v.ID)
	assert.Equal(t, 1, view.Pairs.Scores[pairs.SideLeft])
}

func TestGetSessionForChecksOwner(t *testing.T) {
	gm, _ := newTestManager(t, nil, nil)
	ctx := context.Background()
	v, _ := gm.CreateTangram(ctx, "p1", 1)

	_, err := gm.GetSessionFor(ctx, v.ID, "p1")
	assert.NoError(t, err)
	_, err = gm.GetSessionFor(ctx, v.ID, "p2")
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestSessionsSurviveRestartThroughRedis(t *testing.T) {
	mr, rdb := newRedis(t)
	gm, _ := newTestManager(t, nil, rdb)
	ctx := context.Background()

	v, err := gm.CreateTangram(ctx, "p1", 1)
	require.NoError(t, err)
	_, err = gm.Apply(ctx, v.ID, solveLevelOne[0])
	require.NoError(t, err)
	assert.True(t, mr.Exists(rkeys.SnapshotKey(v.ID)))
	assert.True(t, mr.Exists(rkeys.LastActiveKey(v.ID)))

	fresh, _ := newTestManager(t, nil, rdb)
	view, err := fresh.View(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "p1", view.PlayerID)
	st := view.Tangram.Pieces[0]
	assert.True(t, st.Placed)
	assert.Equal(t, 180.0, st.Rotation)

	// the lock survives too
	_, err = fresh.Apply(ctx, v.ID, Gesture{Type: GestureMove, PieceID: 1, X: 9, Y: 9})
	assert.ErrorIs(t, err, tangram.ErrPieceLocked)

	pv, err := gm.CreatePairs(ctx, "p1")
	require.NoError(t, err)
	restored, err := fresh.View(ctx, pv.ID)
	require.NoError(t, err)
	assert.Equal(t, pv.Pairs.Balls, restored.Pairs.Balls)
}

func TestEndSession(t *testing.T) {
	mr, rdb := newRedis(t)
	gm, _ := newTestManager(t, nil, rdb)
	ctx := context.Background()
	v, _ := gm.CreateTangram(ctx, "p1", 1)

	require.NoError(t, gm.EndSession(ctx, v.ID))
	assert.False(t, mr.Exists(rkeys.SnapshotKey(v.ID)))
	assert.Equal(t, 0, gm.ActiveSessionCount())

	_, err := gm.GetSession(ctx, v.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, gm.EndSession(ctx, v.ID), ErrSessionNotFound)
}

func TestCompletedLevelIsRecorded(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	gm, clock := newTestManager(t, sqlx.NewDb(raw, "postgres"), nil)
	ctx := context.Background()
	v, _ := gm.CreateTangram(ctx, "p1", 1)
	assert.Equal(t, 1, v.Attempt)

	mock.ExpectExec("INSERT INTO level_runs").
		WithArgs(v.ID, 1, "p1", 1, 42.0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO level_runs").
		WithArgs(v.ID, 2, "p1", 1, 10.0).
		WillReturnResult(sqlmock.NewResult(2, 1))

	clock.Advance(42 * time.Second)
	for _, g := range solveLevelOne {
		_, err := gm.Apply(ctx, v.ID, g)
		require.NoError(t, err)
	}
	// gestures after completion do not record the attempt again
	_, err = gm.Apply(ctx, v.ID, Gesture{Type: GestureRelease, PieceID: 1})
	assert.ErrorIs(t, err, tangram.ErrNotPlaying)

	_, err = gm.Apply(ctx, v.ID, Gesture{Type: GestureReset})
	require.NoError(t, err)
	clock.Advance(10 * time.Second)
	for _, g := range solveLevelOne {
		_, err := gm.Apply(ctx, v.ID, g)
		require.NoError(t, err)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 2.0, testutil.ToFloat64(gm.metrics.levelsCompleted.WithLabelValues("1")))
}

func TestResetClearsFinished(t *testing.T) {
	_, rdb := newRedis(t)
	gm, _ := newTestManager(t, nil, rdb)
	ctx := context.Background()
	v, err := gm.CreateTangram(ctx, "p1", 1)
	require.NoError(t, err)

	for _, g := range solveLevelOne {
		_, err := gm.Apply(ctx, v.ID, g)
		require.NoError(t, err)
	}
	view, err := gm.View(ctx, v.ID)
	require.NoError(t, err)
	require.True(t, view.Finished)

	out, err := gm.Apply(ctx, v.ID, Gesture{Type: GestureReset})
	require.NoError(t, err)
	assert.False(t, out.Completed)

	view, err = gm.View(ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, view.Finished)
	assert.Equal(t, 2, view.Attempt)
	assert.Equal(t, tangram.StatusPlaying, view.Tangram.Status)

	// the Redis snapshot agrees with memory after a restart
	restarted, _ := newTestManager(t, nil, rdb)
	view, err = restarted.View(ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, view.Finished)
	assert.Equal(t, 2, view.Attempt)
}

func TestPairsResetAfterGameOverReopensBoard(t *testing.T) {
	gm, _ := newTestManager(t, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v, err := gm.CreatePairs(ctx, "p1", pairs.WithMistakeRate(0), pairs.WithWinningScore(2))
	require.NoError(t, err)
	gm.RunComputer(ctx, v.ID, time.Millisecond, nil)

	view, err := gm.View(ctx, v.ID)
	require.NoError(t, err)
	require.True(t, view.Finished)

	_, err = gm.Apply(ctx, v.ID, Gesture{Type: GestureReset})
	require.NoError(t, err)
	view, err = gm.View(ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, view.Finished)

	var picks int
	gm.RunComputer(ctx, v.ID, time.Millisecond, func(*Outcome) { picks++ })
	assert.Equal(t, 2, picks)
	assert.Equal(t, 4.0, testutil.ToFloat64(gm.metrics.picks.WithLabelValues(string(pairs.SideRight), "true")))
}

func TestRunComputerPlaysRightSide(t *testing.T) {
	gm, _ := newTestManager(t, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v, err := gm.CreatePairs(ctx, "p1", pairs.WithMistakeRate(0), pairs.WithWinningScore(3))
	require.NoError(t, err)

	var picks []*Outcome
	gm.RunComputer(ctx, v.ID, time.Millisecond, func(o *Outcome) { picks = append(picks, o) })

	require.Len(t, picks, 3)
	for _, p := range picks {
		assert.Equal(t, pairs.SideRight, p.Pick.Side)
		assert.True(t, p.Pick.Correct)
	}
	assert.True(t, picks[2].Completed)
	assert.Equal(t, pairs.SideRight, picks[2].Pick.Winner)
}

func answerCorrectly(t *testing.T, gm *GameManager, id string) *Outcome {
	t.Helper()
	v, err := gm.View(context.Background(), id)
	require.NoError(t, err)
	choice := -1
	for i, c := range v.Quiz.Question.Choices {
		if c == v.Quiz.Question.Answer {
			choice = i
		}
	}
	require.GreaterOrEqual(t, choice, 0)
	out, err := gm.Apply(context.Background(), id, Gesture{Type: GestureAnswer, Choice: choice})
	require.NoError(t, err)
	return out
}

func TestQuizSessionIsRecorded(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer raw.Close()
	_, rdb := newRedis(t)
	gm, clock := newTestManager(t, sqlx.NewDb(raw, "postgres"), rdb)
	ctx := context.Background()

	v, err := gm.CreateQuiz(ctx, "p1", quiz.WithOperation(quiz.Multiplication), quiz.WithQuestionCount(2))
	require.NoError(t, err)
	assert.Equal(t, KindQuiz, v.Kind)
	require.NotNil(t, v.Quiz)
	assert.Equal(t, "×", v.Quiz.Question.Symbol)

	_, err = gm.Apply(ctx, v.ID, Gesture{Type: GestureSelectBall, BallID: 1})
	assert.ErrorIs(t, err, ErrWrongGame)
	_, err = gm.Apply(ctx, v.ID, Gesture{Type: GestureAnswer, Choice: 9})
	assert.ErrorIs(t, err, quiz.ErrUnknownChoice)

	mock.ExpectExec("INSERT INTO quiz_runs").
		WithArgs(v.ID, 1, "p1", "multiplication", "whole", 2, 2, 7.0).
		WillReturnResult(sqlmock.NewResult(1, 1))

	clock.Advance(7 * time.Second)
	out := answerCorrectly(t, gm, v.ID)
	require.NotNil(t, out.Answer)
	assert.False(t, out.Completed)

	// survives a restart between questions
	restarted, _ := newTestManager(t, sqlx.NewDb(raw, "postgres"), rdb)
	restarted.metrics = gm.metrics
	out = answerCorrectly(t, restarted, v.ID)
	assert.True(t, out.Completed)

	view, err := restarted.View(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, view.Finished)
	assert.Equal(t, 2*quiz.PointsPerGoal, view.Quiz.Points)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 2.0, testutil.ToFloat64(gm.metrics.answers.WithLabelValues("multiplication", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(gm.metrics.quizzesFinished.WithLabelValues("multiplication")))
}

func TestQuizPausesWhenIdle(t *testing.T) {
	gm, clock := newTestManager(t, nil, nil)
	ctx := context.Background()
	v, err := gm.CreateQuiz(ctx, "p1")
	require.NoError(t, err)

	clock.Advance(3 * time.Second)
	ok, err := gm.PauseIdle(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = gm.Apply(ctx, v.ID, Gesture{Type: GestureAnswer})
	assert.ErrorIs(t, err, quiz.ErrPaused)

	clock.Advance(time.Minute)
	view, err := gm.View(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, view.Quiz.Paused)
	assert.Equal(t, 3.0, view.Quiz.ElapsedSecs)
}
