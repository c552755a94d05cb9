package quiz

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(seed int64, opts ...Option) *Quiz {
	return NewQuiz(rand.New(rand.NewSource(seed)), opts...)
}

func correctChoice(t *testing.T, q *Quiz) int {
	t.Helper()
	question := q.Question()
	for i, v := range question.Choices {
		if v == question.Answer {
			return i
		}
	}
	t.Fatalf("answer %d missing from %v", question.Answer, question.Choices)
	return -1
}

func wrongChoice(t *testing.T, q *Quiz) int {
	t.Helper()
	question := q.Question()
	for i, v := range question.Choices {
		if v != question.Answer {
			return i
		}
	}
	t.Fatalf("no wrong choice in %v", question.Choices)
	return -1
}

func TestParse(t *testing.T) {
	op, err := ParseOperation("")
	require.NoError(t, err)
	assert.Equal(t, Addition, op)
	op, err = ParseOperation("division")
	require.NoError(t, err)
	assert.Equal(t, Division, op)
	_, err = ParseOperation("modulo")
	assert.ErrorIs(t, err, ErrUnknownOperation)

	nt, err := ParseNumberType("")
	require.NoError(t, err)
	assert.Equal(t, Whole, nt)
	_, err = ParseNumberType("real")
	assert.ErrorIs(t, err, ErrUnknownNumberType)
}

func TestQuestionsHaveThreeDistinctChoices(t *testing.T) {
	ops := []Operation{Addition, Subtraction, Multiplication, Division}
	types := []NumberType{Whole, Integer}
	for _, op := range ops {
		for _, nt := range types {
			for seed := int64(1); seed <= 40; seed++ {
				q := seeded(seed, WithOperation(op), WithNumberType(nt))
				question := q.Question()

				require.Len(t, question.Choices, ChoiceCount)
				assert.Contains(t, question.Choices, question.Answer)
				seen := map[int]bool{}
				for _, c := range question.Choices {
					assert.False(t, seen[c], "%s/%s seed %d repeats %d", op, nt, seed, c)
					seen[c] = true
				}
				assert.Equal(t, op.Symbol(), question.Symbol)
			}
		}
	}
}

func TestOperandRanges(t *testing.T) {
	for seed := int64(1); seed <= 100; seed++ {
		q := seeded(seed, WithOperation(Addition))
		question := q.Question()
		assert.GreaterOrEqual(t, question.Num1, 1)
		assert.LessOrEqual(t, question.Num1, 10)
		assert.Equal(t, question.Num1+question.Num2, question.Answer)

		q = seeded(seed, WithOperation(Multiplication), WithNumberType(Integer))
		question = q.Question()
		assert.GreaterOrEqual(t, question.Num1, -10)
		assert.LessOrEqual(t, question.Num2, 10)
		assert.Equal(t, question.Num1*question.Num2, question.Answer)
	}
}

func TestWholeSubtractionNeverNegative(t *testing.T) {
	for seed := int64(1); seed <= 100; seed++ {
		question := seeded(seed, WithOperation(Subtraction)).Question()
		assert.GreaterOrEqual(t, question.Answer, 0, "seed %d: %d - %d", seed, question.Num1, question.Num2)
		assert.Equal(t, question.Num1-question.Num2, question.Answer)
	}
}

func TestDivisionIsExact(t *testing.T) {
	sawNegative := false
	for seed := int64(1); seed <= 200; seed++ {
		question := seeded(seed, WithOperation(Division), WithNumberType(Integer)).Question()
		require.NotZero(t, question.Num2)
		assert.Equal(t, 0, question.Num1%question.Num2)
		assert.Equal(t, question.Num1/question.Num2, question.Answer)
		assert.GreaterOrEqual(t, question.Num2, 1)
		assert.LessOrEqual(t, question.Num2, 9)
		if question.Answer < 0 {
			sawNegative = true
		}

		whole := seeded(seed, WithOperation(Division)).Question()
		assert.Positive(t, whole.Answer)
	}
	assert.True(t, sawNegative)
}

func TestSameSeedSameQuestions(t *testing.T) {
	a := seeded(7, WithOperation(Multiplication))
	b := seeded(7, WithOperation(Multiplication))
	for i := 0; i < DefaultQuestionCount; i++ {
		require.Equal(t, a.Question(), b.Question())
		_, err := a.Answer(0)
		require.NoError(t, err)
		_, err = b.Answer(0)
		require.NoError(t, err)
	}
}

func TestAnswerScoresAndFinishes(t *testing.T) {
	q := seeded(3, WithQuestionCount(3))

	res, err := q.Answer(correctChoice(t, q))
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, 0, res.Question)
	assert.Equal(t, 1, res.Score)
	assert.False(t, res.Finished)
	assert.Equal(t, 1, q.Index())

	res, err = q.Answer(wrongChoice(t, q))
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.NotEqual(t, res.Answer, res.Value)
	assert.Equal(t, 1, res.Misses)

	res, err = q.Answer(correctChoice(t, q))
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, 2*PointsPerGoal, q.Points())
	assert.Equal(t, 2, q.Index())

	_, err = q.Answer(0)
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestAnswerRejectsUnknownChoice(t *testing.T) {
	q := seeded(1)
	_, err := q.Answer(ChoiceCount)
	assert.ErrorIs(t, err, ErrUnknownChoice)
	_, err = q.Answer(-1)
	assert.ErrorIs(t, err, ErrUnknownChoice)
	assert.Equal(t, 0, q.Index())
	assert.Equal(t, 0, q.Misses())
}

func TestPauseStopsClockAndAnswers(t *testing.T) {
	q := seeded(1)
	q.Tick(2 * time.Second)
	q.Pause()
	q.Tick(5 * time.Second)
	assert.Equal(t, 2*time.Second, q.Elapsed())

	_, err := q.Answer(0)
	assert.ErrorIs(t, err, ErrPaused)

	q.Resume()
	_, err = q.Answer(0)
	assert.NoError(t, err)
}

func TestResetStartsOver(t *testing.T) {
	q := seeded(5, WithQuestionCount(1), WithOperation(Subtraction))
	_, err := q.Answer(correctChoice(t, q))
	require.NoError(t, err)
	require.True(t, q.Finished())

	q.Reset()
	assert.False(t, q.Finished())
	assert.Equal(t, 0, q.Score())
	assert.Equal(t, 0, q.Index())
	assert.Equal(t, Subtraction, q.Operation())
	assert.Zero(t, q.Elapsed())
}

func TestSnapshotRestore(t *testing.T) {
	q := seeded(11, WithOperation(Division), WithNumberType(Integer), WithQuestionCount(4))
	_, err := q.Answer(correctChoice(t, q))
	require.NoError(t, err)
	q.Tick(3 * time.Second)
	q.Pause()

	snap := q.Snapshot()
	assert.Equal(t, PointsPerGoal, snap.Points)

	restored := RestoreQuiz(nil, snap)
	assert.Equal(t, snap, restored.Snapshot())
	assert.Equal(t, q.Question(), restored.Question())

	restored.Resume()
	_, err = restored.Answer(correctChoice(t, restored))
	require.NoError(t, err)
	assert.Equal(t, 2, restored.Score())
}
