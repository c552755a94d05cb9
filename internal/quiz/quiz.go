// Package quiz implements the soccer arithmetic quiz: a fixed run of questions, each answered
// by kicking the ball at one of three goals that carry candidate answers.
package quiz

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Errors
var (
	ErrGameOver          = errors.New("quiz is over")
	ErrPaused            = errors.New("quiz is paused")
	ErrUnknownChoice     = errors.New("no goal with that index")
	ErrUnknownOperation  = errors.New("unknown operation")
	ErrUnknownNumberType = errors.New("unknown number type")
)

// Operation is the arithmetic drilled by a quiz.
type Operation string

const (
	Addition       Operation = "addition"
	Subtraction    Operation = "subtraction"
	Multiplication Operation = "multiplication"
	Division       Operation = "division"
)

// Symbol is the operator shown between the operands.
func (o Operation) Symbol() string {
	switch o {
	case Subtraction:
		return "-"
	case Multiplication:
		return "×"
	case Division:
		return "÷"
	}
	return "+"
}

// NumberType selects the operand range: whole numbers are 1..10, integers -10..10.
type NumberType string

const (
	Whole   NumberType = "whole"
	Integer NumberType = "integer"
)

// ParseOperation validates a client supplied operation. Empty means addition.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case "":
		return Addition, nil
	case Addition, Subtraction, Multiplication, Division:
		return op, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
}

// ParseNumberType validates a client supplied number type. Empty means whole numbers.
func ParseNumberType(s string) (NumberType, error) {
	switch nt := NumberType(s); nt {
	case "":
		return Whole, nil
	case Whole, Integer:
		return nt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownNumberType, s)
}

const (
	DefaultQuestionCount = 10
	ChoiceCount          = 3
	PointsPerGoal        = 25
	maxOperand           = 10
	minWhole             = 1
	minInteger           = -10
)

// Question is one sum with its candidate answers in goal order.
type Question struct {
	Num1    int    `json:"num1"`
	Num2    int    `json:"num2"`
	Answer  int    `json:"answer"`
	Choices []int  `json:"choices"`
	Symbol  string `json:"symbol"`
}

// AnswerResult describes one kick.
type AnswerResult struct {
	Question int  `json:"question"` // zero based
	Choice   int  `json:"choice"`
	Value    int  `json:"value"`
	Answer   int  `json:"answer"`
	Correct  bool `json:"correct"`
	Score    int  `json:"score"`
	Misses   int  `json:"misses"`
	Finished bool `json:"finished"`
}

// Option configures a Quiz.
type Option func(*Quiz)

func WithOperation(op Operation) Option {
	return func(q *Quiz) {
		if _, err := ParseOperation(string(op)); err == nil && op != "" {
			q.op = op
		}
	}
}

func WithNumberType(nt NumberType) Option {
	return func(q *Quiz) {
		if _, err := ParseNumberType(string(nt)); err == nil && nt != "" {
			q.numberType = nt
		}
	}
}

func WithQuestionCount(n int) Option {
	return func(q *Quiz) {
		if n > 0 {
			q.questionCount = n
		}
	}
}

// Quiz is the state of one match. Not safe for concurrent use.
type Quiz struct {
	rng           *rand.Rand
	op            Operation
	numberType    NumberType
	questionCount int

	index    int
	question Question
	score    int
	misses   int
	paused   bool
	finished bool
	elapsed  time.Duration
}

// NewQuiz starts a match on its first question. A nil rng is seeded from the clock.
func NewQuiz(rng *rand.Rand, opts ...Option) *Quiz {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	q := &Quiz{
		rng:           rng,
		op:            Addition,
		numberType:    Whole,
		questionCount: DefaultQuestionCount,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.Reset()
	return q
}

// Reset restarts the match with the same settings.
func (q *Quiz) Reset() {
	q.index = 0
	q.score = 0
	q.misses = 0
	q.paused = false
	q.finished = false
	q.elapsed = 0
	q.question = q.generate()
}

func (q *Quiz) Operation() Operation   { return q.op }
func (q *Quiz) NumberType() NumberType { return q.numberType }
func (q *Quiz) Question() Question     { return q.question.clone() }
func (q *Quiz) Index() int             { return q.index }
func (q *Quiz) Score() int             { return q.score }
func (q *Quiz) Misses() int            { return q.misses }
func (q *Quiz) Points() int            { return q.score * PointsPerGoal }
func (q *Quiz) Finished() bool         { return q.finished }
func (q *Quiz) Paused() bool           { return q.paused }
func (q *Quiz) Elapsed() time.Duration { return q.elapsed }
func (q *Quiz) QuestionCount() int     { return q.questionCount }

// Pause stops the clock and rejects answers until Resume.
func (q *Quiz) Pause() {
	if !q.finished {
		q.paused = true
	}
}

func (q *Quiz) Resume() { q.paused = false }

// Tick advances the match clock.
func (q *Quiz) Tick(d time.Duration) {
	if !q.paused && !q.finished && d > 0 {
		q.elapsed += d
	}
}

// Answer kicks at goal choice. The match moves to the next question, or finishes after the
// last one.
func (q *Quiz) Answer(choice int) (AnswerResult, error) {
	if q.finished {
		return AnswerResult{}, ErrGameOver
	}
	if q.paused {
		return AnswerResult{}, ErrPaused
	}
	if choice < 0 || choice >= len(q.question.Choices) {
		return AnswerResult{}, fmt.Errorf("%w: %d", ErrUnknownChoice, choice)
	}

	value := q.question.Choices[choice]
	res := AnswerResult{
		Question: q.index,
		Choice:   choice,
		Value:    value,
		Answer:   q.question.Answer,
		Correct:  value == q.question.Answer,
	}
	if res.Correct {
		q.score++
	} else {
		q.misses++
	}

	if q.index < q.questionCount-1 {
		q.index++
		q.question = q.generate()
	} else {
		q.finished = true
	}
	res.Score, res.Misses, res.Finished = q.score, q.misses, q.finished
	return res, nil
}

// generate draws a question for the configured operation. Division is built from a product
// so the answer is always a whole number.
func (q *Quiz) generate() Question {
	lo := minWhole
	if q.numberType == Integer {
		lo = minInteger
	}
	operand := func() int { return lo + q.rng.Intn(maxOperand-lo+1) }

	var n1, n2, answer int
	switch q.op {
	case Subtraction:
		n1, n2 = operand(), operand()
		if q.numberType == Whole && n1 < n2 {
			n1, n2 = n2, n1
		}
		answer = n1 - n2
	case Multiplication:
		n1, n2 = operand(), operand()
		answer = n1 * n2
	case Division:
		n2 = 1 + q.rng.Intn(maxOperand-1)
		answer = 1 + q.rng.Intn(maxOperand)
		if q.numberType == Integer && q.rng.Float64() > 0.5 {
			answer = -answer
		}
		n1 = n2 * answer
	default:
		n1, n2 = operand(), operand()
		answer = n1 + n2
	}

	return Question{
		Num1:    n1,
		Num2:    n2,
		Answer:  answer,
		Choices: q.choices(answer),
		Symbol:  q.op.Symbol(),
	}
}

// choices returns the answer plus distinct near misses, shuffled.
func (q *Quiz) choices(answer int) []int {
	spread, shift := 6, 3
	if q.op == Multiplication || q.op == Division {
		spread, shift = 10, 5
	}
	out := []int{answer}
	for len(out) < ChoiceCount {
		wrong := answer + q.rng.Intn(spread) - shift
		if !contains(out, wrong) {
			out = append(out, wrong)
		}
	}
	q.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func contains(vals []int, v int) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}

func (qu Question) clone() Question {
	qu.Choices = append([]int(nil), qu.Choices...)
	return qu
}

// Snapshot is a serialisable copy of a quiz.
type Snapshot struct {
	Operation     Operation  `json:"operation"`
	NumberType    NumberType `json:"number_type"`
	QuestionCount int        `json:"question_count"`
	Index         int        `json:"index"`
	Question      Question   `json:"question"`
	Score         int        `json:"score"`
	Misses        int        `json:"misses"`
	Points        int        `json:"points"`
	Paused        bool       `json:"paused"`
	Finished      bool       `json:"finished"`
	ElapsedSecs   float64    `json:"elapsed_seconds"`
}

// Snapshot copies the quiz state.
func (q *Quiz) Snapshot() Snapshot {
	return Snapshot{
		Operation:     q.op,
		NumberType:    q.numberType,
		QuestionCount: q.questionCount,
		Index:         q.index,
		Question:      q.question.clone(),
		Score:         q.score,
		Misses:        q.misses,
		Points:        q.Points(),
		Paused:        q.paused,
		Finished:      q.finished,
		ElapsedSecs:   q.elapsed.Seconds(),
	}
}

// RestoreQuiz rebuilds a quiz from a snapshot. The current question is kept as it was.
func RestoreQuiz(rng *rand.Rand, snap Snapshot) *Quiz {
	q := NewQuiz(rng, WithOperation(snap.Operation), WithNumberType(snap.NumberType), WithQuestionCount(snap.QuestionCount))
	q.index = snap.Index
	if len(snap.Question.Choices) > 0 {
		q.question = snap.Question.clone()
	}
	q.score = snap.Score
	q.misses = snap.Misses
	q.paused = snap.Paused
	q.finished = snap.Finished
	q.elapsed = time.Duration(snap.ElapsedSecs * float64(time.Second))
	return q
}
