// Package pairs implements the number-pairing board: a target sum is shown and each side
// races to pick two balls that add up to it.
package pairs

import (
	"errors"
	"math/rand"
	"sort"
	"time"
)

// Errors
var (
	ErrGameOver    = errors.New("game is over")
	ErrPaused      = errors.New("game is paused")
	ErrUnknownBall = errors.New("ball not on the board")
	ErrUnknownSide = errors.New("unknown side")
	ErrBallTaken   = errors.New("ball is selected by the other side")
	ErrNoPair      = errors.New("no free pair on the board")
)

// Side is one of the two players at the board.
type Side string

const (
	SideLeft  Side = "left"  // human
	SideRight Side = "right" // computer
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

func (s Side) valid() bool { return s == SideLeft || s == SideRight }

const (
	DefaultBallCount    = 12
	DefaultMinTarget    = 10
	DefaultMaxTarget    = 18
	DefaultWinningScore = 15
	DefaultRetargetStep = 5
	DefaultMistakeRate  = 0.2
	maxGuaranteedPairs  = 4
)

// Ball is one numbered ball.
type Ball struct {
	ID         int  `json:"id"`
	Value      int  `json:"value"`
	SelectedBy Side `json:"selected_by,omitempty"`
}

// PickResult describes a resolved two-ball pick.
type PickResult struct {
	Side       Side   `json:"side"`
	BallIDs    [2]int `json:"ball_ids"`
	Sum        int    `json:"sum"`
	Target     int    `json:"target"`
	Correct    bool   `json:"correct"`
	Scorer     Side   `json:"scorer"`
	Retargeted bool   `json:"retargeted"`
	Winner     Side   `json:"winner,omitempty"`
}

// Option configures a Board.
type Option func(*Board)

func WithBallCount(n int) Option {
	return func(b *Board) {
		if n >= 2 {
			b.ballCount = n
		}
	}
}

func WithWinningScore(n int) Option {
	return func(b *Board) {
		if n > 0 {
			b.winningScore = n
		}
	}
}

// WithMistakeRate sets how often the computer deliberately picks a wrong partner.
func WithMistakeRate(p float64) Option {
	return func(b *Board) {
		if p >= 0 && p <= 1 {
			b.mistakeRate = p
		}
	}
}

// WithTargetRange bounds the drawn target sums.
func WithTargetRange(min, max int) Option {
	return func(b *Board) {
		if min >= 2 && max >= min {
			b.minTarget, b.maxTarget = min, max
		}
	}
}

// Board is the state of one pairs game. Not safe for concurrent use.
type Board struct {
	rng          *rand.Rand
	ballCount    int
	minTarget    int
	maxTarget    int
	winningScore int
	mistakeRate  float64

	target       int
	balls        []Ball
	correctPair  [2]int
	scores       map[Side]int
	lastRetarget map[Side]int
	selections   map[Side][]int
	recent       map[[2]int]bool
	winner       Side
	paused       bool
	elapsed      time.Duration
}

// NewBoard deals a fresh board. A nil rng is seeded from the clock.
func NewBoard(rng *rand.Rand, opts ...Option) *Board {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	b := &Board{
		rng:          rng,
		ballCount:    DefaultBallCount,
		minTarget:    DefaultMinTarget,
		maxTarget:    DefaultMaxTarget,
		winningScore: DefaultWinningScore,
		mistakeRate:  DefaultMistakeRate,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.Reset()
	return b
}

// Reset clears scores and deals a new round.
func (b *Board) Reset() {
	b.scores = map[Side]int{SideLeft: 0, SideRight: 0}
	b.lastRetarget = map[Side]int{SideLeft: 0, SideRight: 0}
	b.winner = ""
	b.paused = false
	b.elapsed = 0
	b.balls = make([]Ball, b.ballCount)
	for i := range b.balls {
		b.balls[i].ID = i + 1
	}
	b.deal()
}

func (b *Board) Target() int            { return b.target }
func (b *Board) Score(s Side) int       { return b.scores[s] }
func (b *Board) Winner() Side           { return b.winner }
func (b *Board) Over() bool             { return b.winner != "" }
func (b *Board) Paused() bool           { return b.paused }
func (b *Board) Elapsed() time.Duration { return b.elapsed }

// CorrectPair is the hint pair guaranteed to sum to the target.
func (b *Board) CorrectPair() [2]int { return b.correctPair }

// Balls returns a copy of the balls in id order.
func (b *Board) Balls() []Ball {
	out := make([]Ball, len(b.balls))
	copy(out, b.balls)
	return out
}

// Pause stops the clock and rejects picks until Resume.
func (b *Board) Pause() {
	if !b.Over() {
		b.paused = true
	}
}

func (b *Board) Resume() { b.paused = false }

// Tick advances the round clock.
func (b *Board) Tick(d time.Duration) {
	if !b.paused && !b.Over() && d > 0 {
		b.elapsed += d
	}
}

// Select toggles a ball for side. The second selected ball resolves the pick.
func (b *Board) Select(side Side, ballID int) (*PickResult, error) {
	if err := b.playable(); err != nil {
		return nil, err
	}
	if !side.valid() {
		return nil, ErrUnknownSide
	}
	idx := b.index(ballID)
	if idx < 0 {
		return nil, ErrUnknownBall
	}

	switch b.balls[idx].SelectedBy {
	case side:
		b.balls[idx].SelectedBy = ""
		b.selections[side] = remove(b.selections[side], ballID)
		return nil, nil
	case side.Opponent():
		return nil, ErrBallTaken
	}

	b.balls[idx].SelectedBy = side
	b.selections[side] = append(b.selections[side], ballID)
	if len(b.selections[side]) < 2 {
		return nil, nil
	}
	res := b.resolve(side, b.selections[side][0], b.selections[side][1])
	return &res, nil
}

// ComputerPick plays a full turn for the right side. It goes for the hint pair when the
// left side has not touched it, and slips to a wrong partner at the configured rate.
func (b *Board) ComputerPick() (PickResult, error) {
	if err := b.playable(); err != nil {
		return PickResult{}, err
	}
	b.clearSelection(SideRight)

	first, second, ok := b.computerPair()
	if !ok {
		return PickResult{}, ErrNoPair
	}
	if b.rng.Float64() < b.mistakeRate {
		if wrong, ok := b.wrongPartner(first); ok {
			second = wrong
		}
	}
	b.balls[b.index(first)].SelectedBy = SideRight
	b.balls[b.index(second)].SelectedBy = SideRight
	return b.resolve(SideRight, first, second), nil
}

func (b *Board) computerPair() (int, int, bool) {
	a, c := b.correctPair[0], b.correctPair[1]
	switch {
	case b.free(a) && b.free(c) && b.valueOf(a)+b.valueOf(c) == b.target:
		return a, c, true
	case b.free(a):
		if partner, ok := b.partner(a); ok {
			return a, partner, true
		}
	case b.free(c):
		if partner, ok := b.partner(c); ok {
			return c, partner, true
		}
	}
	for i := range b.balls {
		for j := i + 1; j < len(b.balls); j++ {
			x, y := b.balls[i], b.balls[j]
			if x.Value+y.Value == b.target && b.free(x.ID) && b.free(y.ID) {
				return x.ID, y.ID, true
			}
		}
	}
	return 0, 0, false
}

func (b *Board) partner(id int) (int, bool) {
	need := b.target - b.valueOf(id)
	for _, ball := range b.balls {
		if ball.ID != id && ball.Value == need && b.free(ball.ID) {
			return ball.ID, true
		}
	}
	return 0, false
}

func (b *Board) wrongPartner(id int) (int, bool) {
	need := b.target - b.valueOf(id)
	for _, ball := range b.balls {
		if ball.ID != id && ball.Value != need && b.free(ball.ID) {
			return ball.ID, true
		}
	}
	return 0, false
}

// free reports whether the human side has left the ball alone.
func (b *Board) free(id int) bool {
	idx := b.index(id)
	return idx >= 0 && b.balls[idx].SelectedBy != SideLeft
}

func (b *Board) resolve(side Side, first, second int) PickResult {
	sum := b.valueOf(first) + b.valueOf(second)
	res := PickResult{
		Side:    side,
		BallIDs: [2]int{first, second},
		Sum:     sum,
		Target:  b.target,
		Correct: sum == b.target,
	}
	res.Scorer = side
	if !res.Correct {
		res.Scorer = side.Opponent()
	}
	b.scores[res.Scorer]++
	b.clearSelection(side)
	b.replace(first, second)

	if b.scores[res.Scorer] >= b.winningScore {
		b.winner = res.Scorer
		res.Winner = b.winner
		b.clearSelection(side.Opponent())
		return res
	}
	if b.dueRetarget() {
		b.retarget()
		res.Retargeted = true
	}
	return res
}

// dueRetarget fires once per side each time its score lands on a multiple of the step.
func (b *Board) dueRetarget() bool {
	due := false
	for _, s := range []Side{SideLeft, SideRight} {
		score := b.scores[s]
		if score > 0 && score%DefaultRetargetStep == 0 && b.lastRetarget[s] != score {
			b.lastRetarget[s] = score
			due = true
		}
	}
	return due
}

func (b *Board) retarget() {
	b.deal()
}

// deal draws a target and fills every ball, planting the guaranteed pairs.
func (b *Board) deal() {
	b.target = b.minTarget + b.rng.Intn(b.maxTarget-b.minTarget+1)
	b.recent = make(map[[2]int]bool)
	b.selections = map[Side][]int{}

	for i := range b.balls {
		b.balls[i].Value = b.randomValue()
		b.balls[i].SelectedBy = ""
	}
	idxs := b.rng.Perm(len(b.balls))
	pairs := min(maxGuaranteedPairs, len(b.balls)/2)
	for k := 0; k < pairs; k++ {
		va, vb := b.varietyPair()
		b.balls[idxs[2*k]].Value = b.clamp(va)
		b.balls[idxs[2*k+1]].Value = b.clamp(vb)
	}

	var hints [][2]int
	for i := range b.balls {
		for j := i + 1; j < len(b.balls); j++ {
			if b.balls[i].Value+b.balls[j].Value == b.target {
				hints = append(hints, [2]int{b.balls[i].ID, b.balls[j].ID})
			}
		}
	}
	if len(hints) == 0 {
		b.correctPair = [2]int{b.balls[0].ID, b.balls[1].ID}
		return
	}
	b.correctPair = hints[b.rng.Intn(len(hints))]
}

// replace gives two picked balls a fresh pair of values summing to the target.
func (b *Board) replace(first, second int) {
	va, vb := b.varietyPair()
	if b.rng.Intn(2) == 1 {
		va, vb = vb, va
	}
	i, j := b.index(first), b.index(second)
	b.balls[i].Value, b.balls[i].SelectedBy = b.clamp(va), ""
	b.balls[j].Value, b.balls[j].SelectedBy = b.clamp(vb), ""
	b.correctPair = [2]int{first, second}
}

// varietyPair draws an (a, b) combo for the target, skipping combos already handed out
// until every combo has been used once.
func (b *Board) varietyPair() (int, int) {
	combos := Combos(b.target)
	if len(combos) == 0 {
		return 1, max(1, b.target-1)
	}
	var pool [][2]int
	for _, c := range combos {
		if !b.recent[c] {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		pool = combos
	}
	choice := pool[b.rng.Intn(len(pool))]
	b.recent[choice] = true
	if len(b.recent) >= len(combos) {
		b.recent = map[[2]int]bool{choice: true}
	}
	return choice[0], choice[1]
}

// Combos lists the distinct unordered positive pairs summing to target, smaller value first.
func Combos(target int) [][2]int {
	var out [][2]int
	for a := 1; a <= target/2; a++ {
		out = append(out, [2]int{a, target - a})
	}
	return out
}

func (b *Board) randomValue() int {
	return 1 + b.rng.Intn(max(1, b.target-1))
}

func (b *Board) clamp(v int) int {
	return min(max(v, 1), max(1, b.target-1))
}

func (b *Board) playable() error {
	if b.Over() {
		return ErrGameOver
	}
	if b.paused {
		return ErrPaused
	}
	return nil
}

func (b *Board) clearSelection(side Side) {
	for _, id := range b.selections[side] {
		if idx := b.index(id); idx >= 0 && b.balls[idx].SelectedBy == side {
			b.balls[idx].SelectedBy = ""
		}
	}
	b.selections[side] = nil
}

func (b *Board) index(id int) int {
	for i := range b.balls {
		if b.balls[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) valueOf(id int) int {
	if idx := b.index(id); idx >= 0 {
		return b.balls[idx].Value
	}
	return 0
}

func remove(ids []int, id int) []int {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Snapshot is a serialisable copy of a board.
type Snapshot struct {
	Target       int          `json:"target"`
	Balls        []Ball       `json:"balls"`
	CorrectPair  [2]int       `json:"correct_pair"`
	Scores       map[Side]int `json:"scores"`
	LastRetarget map[Side]int `json:"last_retarget"`
	Winner       Side         `json:"winner,omitempty"`
	Paused       bool         `json:"paused"`
	ElapsedSecs  float64      `json:"elapsed_seconds"`
	WinningScore int          `json:"winning_score"`
}

// Snapshot copies the board state.
func (b *Board) Snapshot() Snapshot {
	return Snapshot{
		Target:       b.target,
		Balls:        b.Balls(),
		CorrectPair:  b.correctPair,
		Scores:       map[Side]int{SideLeft: b.scores[SideLeft], SideRight: b.scores[SideRight]},
		LastRetarget: map[Side]int{SideLeft: b.lastRetarget[SideLeft], SideRight: b.lastRetarget[SideRight]},
		Winner:       b.winner,
		Paused:       b.paused,
		ElapsedSecs:  b.elapsed.Seconds(),
		WinningScore: b.winningScore,
	}
}

// RestoreBoard rebuilds a board from a snapshot. Selections are rebuilt from the balls.
func RestoreBoard(rng *rand.Rand, snap Snapshot, opts ...Option) *Board {
	b := NewBoard(rng, opts...)
	if snap.WinningScore > 0 {
		b.winningScore = snap.WinningScore
	}
	b.target = snap.Target
	b.balls = make([]Ball, len(snap.Balls))
	copy(b.balls, snap.Balls)
	sort.Slice(b.balls, func(i, j int) bool { return b.balls[i].ID < b.balls[j].ID })
	b.correctPair = snap.CorrectPair
	b.scores = map[Side]int{SideLeft: snap.Scores[SideLeft], SideRight: snap.Scores[SideRight]}
	b.lastRetarget = map[Side]int{SideLeft: snap.LastRetarget[SideLeft], SideRight: snap.LastRetarget[SideRight]}
	b.winner = snap.Winner
	b.paused = snap.Paused
	b.elapsed = time.Duration(snap.ElapsedSecs * float64(time.Second))
	b.selections = map[Side][]int{}
	b.recent = make(map[[2]int]bool)
	for _, ball := range b.balls {
		if ball.SelectedBy != "" {
			b.selections[ball.SelectedBy] = append(b.selections[ball.SelectedBy], ball.ID)
		}
	}
	return b
}
