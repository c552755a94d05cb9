package game

import (
	"context"
	"log"
	"strconv"

	"github.com/playmatatu/minigames/internal/models"
	"github.com/playmatatu/minigames/internal/pairs"
)

// finish counts a finished game and writes its result row. The caller holds s.mu.
func (gm *GameManager) finish(ctx context.Context, s *Session) {
	v := s.view()
	switch s.Kind {
	case KindTangram:
		gm.metrics.levelsCompleted.WithLabelValues(strconv.Itoa(v.LevelID)).Inc()
		gm.RecordLevelRun(ctx, models.LevelRun{
			SessionID:      v.ID,
			Attempt:        v.Attempt,
			PlayerID:       v.PlayerID,
			LevelID:        v.LevelID,
			ElapsedSeconds: v.Tangram.ElapsedSeconds,
		})
	case KindPairs:
		gm.RecordPairGame(ctx, models.PairGame{
			SessionID:      v.ID,
			Attempt:        v.Attempt,
			PlayerID:       v.PlayerID,
			Winner:         string(v.Pairs.Winner),
			LeftScore:      v.Pairs.Scores[pairs.SideLeft],
			RightScore:     v.Pairs.Scores[pairs.SideRight],
			ElapsedSeconds: v.Pairs.ElapsedSecs,
		})
	case KindQuiz:
		gm.metrics.quizzesFinished.WithLabelValues(string(v.Quiz.Operation)).Inc()
		gm.RecordQuizRun(ctx, models.QuizRun{
			SessionID:      v.ID,
			Attempt:        v.Attempt,
			PlayerID:       v.PlayerID,
			Operation:      string(v.Quiz.Operation),
			NumberType:     string(v.Quiz.NumberType),
			Score:          v.Quiz.Score,
			Questions:      v.Quiz.QuestionCount,
			ElapsedSeconds: v.Quiz.ElapsedSecs,
		})
	}
	log.Printf("[SESSION] %s session %s finished", s.Kind, s.ID)
}

// RecordLevelRun stores a completed tangram level. Each reset of a session starts a new
// attempt; repeats of the same attempt are ignored.
func (gm *GameManager) RecordLevelRun(ctx context.Context, run models.LevelRun) {
	if gm == nil || gm.db == nil {
		return
	}
	_, err := gm.db.ExecContext(ctx,
		`INSERT INTO level_runs (session_id, attempt, player_id, level_id, elapsed_seconds, completed_at) VALUES ($1,$2,$3,$4,$5,NOW()) ON CONFLICT (session_id, attempt) DO NOTHING`,
		run.SessionID, run.Attempt, run.PlayerID, run.LevelID, run.ElapsedSeconds,
	)
	if err != nil {
		log.Printf("[DB] Failed to record level run for session %s: %v", run.SessionID, err)
	}
}

// RecordPairGame stores the final score of a pairs game.
func (gm *GameManager) RecordPairGame(ctx context.Context, g models.PairGame) {
	if gm == nil || gm.db == nil {
		return
	}
	_, err := gm.db.ExecContext(ctx,
		`INSERT INTO pair_games (session_id, attempt, player_id, winner, left_score, right_score, elapsed_seconds, completed_at) VALUES ($1,$2,$3,$4,$5,$6,$7,NOW()) ON CONFLICT (session_id, attempt) DO NOTHING`,
		g.SessionID, g.Attempt, g.PlayerID, g.Winner, g.LeftScore, g.RightScore, g.ElapsedSeconds,
	)
	if err != nil {
		log.Printf("[DB] Failed to record pairs game for session %s: %v", g.SessionID, err)
	}
}

// RecordQuizRun stores the result of a finished quiz.
func (gm *GameManager) RecordQuizRun(ctx context.Context, run models.QuizRun) {
	if gm == nil || gm.db == nil {
		return
	}
	_, err := gm.db.ExecContext(ctx,
		`INSERT INTO quiz_runs (session_id, attempt, player_id, operation, number_type, score, questions, elapsed_seconds, completed_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW()) ON CONFLICT (session_id, attempt) DO NOTHING`,
		run.SessionID, run.Attempt, run.PlayerID, run.Operation, run.NumberType, run.Score, run.Questions, run.ElapsedSeconds,
	)
	if err != nil {
		log.Printf("[DB] Failed to record quiz for session %s: %v", run.SessionID, err)
	}
}

// BestRuns returns the fastest completions of a level.
func (gm *GameManager) BestRuns(ctx context.Context, levelID, limit int) ([]models.LevelRun, error) {
	if gm == nil || gm.db == nil {
		return []models.LevelRun{}, nil
	}
	var runs []models.LevelRun
	err := gm.db.SelectContext(ctx, &runs, `
		SELECT id, session_id, attempt, player_id, level_id, elapsed_seconds, completed_at
		FROM level_runs
		WHERE level_id = $1
		ORDER BY elapsed_seconds ASC
		LIMIT $2
	`, levelID, limit)
	return runs, err
}
