package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/minigames/internal/config"
	"github.com/playmatatu/minigames/internal/levels"
	"github.com/playmatatu/minigames/internal/pairs"
	"github.com/playmatatu/minigames/internal/quiz"
	rkeys "github.com/playmatatu/minigames/internal/redis"
	"github.com/playmatatu/minigames/internal/tangram"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// GameManager holds every live session and persists them to Redis and Postgres.
type GameManager struct {
	sessions  map[string]*Session // keyed by session ID
	catalogue *levels.Catalogue
	rdb       *redis.Client // optional snapshot + idle store
	db        *sqlx.DB      // optional run history
	config    *config.Config
	metrics   *Metrics
	now       func() time.Time
	mu        sync.RWMutex
}

var (
	// Global game manager instance
	Manager *GameManager
)

// InitializeManager initializes the global game manager and registers its metrics.
func InitializeManager(db *sqlx.DB, rdb *redis.Client, cfg *config.Config, catalogue *levels.Catalogue) {
	Manager = NewGameManager(db, rdb, cfg, catalogue, NewMetrics(prometheus.DefaultRegisterer))
}

// NewGameManager creates a manager. db, rdb and metrics may be nil.
func NewGameManager(db *sqlx.DB, rdb *redis.Client, cfg *config.Config, catalogue *levels.Catalogue, metrics *Metrics) *GameManager {
	if cfg == nil {
		cfg = config.Load()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &GameManager{
		sessions:  make(map[string]*Session),
		catalogue: catalogue,
		rdb:       rdb,
		db:        db,
		config:    cfg,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Catalogue returns the level catalogue sessions are created from.
func (gm *GameManager) Catalogue() *levels.Catalogue { return gm.catalogue }

// CreateTangram starts a tangram session on levelID for playerID. The level starts playing
// immediately.
func (gm *GameManager) CreateTangram(ctx context.Context, playerID string, levelID int, opts ...tangram.Option) (View, error) {
	level, err := gm.catalogue.Get(levelID)
	if err != nil {
		return View{}, err
	}
	ls, err := tangram.NewSession(level, opts...)
	if err != nil {
		return View{}, err
	}
	ls.Start()

	s := gm.newSession(playerID, KindTangram)
	s.level = ls
	return gm.register(ctx, s), nil
}

// CreatePairs starts a pairs game for playerID.
func (gm *GameManager) CreatePairs(ctx context.Context, playerID string, opts ...pairs.Option) (View, error) {
	s := gm.newSession(playerID, KindPairs)
	s.board = pairs.NewBoard(nil, opts...)
	return gm.register(ctx, s), nil
}

// CreateQuiz starts a soccer arithmetic quiz for playerID.
func (gm *GameManager) CreateQuiz(ctx context.Context, playerID string, opts ...quiz.Option) (View, error) {
	s := gm.newSession(playerID, KindQuiz)
	s.quiz = quiz.NewQuiz(nil, opts...)
	return gm.register(ctx, s), nil
}

func (gm *GameManager) newSession(playerID string, kind Kind) *Session {
	now := gm.now()
	return &Session{
		ID:           uuid.NewString(),
		PlayerID:     playerID,
		Kind:         kind,
		CreatedAt:    now,
		lastTick:     now,
		lastActivity: now,
		attempt:      1,
	}
}

func (gm *GameManager) register(ctx context.Context, s *Session) View {
	gm.mu.Lock()
	gm.sessions[s.ID] = s
	gm.metrics.sessionsActive.Set(float64(len(gm.sessions)))
	gm.mu.Unlock()
	gm.metrics.sessionsStarted.WithLabelValues(string(s.Kind)).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.view()
	gm.persist(ctx, v)
	gm.touch(ctx, s.ID, s.lastActivity)
	log.Printf("[SESSION] Created %s session %s for player %s", s.Kind, s.ID, s.PlayerID)
	return v
}

// GetSession looks a session up in memory, falling back to its Redis snapshot.
func (gm *GameManager) GetSession(ctx context.Context, id string) (*Session, error) {
	gm.mu.RLock()
	s, ok := gm.sessions[id]
	gm.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := gm.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	gm.mu.Lock()
	defer gm.mu.Unlock()
	if existing, ok := gm.sessions[id]; ok {
		return existing, nil
	}
	gm.sessions[id] = s
	gm.metrics.sessionsActive.Set(float64(len(gm.sessions)))
	log.Printf("[SESSION] Restored session %s from Redis", id)
	return s, nil
}

// GetSessionFor is GetSession plus an ownership check.
func (gm *GameManager) GetSessionFor(ctx context.Context, id, playerID string) (*Session, error) {
	s, err := gm.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.PlayerID != playerID {
		return nil, ErrNotOwner
	}
	return s, nil
}

// View returns the current state of a session.
func (gm *GameManager) View(ctx context.Context, id string) (View, error) {
	s, err := gm.GetSession(ctx, id)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick(gm.now())
	return s.view(), nil
}

// Apply runs a gesture on a session, persists the result and records finished games.
func (gm *GameManager) Apply(ctx context.Context, id string, g Gesture) (*Outcome, error) {
	s, err := gm.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := gm.now()
	s.tick(now)
	out, err := s.apply(g)
	if err != nil {
		return nil, err
	}
	s.lastActivity = now
	gm.observe(s, out)

	if out.Completed && !s.finished {
		s.finished = true
		gm.finish(ctx, s)
	}
	gm.persist(ctx, s.view())
	if g.Type != GestureComputerPick {
		gm.touch(ctx, s.ID, now)
	}
	return out, nil
}

func (gm *GameManager) observe(s *Session, out *Outcome) {
	if out.Result != nil {
		outcome := "missed"
		if out.Result.Snapped {
			outcome = "snapped"
		}
		gm.metrics.releases.WithLabelValues(outcome).Inc()
	}
	if out.Pick != nil {
		gm.metrics.picks.WithLabelValues(string(out.Pick.Side), strconv.FormatBool(out.Pick.Correct)).Inc()
	}
	if out.Answer != nil {
		gm.metrics.answers.WithLabelValues(string(s.quiz.Operation()), strconv.FormatBool(out.Answer.Correct)).Inc()
	}
}

// PauseIdle pauses a session that has gone quiet. It reports whether the session was
// running and is now paused.
func (gm *GameManager) PauseIdle(ctx context.Context, id string) (bool, error) {
	s, err := gm.GetSession(ctx, id)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused() || s.completed() {
		return false, nil
	}
	s.tick(gm.now())
	if s.Kind == KindTangram && s.level.Status() != tangram.StatusPlaying {
		return false, nil
	}
	s.pause()
	gm.metrics.idlePauses.Inc()
	gm.persist(ctx, s.view())
	log.Printf("[SESSION] Paused idle session %s", id)
	return true, nil
}

// EndSession drops a session from memory and Redis.
func (gm *GameManager) EndSession(ctx context.Context, id string) error {
	gm.mu.Lock()
	_, ok := gm.sessions[id]
	delete(gm.sessions, id)
	gm.metrics.sessionsActive.Set(float64(len(gm.sessions)))
	gm.mu.Unlock()

	if gm.rdb != nil {
		n, err := gm.rdb.Del(ctx, rkeys.SnapshotKey(id), rkeys.LastActiveKey(id)).Result()
		if err != nil {
			log.Printf("[SESSION] Failed to delete snapshot for %s: %v", id, err)
		}
		gm.rdb.ZRem(ctx, rkeys.IdleSetKey, id)
		ok = ok || n > 0
	}
	if !ok {
		return ErrSessionNotFound
	}
	log.Printf("[SESSION] Ended session %s", id)
	return nil
}

// ActiveSessionCount returns the number of sessions held in memory.
func (gm *GameManager) ActiveSessionCount() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.sessions)
}

// persist saves a session snapshot to Redis with the configured TTL.
func (gm *GameManager) persist(ctx context.Context, v View) {
	if gm.rdb == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[SESSION] Failed to marshal session %s: %v", v.ID, err)
		return
	}
	if err := gm.rdb.SetEx(ctx, rkeys.SnapshotKey(v.ID), data, gm.config.SessionTTL()).Err(); err != nil {
		log.Printf("[SESSION] Failed to save session %s to Redis: %v", v.ID, err)
	}
}

// touch refreshes a session's activity markers read by the idle worker.
func (gm *GameManager) touch(ctx context.Context, id string, at time.Time) {
	if gm.rdb == nil {
		return
	}
	pipe := gm.rdb.TxPipeline()
	pipe.Set(ctx, rkeys.LastActiveKey(id), at.Unix(), gm.config.SessionTTL())
	pipe.ZAdd(ctx, rkeys.IdleSetKey, redis.Z{Score: float64(at.Add(gm.config.IdlePause()).Unix()), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[IDLE] Failed to touch session %s: %v", id, err)
	}
}

func (gm *GameManager) loadSession(ctx context.Context, id string) (*Session, error) {
	if gm.rdb == nil {
		return nil, ErrSessionNotFound
	}
	data, err := gm.rdb.Get(ctx, rkeys.SnapshotKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var v View
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return gm.restore(v)
}

func (gm *GameManager) restore(v View) (*Session, error) {
	now := gm.now()
	s := &Session{
		ID:           v.ID,
		PlayerID:     v.PlayerID,
		Kind:         v.Kind,
		CreatedAt:    v.CreatedAt,
		lastTick:     now,
		lastActivity: v.UpdatedAt,
		finished:     v.Finished,
		attempt:      v.Attempt,
	}
	if s.attempt < 1 {
		s.attempt = 1
	}
	switch v.Kind {
	case KindTangram:
		if v.Tangram == nil {
			return nil, fmt.Errorf("%w: session %s has no tangram state", ErrSessionNotFound, v.ID)
		}
		level, err := gm.catalogue.Get(v.Tangram.LevelID)
		if err != nil {
			return nil, err
		}
		ls, err := tangram.RestoreSession(level, *v.Tangram)
		if err != nil {
			return nil, err
		}
		s.level = ls
	case KindPairs:
		if v.Pairs == nil {
			return nil, fmt.Errorf("%w: session %s has no pairs state", ErrSessionNotFound, v.ID)
		}
		s.board = pairs.RestoreBoard(nil, *v.Pairs)
	case KindQuiz:
		if v.Quiz == nil {
			return nil, fmt.Errorf("%w: session %s has no quiz state", ErrSessionNotFound, v.ID)
		}
		s.quiz = quiz.RestoreQuiz(nil, *v.Quiz)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, v.Kind)
	}
	return s, nil
}
