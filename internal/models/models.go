package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Player is a guest or registered player that owns sessions
type Player struct {
	ID          string    `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	LastSeenAt  time.Time `db:"last_seen_at" json:"last_seen_at"`
}

// LevelRow is a stored level; Definition holds the JSON encoded tangram.Level
type LevelRow struct {
	ID         int             `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	Definition json.RawMessage `db:"definition" json:"definition"`
	Enabled    bool            `db:"enabled" json:"enabled"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// LevelRun is one completed tangram level
type LevelRun struct {
	ID             int64     `db:"id" json:"id"`
	SessionID      string    `db:"session_id" json:"session_id"`
	Attempt        int       `db:"attempt" json:"attempt"`
	PlayerID       string    `db:"player_id" json:"player_id"`
	LevelID        int       `db:"level_id" json:"level_id"`
	ElapsedSeconds float64   `db:"elapsed_seconds" json:"elapsed_seconds"`
	CompletedAt    time.Time `db:"completed_at" json:"completed_at"`
}

// PairGame is one finished pairs game
type PairGame struct {
	ID             int64     `db:"id" json:"id"`
	SessionID      string    `db:"session_id" json:"session_id"`
	Attempt        int       `db:"attempt" json:"attempt"`
	PlayerID       string    `db:"player_id" json:"player_id"`
	Winner         string    `db:"winner" json:"winner"`
	LeftScore      int       `db:"left_score" json:"left_score"`
	RightScore     int       `db:"right_score" json:"right_score"`
	ElapsedSeconds float64   `db:"elapsed_seconds" json:"elapsed_seconds"`
	CompletedAt    time.Time `db:"completed_at" json:"completed_at"`
}

// AdminAccount is an operator allowed to edit levels and runtime config
type AdminAccount struct {
	Phone       string         `db:"phone" json:"phone"`
	DisplayName string         `db:"display_name" json:"display_name"`
	TokenHash   string         `db:"token_hash" json:"-"`
	Roles       pq.StringArray `db:"roles" json:"roles"`
	AllowedIPs  pq.StringArray `db:"allowed_ips" json:"allowed_ips"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// AdminAudit is one entry of the admin audit log
type AdminAudit struct {
	ID         int64           `db:"id" json:"id"`
	AdminPhone string          `db:"admin_phone" json:"admin_phone"`
	IP         string          `db:"ip" json:"ip"`
	Route      string          `db:"route" json:"route"`
	Action     string          `db:"action" json:"action"`
	Details    json.RawMessage `db:"details" json:"details,omitempty"`
	Success    bool            `db:"success" json:"success"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// RuntimeConfig is an operator override of an env setting
type RuntimeConfig struct {
	Key         string         `db:"key" json:"key"`
	Value       string         `db:"value" json:"value"`
	ValueType   string         `db:"value_type" json:"value_type"`
	Description sql.NullString `db:"description" json:"description,omitempty"`
	UpdatedBy   sql.NullString `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// QuizRun is one finished soccer quiz
type QuizRun struct {
	ID             int64     `db:"id" json:"id"`
	SessionID      string    `db:"session_id" json:"session_id"`
	Attempt        int       `db:"attempt" json:"attempt"`
	PlayerID       string    `db:"player_id" json:"player_id"`
	Operation      string    `db:"operation" json:"operation"`
	NumberType     string    `db:"number_type" json:"number_type"`
	Score          int       `db:"score" json:"score"`
	Questions      int       `db:"questions" json:"questions"`
	ElapsedSeconds float64   `db:"elapsed_seconds" json:"elapsed_seconds"`
	CompletedAt    time.Time `db:"completed_at" json:"completed_at"`
}
