package admin

import (
	"fmt"
	"log"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/minigames/internal/config"
	"github.com/playmatatu/minigames/internal/models"
)

// GetAllRuntimeConfig returns all runtime config entries
func GetAllRuntimeConfig(db *sqlx.DB) ([]models.RuntimeConfig, error) {
	var configs []models.RuntimeConfig
	err := db.Select(&configs, `
		SELECT key, value, value_type, description, updated_by, updated_at
		FROM runtime_config
		ORDER BY key
	`)
	return configs, err
}

// GetRuntimeConfigValue returns a single runtime config value
func GetRuntimeConfigValue(db *sqlx.DB, key string) (*models.RuntimeConfig, error) {
	var cfg models.RuntimeConfig
	err := db.Get(&cfg, `SELECT key, value, value_type, description, updated_by, updated_at FROM runtime_config WHERE key=$1`, key)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateValue checks value against a runtime config value type.
func ValidateValue(valueType, value string) error {
	switch valueType {
	case "int":
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("invalid integer value: %s", value)
		}
	case "float":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("invalid float value: %s", value)
		}
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid boolean value: %s (must be 'true' or 'false')", value)
		}
	}
	return nil
}

// UpdateRuntimeConfigValue updates a single runtime config value
func UpdateRuntimeConfigValue(db *sqlx.DB, key, value, adminPhone string) error {
	existing, err := GetRuntimeConfigValue(db, key)
	if err != nil {
		return fmt.Errorf("config key not found: %s", key)
	}
	if err := ValidateValue(existing.ValueType, value); err != nil {
		return err
	}

	_, err = db.Exec(`
		UPDATE runtime_config SET value=$1, updated_by=$2, updated_at=NOW() WHERE key=$3
	`, value, adminPhone, key)
	return err
}

// ApplyRuntimeConfig overrides session settings in cfg with the values stored in the DB.
func ApplyRuntimeConfig(db *sqlx.DB, cfg *config.Config) error {
	configs, err := GetAllRuntimeConfig(db)
	if err != nil {
		return err
	}
	applied := ApplyOverrides(configs, cfg)
	log.Printf("[CONFIG] Applied %d runtime config overrides from database", applied)
	return nil
}

// ApplyOverrides copies known keys onto cfg and returns how many were applied. The writes
// happen under cfg's lock, so running sessions may keep reading it.
func ApplyOverrides(configs []models.RuntimeConfig, cfg *config.Config) int {
	applied := 0
	cfg.Update(func(cfg *config.Config) {
		for _, c := range configs {
			v, err := strconv.Atoi(c.Value)
			if err != nil {
				continue
			}
			switch c.Key {
			case "session_ttl_minutes":
				cfg.SessionTTLMinutes = v
			case "idle_pause_seconds":
				cfg.IdlePauseSeconds = v
			case "computer_pick_delay_ms":
				cfg.ComputerPickDelayMS = v
			default:
				continue
			}
			applied++
		}
	})
	return applied
}
