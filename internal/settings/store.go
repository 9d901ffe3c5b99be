// Package settings exposes the read-mostly key/value configuration store
// (tax switches, queue prefix) consumed by the sales and walk-in modules.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/pangkas-pos/pangkas/internal/platform/db"
)

// Value types stored alongside each setting row.
const (
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeNumber  = "number"
	TypeJSON    = "json"
)

// Setting is one configuration row.
type Setting struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Type        string `json:"type"`
	Group       string `json:"group"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Store reads and writes settings rows.
type Store struct {
	db db.DBTX
}

// NewStore constructs a Store.
func NewStore(conn db.DBTX) *Store {
	return &Store{db: conn}
}

// Get returns the raw setting row for key.
func (s *Store) Get(ctx context.Context, key string) (Setting, error) {
	var row Setting
	err := s.db.QueryRow(ctx, `SELECT key, value, type, grup, label, COALESCE(description, '') FROM settings WHERE key = $1`, key).
		Scan(&row.Key, &row.Value, &row.Type, &row.Group, &row.Label, &row.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Setting{}, pgx.ErrNoRows
		}
		return Setting{}, err
	}
	return row, nil
}

// Bool returns a boolean setting, or def when the key is absent.
func (s *Store) Bool(ctx context.Context, key string, def bool) (bool, error) {
	row, err := s.Get(ctx, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return row.Value == "1" || row.Value == "true", nil
}

// Float returns a numeric setting, or def when the key is absent.
func (s *Store) Float(ctx context.Context, key string, def float64) (float64, error) {
	row, err := s.Get(ctx, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	f, err := strconv.ParseFloat(row.Value, 64)
	if err != nil {
		return def, nil
	}
	return f, nil
}

// String returns a string setting, or def when the key is absent.
func (s *Store) String(ctx context.Context, key string, def string) (string, error) {
	row, err := s.Get(ctx, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return row.Value, nil
}

// Set upserts a setting row, serialising non-string values.
func (s *Store) Set(ctx context.Context, setting Setting) error {
	if setting.Key == "" {
		return errors.New("settings: key required")
	}
	if setting.Type == "" {
		setting.Type = TypeString
	}
	if setting.Label == "" {
		setting.Label = setting.Key
	}
	if setting.Group == "" {
		setting.Group = "general"
	}
	if setting.Type == TypeJSON && setting.Value != "" && !json.Valid([]byte(setting.Value)) {
		return errors.New("settings: invalid json value")
	}
	_, err := s.db.Exec(ctx, `INSERT INTO settings (key, value, type, grup, label, description)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type, grup = EXCLUDED.grup, label = EXCLUDED.label, description = EXCLUDED.description`,
		setting.Key, setting.Value, setting.Type, setting.Group, setting.Label, setting.Description)
	return err
}
