package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/assetnexus/internal/model"
)

// Settings keys.
const (
	settingJWTSecret   = "jwt_secret"
	settingAppName     = "app_name"
	settingCompanyName = "company_name"
	settingLogoURL     = "logo_url"
	settingUpdatedAt   = "settings_updated_at"
	settingUpdatedBy   = "settings_updated_by"
)

// GetJWTSecret retrieves the JWT secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent startup.
func GetJWTSecret(ctx context.Context, db *sql.DB) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}

	if err := setSettingIfMissing(ctx, db, settingJWTSecret, hex.EncodeToString(buf)); err != nil {
		return "", err
	}

	values, err := readSettings(ctx, db, settingJWTSecret)
	if err != nil {
		return "", err
	}
	return values[settingJWTSecret], nil
}

// GetSettings returns the application settings, falling back to defaults
// for anything never saved.
func GetSettings(ctx context.Context, q Querier) (*model.Settings, error) {
	values, err := readSettings(ctx, q, settingAppName, settingCompanyName, settingLogoURL, settingUpdatedAt, settingUpdatedBy)
	if err != nil {
		return nil, err
	}

	s := &model.Settings{
		AppName:     values[settingAppName],
		CompanyName: values[settingCompanyName],
		LogoURL:     values[settingLogoURL],
	}
	if s.AppName == "" {
		s.AppName = model.DefaultAppName
	}
	if v := values[settingUpdatedAt]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			s.UpdatedAt = &t
		}
	}
	if v := values[settingUpdatedBy]; v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.UpdatedBy = &id
		}
	}
	return s, nil
}

// UpdateSettings saves the application settings.
func UpdateSettings(ctx context.Context, db *sql.DB, appName, companyName, logoURL string, actor int64) (*model.Settings, error) {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return nil, fmt.Errorf("%w: app name required", ErrInvalidInput)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	values := map[string]string{
		settingAppName:     appName,
		settingCompanyName: strings.TrimSpace(companyName),
		settingLogoURL:     strings.TrimSpace(logoURL),
		settingUpdatedAt:   now().Format(time.RFC3339Nano),
		settingUpdatedBy:   strconv.FormatInt(actor, 10),
	}
	for key, value := range values {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
		if err != nil {
			return nil, fmt.Errorf("saving setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing settings: %w", err)
	}
	return GetSettings(ctx, db)
}

func setSettingIfMissing(ctx context.Context, q Querier, key, value string) error {
	_, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	return nil
}

func readSettings(ctx context.Context, q Querier, keys ...string) (map[string]string, error) {
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")

	rows, err := q.QueryContext(ctx, `SELECT key, value FROM settings WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, len(keys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		values[k] = v
	}
	return values, rows.Err()
}
