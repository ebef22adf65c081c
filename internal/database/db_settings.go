package database

import (
	"database/sql"
	"errors"

	"github.com/go-while/go-sitekit/internal/models"
)

// GetSettingValue retrieves a value from the site_settings table
func (db *Database) GetSettingValue(key string) (string, error) {
	var value string
	err := retryableQueryRowScan(db.mainDB, "SELECT value FROM site_settings WHERE key = ?", []interface{}{key}, &value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil // Return empty string for missing keys
		}
		return "", err
	}
	return value, nil
}

// SetSettingValue sets or updates a value in the site_settings table
func (db *Database) SetSettingValue(key, value string) error {
	_, err := retryableExec(db.mainDB, `
		INSERT OR REPLACE INTO site_settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, key, value)
	return err
}

// DeleteSetting removes a key from the site_settings table
func (db *Database) DeleteSetting(key string) error {
	_, err := retryableExec(db.mainDB, `DELETE FROM site_settings WHERE key = ?`, key)
	return err
}

// GetSettingBool retrieves a boolean setting, falling back to def for
// missing keys.
func (db *Database) GetSettingBool(key string, def bool) (bool, error) {
	value, err := db.GetSettingValue(key)
	if err != nil {
		return def, err
	}
	if value == "" {
		return def, nil
	}
	return value == "true", nil
}

// SetSettingBool sets a boolean setting
func (db *Database) SetSettingBool(key string, value bool) error {
	stringValue := "false"
	if value {
		stringValue = "true"
	}
	return db.SetSettingValue(key, stringValue)
}

// ListSettings returns all site settings ordered by key
func (db *Database) ListSettings() ([]*models.SiteSetting, error) {
	rows, err := retryableQuery(db.mainDB, `SELECT key, value, updated_at FROM site_settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.SiteSetting
	for rows.Next() {
		var s models.SiteSetting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// IsRegistrationEnabled checks if user registration is enabled
func (db *Database) IsRegistrationEnabled() (bool, error) {
	// Default to true if no setting exists
	return db.GetSettingBool("registration_enabled", true)
}
