package database

import (
	"database/sql"
	"fmt"

	"github.com/go-while/go-sitekit/internal/models"
)

// --- User Queries ---

const query_InsertUser = `INSERT INTO users (username, email, password_hash, display_name) VALUES (?, ?, ?, ?)`

// InsertUser creates a user row and returns the new user ID.
func (db *Database) InsertUser(u *models.User) (int64, error) {
	result, err := retryableExec(db.mainDB, query_InsertUser,
		u.Username, u.Email, u.PasswordHash, u.DisplayName,
	)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = id
	return id, nil
}

const query_SelectUser = `SELECT id, username, email, password_hash, display_name, session_id,
	last_login_ip, session_expires_at, login_attempts, created_at, updated_at FROM users`

func scanUser(scan func(dest ...interface{}) error) (*models.User, error) {
	var u models.User
	if err := scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName,
		&u.SessionID, &u.LastLoginIP, &u.SessionExpiresAt, &u.LoginAttempts,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *Database) GetUserByUsername(username string) (*models.User, error) {
	row := db.mainDB.QueryRow(query_SelectUser+` WHERE username = ?`, username)
	return scanUser(row.Scan)
}

func (db *Database) GetUserByEmail(email string) (*models.User, error) {
	row := db.mainDB.QueryRow(query_SelectUser+` WHERE email = ?`, email)
	return scanUser(row.Scan)
}

func (db *Database) GetUserByID(id int64) (*models.User, error) {
	row := db.mainDB.QueryRow(query_SelectUser+` WHERE id = ?`, id)
	return scanUser(row.Scan)
}

// ListUsers returns one page of users ordered by ID, plus the total count.
func (db *Database) ListUsers(page, pageSize int) ([]*models.User, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 25
	}

	var total int
	if err := retryableQueryRowScan(db.mainDB, `SELECT COUNT(*) FROM users`, nil, &total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	rows, err := retryableQuery(db.mainDB, query_SelectUser+` ORDER BY id LIMIT ? OFFSET ?`, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// UpdateUserEmail updates a user's email address
const query_UpdateUserEmail = `UPDATE users SET email = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

func (db *Database) UpdateUserEmail(userID int64, email string) error {
	_, err := retryableExec(db.mainDB, query_UpdateUserEmail, email, userID)
	return err
}

// UpdateUserPassword updates a user's password hash
const query_UpdateUserPassword = `UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

func (db *Database) UpdateUserPassword(userID int64, passwordHash string) error {
	_, err := retryableExec(db.mainDB, query_UpdateUserPassword, passwordHash, userID)
	return err
}

const query_DeleteUser = `DELETE FROM users WHERE id = ?`

func (db *Database) DeleteUser(userID int64) error {
	result, err := retryableExec(db.mainDB, query_DeleteUser, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- UserPermission Queries ---

const query_GrantPermission = `INSERT OR IGNORE INTO user_permissions (user_id, permission) VALUES (?, ?)`

func (db *Database) GrantPermission(userID int64, permission string) error {
	if permission == "" {
		return fmt.Errorf("empty permission")
	}
	_, err := retryableExec(db.mainDB, query_GrantPermission, userID, permission)
	return err
}

const query_RevokePermission = `DELETE FROM user_permissions WHERE user_id = ? AND permission = ?`

func (db *Database) RevokePermission(userID int64, permission string) error {
	_, err := retryableExec(db.mainDB, query_RevokePermission, userID, permission)
	return err
}

const query_GetUserPermissions = `SELECT id, user_id, permission, granted_at FROM user_permissions WHERE user_id = ?`

func (db *Database) GetUserPermissions(userID int64) ([]*models.UserPermission, error) {
	rows, err := retryableQuery(db.mainDB, query_GetUserPermissions, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.UserPermission
	for rows.Next() {
		var up models.UserPermission
		if err := rows.Scan(&up.ID, &up.UserID, &up.Permission, &up.GrantedAt); err != nil {
			return nil, err
		}
		out = append(out, &up)
	}
	return out, rows.Err()
}

const query_HasPermission = `SELECT COUNT(*) FROM user_permissions WHERE user_id = ? AND permission = ?`

func (db *Database) HasPermission(userID int64, permission string) (bool, error) {
	var count int
	err := retryableQueryRowScan(db.mainDB, query_HasPermission,
		[]interface{}{userID, permission}, &count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
