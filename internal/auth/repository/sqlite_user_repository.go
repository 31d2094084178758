package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	authdomain "mailmirror-backend/internal/auth/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const sqliteUserSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL DEFAULT '',
	provider      TEXT NOT NULL DEFAULT '',
	access_token  TEXT NOT NULL DEFAULT '',
	refresh_token TEXT NOT NULL DEFAULT '',
	imap_server   TEXT NOT NULL DEFAULT '',
	imap_port     INTEGER NOT NULL DEFAULT 0,
	imap_password TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);`

type sqliteUserRepository struct {
	db *sqlx.DB
}

// NewSQLiteUserRepository creates the users table if needed and returns a repository over it
func NewSQLiteUserRepository(db *sqlx.DB) (UserRepository, error) {
	if _, err := db.Exec(sqliteUserSchema); err != nil {
		return nil, fmt.Errorf("creating users table: %w", err)
	}
	return &sqliteUserRepository{db: db}, nil
}

func (r *sqliteUserRepository) Create(user *authdomain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.NamedExec(`
		INSERT INTO users (
			id, email, name, provider, access_token, refresh_token,
			imap_server, imap_port, imap_password, created_at, updated_at
		) VALUES (
			:id, :email, :name, :provider, :access_token, :refresh_token,
			:imap_server, :imap_port, :imap_password, :created_at, :updated_at
		)`, user)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

func (r *sqliteUserRepository) FindByID(id string) (*authdomain.User, error) {
	var user authdomain.User
	err := r.db.Get(&user, "SELECT * FROM users WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return &user, nil
}

func (r *sqliteUserRepository) UpdateOAuthTokens(userID, accessToken, refreshToken string) error {
	_, err := r.db.Exec(`
		UPDATE users SET
			access_token = ?,
			refresh_token = CASE WHEN ? = '' THEN refresh_token ELSE ? END,
			updated_at = ?
		WHERE id = ?`,
		accessToken, refreshToken, refreshToken, time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("updating tokens: %w", err)
	}
	return nil
}
