package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// User is a registered account.
type User struct {
	ID          uuid.UUID
	Username    string
	FirstName   string
	LastName    string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt time.Time
}

// CreateOrUpdateTelegramUser upserts the account bound to a Telegram identity
// and returns it. New Telegram identities get a fresh user row; known ones
// only refresh their profile fields and login timestamp.
func CreateOrUpdateTelegramUser(telegramID int64, username, firstName, lastName, photoURL string,
	isPremium bool, languageCode string, rawData []byte) (*User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	tx, err := Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT user_id FROM telegram_users WHERE telegram_id = $1
	`, telegramID).Scan(&userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("looking up telegram user: %w", err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		err = tx.QueryRow(ctx, `
			INSERT INTO users (first_name, last_name, username, avatar_url, last_login_at)
			VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
			RETURNING id
		`, firstName, lastName, username, photoURL).Scan(&userID)
		if err != nil {
			return nil, fmt.Errorf("creating user: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO telegram_users (user_id, telegram_id, username, first_name, last_name, photo_url, is_premium, language_code, raw_data)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, userID, telegramID, username, firstName, lastName, photoURL, isPremium, languageCode, rawData)
		if err != nil {
			return nil, fmt.Errorf("creating telegram user: %w", err)
		}
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE users
			SET first_name = $2, last_name = $3, username = $4, avatar_url = $5, last_login_at = CURRENT_TIMESTAMP
			WHERE id = $1
		`, userID, firstName, lastName, username, photoURL)
		if err != nil {
			return nil, fmt.Errorf("refreshing user profile: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE telegram_users
			SET username = $2, first_name = $3, last_name = $4, photo_url = $5, is_premium = $6, language_code = $7, raw_data = $8, updated_at = CURRENT_TIMESTAMP
			WHERE telegram_id = $1
		`, telegramID, username, firstName, lastName, photoURL, isPremium, languageCode, rawData)
		if err != nil {
			return nil, fmt.Errorf("refreshing telegram user: %w", err)
		}
	}

	var user User
	err = tx.QueryRow(ctx, `
		SELECT id, username, first_name, last_name, avatar_url, created_at, updated_at, last_login_at
		FROM users WHERE id = $1
	`, userID).Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.AvatarURL,
		&user.CreatedAt, &user.UpdatedAt, &user.LastLoginAt)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return &user, nil
}
