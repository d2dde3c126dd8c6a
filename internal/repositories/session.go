package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/shared"
)

// SessionRepository stores browser login [models.Session] rows for the HTTP host.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, sequence, pin_id, pin_code, plex_token, user_id, username, email, thumb, state, expires_at, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		id        string
		sequence  int
		pinID     int64
		pinCode   string
		token     string
		user      models.User
		state     string
		expiresAt int64
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &pinID, &pinCode, &token, &user.ID, &user.Username, &user.Email, &user.Thumb,
		&state, &expiresAt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	session := models.NewSession(sequence, models.Pin{ID: pinID, Code: pinCode}, 0)
	session.SetID(id)
	session.SetToken(token)
	session.SetUser(user)
	session.SetState(models.AuthState(state))
	session.SetExpiresAt(time.Unix(expiresAt, 0))
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		session.SetDeletedAt(&deletedAt.Time)
	}

	return session, nil
}

// Create numbers and inserts session in one transaction, assigning a fresh ID.
func (r *SessionRepository) Create(session *models.Session) error {
	session.SetID(shared.GenerateID())
	if err := session.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	return withTx(r.db, func(tx *sql.Tx) error {
		sequence, err := NextSequence(tx, "sessions")
		if err != nil {
			return err
		}

		user := session.User()
		_, err = tx.Exec(query, session.ID(), sequence, session.PinID(), session.PinCode(), session.Token(),
			user.ID, user.Username, user.Email, user.Thumb, string(session.State()), session.ExpiresAt().Unix(),
			session.CreatedAt().UTC(), session.UpdatedAt().UTC())
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		session.SetSequence(sequence)
		return nil
	})
}

// Get retrieves a session by ID, excluding soft-deleted sessions
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? AND deleted_at IS NULL`

	session, err := scanSession(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return session, nil
}

// Update modifies an existing session in the database
func (r *SessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := time.Now()
	session.SetUpdatedAt(now)

	query := `
		UPDATE sessions
		SET pin_id = ?, pin_code = ?, plex_token = ?, user_id = ?, username = ?, email = ?, thumb = ?,
			state = ?, expires_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	user := session.User()
	result, err := r.db.Exec(query, session.PinID(), session.PinCode(), session.Token(), user.ID, user.Username,
		user.Email, user.Thumb, string(session.State()), session.ExpiresAt().Unix(), now.UTC(), session.ID())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return expectRow(result, session.ID())
}

// Delete soft-deletes a session by ID and clears its token
func (r *SessionRepository) Delete(id string) error {
	query := `
		UPDATE sessions
		SET deleted_at = ?, plex_token = ''
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return expectRow(result, id)
}

// List retrieves all sessions matching the given criteria, excluding soft-deleted sessions.
//
// Supported criteria: "state" (string), "username" (string).
func (r *SessionRepository) List(criteria map[string]any) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE deleted_at IS NULL`
	args := []any{}

	if state, ok := criteria["state"].(string); ok && state != "" {
		query += " AND state = ?"
		args = append(args, state)
	}
	if username, ok := criteria["username"].(string); ok && username != "" {
		query += " AND username = ?"
		args = append(args, username)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

// DeleteExpired permanently removes sessions that expired before now or were soft-deleted.
func (r *SessionRepository) DeleteExpired(now time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE expires_at <= ? OR deleted_at IS NOT NULL`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return result.RowsAffected()
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return nil
}

var _ models.ExpiringRepository[*models.Session] = (*SessionRepository)(nil)
