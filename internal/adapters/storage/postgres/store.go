// Package postgres persists sessions and transcripts in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PabloGalante/minidxo/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		panel_enabled BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_user_idx ON sessions (user_id, updated_at DESC);

	CREATE TABLE IF NOT EXISTS messages (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL REFERENCES sessions (id),
		author TEXT NOT NULL,
		text TEXT NOT NULL,
		content_type TEXT NOT NULL DEFAULT 'text',
		reply_to TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS messages_session_idx ON messages (session_id, seq);
`

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, title, panel_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, string(session.ID), string(session.UserID), session.Title, session.PanelEnabled,
		session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionExists
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions SET title = $2, panel_enabled = $3, updated_at = $4
		WHERE id = $1
	`, string(session.ID), session.Title, session.PanelEnabled, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, title, panel_enabled, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`, string(id))

	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *Store) ListSessionsByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Session, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, panel_enabled, created_at, updated_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`, string(userID), lim)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) error {
	var replyTo *string
	if msg.ReplyTo != nil {
		v := string(*msg.ReplyTo)
		replyTo = &v
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, session_id, author, text, content_type, reply_to, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, string(msg.ID), string(msg.SessionID), string(msg.Author), msg.Text, msg.ContentType,
		replyTo, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	slog.Debug("appended message", "session_id", msg.SessionID, "author", msg.Author)
	return nil
}

// GetMessagesBySession returns the last `limit` messages in append order.
// A NULL limit means no limit in PostgreSQL.
func (s *Store) GetMessagesBySession(ctx context.Context, sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, author, text, content_type, reply_to, created_at FROM (
			SELECT * FROM messages
			WHERE session_id = $1
			ORDER BY seq DESC
			LIMIT $2
		) recent ORDER BY seq ASC
	`, string(sessionID), lim)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		var (
			id, sid, author string
			m               domain.Message
			replyTo         *string
			createdAt       time.Time
		)
		if err := rows.Scan(&id, &sid, &author, &m.Text, &m.ContentType, &replyTo, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.ID = domain.MessageID(id)
		m.SessionID = domain.SessionID(sid)
		m.Author = domain.Role(author)
		m.CreatedAt = createdAt
		if replyTo != nil {
			r := domain.MessageID(*replyTo)
			m.ReplyTo = &r
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		id, userID string
		sess       domain.Session
	)
	if err := row.Scan(&id, &userID, &sess.Title, &sess.PanelEnabled, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return nil, err
	}
	sess.ID = domain.SessionID(id)
	sess.UserID = domain.UserID(userID)
	return &sess, nil
}
