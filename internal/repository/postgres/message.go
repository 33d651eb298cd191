package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wealthforge/network/internal/domain"
)

// MessageRepository implements domain.MessageRepository using Postgres.
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new Postgres-backed MessageRepository.
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{pool: db.pool}
}

func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, content, sender_id, receiver_id, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		message.ID, message.Content, message.SenderID, message.ReceiverID,
		message.Read, message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	m := &domain.Message{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, content, sender_id, receiver_id, read, created_at
		 FROM messages WHERE id = $1`, id,
	).Scan(&m.ID, &m.Content, &m.SenderID, &m.ReceiverID, &m.Read, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	return m, nil
}

func (r *MessageRepository) ListConversation(ctx context.Context, a, b uuid.UUID) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, content, sender_id, receiver_id, read, created_at
		 FROM messages
		 WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		 ORDER BY created_at ASC, id ASC`,
		a, b,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.Content, &m.SenderID, &m.ReceiverID, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *MessageRepository) MarkRead(ctx context.Context, messageID, receiverID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET read = TRUE WHERE id = $1 AND receiver_id = $2 AND read = FALSE`,
		messageID, receiverID,
	)
	if err != nil {
		return false, fmt.Errorf("mark message read: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *MessageRepository) ListContacts(ctx context.Context, selfID uuid.UUID) ([]domain.Contact, error) {
	rows, err := r.pool.Query(ctx, `
		WITH conv AS (
			SELECT m.id, m.content, m.created_at,
			       CASE WHEN m.sender_id = $1 THEN m.receiver_id ELSE m.sender_id END AS peer_id
			FROM messages m
			WHERE m.sender_id = $1 OR m.receiver_id = $1
		),
		last AS (
			SELECT peer_id, content, created_at,
			       ROW_NUMBER() OVER (PARTITION BY peer_id ORDER BY created_at DESC, id DESC) AS rn
			FROM conv
		),
		unread AS (
			SELECT sender_id AS peer_id, COUNT(*) AS unread_count
			FROM messages
			WHERE receiver_id = $1 AND read = FALSE
			GROUP BY sender_id
		)
		SELECT l.peer_id, p.display_name, p.avatar_ref, l.content, l.created_at,
		       COALESCE(u.unread_count, 0)
		FROM last l
		JOIN profiles p ON p.id = l.peer_id
		LEFT JOIN unread u ON u.peer_id = l.peer_id
		WHERE l.rn = 1
		ORDER BY l.created_at DESC`,
		selfID,
	)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]domain.Contact, 0)
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.PeerID, &c.DisplayName, &c.AvatarRef, &c.LastMessage, &c.LastMessageAt, &c.UnreadCount); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
