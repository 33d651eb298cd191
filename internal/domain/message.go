package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is a direct message between two profiles. Rows are immutable
// once created except for the Read flag, which only ever transitions
// false to true.
type Message struct {
	ID         uuid.UUID
	Content    string
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Read       bool
	CreatedAt  time.Time
}

// Contact is a conversation counterpart with denormalized preview data
// for the chat list.
type Contact struct {
	PeerID        uuid.UUID
	DisplayName   string
	AvatarRef     *string
	LastMessage   string
	LastMessageAt time.Time
	UnreadCount   int
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)

	// ListConversation returns every message exchanged between the two
	// ids, in either direction, ordered by creation time ascending.
	ListConversation(ctx context.Context, a, b uuid.UUID) ([]Message, error)

	// MarkRead sets the read flag on a message, but only when receiverID
	// is the message's receiver. Returns true if a row changed; marking
	// an already-read message returns false with no error.
	MarkRead(ctx context.Context, messageID, receiverID uuid.UUID) (bool, error)

	// ListContacts returns the distinct counterparts the given profile has
	// exchanged messages with, most recent conversation first.
	ListContacts(ctx context.Context, selfID uuid.UUID) ([]Contact, error)
}
