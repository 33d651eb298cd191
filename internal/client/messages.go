package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/domain"
)

type messagePayload struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Read       bool   `json:"read"`
	CreatedAt  string `json:"createdAt"`
}

func toDomainMessage(m messagePayload) (domain.Message, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("parse message id: %w", err)
	}
	senderID, err := uuid.Parse(m.SenderID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("parse sender id: %w", err)
	}
	receiverID, err := uuid.Parse(m.ReceiverID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("parse receiver id: %w", err)
	}
	createdAt, _ := time.Parse(time.RFC3339, m.CreatedAt)
	return domain.Message{
		ID:         id,
		Content:    m.Content,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Read:       m.Read,
		CreatedAt:  createdAt,
	}, nil
}

// ListConversation returns the authenticated user's conversation with
// the other participant, oldest first. One of a and b must be the
// caller; the other is sent as the counterpart.
func (c *Client) ListConversation(ctx context.Context, a, b uuid.UUID) ([]domain.Message, error) {
	other := b
	c.mu.Lock()
	if c.current != nil && c.current.UserID == b {
		other = a
	}
	c.mu.Unlock()

	var out struct {
		Messages []messagePayload `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/messages?with="+other.String(), nil, &out); err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		parsed, err := toDomainMessage(m)
		if err != nil {
			return nil, err
		}
		messages = append(messages, parsed)
	}
	return messages, nil
}

// SendMessage creates a message to receiverID. The sender is always the
// authenticated user; senderID is accepted to satisfy the store
// boundary and is not sent over the wire.
func (c *Client) SendMessage(ctx context.Context, _, receiverID uuid.UUID, content string) (*domain.Message, error) {
	var out struct {
		Message messagePayload `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/api/messages", map[string]string{
		"receiverId": receiverID.String(),
		"content":    content,
	}, &out)
	if err != nil {
		return nil, err
	}
	message, err := toDomainMessage(out.Message)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// MarkMessageRead marks a message read for the authenticated user.
func (c *Client) MarkMessageRead(ctx context.Context, messageID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/messages/"+messageID.String()+"/read", nil, nil)
}

// Contact is a conversation counterpart in the chat list.
type Contact struct {
	PeerID        string  `json:"peerId"`
	DisplayName   string  `json:"displayName"`
	AvatarRef     *string `json:"avatarRef"`
	LastMessage   string  `json:"lastMessage"`
	LastMessageAt string  `json:"lastMessageAt"`
	UnreadCount   int     `json:"unreadCount"`
}

// Contacts returns the authenticated user's conversation counterparts.
func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	var out struct {
		Contacts []Contact `json:"contacts"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/messages/contacts", nil, &out); err != nil {
		return nil, err
	}
	return out.Contacts, nil
}
