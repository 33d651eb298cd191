package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/feed"
)

// MessageService handles direct-message persistence and change
// notification publishing.
type MessageService struct {
	messages domain.MessageRepository
	profiles domain.ProfileRepository
	broker   feed.Broker
}

// NewMessageService creates a new MessageService.
func NewMessageService(messages domain.MessageRepository, profiles domain.ProfileRepository, broker feed.Broker) *MessageService {
	return &MessageService{messages: messages, profiles: profiles, broker: broker}
}

// History returns the full conversation between the two ids, ascending
// by creation time. If either id is absent the operation is inert: it
// returns an empty slice without querying.
func (s *MessageService) History(ctx context.Context, selfID, otherID uuid.UUID) ([]domain.Message, error) {
	if selfID == uuid.Nil || otherID == uuid.Nil {
		return []domain.Message{}, nil
	}
	return s.messages.ListConversation(ctx, selfID, otherID)
}

// Send creates a message from sender to receiver. Empty or
// whitespace-only content is rejected. A change event is published
// after the row is committed.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content is empty", domain.ErrInvalidInput)
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot message yourself", domain.ErrInvalidInput)
	}

	if _, err := s.profiles.GetByID(ctx, receiverID); err != nil {
		return nil, fmt.Errorf("get receiver: %w", err)
	}

	message := &domain.Message{
		Content:    content,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Read:       false,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	s.publish(ctx, feed.OpInsert, message)
	return message, nil
}

// MarkRead marks a message read on behalf of the receiver. Only the
// receiver can change the flag; re-marking an already-read message is
// a no-op and publishes nothing.
func (s *MessageService) MarkRead(ctx context.Context, messageID, receiverID uuid.UUID) error {
	changed, err := s.messages.MarkRead(ctx, messageID, receiverID)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		slog.Error("load message after mark read", "error", err)
		return nil
	}
	s.publish(ctx, feed.OpUpdate, message)
	return nil
}

// Contacts returns the caller's conversation counterparts with unread
// counts, most recent first.
func (s *MessageService) Contacts(ctx context.Context, selfID uuid.UUID) ([]domain.Contact, error) {
	return s.messages.ListContacts(ctx, selfID)
}

func (s *MessageService) publish(ctx context.Context, op feed.Op, message *domain.Message) {
	err := s.broker.Publish(ctx, feed.Event{
		Relation:   "messages",
		Op:         op,
		RowID:      message.ID.String(),
		SenderID:   message.SenderID.String(),
		ReceiverID: message.ReceiverID.String(),
	})
	if err != nil {
		// The write already committed; log and move on.
		slog.Error("publish message event", "error", err, "op", string(op))
	}
}
