package handler

import (
	"time"

	"github.com/wealthforge/network/internal/domain"
	"github.com/wealthforge/network/internal/service"
)

// ProfileDTO is the JSON representation of a profile.
type ProfileDTO struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	DisplayName string  `json:"displayName"`
	AvatarRef   *string `json:"avatarRef"`
	IsAdmin     bool    `json:"isAdmin"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

func toProfileDTO(p *domain.Profile) ProfileDTO {
	return ProfileDTO{
		ID:          p.ID.String(),
		Email:       p.Email,
		DisplayName: p.DisplayName,
		AvatarRef:   p.AvatarRef,
		IsAdmin:     p.IsAdmin,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}

// PublicProfileDTO strips fields other users have no business seeing.
type PublicProfileDTO struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	AvatarRef   *string `json:"avatarRef"`
	CreatedAt   string  `json:"createdAt"`
}

func toPublicProfileDTO(p *domain.Profile) PublicProfileDTO {
	return PublicProfileDTO{
		ID:          p.ID.String(),
		DisplayName: p.DisplayName,
		AvatarRef:   p.AvatarRef,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

// MessageDTO is the JSON representation of a message.
type MessageDTO struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Read       bool   `json:"read"`
	CreatedAt  string `json:"createdAt"`
}

func toMessageDTO(m domain.Message) MessageDTO {
	return MessageDTO{
		ID:         m.ID.String(),
		Content:    m.Content,
		SenderID:   m.SenderID.String(),
		ReceiverID: m.ReceiverID.String(),
		Read:       m.Read,
		CreatedAt:  m.CreatedAt.Format(time.RFC3339),
	}
}

func toMessageDTOs(messages []domain.Message) []MessageDTO {
	dtos := make([]MessageDTO, len(messages))
	for i, m := range messages {
		dtos[i] = toMessageDTO(m)
	}
	return dtos
}

// ContactDTO is a conversation counterpart in the chat list.
type ContactDTO struct {
	PeerID        string  `json:"peerId"`
	DisplayName   string  `json:"displayName"`
	AvatarRef     *string `json:"avatarRef"`
	LastMessage   string  `json:"lastMessage"`
	LastMessageAt string  `json:"lastMessageAt"`
	UnreadCount   int     `json:"unreadCount"`
}

func toContactDTOs(contacts []domain.Contact) []ContactDTO {
	dtos := make([]ContactDTO, len(contacts))
	for i, c := range contacts {
		dtos[i] = ContactDTO{
			PeerID:        c.PeerID.String(),
			DisplayName:   c.DisplayName,
			AvatarRef:     c.AvatarRef,
			LastMessage:   c.LastMessage,
			LastMessageAt: c.LastMessageAt.Format(time.RFC3339),
			UnreadCount:   c.UnreadCount,
		}
	}
	return dtos
}

// ProjectDTO is the JSON representation of a project listing.
type ProjectDTO struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Location       string   `json:"location"`
	Budget         string   `json:"budget"`
	RequiredSkills []string `json:"requiredSkills"`
	CreatorID      string   `json:"creatorId"`
	CreatorName    string   `json:"creatorName"`
	Status         string   `json:"status"`
	Featured       bool     `json:"featured"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
}

func toProjectDTO(p *domain.Project) ProjectDTO {
	skills := p.RequiredSkills
	if skills == nil {
		skills = []string{}
	}
	return ProjectDTO{
		ID:             p.ID.String(),
		Title:          p.Title,
		Description:    p.Description,
		Category:       p.Category,
		Location:       p.Location,
		Budget:         p.Budget,
		RequiredSkills: skills,
		CreatorID:      p.CreatorID.String(),
		CreatorName:    p.CreatorName,
		Status:         string(p.Status),
		Featured:       p.Featured,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.Format(time.RFC3339),
	}
}

func toProjectDTOs(projects []domain.Project) []ProjectDTO {
	dtos := make([]ProjectDTO, len(projects))
	for i := range projects {
		dtos[i] = toProjectDTO(&projects[i])
	}
	return dtos
}

// UserSummaryDTO is a profile row in the admin user list.
type UserSummaryDTO struct {
	ProfileDTO
	ProjectCount int `json:"projectCount"`
}

func toUserSummaryDTOs(summaries []service.UserSummary) []UserSummaryDTO {
	dtos := make([]UserSummaryDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = UserSummaryDTO{
			ProfileDTO:   toProfileDTO(&s.Profile),
			ProjectCount: s.ProjectCount,
		}
	}
	return dtos
}
