package video

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Room) error
	Get(ctx context.Context, id uuid.UUID) (*Room, error)
	GetByCode(ctx context.Context, code string) (*Room, error)
	Update(ctx context.Context, r *Room) error
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Room, int, error)

	AddMessage(ctx context.Context, m *ChatMessage) error
	ListMessages(ctx context.Context, roomID uuid.UUID) ([]*ChatMessage, error)
}
