package contract

import (
	"context"

	"ai-askdata-be/internal/entity"
	"ai-askdata-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ThreadResponseRepository interface {
	Create(ctx context.Context, response *entity.ThreadResponse) error
	Update(ctx context.Context, response *entity.ThreadResponse) error
	// Upsert creates the response when its id is new and replaces it otherwise.
	// Presence is decided by response id, never by query id.
	Upsert(ctx context.Context, response *entity.ThreadResponse) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByThreadId(ctx context.Context, threadId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ThreadResponse, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ThreadResponse, error)
}
