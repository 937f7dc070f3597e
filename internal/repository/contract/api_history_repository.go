package contract

import (
	"context"

	"ai-askdata-be/internal/entity"
	"ai-askdata-be/internal/repository/specification"
)

type ApiHistoryRepository interface {
	Create(ctx context.Context, record *entity.ApiHistory) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ApiHistory, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
