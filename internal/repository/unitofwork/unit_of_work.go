package unitofwork

import (
	"context"

	"ai-askdata-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ThreadRepository() contract.ThreadRepository
	ThreadResponseRepository() contract.ThreadResponseRepository
	ApiHistoryRepository() contract.ApiHistoryRepository
	DeploymentRepository() contract.DeploymentRepository
}
