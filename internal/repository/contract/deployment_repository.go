package contract

import (
	"context"

	"ai-askdata-be/internal/entity"
	"ai-askdata-be/internal/repository/specification"
)

type DeploymentRepository interface {
	Create(ctx context.Context, deployment *entity.Deployment) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Deployment, error)
	// FindLatestDeployed returns the newest DEPLOYED row for the project, or
	// nil when the project was never deployed.
	FindLatestDeployed(ctx context.Context, specs ...specification.Specification) (*entity.Deployment, error)
}
