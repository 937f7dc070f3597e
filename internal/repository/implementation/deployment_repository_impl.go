package implementation

import (
	"context"
	"errors"

	"ai-askdata-be/internal/entity"
	"ai-askdata-be/internal/mapper"
	"ai-askdata-be/internal/model"
	"ai-askdata-be/internal/repository/contract"
	"ai-askdata-be/internal/repository/specification"

	"gorm.io/gorm"
)

type DeploymentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ApiMapper
}

func NewDeploymentRepository(db *gorm.DB) contract.DeploymentRepository {
	return &DeploymentRepositoryImpl{
		db:     db,
		mapper: mapper.NewApiMapper(),
	}
}

func (r *DeploymentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DeploymentRepositoryImpl) Create(ctx context.Context, deployment *entity.Deployment) error {
	m := r.mapper.DeploymentToModel(deployment)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*deployment = *r.mapper.DeploymentToEntity(m)
	return nil
}

func (r *DeploymentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Deployment, error) {
	var m model.Deployment
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.DeploymentToEntity(&m), nil
}

func (r *DeploymentRepositoryImpl) FindLatestDeployed(ctx context.Context, specs ...specification.Specification) (*entity.Deployment, error) {
	var m model.Deployment
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	query = query.Where("status = ?", entity.DeploymentStatusDeployed).Order("created_at DESC")
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.DeploymentToEntity(&m), nil
}
