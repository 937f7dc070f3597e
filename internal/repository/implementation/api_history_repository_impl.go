package implementation

import (
	"context"

	"ai-askdata-be/internal/entity"
	"ai-askdata-be/internal/mapper"
	"ai-askdata-be/internal/model"
	"ai-askdata-be/internal/repository/contract"
	"ai-askdata-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ApiHistoryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ApiMapper
}

func NewApiHistoryRepository(db *gorm.DB) contract.ApiHistoryRepository {
	return &ApiHistoryRepositoryImpl{
		db:     db,
		mapper: mapper.NewApiMapper(),
	}
}

func (r *ApiHistoryRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ApiHistoryRepositoryImpl) Create(ctx context.Context, record *entity.ApiHistory) error {
	m := r.mapper.HistoryToModel(record)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*record = *r.mapper.HistoryToEntity(m)
	return nil
}

func (r *ApiHistoryRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ApiHistory, error) {
	var models []*model.ApiHistory
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ApiHistory, len(models))
	for i, m := range models {
		entities[i] = r.mapper.HistoryToEntity(m)
	}
	return entities, nil
}

func (r *ApiHistoryRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ApiHistory{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
