package implementation

import (
	"context"
	"errors"

	"ai-askdata-be/internal/entity"
	"ai-askdata-be/internal/mapper"
	"ai-askdata-be/internal/model"
	"ai-askdata-be/internal/repository/contract"
	"ai-askdata-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ThreadResponseRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ThreadMapper
}

func NewThreadResponseRepository(db *gorm.DB) contract.ThreadResponseRepository {
	return &ThreadResponseRepositoryImpl{
		db:     db,
		mapper: mapper.NewThreadMapper(),
	}
}

func (r *ThreadResponseRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ThreadResponseRepositoryImpl) Create(ctx context.Context, response *entity.ThreadResponse) error {
	m := r.mapper.ResponseToModel(response)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*response = *r.mapper.ResponseToEntity(m)
	return nil
}

func (r *ThreadResponseRepositoryImpl) Update(ctx context.Context, response *entity.ThreadResponse) error {
	m := r.mapper.ResponseToModel(response)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*response = *r.mapper.ResponseToEntity(m)
	return nil
}

func (r *ThreadResponseRepositoryImpl) Upsert(ctx context.Context, response *entity.ThreadResponse) error {
	m := r.mapper.ResponseToModel(response)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(m).Error
	if err != nil {
		return err
	}
	*response = *r.mapper.ResponseToEntity(m)
	return nil
}

func (r *ThreadResponseRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ThreadResponse{}, id).Error
}

func (r *ThreadResponseRepositoryImpl) DeleteByThreadId(ctx context.Context, threadId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("thread_id = ?", threadId).Delete(&model.ThreadResponse{}).Error
}

func (r *ThreadResponseRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ThreadResponse, error) {
	var m model.ThreadResponse
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ResponseToEntity(&m), nil
}

func (r *ThreadResponseRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ThreadResponse, error) {
	var models []*model.ThreadResponse
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ResponsesToEntities(models), nil
}
