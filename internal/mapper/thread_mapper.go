package mapper

import (
	"encoding/json"
	"time"

	"ai-askdata-be/internal/entity"
	"ai-askdata-be/internal/model"

	"gorm.io/datatypes"
)

type ThreadMapper struct{}

func NewThreadMapper() *ThreadMapper {
	return &ThreadMapper{}
}

// Thread Mappers

func (m *ThreadMapper) ThreadToEntity(t *model.Thread) *entity.Thread {
	if t == nil {
		return nil
	}

	var deletedAt *time.Time
	if t.DeletedAt.Valid {
		ts := t.DeletedAt.Time
		deletedAt = &ts
	}

	var updatedAt *time.Time
	if !t.UpdatedAt.IsZero() {
		ts := t.UpdatedAt
		updatedAt = &ts
	}

	var questions []entity.RecommendedQuestionItem
	if len(t.RecommendedQuestions) > 0 {
		_ = json.Unmarshal(t.RecommendedQuestions, &questions)
	}

	return &entity.Thread{
		Id:                   t.Id,
		ProjectId:            t.ProjectId,
		UserId:               t.UserId,
		Summary:              t.Summary,
		RecommendedQuestions: questions,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            updatedAt,
		DeletedAt:            deletedAt,
		IsDeleted:            t.DeletedAt.Valid,
	}
}

func (m *ThreadMapper) ThreadToModel(t *entity.Thread) *model.Thread {
	if t == nil {
		return nil
	}

	var questions datatypes.JSON
	if len(t.RecommendedQuestions) > 0 {
		raw, _ := json.Marshal(t.RecommendedQuestions)
		questions = raw
	}

	mt := &model.Thread{
		Id:                   t.Id,
		ProjectId:            t.ProjectId,
		UserId:               t.UserId,
		Summary:              t.Summary,
		RecommendedQuestions: questions,
		CreatedAt:            t.CreatedAt,
	}
	if t.UpdatedAt != nil {
		mt.UpdatedAt = *t.UpdatedAt
	}
	return mt
}

// Response Mappers

func (m *ThreadMapper) ResponseToEntity(r *model.ThreadResponse) *entity.ThreadResponse {
	if r == nil {
		return nil
	}

	var updatedAt *time.Time
	if !r.UpdatedAt.IsZero() {
		ts := r.UpdatedAt
		updatedAt = &ts
	}

	var respErr *entity.ResponseError
	if len(r.Error) > 0 {
		respErr = &entity.ResponseError{}
		if err := json.Unmarshal(r.Error, respErr); err != nil {
			respErr = nil
		}
	}

	var answer *entity.AnswerDetail
	if len(r.AnswerDetail) > 0 {
		answer = &entity.AnswerDetail{}
		if err := json.Unmarshal(r.AnswerDetail, answer); err != nil {
			answer = nil
		}
	}

	var breakdown map[string]interface{}
	if len(r.BreakdownDetail) > 0 {
		_ = json.Unmarshal(r.BreakdownDetail, &breakdown)
	}

	var chart map[string]interface{}
	if len(r.ChartDetail) > 0 {
		_ = json.Unmarshal(r.ChartDetail, &chart)
	}

	return &entity.ThreadResponse{
		Id:              r.Id,
		ThreadId:        r.ThreadId,
		QueryId:         r.QueryId,
		Question:        r.Question,
		Sql:             r.Sql,
		Status:          r.Status,
		TaskType:        r.TaskType,
		Error:           respErr,
		AnswerDetail:    answer,
		BreakdownDetail: breakdown,
		ChartDetail:     chart,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       updatedAt,
	}
}

func (m *ThreadMapper) ResponseToModel(r *entity.ThreadResponse) *model.ThreadResponse {
	if r == nil {
		return nil
	}

	mr := &model.ThreadResponse{
		Id:        r.Id,
		ThreadId:  r.ThreadId,
		QueryId:   r.QueryId,
		Question:  r.Question,
		Sql:       r.Sql,
		Status:    r.Status,
		TaskType:  r.TaskType,
		CreatedAt: r.CreatedAt,
	}
	if r.UpdatedAt != nil {
		mr.UpdatedAt = *r.UpdatedAt
	}
	if r.Error != nil {
		raw, _ := json.Marshal(r.Error)
		mr.Error = raw
	}
	if r.AnswerDetail != nil {
		raw, _ := json.Marshal(r.AnswerDetail)
		mr.AnswerDetail = raw
	}
	if r.BreakdownDetail != nil {
		raw, _ := json.Marshal(r.BreakdownDetail)
		mr.BreakdownDetail = raw
	}
	if r.ChartDetail != nil {
		raw, _ := json.Marshal(r.ChartDetail)
		mr.ChartDetail = raw
	}
	return mr
}

func (m *ThreadMapper) ResponsesToEntities(models []*model.ThreadResponse) []*entity.ThreadResponse {
	entities := make([]*entity.ThreadResponse, len(models))
	for i, r := range models {
		entities[i] = m.ResponseToEntity(r)
	}
	return entities
}
