package mapper

import (
	"encoding/json"

	"ai-askdata-be/internal/entity"
	"ai-askdata-be/internal/model"
)

type ApiMapper struct{}

func NewApiMapper() *ApiMapper {
	return &ApiMapper{}
}

func (m *ApiMapper) HistoryToEntity(h *model.ApiHistory) *entity.ApiHistory {
	if h == nil {
		return nil
	}

	var request map[string]interface{}
	if len(h.RequestPayload) > 0 {
		_ = json.Unmarshal(h.RequestPayload, &request)
	}
	var response map[string]interface{}
	if len(h.ResponsePayload) > 0 {
		_ = json.Unmarshal(h.ResponsePayload, &response)
	}

	return &entity.ApiHistory{
		Id:              h.Id,
		ProjectId:       h.ProjectId,
		ThreadId:        h.ThreadId,
		ApiType:         h.ApiType,
		RequestPayload:  request,
		ResponsePayload: response,
		StatusCode:      h.StatusCode,
		CreatedAt:       h.CreatedAt,
	}
}

func (m *ApiMapper) HistoryToModel(h *entity.ApiHistory) *model.ApiHistory {
	if h == nil {
		return nil
	}

	mh := &model.ApiHistory{
		Id:         h.Id,
		ProjectId:  h.ProjectId,
		ThreadId:   h.ThreadId,
		ApiType:    h.ApiType,
		StatusCode: h.StatusCode,
		CreatedAt:  h.CreatedAt,
	}
	if h.RequestPayload != nil {
		raw, _ := json.Marshal(h.RequestPayload)
		mh.RequestPayload = raw
	}
	if h.ResponsePayload != nil {
		raw, _ := json.Marshal(h.ResponsePayload)
		mh.ResponsePayload = raw
	}
	return mh
}

func (m *ApiMapper) DeploymentToEntity(d *model.Deployment) *entity.Deployment {
	if d == nil {
		return nil
	}
	return &entity.Deployment{
		Id:        d.Id,
		ProjectId: d.ProjectId,
		Hash:      d.Hash,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
	}
}

func (m *ApiMapper) DeploymentToModel(d *entity.Deployment) *model.Deployment {
	if d == nil {
		return nil
	}
	return &model.Deployment{
		Id:        d.Id,
		ProjectId: d.ProjectId,
		Hash:      d.Hash,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
	}
}
