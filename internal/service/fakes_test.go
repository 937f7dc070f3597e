package service

import (
	"context"
	"sort"
	"sync"

	"ai-askdata-be/internal/entity"
	"ai-askdata-be/internal/repository/contract"
	"ai-askdata-be/internal/repository/specification"
	"ai-askdata-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// fakeStore is an in-memory stand-in for the persistence layer. It interprets
// the specification types the services actually use.
type fakeStore struct {
	mu          sync.Mutex
	threads     map[uuid.UUID]*entity.Thread
	responses   map[uuid.UUID]*entity.ThreadResponse
	histories   []*entity.ApiHistory
	deployments []*entity.Deployment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		threads:   make(map[uuid.UUID]*entity.Thread),
		responses: make(map[uuid.UUID]*entity.ThreadResponse),
	}
}

func (s *fakeStore) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return s }

func (s *fakeStore) Begin(ctx context.Context) error { return nil }
func (s *fakeStore) Commit() error                   { return nil }
func (s *fakeStore) Rollback() error                 { return nil }

func (s *fakeStore) ThreadRepository() contract.ThreadRepository                 { return (*fakeThreadRepo)(s) }
func (s *fakeStore) ThreadResponseRepository() contract.ThreadResponseRepository { return (*fakeResponseRepo)(s) }
func (s *fakeStore) ApiHistoryRepository() contract.ApiHistoryRepository         { return (*fakeHistoryRepo)(s) }
func (s *fakeStore) DeploymentRepository() contract.DeploymentRepository         { return (*fakeDeploymentRepo)(s) }

func matchThread(t *entity.Thread, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByID:
			if t.Id != sp.ID {
				return false
			}
		case specification.UserOwnedBy:
			if t.UserId != sp.UserID {
				return false
			}
		case specification.ByProjectID:
			if t.ProjectId != sp.ProjectID {
				return false
			}
		}
	}
	return true
}

func matchResponse(r *entity.ThreadResponse, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByID:
			if r.Id != sp.ID {
				return false
			}
		case specification.ByThreadID:
			if r.ThreadId != sp.ThreadID {
				return false
			}
		case specification.ByQueryID:
			if r.QueryId != sp.QueryID {
				return false
			}
		case specification.ByStatus:
			if r.Status != sp.Status {
				return false
			}
		}
	}
	return true
}

func orderDesc(specs []specification.Specification) bool {
	for _, spec := range specs {
		if ob, ok := spec.(specification.OrderBy); ok {
			return ob.Desc
		}
	}
	return false
}

type fakeThreadRepo fakeStore

func (f *fakeThreadRepo) Create(ctx context.Context, thread *entity.Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads[thread.Id] = thread
	return nil
}

func (f *fakeThreadRepo) Update(ctx context.Context, thread *entity.Thread) error {
	return f.Create(ctx, thread)
}

func (f *fakeThreadRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.threads, id)
	return nil
}

func (f *fakeThreadRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.threads {
		if matchThread(t, specs) {
			// Copy, so callers mutating the loaded entity behave like they
			// would against a real row.
			clone := *t
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeThreadRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Thread
	for _, t := range f.threads {
		if matchThread(t, specs) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if orderDesc(specs) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeThreadRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := f.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

type fakeResponseRepo fakeStore

func (f *fakeResponseRepo) Create(ctx context.Context, response *entity.ThreadResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[response.Id] = response
	return nil
}

func (f *fakeResponseRepo) Update(ctx context.Context, response *entity.ThreadResponse) error {
	return f.Create(ctx, response)
}

func (f *fakeResponseRepo) Upsert(ctx context.Context, response *entity.ThreadResponse) error {
	return f.Create(ctx, response)
}

func (f *fakeResponseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.responses, id)
	return nil
}

func (f *fakeResponseRepo) DeleteByThreadId(ctx context.Context, threadId uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.responses {
		if r.ThreadId == threadId {
			delete(f.responses, id)
		}
	}
	return nil
}

func (f *fakeResponseRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ThreadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.responses {
		if matchResponse(r, specs) {
			clone := *r
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeResponseRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ThreadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.ThreadResponse
	for _, r := range f.responses {
		if matchResponse(r, specs) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if orderDesc(specs) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type fakeHistoryRepo fakeStore

func (f *fakeHistoryRepo) Create(ctx context.Context, record *entity.ApiHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories = append(f.histories, record)
	return nil
}

func (f *fakeHistoryRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ApiHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*entity.ApiHistory(nil), f.histories...), nil
}

func (f *fakeHistoryRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.histories)), nil
}

type fakeDeploymentRepo fakeStore

func (f *fakeDeploymentRepo) Create(ctx context.Context, deployment *entity.Deployment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deployments = append(f.deployments, deployment)
	return nil
}

func (f *fakeDeploymentRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.deployments) == 0 {
		return nil, nil
	}
	return f.deployments[0], nil
}

func (f *fakeDeploymentRepo) FindLatestDeployed(ctx context.Context, specs ...specification.Specification) (*entity.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *entity.Deployment
	for _, d := range f.deployments {
		if d.Status != entity.DeploymentStatusDeployed {
			continue
		}
		if latest == nil || d.CreatedAt.After(latest.CreatedAt) {
			latest = d
		}
	}
	return latest, nil
}

func (s *fakeStore) getResponse(id uuid.UUID) *entity.ThreadResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.responses[id]
}

func (s *fakeStore) getThread(id uuid.UUID) *entity.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threads[id]
}

func (s *fakeStore) historyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.histories)
}

// nopLogger discards everything; tests assert on behavior, not log lines.
type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type deliveredMessage struct {
	userID      uuid.UUID
	messageType string
	data        interface{}
}

// recordingDelivery captures everything pushed to the real-time channel.
type recordingDelivery struct {
	mu       sync.Mutex
	messages []deliveredMessage
}

func (d *recordingDelivery) Send(userID uuid.UUID, messageType string, data interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, deliveredMessage{userID: userID, messageType: messageType, data: data})
}

func (d *recordingDelivery) ofType(messageType string) []deliveredMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []deliveredMessage
	for _, m := range d.messages {
		if m.messageType == messageType {
			out = append(out, m)
		}
	}
	return out
}
