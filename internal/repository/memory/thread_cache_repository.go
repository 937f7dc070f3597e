package memory

import (
	"sync"
	"time"

	"ai-askdata-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// CachedThread is the client-facing projection of a thread: the ordered list
// of responses consumers observe while tasks progress in the background.
type CachedThread struct {
	Id        uuid.UUID
	Responses []*entity.ThreadResponse
}

// ThreadCacheRepository keeps live thread projections in memory so views can
// render task progress without a full refetch.
//
// Poller goroutines reconcile into the same projection that request handlers
// read. go-cache only guards its own map, not the values stored in it, so
// every access goes through mu. The stored slice never escapes: writes keep
// a private copy and Get hands out a snapshot.
type ThreadCacheRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewThreadCacheRepository() *ThreadCacheRepository {
	// Default expiration of 1 hour, purge sweep every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &ThreadCacheRepository{
		cache: c,
	}
}

func (r *ThreadCacheRepository) Save(thread *CachedThread) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(thread)
}

// put stores a detached copy so the caller's slice cannot alias the cached
// projection. Callers hold mu.
func (r *ThreadCacheRepository) put(thread *CachedThread) {
	copied := &CachedThread{
		Id:        thread.Id,
		Responses: append([]*entity.ThreadResponse(nil), thread.Responses...),
	}
	r.cache.Set(copied.Id.String(), copied, cache.DefaultExpiration)
}

// Get returns a snapshot of the cached projection. Readers may range over
// Responses while reconciliation keeps appending to the stored projection.
func (r *ThreadCacheRepository) Get(threadId uuid.UUID) (*CachedThread, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, found := r.cache.Get(threadId.String())
	if !found {
		return nil, false
	}
	stored := x.(*CachedThread)
	return &CachedThread{
		Id:        stored.Id,
		Responses: append([]*entity.ThreadResponse(nil), stored.Responses...),
	}, true
}

func (r *ThreadCacheRepository) Delete(threadId uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(threadId.String())
}

// UpdateThreadCache reconciles one updated response into the cached thread.
//
// Best effort: when the thread is not cached (its view is not mounted) this is
// a no-op. Presence is decided by response id, never by query id: query ids
// change across adjustment and re-run cycles while the response id is stable.
// A known id replaces the entry in place; a novel id appends. Applying the
// same update twice leaves the thread unchanged.
func (r *ThreadCacheRepository) UpdateThreadCache(threadId uuid.UUID, updated *entity.ThreadResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(threadId.String())
	if !found {
		return
	}
	thread := x.(*CachedThread)

	replaced := false
	for i, resp := range thread.Responses {
		if resp.Id == updated.Id {
			thread.Responses[i] = updated
			replaced = true
			break
		}
	}
	if !replaced {
		thread.Responses = append(thread.Responses, updated)
	}

	r.put(thread)
}
