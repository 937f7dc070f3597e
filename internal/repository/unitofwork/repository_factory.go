package unitofwork

import "context"

// RepositoryFactory mints units of work; services depend on it rather than on
// gorm directly so tests can substitute in-memory stores.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
