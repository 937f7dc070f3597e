package specification

import "gorm.io/gorm"

// Specification is a composable query predicate. Repositories apply each one
// to the gorm chain in argument order.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
