package entity

import (
	"time"

	"github.com/google/uuid"
)

// Deployment marks a deployed semantic model for a project. API v1 endpoints
// require one.
type Deployment struct {
	Id        uuid.UUID
	ProjectId uuid.UUID
	Hash      string
	Status    string
	CreatedAt time.Time
}

const (
	DeploymentStatusDeployed = "DEPLOYED"
	DeploymentStatusFailed   = "FAILED"
)
