package repository

import (
	"github.com/deppfellow/adoption-agency/internal/server"
)

// Repositories is a container for all repository instances.
type Repositories struct {
	Species *SpeciesRepository
}

// NewRepositories constructs the repository container on top of s.DB.
func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Species: NewSpeciesRepository(s.DB.Helper()),
	}
}
