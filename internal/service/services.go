// Package service contains the business logic.
//
// It sits between the handler and repository layers.
// It receives validated data from the handler, performs
// business operations, and calls repository methods to interact
// with the data
package service

import (
	"github.com/deppfellow/adoption-agency/internal/repository"
	"github.com/deppfellow/adoption-agency/internal/server"
)

type Services struct {
	Species *SpeciesService
}

func NewServices(s *server.Server, repos *repository.Repositories) (*Services, error) {
	return &Services{
		Species: NewSpeciesService(s, repos.Species),
	}, nil
}
