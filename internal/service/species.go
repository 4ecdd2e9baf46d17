package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/deppfellow/adoption-agency/internal/errs"
	"github.com/deppfellow/adoption-agency/internal/logger"
	"github.com/deppfellow/adoption-agency/internal/model"
	"github.com/deppfellow/adoption-agency/internal/repository"
	"github.com/deppfellow/adoption-agency/internal/server"
	"github.com/deppfellow/adoption-agency/internal/sqlerr"
)

// SpeciesService enforces the species rules: names are required, and
// no two active rows may share a name (compared case-insensitively).
type SpeciesService struct {
	server *server.Server
	repo   *repository.SpeciesRepository
}

func NewSpeciesService(s *server.Server, repo *repository.SpeciesRepository) *SpeciesService {
	return &SpeciesService{
		server: s,
		repo:   repo,
	}
}

func (s *SpeciesService) log(ctx context.Context) *zerolog.Logger {
	return logger.FromContext(ctx, s.server.Logger)
}

// CreateSpecies inserts a new active species.
func (s *SpeciesService) CreateSpecies(ctx context.Context, name string) (*model.Species, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.NewMissingInformation(model.SpeciesTable, model.SpeciesColumnName)
	}

	if err := s.ensureNameAvailable(ctx, name, 0); err != nil {
		return nil, err
	}

	created, err := s.repo.Insert(ctx, name)
	if err != nil {
		return nil, s.translate(name, err)
	}

	s.log(ctx).Info().
		Int64("species_id", created.ID).
		Str("name", created.Name).
		Msg("species created")

	return created, nil
}

// ReadSpecies lists species matching filter, ordered by id.
func (s *SpeciesService) ReadSpecies(ctx context.Context, filter model.SpeciesFilter) ([]model.Species, error) {
	result, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	s.log(ctx).Debug().Int("count", len(result)).Msg("species listed")
	return result, nil
}

// GetSpecies returns the species with id, or nil when there is none.
func (s *SpeciesService) GetSpecies(ctx context.Context, id int64) (*model.Species, error) {
	if id <= 0 {
		return nil, errs.NewMissingInformation(model.SpeciesTable, model.SpeciesColumnID)
	}
	return s.repo.FindByID(ctx, id)
}

// UpdateSpecies applies changes to an existing species.
//
// The target must exist before changes are looked at. Clearing the name
// is refused, and a new name must not collide with another active row
// while the target itself is active.
func (s *SpeciesService) UpdateSpecies(ctx context.Context, id int64, changes model.SpeciesChanges) (*model.Species, error) {
	current, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}

	if changes.IsEmpty() {
		return current, nil
	}

	name := strings.TrimSpace(*changes.Name)
	if name == "" {
		return nil, errs.NewCannotRemoveInfo(id, model.SpeciesTable, model.SpeciesColumnName)
	}

	if name == current.Name {
		return current, nil
	}

	if current.IsActive {
		if err := s.ensureNameAvailable(ctx, name, id); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.UpdateName(ctx, id, name)
	if err != nil {
		return nil, s.translate(name, err)
	}
	if updated == nil {
		// Deleted between the lookup and the update.
		return nil, errs.NewInvalidTarget(model.SpeciesTable, id)
	}

	s.log(ctx).Info().
		Int64("species_id", id).
		Str("old_name", current.Name).
		Str("name", updated.Name).
		Msg("species renamed")

	return updated, nil
}

// DeactivateSpecies marks a species inactive. Deactivating an inactive
// species succeeds without changes.
func (s *SpeciesService) DeactivateSpecies(ctx context.Context, id int64) (*model.Species, error) {
	current, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsActive {
		return current, nil
	}

	updated, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, errs.NewInvalidTarget(model.SpeciesTable, id)
	}

	s.log(ctx).Info().Int64("species_id", id).Msg("species deactivated")
	return updated, nil
}

// ActivateSpecies marks a species active unless another active species
// already uses its name.
func (s *SpeciesService) ActivateSpecies(ctx context.Context, id int64) (*model.Species, error) {
	current, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.IsActive {
		return current, nil
	}

	if err := s.ensureNameAvailable(ctx, current.Name, id); err != nil {
		return nil, err
	}

	updated, err := s.repo.SetActive(ctx, id, true)
	if err != nil {
		return nil, s.translate(current.Name, err)
	}
	if updated == nil {
		return nil, errs.NewInvalidTarget(model.SpeciesTable, id)
	}

	s.log(ctx).Info().Int64("species_id", id).Msg("species activated")
	return updated, nil
}

// DeleteSpecies permanently removes a species.
func (s *SpeciesService) DeleteSpecies(ctx context.Context, id int64) error {
	if _, err := s.mustFind(ctx, id); err != nil {
		return err
	}

	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.NewInvalidTarget(model.SpeciesTable, id)
	}

	s.log(ctx).Info().Int64("species_id", id).Msg("species deleted")
	return nil
}

// mustFind validates id and loads the row, failing when it does not exist.
func (s *SpeciesService) mustFind(ctx context.Context, id int64) (*model.Species, error) {
	if id <= 0 {
		return nil, errs.NewMissingInformation(model.SpeciesTable, model.SpeciesColumnID)
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errs.NewInvalidTarget(model.SpeciesTable, id)
	}
	return current, nil
}

func (s *SpeciesService) ensureNameAvailable(ctx context.Context, name string, excludeID int64) error {
	existing, err := s.repo.FindActiveByName(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if existing != nil {
		s.log(ctx).Warn().
			Str("name", name).
			Int64("existing_id", existing.ID).
			Msg("species name already in use")
		return errs.NewDuplicateInformation(model.SpeciesColumnName, name, model.SpeciesTable)
	}
	return nil
}

// translate reports a unique index violation, raised when a concurrent
// writer won the race past ensureNameAvailable, as a duplicate.
func (s *SpeciesService) translate(name string, err error) error {
	if sqlerr.IsUniqueViolation(err) {
		return errs.NewDuplicateInformation(model.SpeciesColumnName, name, model.SpeciesTable)
	}
	return err
}
