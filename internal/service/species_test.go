package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/adoption-agency/internal/errs"
	"github.com/deppfellow/adoption-agency/internal/model"
	"github.com/deppfellow/adoption-agency/internal/repository"
	"github.com/deppfellow/adoption-agency/internal/server"
	"github.com/deppfellow/adoption-agency/internal/testdb"
)

func newSpeciesService(t *testing.T) (*SpeciesService, *server.Server) {
	t.Helper()

	s := testdb.NewServer(t)
	services, err := NewServices(s, repository.NewRepositories(s))
	require.NoError(t, err)
	return services.Species, s
}

func ptr[T any](v T) *T { return &v }

func species(id int64, name string, active bool) model.Species {
	return model.Species{ID: id, Name: name, IsActive: active}
}

var seedNames = []string{"Test name 1", "Test name 2", "Test name 3"}

func TestCreateSpecies(t *testing.T) {
	ctx := context.Background()

	t.Run("no name", func(t *testing.T) {
		svc, _ := newSpeciesService(t)

		_, err := svc.CreateSpecies(ctx, "")
		assert.ErrorIs(t, err, &errs.MissingInformation{})

		_, err = svc.CreateSpecies(ctx, "   ")
		assert.ErrorIs(t, err, &errs.MissingInformation{})
	})

	t.Run("name truly unique", func(t *testing.T) {
		svc, s := newSpeciesService(t)

		created, err := svc.CreateSpecies(ctx, "Test name")
		require.NoError(t, err)
		assert.Equal(t, species(1, "Test name", true), *created)
		assert.Equal(t, []model.Species{species(1, "Test name", true)}, testdb.AllSpecies(t, s.DB))
	})

	t.Run("name not unique", func(t *testing.T) {
		svc, s := newSpeciesService(t)
		testdb.InsertSpecies(t, s.DB, "Test name", true)

		_, err := svc.CreateSpecies(ctx, "Test name")
		assert.ErrorIs(t, err, &errs.DuplicateInformation{})

		_, err = svc.CreateSpecies(ctx, "  test NAME ")
		assert.ErrorIs(t, err, &errs.DuplicateInformation{})
	})

	t.Run("name unique in actives", func(t *testing.T) {
		svc, s := newSpeciesService(t)
		testdb.InsertSpecies(t, s.DB, "Test name", false)

		created, err := svc.CreateSpecies(ctx, "Test name")
		require.NoError(t, err)
		assert.Equal(t, species(2, "Test name", true), *created)
		assert.Len(t, testdb.AllSpecies(t, s.DB), 2)
	})

	t.Run("name is trimmed", func(t *testing.T) {
		svc, _ := newSpeciesService(t)

		created, err := svc.CreateSpecies(ctx, "  Cat  ")
		require.NoError(t, err)
		assert.Equal(t, "Cat", created.Name)
	})
}

func TestReadSpecies(t *testing.T) {
	ctx := context.Background()
	svc, s := newSpeciesService(t)
	testdb.SeedPairs(t, s.DB, seedNames...)

	t.Run("get all", func(t *testing.T) {
		result, err := svc.ReadSpecies(ctx, model.SpeciesFilter{})
		require.NoError(t, err)
		assert.Equal(t, []model.Species{
			species(1, "Test name 1", true),
			species(2, "Test name 1", false),
			species(3, "Test name 2", true),
			species(4, "Test name 2", false),
			species(5, "Test name 3", true),
			species(6, "Test name 3", false),
		}, result)
	})

	t.Run("get all active", func(t *testing.T) {
		result, err := svc.ReadSpecies(ctx, model.SpeciesFilter{IsActive: ptr(true)})
		require.NoError(t, err)
		assert.Equal(t, []model.Species{
			species(1, "Test name 1", true),
			species(3, "Test name 2", true),
			species(5, "Test name 3", true),
		}, result)
	})

	t.Run("get all inactive", func(t *testing.T) {
		result, err := svc.ReadSpecies(ctx, model.SpeciesFilter{IsActive: ptr(false)})
		require.NoError(t, err)
		assert.Equal(t, []model.Species{
			species(2, "Test name 1", false),
			species(4, "Test name 2", false),
			species(6, "Test name 3", false),
		}, result)
	})

	t.Run("token in name", func(t *testing.T) {
		result, err := svc.ReadSpecies(ctx, model.SpeciesFilter{
			SearchByColumn: map[string]string{"name": "1"},
		})
		require.NoError(t, err)
		assert.Equal(t, []model.Species{
			species(1, "Test name 1", true),
			species(2, "Test name 1", false),
		}, result)
	})

	t.Run("token in name ignores case", func(t *testing.T) {
		result, err := svc.ReadSpecies(ctx, model.SpeciesFilter{
			SearchByColumn: map[string]string{"name": "NAME 2"},
		})
		require.NoError(t, err)
		assert.Equal(t, []model.Species{
			species(3, "Test name 2", true),
			species(4, "Test name 2", false),
		}, result)
	})

	t.Run("active with token in name", func(t *testing.T) {
		result, err := svc.ReadSpecies(ctx, model.SpeciesFilter{
			SearchByColumn: map[string]string{"name": "1"},
			IsActive:       ptr(true),
		})
		require.NoError(t, err)
		assert.Equal(t, []model.Species{species(1, "Test name 1", true)}, result)
	})

	t.Run("wildcards match literally", func(t *testing.T) {
		result, err := svc.ReadSpecies(ctx, model.SpeciesFilter{
			SearchByColumn: map[string]string{"name": "%"},
		})
		require.NoError(t, err)
		assert.NotNil(t, result)
		assert.Empty(t, result)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := svc.ReadSpecies(ctx, model.SpeciesFilter{
			SearchByColumn: map[string]string{"color": "brown"},
		})
		assert.ErrorIs(t, err, &errs.InvalidColumn{})
	})

	t.Run("by ids existing", func(t *testing.T) {
		result, err := svc.ReadSpecies(ctx, model.SpeciesFilter{IDs: []int64{1, 3}})
		require.NoError(t, err)
		assert.Equal(t, []model.Species{
			species(1, "Test name 1", true),
			species(3, "Test name 2", true),
		}, result)
	})

	t.Run("by ids missing", func(t *testing.T) {
		result, err := svc.ReadSpecies(ctx, model.SpeciesFilter{IDs: []int64{10, 30}})
		require.NoError(t, err)
		assert.NotNil(t, result)
		assert.Empty(t, result)
	})

	t.Run("free text search matches name or id", func(t *testing.T) {
		result, err := svc.ReadSpecies(ctx, model.SpeciesFilter{Search: "3", IsActive: ptr(false)})
		require.NoError(t, err)
		assert.Equal(t, []model.Species{species(6, "Test name 3", false)}, result)

		result, err = svc.ReadSpecies(ctx, model.SpeciesFilter{Search: "4"})
		require.NoError(t, err)
		assert.Equal(t, []model.Species{species(4, "Test name 2", false)}, result)
	})

	t.Run("get by id existing", func(t *testing.T) {
		result, err := svc.GetSpecies(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, species(1, "Test name 1", true), *result)
	})

	t.Run("get by id missing", func(t *testing.T) {
		result, err := svc.GetSpecies(ctx, 10)
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("get by id invalid", func(t *testing.T) {
		_, err := svc.GetSpecies(ctx, 0)
		assert.ErrorIs(t, err, &errs.MissingInformation{})
	})
}

func TestUpdateSpecies(t *testing.T) {
	ctx := context.Background()

	t.Run("missing id", func(t *testing.T) {
		svc, _ := newSpeciesService(t)
		_, err := svc.UpdateSpecies(ctx, 0, model.SpeciesChanges{})
		assert.ErrorIs(t, err, &errs.MissingInformation{})
	})

	t.Run("nonexistent id", func(t *testing.T) {
		svc, _ := newSpeciesService(t)
		_, err := svc.UpdateSpecies(ctx, 10, model.SpeciesChanges{})
		assert.ErrorIs(t, err, &errs.InvalidTarget{})

		_, err = svc.UpdateSpecies(ctx, 10, model.SpeciesChanges{Name: ptr("")})
		assert.ErrorIs(t, err, &errs.InvalidTarget{}, "existence is checked before the changes")
	})

	t.Run("attempt to remove name", func(t *testing.T) {
		svc, s := newSpeciesService(t)
		testdb.SeedPairs(t, s.DB, seedNames...)

		_, err := svc.UpdateSpecies(ctx, 1, model.SpeciesChanges{Name: ptr("")})
		assert.ErrorIs(t, err, &errs.CannotRemoveInfo{})

		_, err = svc.UpdateSpecies(ctx, 1, model.SpeciesChanges{Name: ptr("  ")})
		assert.ErrorIs(t, err, &errs.CannotRemoveInfo{})
	})

	t.Run("empty changes are a no-op", func(t *testing.T) {
		svc, s := newSpeciesService(t)
		testdb.SeedPairs(t, s.DB, seedNames...)

		result, err := svc.UpdateSpecies(ctx, 1, model.SpeciesChanges{})
		require.NoError(t, err)
		assert.Equal(t, species(1, "Test name 1", true), *result)
	})

	t.Run("change name to unique", func(t *testing.T) {
		svc, s := newSpeciesService(t)
		testdb.SeedPairs(t, s.DB, seedNames...)

		result, err := svc.UpdateSpecies(ctx, 1, model.SpeciesChanges{Name: ptr("Test name 1 updated")})
		require.NoError(t, err)
		assert.Equal(t, species(1, "Test name 1 updated", true), *result)
		assert.Equal(t, species(1, "Test name 1 updated", true), testdb.AllSpecies(t, s.DB)[0])
	})

	t.Run("change name to not unique", func(t *testing.T) {
		svc, s := newSpeciesService(t)
		testdb.SeedPairs(t, s.DB, seedNames...)

		_, err := svc.UpdateSpecies(ctx, 1, model.SpeciesChanges{Name: ptr("Test name 2")})
		assert.ErrorIs(t, err, &errs.DuplicateInformation{})
	})

	t.Run("change case of own name", func(t *testing.T) {
		svc, s := newSpeciesService(t)
		testdb.SeedPairs(t, s.DB, seedNames...)

		result, err := svc.UpdateSpecies(ctx, 1, model.SpeciesChanges{Name: ptr("TEST NAME 1")})
		require.NoError(t, err)
		assert.Equal(t, "TEST NAME 1", result.Name)
	})

	t.Run("inactive row may take an active name", func(t *testing.T) {
		svc, s := newSpeciesService(t)
		testdb.SeedPairs(t, s.DB, seedNames...)

		result, err := svc.UpdateSpecies(ctx, 2, model.SpeciesChanges{Name: ptr("Test name 3")})
		require.NoError(t, err)
		assert.Equal(t, species(2, "Test name 3", false), *result)
	})
}

func TestDeactivateSpecies(t *testing.T) {
	ctx := context.Background()
	svc, s := newSpeciesService(t)
	testdb.SeedPairs(t, s.DB, seedNames...)

	t.Run("no id", func(t *testing.T) {
		_, err := svc.DeactivateSpecies(ctx, 0)
		assert.ErrorIs(t, err, &errs.MissingInformation{})
	})

	t.Run("nonexistent id", func(t *testing.T) {
		_, err := svc.DeactivateSpecies(ctx, 10)
		assert.ErrorIs(t, err, &errs.InvalidTarget{})
	})

	t.Run("inactive", func(t *testing.T) {
		result, err := svc.DeactivateSpecies(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, species(2, "Test name 1", false), *result)
	})

	t.Run("active", func(t *testing.T) {
		result, err := svc.DeactivateSpecies(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, species(1, "Test name 1", false), *result)
		assert.Equal(t, species(1, "Test name 1", false), testdb.AllSpecies(t, s.DB)[0])
	})
}

func TestActivateSpecies(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*SpeciesService, *server.Server) {
		svc, s := newSpeciesService(t)
		testdb.SeedPairs(t, s.DB, seedNames...)
		testdb.InsertSpecies(t, s.DB, "Test name 4", false)
		return svc, s
	}

	t.Run("no id", func(t *testing.T) {
		svc, _ := setup(t)
		_, err := svc.ActivateSpecies(ctx, 0)
		assert.ErrorIs(t, err, &errs.MissingInformation{})
	})

	t.Run("nonexistent id", func(t *testing.T) {
		svc, _ := setup(t)
		_, err := svc.ActivateSpecies(ctx, 10)
		assert.ErrorIs(t, err, &errs.InvalidTarget{})
	})

	t.Run("inactive would be unique", func(t *testing.T) {
		svc, s := setup(t)

		result, err := svc.ActivateSpecies(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, species(7, "Test name 4", true), *result)
		assert.Equal(t, species(7, "Test name 4", true), testdb.AllSpecies(t, s.DB)[6])
	})

	t.Run("inactive would not be unique", func(t *testing.T) {
		svc, _ := setup(t)
		_, err := svc.ActivateSpecies(ctx, 2)
		assert.ErrorIs(t, err, &errs.DuplicateInformation{})
	})

	t.Run("active", func(t *testing.T) {
		svc, _ := setup(t)
		result, err := svc.ActivateSpecies(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, species(1, "Test name 1", true), *result)
	})

	t.Run("after the active twin is deactivated", func(t *testing.T) {
		svc, _ := setup(t)
		_, err := svc.DeactivateSpecies(ctx, 1)
		require.NoError(t, err)

		result, err := svc.ActivateSpecies(ctx, 2)
		require.NoError(t, err)
		assert.True(t, result.IsActive)
	})
}

func TestDeleteSpecies(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*SpeciesService, *server.Server) {
		svc, s := newSpeciesService(t)
		for _, name := range seedNames {
			testdb.InsertSpecies(t, s.DB, name, true)
		}
		return svc, s
	}

	t.Run("no id", func(t *testing.T) {
		svc, _ := setup(t)
		assert.ErrorIs(t, svc.DeleteSpecies(ctx, 0), &errs.MissingInformation{})
	})

	t.Run("nonexistent id", func(t *testing.T) {
		svc, _ := setup(t)
		assert.ErrorIs(t, svc.DeleteSpecies(ctx, 10), &errs.InvalidTarget{})
	})

	t.Run("id exists", func(t *testing.T) {
		svc, s := setup(t)
		require.NoError(t, svc.DeleteSpecies(ctx, 1))
		assert.Equal(t, []model.Species{
			species(2, "Test name 2", true),
			species(3, "Test name 3", true),
		}, testdb.AllSpecies(t, s.DB))
	})

	t.Run("ids are not reused", func(t *testing.T) {
		svc, _ := setup(t)
		require.NoError(t, svc.DeleteSpecies(ctx, 3))

		created, err := svc.CreateSpecies(ctx, "Test name 5")
		require.NoError(t, err)
		assert.Equal(t, int64(4), created.ID)
	})
}

func TestUniqueIndexViolationReportedAsDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, s := newSpeciesService(t)
	testdb.InsertSpecies(t, s.DB, "Cat", true)

	// Skip the pre-check, as a concurrent writer would.
	_, err := svc.repo.Insert(ctx, "cat")
	require.Error(t, err)

	translated := svc.translate("cat", err)
	assert.ErrorIs(t, translated, &errs.DuplicateInformation{})
	assert.Equal(t, "A row with name = 'cat' in species already exists and this value must be unique.", translated.Error())
}
