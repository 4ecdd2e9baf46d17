package cli

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deppfellow/adoption-agency/internal/config"
	"github.com/deppfellow/adoption-agency/internal/errs"
	"github.com/deppfellow/adoption-agency/internal/model"
	"github.com/deppfellow/adoption-agency/internal/testdb"
)

// fileConfig points at a sqlite file so state survives between commands.
func fileConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := testdb.Config()
	cfg.Database.Path = filepath.Join(t.TempDir(), "adoption.db")
	return cfg
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand(&Options{
		LoadConfig: func() (*config.Config, error) { return cfg, nil },
	})

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	root := NewRootCommand(nil)
	assert.Equal(t, "adoption", root.Use)

	commands := [][]string{
		{"serve"},
		{"migrate"},
		{"species", "create"},
		{"species", "list"},
		{"species", "get"},
		{"species", "update"},
		{"species", "activate"},
		{"species", "deactivate"},
		{"species", "delete"},
	}

	for _, path := range commands {
		sub, _, err := root.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}

	assert.NotNil(t, root.PersistentFlags().Lookup("pretty"))
}

func TestMigrateCommand(t *testing.T) {
	cfg := fileConfig(t)

	out, err := run(t, cfg, "migrate")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","dialect":"sqlite"}`, out)

	// A second run finds nothing to do.
	_, err = run(t, cfg, "migrate")
	require.NoError(t, err)
}

func TestSpeciesCommands(t *testing.T) {
	cfg := fileConfig(t)
	_, err := run(t, cfg, "migrate")
	require.NoError(t, err)

	out, err := run(t, cfg, "species", "create", "Cat")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"Cat","isActive":true}`, out)

	_, err = run(t, cfg, "species", "create", "  cat ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, &errs.DuplicateInformation{}))
	assert.Equal(t, ExitRejected, ExitCode(err))

	_, err = run(t, cfg, "species", "create", "Caterpillar")
	require.NoError(t, err)

	out, err = run(t, cfg, "species", "list", "--name", "CAT", "--ids", "2")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":2,"name":"Caterpillar","isActive":true}]`, out)

	_, err = run(t, cfg, "species", "list", "--search", "color=brown")
	assert.True(t, errors.Is(err, &errs.InvalidColumn{}))

	out, err = run(t, cfg, "species", "get", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"Cat","isActive":true}`, out)

	_, err = run(t, cfg, "species", "get", "9")
	assert.True(t, errors.Is(err, &errs.InvalidTarget{}))
	assert.Equal(t, ExitRejected, ExitCode(err))

	out, err = run(t, cfg, "species", "update", "1", "--name", "Kitten")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"Kitten","isActive":true}`, out)

	_, err = run(t, cfg, "species", "update", "1", "--name", "")
	assert.True(t, errors.Is(err, &errs.CannotRemoveInfo{}))

	out, err = run(t, cfg, "species", "update", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"Kitten","isActive":true}`, out)

	out, err = run(t, cfg, "species", "deactivate", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"Kitten","isActive":false}`, out)

	out, err = run(t, cfg, "species", "list", "--active", "false")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"name":"Kitten","isActive":false}]`, out)

	out, err = run(t, cfg, "species", "activate", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"Kitten","isActive":true}`, out)

	out, err = run(t, cfg, "species", "delete", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"deleted":true}`, out)

	out, err = run(t, cfg, "species", "list", "-q", "kitten")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestSpeciesCommands_BadInput(t *testing.T) {
	cfg := fileConfig(t)

	_, err := run(t, cfg, "species", "get", "abc")
	require.EqualError(t, err, `invalid species id "abc"`)
	assert.Equal(t, ExitFailure, ExitCode(err))

	_, err = run(t, cfg, "species", "list", "--active", "maybe")
	require.EqualError(t, err, `invalid --active value "maybe"`)

	_, err = run(t, cfg, "species", "create")
	require.Error(t, err)
}

func TestPrettyOutput(t *testing.T) {
	cfg := fileConfig(t)
	_, err := run(t, cfg, "migrate")
	require.NoError(t, err)

	out, err := run(t, cfg, "--pretty", "species", "create", "Dog")
	require.NoError(t, err)
	assert.Equal(t, "{\n\t\"id\": 1,\n\t\"name\": \"Dog\",\n\t\"isActive\": true\n}\n", out)
}

func TestConfigError(t *testing.T) {
	cmd := NewRootCommand(&Options{
		LoadConfig: func() (*config.Config, error) { return nil, errors.New("missing ADOPTION_PRIMARY.ENV") },
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"migrate"})

	err := cmd.Execute()
	require.EqualError(t, err, "failed to load config: missing ADOPTION_PRIMARY.ENV")
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestListFilter(t *testing.T) {
	filter, err := speciesListOptions{
		active: "true",
		name:   "cat",
		search: map[string]string{"name": "ignored"},
		ids:    []int64{1, 2},
		query:  "x",
	}.filter()
	require.NoError(t, err)

	require.NotNil(t, filter.IsActive)
	assert.True(t, *filter.IsActive)
	assert.Equal(t, map[string]string{model.SpeciesColumnName: "cat"}, filter.SearchByColumn)
	assert.Equal(t, []int64{1, 2}, filter.IDs)
	assert.Equal(t, "x", filter.Search)

	empty, err := speciesListOptions{}.filter()
	require.NoError(t, err)
	assert.Equal(t, model.SpeciesFilter{}, empty)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitRejected, ExitCode(errs.NewMissingInformation(model.SpeciesTable, "name")))
	assert.Equal(t, ExitRejected, ExitCode(errs.NewBadRequestError("bad", false, nil, nil)))
}
