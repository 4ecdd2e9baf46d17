package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/deppfellow/adoption-agency/internal/database"
	"github.com/deppfellow/adoption-agency/internal/errs"
	"github.com/deppfellow/adoption-agency/internal/model"
)

const speciesColumns = `id, name, "isActive"`

// searchableSpeciesColumns maps the filter column name to the SQL it compares.
var searchableSpeciesColumns = map[string]string{
	model.SpeciesColumnName: "name",
}

// SpeciesRepository reads and writes the species table.
type SpeciesRepository struct {
	db *database.SQLHelper
}

func NewSpeciesRepository(db *database.SQLHelper) *SpeciesRepository {
	return &SpeciesRepository{db: db}
}

// Insert adds an active species and returns the stored row.
func (r *SpeciesRepository) Insert(ctx context.Context, name string) (*model.Species, error) {
	row, err := r.db.FetchOne(ctx,
		`INSERT INTO species (name, "isActive") VALUES ($1, $2) RETURNING `+speciesColumns,
		name, true,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert species: %w", err)
	}
	return decodeSpecies(row)
}

// FindByID returns the species with id, or nil when there is none.
func (r *SpeciesRepository) FindByID(ctx context.Context, id int64) (*model.Species, error) {
	row, err := r.db.FetchOne(ctx,
		`SELECT `+speciesColumns+` FROM species WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get species %d: %w", id, err)
	}
	return decodeSpecies(row)
}

// FindActiveByName returns an active species whose name equals name,
// ignoring case, other than excludeID. It returns nil when there is none.
func (r *SpeciesRepository) FindActiveByName(ctx context.Context, name string, excludeID int64) (*model.Species, error) {
	row, err := r.db.FetchOne(ctx,
		`SELECT `+speciesColumns+` FROM species
		WHERE "isActive" = $1 AND LOWER(name) = LOWER($2) AND id <> $3
		ORDER BY id
		LIMIT 1`,
		true, name, excludeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to look up species by name: %w", err)
	}
	return decodeSpecies(row)
}

// List returns the rows matching filter ordered by id. The slice is
// empty, never nil, when nothing matches.
func (r *SpeciesRepository) List(ctx context.Context, filter model.SpeciesFilter) ([]model.Species, error) {
	var (
		conditions []string
		args       []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.IsActive != nil {
		conditions = append(conditions, `"isActive" = `+bind(*filter.IsActive))
	}

	if len(filter.IDs) > 0 {
		placeholders := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			placeholders[i] = bind(id)
		}
		conditions = append(conditions, "id IN ("+strings.Join(placeholders, ", ")+")")
	}

	// Map order is random; sort so the statement text is stable.
	columns := make([]string, 0, len(filter.SearchByColumn))
	for column := range filter.SearchByColumn {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		expr, ok := searchableSpeciesColumns[column]
		if !ok {
			return nil, errs.NewInvalidColumn(model.SpeciesTable, column)
		}
		conditions = append(conditions, containsIgnoreCase(expr, bind(escapeLike(filter.SearchByColumn[column]))))
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		alternatives := make([]string, 0, len(searchableSpeciesColumns)+1)
		for _, expr := range searchableSpeciesColumns {
			alternatives = append(alternatives, containsIgnoreCase(expr, bind(escapeLike(search))))
		}
		if id, err := strconv.ParseInt(search, 10, 64); err == nil {
			alternatives = append(alternatives, "id = "+bind(id))
		}
		conditions = append(conditions, "("+strings.Join(alternatives, " OR ")+")")
	}

	query := `SELECT ` + speciesColumns + ` FROM species`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list species: %w", err)
	}

	result := make([]model.Species, 0, len(rows))
	for _, row := range rows {
		species, err := decodeSpecies(row)
		if err != nil {
			return nil, err
		}
		result = append(result, *species)
	}
	return result, nil
}

// UpdateName renames a species and returns the stored row, or nil when
// id does not exist.
func (r *SpeciesRepository) UpdateName(ctx context.Context, id int64, name string) (*model.Species, error) {
	row, err := r.db.FetchOne(ctx,
		`UPDATE species SET name = $1 WHERE id = $2 RETURNING `+speciesColumns,
		name, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update species %d: %w", id, err)
	}
	return decodeSpecies(row)
}

// SetActive flips the isActive flag and returns the stored row, or nil
// when id does not exist.
func (r *SpeciesRepository) SetActive(ctx context.Context, id int64, active bool) (*model.Species, error) {
	row, err := r.db.FetchOne(ctx,
		`UPDATE species SET "isActive" = $1 WHERE id = $2 RETURNING `+speciesColumns,
		active, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set species %d active=%t: %w", id, active, err)
	}
	return decodeSpecies(row)
}

// Delete removes the row and reports how many rows went away.
func (r *SpeciesRepository) Delete(ctx context.Context, id int64) (int64, error) {
	affected, err := r.db.Exec(ctx, `DELETE FROM species WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete species %d: %w", id, err)
	}
	return affected, nil
}

func decodeSpecies(row database.Row) (*model.Species, error) {
	if row == nil {
		return nil, nil
	}
	var species model.Species
	if err := database.DecodeRow(row, &species); err != nil {
		return nil, err
	}
	return &species, nil
}

func containsIgnoreCase(expr, placeholder string) string {
	return "LOWER(" + expr + ") LIKE '%' || LOWER(" + placeholder + `) || '%' ESCAPE '\'`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in user input match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
