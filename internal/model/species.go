// Package model holds the records exchanged between the repository,
// service, and handler layers.
package model

// Species table and column names.
const (
	SpeciesTable          = "species"
	SpeciesColumnID       = "id"
	SpeciesColumnName     = "name"
	SpeciesColumnIsActive = "isActive"
)

// Species is one row of the species table.
type Species struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	IsActive bool   `db:"isActive" json:"isActive"`
}

// SpeciesFilter narrows a species listing. The zero value matches every row.
type SpeciesFilter struct {
	// IsActive restricts by flag when set.
	IsActive *bool
	// SearchByColumn maps a column to a case-insensitive substring it must contain.
	SearchByColumn map[string]string
	// IDs restricts to the given ids when non-empty.
	IDs []int64
	// Search matches a substring of any searchable column, or the id when numeric.
	Search string
}

// SpeciesChanges lists the columns an update should touch. A nil field
// is left alone; a field pointing at a blank string asks to clear it.
type SpeciesChanges struct {
	Name *string
}

// IsEmpty reports whether no column would change.
func (c SpeciesChanges) IsEmpty() bool {
	return c.Name == nil
}
