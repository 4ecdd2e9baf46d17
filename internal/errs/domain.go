package errs

import (
	"errors"
	"fmt"
	"strings"
)

// MissingInformation is returned when a required value was not supplied.
type MissingInformation struct {
	Table   string
	Columns []string
}

// NewMissingInformation creates a MissingInformation error for table.
func NewMissingInformation(table string, columns ...string) *MissingInformation {
	return &MissingInformation{Table: table, Columns: columns}
}

func (e *MissingInformation) Error() string {
	return fmt.Sprintf("Missing %s for table %s", strings.Join(e.Columns, ", "), e.Table)
}

// Is matches any *MissingInformation, so errors.Is(err, &MissingInformation{}) works.
func (e *MissingInformation) Is(target error) bool {
	_, ok := target.(*MissingInformation)
	return ok
}

// InvalidTarget is returned when the referenced id does not exist.
type InvalidTarget struct {
	Table string
	ID    int64
}

// NewInvalidTarget creates an InvalidTarget error.
func NewInvalidTarget(table string, id int64) *InvalidTarget {
	return &InvalidTarget{Table: table, ID: id}
}

func (e *InvalidTarget) Error() string {
	return fmt.Sprintf("Could not find id %d in %s", e.ID, e.Table)
}

func (e *InvalidTarget) Is(target error) bool {
	_, ok := target.(*InvalidTarget)
	return ok
}

// CannotRemoveInfo is returned when an update tries to clear a required column.
type CannotRemoveInfo struct {
	ID      int64
	Table   string
	Columns []string
}

// NewCannotRemoveInfo creates a CannotRemoveInfo error.
func NewCannotRemoveInfo(id int64, table string, columns ...string) *CannotRemoveInfo {
	return &CannotRemoveInfo{ID: id, Table: table, Columns: columns}
}

func (e *CannotRemoveInfo) Error() string {
	return fmt.Sprintf("Could not remove info from %s for %d in %s", strings.Join(e.Columns, ", "), e.ID, e.Table)
}

func (e *CannotRemoveInfo) Is(target error) bool {
	_, ok := target.(*CannotRemoveInfo)
	return ok
}

// DuplicateInformation is returned when a value that must be unique is already taken.
type DuplicateInformation struct {
	Column string
	Value  string
	Table  string
}

// NewDuplicateInformation creates a DuplicateInformation error.
func NewDuplicateInformation(column, value, table string) *DuplicateInformation {
	return &DuplicateInformation{Column: column, Value: value, Table: table}
}

func (e *DuplicateInformation) Error() string {
	return fmt.Sprintf("A row with %s = '%s' in %s already exists and this value must be unique.", e.Column, e.Value, e.Table)
}

func (e *DuplicateInformation) Is(target error) bool {
	_, ok := target.(*DuplicateInformation)
	return ok
}

// InvalidColumn is returned when a filter names a column that cannot be searched.
type InvalidColumn struct {
	Table  string
	Column string
}

// NewInvalidColumn creates an InvalidColumn error.
func NewInvalidColumn(table, column string) *InvalidColumn {
	return &InvalidColumn{Table: table, Column: column}
}

func (e *InvalidColumn) Error() string {
	return fmt.Sprintf("Column %s cannot be searched in %s", e.Column, e.Table)
}

func (e *InvalidColumn) Is(target error) bool {
	_, ok := target.(*InvalidColumn)
	return ok
}

// FromDomainError maps a domain error onto its HTTPError.
// It returns nil when err carries no domain error.
func FromDomainError(err error) *HTTPError {
	var (
		missing   *MissingInformation
		invalid   *InvalidTarget
		remove    *CannotRemoveInfo
		duplicate *DuplicateInformation
		column    *InvalidColumn
	)

	switch {
	case errors.As(err, &missing):
		code := "MISSING_INFORMATION"
		fieldErrors := make([]FieldError, 0, len(missing.Columns))
		for _, c := range missing.Columns {
			fieldErrors = append(fieldErrors, FieldError{Field: c, Error: "is required"})
		}
		return NewBadRequestError(missing.Error(), true, &code, fieldErrors)

	case errors.As(err, &invalid):
		code := "INVALID_TARGET"
		return NewNotFoundError(invalid.Error(), true, &code)

	case errors.As(err, &remove):
		code := "CANNOT_REMOVE_INFO"
		fieldErrors := make([]FieldError, 0, len(remove.Columns))
		for _, c := range remove.Columns {
			fieldErrors = append(fieldErrors, FieldError{Field: c, Error: "cannot be removed"})
		}
		return NewBadRequestError(remove.Error(), true, &code, fieldErrors)

	case errors.As(err, &duplicate):
		code := "DUPLICATE_INFORMATION"
		return NewConflictError(duplicate.Error(), true, &code)

	case errors.As(err, &column):
		code := "INVALID_COLUMN"
		return NewBadRequestError(column.Error(), true, &code, []FieldError{{Field: column.Column, Error: "is not searchable"}})
	}

	return nil
}
