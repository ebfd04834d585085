package table

import (
	"fmt"
	"strings"
)

// UnknownColumnError indicates a reference to a column the table does not have.
type UnknownColumnError struct {
	Name      string
	Available []string
}

func (e *UnknownColumnError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown column %q (table has no columns)", e.Name)
	}
	return fmt.Sprintf("unknown column %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// DuplicateColumnError indicates two columns would share a name.
type DuplicateColumnError struct{ Name string }

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("duplicate column name %q", e.Name)
}

// KindMismatchError indicates a cell whose kind does not fit its column or
// the operation applied to it.
type KindMismatchError struct {
	Column string
	Row    int // -1 when the whole column is at fault
	Want   Kind
	Got    Kind
}

func (e *KindMismatchError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("column %q: expected %s values, got %s", e.Column, e.Want, e.Got)
	}
	return fmt.Sprintf("column %q row %d: expected %s value, got %s", e.Column, e.Row, e.Want, e.Got)
}

// SchemaMismatchError indicates sub-tables under one nested column whose
// schemas disagree.
type SchemaMismatchError struct {
	Column string
	Row    int
	Want   Schema
	Got    Schema
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("column %q row %d: sub-table schema %s does not match %s", e.Column, e.Row, e.Got, e.Want)
}

// LengthMismatchError indicates columns (or list cells within one row) whose
// lengths disagree.
type LengthMismatchError struct {
	Row     int // -1 for whole-column lengths
	Columns []string
	Lengths []int
}

func (e *LengthMismatchError) Error() string {
	parts := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		parts[i] = fmt.Sprintf("%s=%d", c, e.Lengths[i])
	}
	if e.Row < 0 {
		return fmt.Sprintf("column lengths differ: %s", strings.Join(parts, ", "))
	}
	return fmt.Sprintf("row %d: list lengths differ: %s", e.Row, strings.Join(parts, ", "))
}
