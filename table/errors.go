package table

import "errors"

var (
	// ErrSchemaConflict is returned when an ID is declared twice with different columns.
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrInvalidSchema is returned for malformed column declarations.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrUnknownTable is returned when an ID was never declared.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownColumn is returned when a column name is not part of a schema.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrArityMismatch is returned when an append or bulk load does not provide
	// the expected number of columns.
	ErrArityMismatch = errors.New("arity mismatch")

	// ErrTypeMismatch is returned when a value cannot be stored in a column.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrRowOutOfRange is returned for row positions outside [0, Len()).
	ErrRowOutOfRange = errors.New("row out of range")

	// ErrUnresolvedReference is returned when following an unset index column.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrReadOnly is returned when mutating a frozen table.
	ErrReadOnly = errors.New("table is read-only")
)
