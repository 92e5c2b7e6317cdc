package view

import (
	"errors"

	"github.com/vegasq/colframe/expr"
	"github.com/vegasq/colframe/table"
)

var (
	// ErrJoinLengthMismatch is returned when zipped tables differ in length.
	ErrJoinLengthMismatch = errors.New("join length mismatch")

	// ErrAmbiguousColumn is returned when an unqualified column name exists
	// in more than one joined source.
	ErrAmbiguousColumn = errors.New("ambiguous column")

	// ErrNoContext is returned when a partition is read before Enter.
	ErrNoContext = errors.New("partition has no context")
)

// Source is anything a view can select rows from: a table or a joined view.
// R is the row type handed out for a position.
type Source[R any] interface {
	expr.Resolver
	Len() int
	RowAt(pos int) R
	Columns() []string
	Record(pos int) ([]any, error)
}

var (
	_ Source[table.Row] = (*table.Table)(nil)
	_ Source[JoinedRow] = (*Joined)(nil)
)
