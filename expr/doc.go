// Package expr provides filter expressions over table columns.
//
// An expression is an immutable tree of column references, constants,
// configuration parameters and operators. Trees are independent of any
// table until they are bound: Bind resolves every column reference against
// a concrete table (or joined view) and every parameter against a Params
// provider, and returns a Predicate that is evaluated row by row without
// allocating.
//
// # Building expressions
//
// Trees can be written in Go:
//
//	cut := expr.And(
//	    expr.Le(expr.Abs(expr.Col("eta")), expr.Param("etaCut")),
//	    expr.Ne(expr.Col("trackType"), expr.Const(2)),
//	)
//
// or parsed from text:
//
//	cut, err := expr.Parse("nabs(eta) <= $etaCut && trackType != 2")
//
// # Syntax
//
//   - Comparison: ==, =, !=, <, <=, >, >=
//   - Logical: &&, ||, ! (also and, or, not)
//   - Arithmetic: +, -, *, /, unary minus
//   - Bitwise and: & (binds tighter than comparisons: flags & 1 == 1)
//   - Functions: abs(x), nabs(x), isset(ref)
//   - Parameters: $name, resolved at bind time
//   - Columns: name, name[i] for an array element, ref.name to read a
//     column of the row referenced by the index column ref
//   - Literals: numbers (a trailing f is accepted), true, false
//
// # Evaluation
//
// Values are compared as float64. Booleans read as 0 and 1, and a number
// used where a condition is expected is true when it is non-zero. A column
// read through an unset reference is NaN, so every ordered comparison on it
// is false; guard such reads with isset(ref) && ..., which short-circuits.
package expr
