// Package sql provides lexing, parsing and WHERE evaluation for FlatDB.
//
// The grammar is fixed and small: one statement form per keyword and at
// most one WHERE condition per statement.
//
// # Parser Usage
//
//	parser := sql.NewParser("SELECT * FROM users WHERE age > 30")
//	statement, err := parser.Parse()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Text that does not start with a supported keyword yields
// ErrUnrecognizedStatement. Grammar errors wrap core.ErrMalformedStatement.
//
// # Supported Statements
//
//   - CreateDatabaseStatement, UseStatement
//   - CreateTableStatement
//   - InsertStatement (one or more ';' separated rows)
//   - SelectStatement, UpdateStatement, DeleteStatement
//   - BeginStatement, CommitStatement, RollbackStatement
//
// # Predicates
//
// ParsePredicate never fails outright. A malformed condition is kept on
// the Predicate and reported by Matches, so callers can treat it as
// "no row matches".
package sql
