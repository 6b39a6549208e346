// Package core provides core types used throughout FlatDB.
//
// The package defines fundamental types like Identity, Database, Table and
// Column, and the error kinds shared by the parser, the stores and the engine.
//
// # Identity
//
// Identity identifies the author of journal entries:
//
//	identity := core.Identity{
//	    Name:  "John Doe",
//	    Email: "john@example.com",
//	}
//
// # Column Types
//
// Column types are free-form labels taken from CREATE TABLE (int, text,
// varchar, ...). They are written to the schema file and never enforced.
//
// # Table Definition
//
//	table := core.Table{
//	    Database: "shop",
//	    Name:     "products",
//	    Columns: []core.Column{
//	        {Name: "id", Type: "int"},
//	        {Name: "name", Type: "text"},
//	    },
//	}
//
// # Errors
//
// Every failure is reported as one of the sentinel errors in this package,
// wrapped with context. Use errors.Is to classify:
//
//	if errors.Is(err, core.ErrNoDatabaseSelected) { ... }
package core
