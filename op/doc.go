// Package op provides table and database level operations for FlatDB.
//
// The op package sits between the SQL engine (db/) and the persistence
// layer (ps/).
//
// # DatabaseOp
//
//	created, dbOp, err := op.CreateDatabase("shop", persistence)
//	dbOp, err := op.GetDatabase("shop", persistence)
//	tables, err := dbOp.TableNames()
//
// # TableOp
//
//	tableOp, err := op.OpenTable("shop", "items", persistence)
//	tableOp.Append([]string{"1", "apple"})
//
//	rows, err := tableOp.Load()
//	for i, fields := range rows.Scan(func(fields []string) bool {
//	    return fields[0] == "1"
//	}) {
//	    // process matching rows
//	}
//	tableOp.Rewrite(rows)
//
// # Architecture
//
//	SQL Parser (sql/)
//	     ↓
//	SQL Engine (db/)
//	     ↓
//	Operations (op/)     ← This package
//	     ↓
//	Persistence (ps/)
//	     ↓
//	Flat files (go-billy)
package op
