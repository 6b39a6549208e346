// Package db provides the statement engine for FlatDB.
//
// An Engine is one session: it holds the selected database and the
// transaction buffer. Engines share a *ps.Persistence but never share
// session state.
//
// # Engine Usage
//
//	engine := db.NewEngine(persistence, identity)
//	result, err := engine.Execute("SELECT * FROM users WHERE age > 30")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Display(os.Stdout)
//
// # Transactions
//
// Between BEGIN TRANSACTION and COMMIT statements are parsed and buffered
// instead of executed. COMMIT replays them in order and keeps going when
// one fails. ROLLBACK drops the buffer; nothing was applied, so nothing
// needs undoing.
//
// # Result Types
//
//   - QueryResult: returned by SELECT, rendered as 15 character columns
//   - CommitResult: returned by every other statement
//   - ListResult: catalog listings (databases, tables, schema, history)
package db
