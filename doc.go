// Package FlatDB provides a small relational query engine over flat files.
//
// Every database is a directory, every table a '$' separated data file
// whose first line is the column header, with the declared schema kept in
// a separate Schema file. Statements run against one session at a time.
//
// # Quick Start
//
// Create an in-memory database:
//
//	persistence, _ := ps.NewMemoryPersistence()
//	instance := FlatDB.Open(persistence)
//	engine := instance.Engine(core.Identity{Name: "App", Email: "app@example.com"})
//
//	engine.Execute("CREATE DATABASE shop")
//	engine.Execute("USE shop")
//	engine.Execute("CREATE TABLE items (id int, name text, qty int)")
//	engine.Execute("INSERT INTO items VALUES (1, 'pen', 10)")
//
//	result, _ := engine.Execute("SELECT * FROM items WHERE qty > 5")
//	result.Display(os.Stdout)
//
// # Supported Statements
//
//   - CREATE DATABASE, USE
//   - CREATE TABLE
//   - INSERT INTO ... VALUES
//   - SELECT with an optional single WHERE condition (=, >, <)
//   - UPDATE ... SET, including "col = col + n" arithmetic
//   - DELETE FROM
//   - BEGIN, COMMIT, ROLLBACK
//
// Statements between BEGIN and COMMIT are buffered and replayed in order
// on COMMIT. Replay is not atomic.
package FlatDB
