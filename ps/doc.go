// Package ps provides the persistence layer for FlatDB.
//
// Every database is a directory under the base path. Each table owns a
// schema file and a data file:
//
//	<base>/<database>/Schema/<table>_schema.txt   col1=type1;col2=type2
//	<base>/<database>/<table>.data                col1$col2\nval1$val2\n
//
// Files live on a go-billy filesystem, so tests run against memfs and
// production against the host filesystem.
//
// # Memory Persistence
//
//	persistence, err := ps.NewMemoryPersistence()
//
// # File Persistence
//
//	persistence, err := ps.NewFilePersistence("DataSource/Database")
//
// # History
//
// NewHistory opens an optional git journal in <base>/.git. Record commits
// the current state of every database after a write. The journal can be
// pushed to replicas:
//
//	history.AddRemote("origin", "https://github.com/org/journal.git")
//	history.Push("origin", &ps.RemoteAuth{Type: ps.AuthTypeToken, Token: token})
package ps
