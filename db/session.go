package db

import "github.com/google/uuid"

// Session is the per-connection record of the selected database. It is
// owned by one Engine and is not safe for concurrent use.
type Session struct {
	Id       string
	Database string // empty until USE succeeds
	Path     string
}

func NewSession() *Session {
	return &Session{Id: uuid.NewString()}
}

func (session *Session) Use(database string, path string) {
	session.Database = database
	session.Path = path
}

func (session *Session) HasDatabase() bool {
	return session.Database != ""
}
