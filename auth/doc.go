// Package auth handles user credentials for the shell and the server.
//
// Users are kept in a plain text credential file, one "username=hash;"
// entry per line, with bcrypt password hashes:
//
//	store, err := auth.OpenCredentialStore("DataSource/System/user_info.txt")
//	err = store.Register("alice", "secret")
//	err = store.Verify("alice", "secret")
//
// After a correct password the shell asks for a random four digit code
// (see NewChallenge). The server instead hands out HS256 session tokens
// from a TokenIssuer.
package auth
