package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nickyhof/FlatDB/core"
)

// ConnectionState tracks per-connection authentication state.
type ConnectionState struct {
	identity      *core.Identity
	authenticated bool
	tokenExpiry   time.Time
}

// IsAuthenticated reports whether the connection may run statements. An
// expired token drops the connection back to unauthenticated.
func (cs *ConnectionState) IsAuthenticated() bool {
	if cs.authenticated && !cs.tokenExpiry.IsZero() && time.Now().After(cs.tokenExpiry) {
		cs.authenticated = false
		cs.identity = nil
	}
	return cs.authenticated
}

// Identity returns the connection's identity, or nil if not authenticated.
func (cs *ConnectionState) Identity() *core.Identity {
	return cs.identity
}

func (cs *ConnectionState) authenticate(identity core.Identity, expiresAt time.Time) {
	cs.identity = &identity
	cs.authenticated = true
	cs.tokenExpiry = expiresAt
}

// isAuthCommand reports whether the line is LOGIN or AUTH.
func isAuthCommand(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	keyword := strings.ToUpper(fields[0])
	return keyword == "LOGIN" || keyword == "AUTH"
}

// parseAuthCommand parses an AUTH command and returns the auth type and token.
// Supported formats:
//   - AUTH JWT <token>
func parseAuthCommand(line string) (authType, token string, err error) {
	parts := strings.Fields(line)
	if len(parts) < 3 {
		return "", "", errors.New("invalid AUTH command: expected AUTH <type> <credentials>")
	}

	authType = strings.ToUpper(parts[1])
	switch authType {
	case "JWT":
		return authType, parts[2], nil
	default:
		return "", "", fmt.Errorf("unsupported auth type: %s", authType)
	}
}

func authError(err error) Response {
	return Response{Success: false, Type: "auth", Error: err.Error()}
}

func authSuccess(identity core.Identity, token string, expiresAt time.Time) Response {
	ar := AuthResponse{
		Authenticated: true,
		Identity:      identity.Name,
		Token:         token,
	}
	if identity.Email != "" {
		ar.Identity = fmt.Sprintf("%s <%s>", identity.Name, identity.Email)
	}
	if !expiresAt.IsZero() {
		ar.ExpiresIn = int(time.Until(expiresAt).Seconds())
	}

	data, _ := json.Marshal(ar)
	return Response{Success: true, Type: "auth", Result: data}
}

// handleAuth processes LOGIN and AUTH lines.
func (s *Server) handleAuth(line string, state *ConnectionState) Response {
	if strings.EqualFold(strings.Fields(line)[0], "LOGIN") {
		return s.handleLogin(line, state)
	}

	if s.opts.Tokens == nil {
		return authError(errors.New("token authentication not configured"))
	}

	_, token, err := parseAuthCommand(line)
	if err != nil {
		return authError(err)
	}

	claims, err := s.opts.Tokens.Validate(token)
	if err != nil {
		return authError(err)
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	state.authenticate(claims.Identity(), expiresAt)
	return authSuccess(claims.Identity(), "", expiresAt)
}

// handleLogin checks LOGIN <user> <password> against the credential
// file and hands out a session token when a secret is configured.
func (s *Server) handleLogin(line string, state *ConnectionState) Response {
	if s.opts.Credentials == nil {
		return authError(errors.New("password login not configured"))
	}

	parts := strings.Fields(line)
	if len(parts) != 3 {
		return authError(errors.New("invalid LOGIN command: expected LOGIN <user> <password>"))
	}

	if err := s.opts.Credentials.Verify(parts[1], parts[2]); err != nil {
		s.logger.Warn("login failed", "user", parts[1], "error", err)
		return authError(err)
	}

	identity := core.Identity{Name: parts[1]}
	if s.opts.Tokens == nil {
		state.authenticate(identity, time.Time{})
		return authSuccess(identity, "", time.Time{})
	}

	token, expiresAt, err := s.opts.Tokens.Issue(identity)
	if err != nil {
		return authError(err)
	}
	state.authenticate(identity, expiresAt)
	return authSuccess(identity, token, expiresAt)
}
