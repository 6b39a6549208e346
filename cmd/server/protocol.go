// Package main provides a TCP server for FlatDB.
package main

import (
	"encoding/json"
)

// Request is the JSON form of a statement line. Plain text lines are
// accepted too.
type Request struct {
	Query string `json:"query"`
}

// Response represents the server's response to one line.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"` // "query", "commit", "ignored" or "auth"
	Result  json.RawMessage `json:"result,omitempty"`
}

// AuthResponse is the result of LOGIN and AUTH.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity"`
	Token         string `json:"token,omitempty"`
	ExpiresIn     int    `json:"expires_in,omitempty"` // seconds
}

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses a JSON request from a byte slice.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	err := json.Unmarshal(data, &req)
	return req, err
}
