package api

import (
	"encoding/json"
)

// ResultResponse wraps every successful inventory response.
type ResultResponse struct {
	Result interface{} `json:"result"`
}

// MutationResult acknowledges a committed change.
type MutationResult struct {
	Message string          `json:"message"`
	Request string          `json:"request"`
	Payload json.RawMessage `json:"payload" swaggertype:"object"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// HealthResponse reports server and database status.
type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Version  string `json:"version"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
	Details  string `json:"details,omitempty"`
}

// WebSocketStats reports change feed connections.
type WebSocketStats struct {
	ConnectedClients int    `json:"connected_clients"`
	Status           string `json:"status"`
}
