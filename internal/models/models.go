package models

import "encoding/json"

// UserData represents a row of the user_data table
type UserData struct {
	UserID        string          `json:"user_id"`
	Data          json.RawMessage `json:"data"`
	CurrentThread string          `json:"current_thread,omitempty"`
}

// Thread represents an AI assistant conversation thread
type Thread struct {
	ID string `json:"id"`
}

// Message is a single thread message as returned by the assistant service.
// Content is kept in the service's own wire shape.
type Message struct {
	ID      string          `json:"id"`
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}
