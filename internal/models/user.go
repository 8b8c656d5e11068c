package models

import "time"

// User represents a console user account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose the hash in JSON responses
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// ConfigDocument is an opaque training configuration stored as JSON. The
// console never interprets the payload; it only round-trips it to the browser
// and hands a reference to the trainer engine on start.
type ConfigDocument struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Data      string    `json:"data"` // raw JSON document
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Preset is a read-only config preset discovered on disk.
type Preset struct {
	Name     string `json:"name"`
	FileName string `json:"file_name"`
	Data     string `json:"data"`
}
