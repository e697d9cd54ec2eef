package models

// UserProfile is the public profile record stored at /usersData/{id}.
// It is created at registration and never deleted.
type UserProfile struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Photo   string   `json:"photo"`
	Blocked []string `json:"blocked"`

	// Presence fields, written by the status endpoint and the
	// websocket heartbeat. Epoch seconds.
	Status   string `json:"status,omitempty"`
	LastSeen int64  `json:"lastSeen,omitempty"`
}
