package models

// Message is a single conversation entry. Messages are immutable once
// accepted: the server assigns the timestamp and the record never changes
// afterwards.
type Message struct {
	Username string `json:"username"`
	Message  string `json:"message,omitempty"`
	Image    string `json:"image,omitempty"`
	// Timestamp is assigned at acceptance time (milliseconds since epoch)
	// and is non-decreasing with arrival order.
	Timestamp int64 `json:"timestamp"`
	// System marks server-synthesized notifications such as group-change
	// announcements.
	System bool `json:"system,omitempty"`
}

// SystemUsername is the author recorded on server-synthesized notifications.
const SystemUsername = "System"
