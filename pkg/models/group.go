package models

// GroupInfo is the single mutable metadata record for the room. Both fields
// are always populated; updates are last-write-wins per field.
type GroupInfo struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// GroupUpdate is a client request to change group metadata. Username
// identifies the requester (not verified); empty Name/Image fields are
// no-ops.
type GroupUpdate struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Image    string `json:"image,omitempty"`
}
