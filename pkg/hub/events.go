package hub

import "chatrelay/pkg/models"

// Event is the server→client push envelope. Type is one of "message",
// "groupUpdate" or "messagesBatch"; Data carries the type-specific payload.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// GroupUpdateData is the payload of a groupUpdate event. Notification is
// nil on the connect-time snapshot and set when an update produced a system
// message, so subscribers refresh the room view and the message list from a
// single event.
type GroupUpdateData struct {
	GroupInfo    models.GroupInfo `json:"groupInfo"`
	Notification *models.Message  `json:"notification,omitempty"`
}

// MessageEvent wraps a newly accepted message.
func MessageEvent(m models.Message) Event {
	return Event{Type: "message", Data: m}
}

// GroupSnapshotEvent wraps the current group record for a connect-time
// snapshot.
func GroupSnapshotEvent(g models.GroupInfo) Event {
	return Event{Type: "groupUpdate", Data: GroupUpdateData{GroupInfo: g}}
}

// GroupUpdateEvent wraps a changed group record together with the system
// notification announcing the change.
func GroupUpdateEvent(g models.GroupInfo, note models.Message) Event {
	return Event{Type: "groupUpdate", Data: GroupUpdateData{GroupInfo: g, Notification: &note}}
}

// MessagesBatchEvent wraps the recent-history batch sent once per
// connection.
func MessagesBatchEvent(msgs []models.Message) Event {
	if msgs == nil {
		msgs = []models.Message{}
	}
	return Event{Type: "messagesBatch", Data: msgs}
}
