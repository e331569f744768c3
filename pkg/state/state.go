// Package state holds the authoritative in-memory conversation: the
// append-only message log and the group record. It is the only place
// mutations are applied. Each mutation runs its mutate→persist→broadcast
// sequence under one lock, which is the concurrent-server equivalent of the
// single-threaded loop this protocol assumes: no two mutations interleave,
// and events reach the fanout queue in emission order.
package state

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"chatrelay/pkg/hub"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/metrics"
	"chatrelay/pkg/models"
	"chatrelay/pkg/store"
)

// Broadcaster receives every derived event, in emission order, and accepts
// new subscribers into the fanout set. Satisfied by *hub.Hub; a nil
// broadcaster (as in some tests) disables fanout only.
type Broadcaster interface {
	Broadcast(evt hub.Event)
	Register(c *hub.Client)
}

// Conversation is the single owner of the room's state. Lifecycle: loaded
// once at startup via Load, mutated only through AppendMessage and
// UpdateGroupInfo, flushed to the store synchronously after every mutation.
// There is no deletion.
type Conversation struct {
	mu          sync.Mutex
	messages    []models.Message
	group       models.GroupInfo
	lastTS      int64
	broadcaster Broadcaster
}

// Load builds the conversation from the opened store, defaulting the group
// record on first boot.
func Load(groupDefault models.GroupInfo) (*Conversation, error) {
	msgs, err := store.LoadMessages()
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	g, err := store.LoadGroup(groupDefault)
	if err != nil {
		return nil, fmt.Errorf("load group: %w", err)
	}
	c := &Conversation{messages: msgs, group: g}
	if n := len(msgs); n > 0 {
		c.lastTS = msgs[n-1].Timestamp
	}
	logger.Info("conversation_loaded", "messages", len(msgs), "group", g.Name)
	return c, nil
}

// AttachBroadcaster wires the fanout hub in. Called once during startup,
// before the HTTP listener accepts mutations.
func (c *Conversation) AttachBroadcaster(b Broadcaster) {
	c.mu.Lock()
	c.broadcaster = b
	c.mu.Unlock()
}

// AppendMessage assigns the server timestamp, appends the message to the
// log, persists the log, and broadcasts a message event. The finalized
// record is returned. A persistence failure is returned to the caller and
// suppresses the broadcast; the in-memory append is not rolled back.
func (c *Conversation) AppendMessage(m models.Message) (models.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, err := c.appendLocked(m)
	if err != nil {
		return m, err
	}
	metrics.MessagesTotal.Inc()
	if c.broadcaster != nil {
		c.broadcaster.Broadcast(hub.MessageEvent(m))
	}
	return m, nil
}

// appendLocked stamps and stores one message. Caller holds c.mu.
func (c *Conversation) appendLocked(m models.Message) (models.Message, error) {
	ts := time.Now().UnixMilli()
	// wall-clock steps backwards must not reorder the log
	if ts < c.lastTS {
		ts = c.lastTS
	}
	m.Timestamp = ts
	c.lastTS = ts
	c.messages = append(c.messages, m)
	if err := store.SaveMessages(c.messages); err != nil {
		return m, err
	}
	return m, nil
}

// UpdateGroupInfo applies a partial update. A field is changed only when the
// incoming value is non-empty and differs from the current value. When
// nothing changed the call is a no-op: no persistence, no notification, no
// broadcast. Otherwise the group record is persisted, a system message
// naming the changed fields and the requester is appended through the same
// path as any message, and one combined groupUpdate event is broadcast.
// Returns the changed field names, the resulting record, and the
// notification (zero when unchanged).
func (c *Conversation) UpdateGroupInfo(u models.GroupUpdate) ([]string, models.GroupInfo, models.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var changed []string
	if u.Name != "" && u.Name != c.group.Name {
		c.group.Name = u.Name
		changed = append(changed, "name")
	}
	if u.Image != "" && u.Image != c.group.Image {
		c.group.Image = u.Image
		changed = append(changed, "image")
	}
	if len(changed) == 0 {
		return nil, c.group, models.Message{}, nil
	}

	if err := store.SaveGroup(c.group); err != nil {
		return changed, c.group, models.Message{}, err
	}

	note := models.Message{
		Username: models.SystemUsername,
		Message:  fmt.Sprintf("%s updated group %s", u.Username, strings.Join(changed, " and ")),
		System:   true,
	}
	note, err := c.appendLocked(note)
	if err != nil {
		return changed, c.group, note, err
	}

	metrics.GroupUpdatesTotal.Inc()
	logger.Info("group_updated", "by", u.Username, "fields", strings.Join(changed, ","))
	if c.broadcaster != nil {
		c.broadcaster.Broadcast(hub.GroupUpdateEvent(c.group, note))
	}
	return changed, c.group, note, nil
}

// Messages returns a copy of the full message log in insertion order.
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// RecentMessages returns a copy of the most recent n messages in order.
func (c *Conversation) RecentMessages(n int) []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := len(c.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]models.Message, len(c.messages)-start)
	copy(out, c.messages[start:])
	return out
}

// CurrentGroupInfo returns the current group record.
func (c *Conversation) CurrentGroupInfo() models.GroupInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.group
}

// Subscribe runs the connect handshake atomically with respect to mutations:
// it queues the group snapshot and the most recent n messages into the
// client's send buffer and registers the client with the broadcaster, all
// while holding the mutation lock. Every broadcast is emitted under the same
// lock, so the batch ends at the latest accepted message and every later
// mutation reaches the client as a live event; no message can fall between
// the two.
func (c *Conversation) Subscribe(client *hub.Client, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broadcaster == nil {
		return fmt.Errorf("no broadcaster attached")
	}

	start := len(c.messages) - n
	if start < 0 {
		start = 0
	}
	msgs := make([]models.Message, len(c.messages)-start)
	copy(msgs, c.messages[start:])

	if err := client.QueueEvent(hub.GroupSnapshotEvent(c.group)); err != nil {
		return err
	}
	if err := client.QueueEvent(hub.MessagesBatchEvent(msgs)); err != nil {
		return err
	}
	c.broadcaster.Register(client)
	return nil
}

// Snapshot returns the group record and the most recent n messages under a
// single lock acquisition, for the connect-time handshake.
func (c *Conversation) Snapshot(n int) (models.GroupInfo, []models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := len(c.messages) - n
	if start < 0 {
		start = 0
	}
	msgs := make([]models.Message, len(c.messages)-start)
	copy(msgs, c.messages[start:])
	return c.group, msgs
}
