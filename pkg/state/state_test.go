package state_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chatrelay/pkg/hub"
	"chatrelay/pkg/models"
	"chatrelay/pkg/state"
	"chatrelay/pkg/store"
)

var groupDefault = models.GroupInfo{Name: "Bongo SMS Group", Image: "/default-group.png"}

// recorder captures broadcast events in emission order.
type recorder struct {
	events     []hub.Event
	registered []*hub.Client
}

func (r *recorder) Broadcast(evt hub.Event) { r.events = append(r.events, evt) }

func (r *recorder) Register(c *hub.Client) { r.registered = append(r.registered, c) }

func newConversation(t *testing.T) (*state.Conversation, *recorder, string) {
	t.Helper()
	dir := t.TempDir()
	if err := store.Open("file", dir); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	conv, err := state.Load(groupDefault)
	if err != nil {
		t.Fatalf("state.Load: %v", err)
	}
	rec := &recorder{}
	conv.AttachBroadcaster(rec)
	return conv, rec, dir
}

func TestAppendMessageAssignsMonotonicTimestamps(t *testing.T) {
	conv, rec, _ := newConversation(t)

	var last int64
	for i := 0; i < 5; i++ {
		m, err := conv.AppendMessage(models.Message{Username: "alice", Message: "hi"})
		if err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
		if m.Timestamp < last {
			t.Fatalf("timestamp went backwards: %d < %d", m.Timestamp, last)
		}
		last = m.Timestamp
	}
	if len(conv.Messages()) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(conv.Messages()))
	}
	if len(rec.events) != 5 {
		t.Fatalf("expected 5 broadcast events, got %d", len(rec.events))
	}
	if rec.events[0].Type != "message" {
		t.Fatalf("expected message event, got %q", rec.events[0].Type)
	}
}

func TestUpdateGroupInfoChangedFields(t *testing.T) {
	conv, rec, _ := newConversation(t)

	changed, g, note, err := conv.UpdateGroupInfo(models.GroupUpdate{Username: "bob", Name: "New Room"})
	if err != nil {
		t.Fatalf("UpdateGroupInfo: %v", err)
	}
	if len(changed) != 1 || changed[0] != "name" {
		t.Fatalf("expected [name], got %v", changed)
	}
	if g.Name != "New Room" || g.Image != groupDefault.Image {
		t.Fatalf("unexpected group: %+v", g)
	}
	if !note.System || note.Username != models.SystemUsername {
		t.Fatalf("expected system notification, got %+v", note)
	}
	if !strings.Contains(note.Message, "bob") || !strings.Contains(note.Message, "name") {
		t.Fatalf("notification should name requester and field: %q", note.Message)
	}

	// the notification is appended through the normal message path
	msgs := conv.Messages()
	if len(msgs) != 1 || msgs[0].Message != note.Message {
		t.Fatalf("notification not stored: %+v", msgs)
	}

	// one combined event, not a separate message event
	if len(rec.events) != 1 || rec.events[0].Type != "groupUpdate" {
		t.Fatalf("expected one groupUpdate event, got %+v", rec.events)
	}
	data, ok := rec.events[0].Data.(hub.GroupUpdateData)
	if !ok {
		t.Fatalf("unexpected event payload: %#v", rec.events[0].Data)
	}
	if data.Notification == nil || data.GroupInfo.Name != "New Room" {
		t.Fatalf("combined event incomplete: %+v", data)
	}
}

func TestUpdateGroupInfoImageOnlyNamesOnlyImage(t *testing.T) {
	conv, _, _ := newConversation(t)

	_, _, note, err := conv.UpdateGroupInfo(models.GroupUpdate{Username: "carol", Image: "/new.png"})
	if err != nil {
		t.Fatalf("UpdateGroupInfo: %v", err)
	}
	if !strings.Contains(note.Message, "image") {
		t.Fatalf("notification should mention image: %q", note.Message)
	}
	if strings.Contains(note.Message, "name") {
		t.Fatalf("notification must not mention name: %q", note.Message)
	}
}

func TestUpdateGroupInfoBothFields(t *testing.T) {
	conv, _, _ := newConversation(t)

	changed, _, note, err := conv.UpdateGroupInfo(models.GroupUpdate{Username: "dave", Name: "X", Image: "/x.png"})
	if err != nil {
		t.Fatalf("UpdateGroupInfo: %v", err)
	}
	if len(changed) != 2 {
		t.Fatalf("expected both fields changed, got %v", changed)
	}
	if !strings.Contains(note.Message, "name and image") {
		t.Fatalf("expected joined field list, got %q", note.Message)
	}
}

func TestUpdateGroupInfoNoOp(t *testing.T) {
	conv, rec, _ := newConversation(t)

	// identical values: accepted but nothing changes
	changed, g, _, err := conv.UpdateGroupInfo(models.GroupUpdate{
		Username: "bob",
		Name:     groupDefault.Name,
		Image:    groupDefault.Image,
	})
	if err != nil {
		t.Fatalf("UpdateGroupInfo: %v", err)
	}
	if changed != nil {
		t.Fatalf("expected no changed fields, got %v", changed)
	}
	if g != groupDefault {
		t.Fatalf("group mutated on no-op: %+v", g)
	}
	if len(conv.Messages()) != 0 {
		t.Fatal("no-op update must not synthesize a notification")
	}
	if len(rec.events) != 0 {
		t.Fatal("no-op update must not broadcast")
	}
}

func TestRecentMessagesWindow(t *testing.T) {
	conv, _, _ := newConversation(t)

	for i := 0; i < 60; i++ {
		if _, err := conv.AppendMessage(models.Message{Username: "alice", Message: "m"}); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}
	recent := conv.RecentMessages(50)
	if len(recent) != 50 {
		t.Fatalf("expected 50 recent messages, got %d", len(recent))
	}
	all := conv.Messages()
	if recent[len(recent)-1] != all[len(all)-1] {
		t.Fatal("recent window must end at the latest message")
	}

	g, batch := conv.Snapshot(50)
	if g != groupDefault || len(batch) != 50 {
		t.Fatalf("snapshot mismatch: %+v, %d messages", g, len(batch))
	}
}

// lockCheckBroadcaster asserts that registration happens while the
// conversation lock is held: a mutation started during Register must not be
// able to complete until Subscribe returns.
type lockCheckBroadcaster struct {
	t        *testing.T
	conv     *state.Conversation
	appended chan struct{}
}

func (b *lockCheckBroadcaster) Broadcast(hub.Event) {}

func (b *lockCheckBroadcaster) Register(*hub.Client) {
	go func() {
		if _, err := b.conv.AppendMessage(models.Message{Username: "late", Message: "in-window"}); err != nil {
			b.t.Errorf("AppendMessage: %v", err)
		}
		close(b.appended)
	}()
	select {
	case <-b.appended:
		b.t.Error("mutation completed while the connect handshake held the lock")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeIsAtomicWithMutations(t *testing.T) {
	conv, _, _ := newConversation(t)
	for i := 0; i < 3; i++ {
		if _, err := conv.AppendMessage(models.Message{Username: "alice", Message: "m"}); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	check := &lockCheckBroadcaster{t: t, conv: conv, appended: make(chan struct{})}
	conv.AttachBroadcaster(check)

	client := hub.NewClient(nil, nil, "handshake-test")
	if err := conv.Subscribe(client, 50); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// the concurrent append was held back; it lands only after the handshake
	<-check.appended
	msgs := conv.Messages()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[3].Message != "in-window" {
		t.Fatalf("concurrent append missing or reordered: %+v", msgs[3])
	}
}

func TestPersistFailureKeepsMutationAndSuppressesBroadcast(t *testing.T) {
	conv, rec, dir := newConversation(t)

	// occupy the document path with a directory so the next save cannot
	// replace it, regardless of the user the tests run as
	docPath := filepath.Join(dir, "messages.json")
	if err := os.Mkdir(docPath, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := conv.AppendMessage(models.Message{Username: "alice", Message: "doomed"})
	var se *store.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if len(conv.Messages()) != 1 {
		t.Fatalf("in-memory append must survive the failed persist, got %d messages", len(conv.Messages()))
	}
	if len(rec.events) != 0 {
		t.Fatal("failed persist must not broadcast")
	}

	// the next successful save writes the whole log, healing the gap
	if err := os.Remove(docPath); err != nil {
		t.Fatal(err)
	}
	if _, err := conv.AppendMessage(models.Message{Username: "alice", Message: "next"}); err != nil {
		t.Fatalf("AppendMessage after recovery: %v", err)
	}
	persisted, err := store.LoadMessages()
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(persisted) != 2 {
		t.Fatalf("expected both messages persisted after recovery, got %d", len(persisted))
	}
	if len(rec.events) != 1 || rec.events[0].Type != "message" {
		t.Fatalf("expected one broadcast for the recovered append, got %+v", rec.events)
	}
}

func TestReloadReproducesPriorState(t *testing.T) {
	conv, _, dir := newConversation(t)

	if _, err := conv.AppendMessage(models.Message{Username: "alice", Message: "hi"}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if _, _, _, err := conv.UpdateGroupInfo(models.GroupUpdate{Username: "bob", Name: "New Room"}); err != nil {
		t.Fatalf("UpdateGroupInfo: %v", err)
	}
	before := conv.Messages()
	groupBefore := conv.CurrentGroupInfo()

	// simulate a restart
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := store.Open("file", dir); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	reloaded, err := state.Load(groupDefault)
	if err != nil {
		t.Fatalf("state.Load after restart: %v", err)
	}

	after := reloaded.Messages()
	if len(after) != len(before) {
		t.Fatalf("message count changed across restart: %d != %d", len(after), len(before))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("message %d changed across restart: %+v != %+v", i, after[i], before[i])
		}
	}
	if reloaded.CurrentGroupInfo() != groupBefore {
		t.Fatalf("group changed across restart: %+v != %+v", reloaded.CurrentGroupInfo(), groupBefore)
	}
}
