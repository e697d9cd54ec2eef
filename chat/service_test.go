package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatlink/models"
	"chatlink/store"
)

func newTestService(t *testing.T) (*Service, *store.MemoryTree) {
	t.Helper()
	tree := store.NewMemoryTree()
	return NewService(tree), tree
}

func seedUser(t *testing.T, tree *store.MemoryTree, id, name string) {
	t.Helper()
	err := tree.Set(context.Background(), "/usersData/"+id, models.UserProfile{
		ID:    id,
		Name:  name,
		Photo: "https://example.com/" + id + ".png",
	})
	if err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func TestCreateChatWritesBothSides(t *testing.T) {
	svc, tree := newTestService(t)
	ctx := context.Background()
	seedUser(t, tree, "u1", "Alice")
	seedUser(t, tree, "u2", "Bob")

	meta, err := svc.CreateChat(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if meta.ReceiverID != "u2" || meta.ReceiverName != "Bob" {
		t.Errorf("caller metadata = %+v; want receiver u2/Bob", meta)
	}
	if meta.CreatedBy != "u1" {
		t.Errorf("CreatedBy = %q; want u1", meta.CreatedBy)
	}

	mirror, err := svc.Metadata(ctx, "u2", meta.ChatID)
	if err != nil {
		t.Fatalf("counterpart metadata: %v", err)
	}
	if mirror.ReceiverID != "u1" || mirror.ReceiverName != "Alice" {
		t.Errorf("counterpart metadata = %+v; want receiver u1/Alice", mirror)
	}
	if mirror.ChatID != meta.ChatID {
		t.Errorf("chat ids differ: %q vs %q", mirror.ChatID, meta.ChatID)
	}
	if mirror.LastTimestamp != meta.LastTimestamp {
		t.Errorf("creation timestamps differ: %d vs %d", mirror.LastTimestamp, meta.LastTimestamp)
	}
}

func TestCreateChatRejectsSelfAndUnknown(t *testing.T) {
	svc, tree := newTestService(t)
	ctx := context.Background()
	seedUser(t, tree, "u1", "Alice")

	if _, err := svc.CreateChat(ctx, "u1", "u1"); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("self chat err = %v; want ErrUnknownUser", err)
	}
	if _, err := svc.CreateChat(ctx, "u1", "ghost"); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("unknown target err = %v; want ErrUnknownUser", err)
	}
}

// Sending updates the last-message summary on both participants'
// records, so both chat lists agree after every send.
func TestSendMessageFansOutToBothChatLists(t *testing.T) {
	svc, tree := newTestService(t)
	ctx := context.Background()
	seedUser(t, tree, "u1", "Alice")
	seedUser(t, tree, "u2", "Bob")

	meta, err := svc.CreateChat(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if _, err := svc.SendMessage(ctx, "u1", meta.ChatID, "jane"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	for _, userID := range []string{"u1", "u2"} {
		list, err := svc.ChatList(ctx, userID)
		if err != nil {
			t.Fatalf("ChatList(%s): %v", userID, err)
		}
		if len(list) != 1 {
			t.Fatalf("ChatList(%s) has %d entries; want 1", userID, len(list))
		}
		if list[0].ChatID != meta.ChatID {
			t.Errorf("ChatList(%s) chat id = %q; want %q", userID, list[0].ChatID, meta.ChatID)
		}
		if list[0].LastMessage != "jane" {
			t.Errorf("ChatList(%s) last message = %q; want jane", userID, list[0].LastMessage)
		}
	}

	// Exactly one copy of the message text exists.
	thread, err := svc.Messages(ctx, "u2", meta.ChatID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(thread) != 1 || thread[0].Text != "jane" || thread[0].SenderID != "u1" {
		t.Errorf("thread = %+v; want single message jane from u1", thread)
	}
}

func TestSendMessageRepeatedOverwritesSummary(t *testing.T) {
	svc, tree := newTestService(t)
	ctx := context.Background()
	seedUser(t, tree, "u1", "Alice")
	seedUser(t, tree, "u2", "Bob")

	meta, _ := svc.CreateChat(ctx, "u1", "u2")
	svc.SendMessage(ctx, "u1", meta.ChatID, "first")
	svc.SendMessage(ctx, "u2", meta.ChatID, "second")

	for _, userID := range []string{"u1", "u2"} {
		got, err := svc.Metadata(ctx, userID, meta.ChatID)
		if err != nil {
			t.Fatalf("Metadata(%s): %v", userID, err)
		}
		if got.LastMessage != "second" {
			t.Errorf("Metadata(%s).LastMessage = %q; want second", userID, got.LastMessage)
		}
		if got.CreatedBy != "u1" {
			t.Errorf("Metadata(%s).CreatedBy = %q; creator must survive fanout", userID, got.CreatedBy)
		}
	}
}

func TestSendMessageWhitespaceIsNoOp(t *testing.T) {
	svc, tree := newTestService(t)
	ctx := context.Background()
	seedUser(t, tree, "u1", "Alice")
	seedUser(t, tree, "u2", "Bob")
	meta, _ := svc.CreateChat(ctx, "u1", "u2")

	for _, text := range []string{"", "   ", "\n\t "} {
		if _, err := svc.SendMessage(ctx, "u1", meta.ChatID, text); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("SendMessage(%q) err = %v; want ErrEmptyMessage", text, err)
		}
	}

	thread, _ := svc.Messages(ctx, "u1", meta.ChatID)
	if len(thread) != 0 {
		t.Errorf("whitespace sends left %d messages behind", len(thread))
	}
	got, _ := svc.Metadata(ctx, "u1", meta.ChatID)
	if got.LastMessage != "" {
		t.Errorf("whitespace send touched the summary: %q", got.LastMessage)
	}
}

func TestSendMessageUnknownChat(t *testing.T) {
	svc, tree := newTestService(t)
	seedUser(t, tree, "u1", "Alice")

	if _, err := svc.SendMessage(context.Background(), "u1", "nope", "hi"); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("err = %v; want ErrChatNotFound", err)
	}
}

func TestSavedMessages(t *testing.T) {
	svc, tree := newTestService(t)
	ctx := context.Background()
	seedUser(t, tree, "u1", "Alice")
	seedUser(t, tree, "u2", "Bob")

	if _, err := svc.SendMessage(ctx, "u1", SavedMessagesID, "note to self"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if _, err := svc.SendMessage(ctx, "u2", SavedMessagesID, "bob's note"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	thread, err := svc.Messages(ctx, "u1", SavedMessagesID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(thread) != 1 || thread[0].Text != "note to self" {
		t.Errorf("saved thread for u1 = %+v; notes must stay private per user", thread)
	}
}

func TestMessagesOrderedByTimestamp(t *testing.T) {
	svc, tree := newTestService(t)
	ctx := context.Background()
	seedUser(t, tree, "u1", "Alice")
	seedUser(t, tree, "u2", "Bob")

	clock := time.UnixMilli(1000)
	svc.now = func() time.Time { return clock }

	meta, err := svc.CreateChat(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if _, err := svc.SendMessage(ctx, "u1", meta.ChatID, "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	clock = time.UnixMilli(2000)
	if _, err := svc.SendMessage(ctx, "u2", meta.ChatID, "world"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	thread, err := svc.Messages(ctx, "u1", meta.ChatID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(thread) != 2 {
		t.Fatalf("thread has %d messages; want 2", len(thread))
	}
	if thread[0].Text != "hello" || thread[1].Text != "world" {
		t.Errorf("thread order = %q, %q; want hello, world", thread[0].Text, thread[1].Text)
	}
	if thread[0].Timestamp != 1000 || thread[1].Timestamp != 2000 {
		t.Errorf("timestamps = %d, %d; want 1000, 2000", thread[0].Timestamp, thread[1].Timestamp)
	}
}

func TestChatListMostRecentFirst(t *testing.T) {
	svc, tree := newTestService(t)
	ctx := context.Background()
	seedUser(t, tree, "u1", "Alice")
	seedUser(t, tree, "u2", "Bob")
	seedUser(t, tree, "u3", "Cara")

	clock := time.UnixMilli(1000)
	svc.now = func() time.Time { return clock }

	withBob, _ := svc.CreateChat(ctx, "u1", "u2")
	clock = time.UnixMilli(2000)
	withCara, _ := svc.CreateChat(ctx, "u1", "u3")

	list, err := svc.ChatList(ctx, "u1")
	if err != nil {
		t.Fatalf("ChatList: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list has %d entries; want 2", len(list))
	}
	if list[0].ChatID != withCara.ChatID || list[1].ChatID != withBob.ChatID {
		t.Errorf("order = %q, %q; want most recent first", list[0].ChatID, list[1].ChatID)
	}

	// A send on the older chat moves it to the top.
	clock = time.UnixMilli(3000)
	if _, err := svc.SendMessage(ctx, "u1", withBob.ChatID, "bump"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	list, _ = svc.ChatList(ctx, "u1")
	if list[0].ChatID != withBob.ChatID {
		t.Errorf("after send, top chat = %q; want %q", list[0].ChatID, withBob.ChatID)
	}
}

func TestSearchUsers(t *testing.T) {
	svc, tree := newTestService(t)
	ctx := context.Background()
	seedUser(t, tree, "u1", "Alice")
	seedUser(t, tree, "u2", "Bob Marley")
	seedUser(t, tree, "u3", "Bobby")
	seedUser(t, tree, "u4", "Cara")

	tests := []struct {
		name    string
		caller  string
		query   string
		wantIDs []string
	}{
		{"empty query returns nothing", "u1", "", nil},
		{"whitespace query returns nothing", "u1", "   ", nil},
		{"case-insensitive substring", "u1", "bob", []string{"u2", "u3"}},
		{"caller excluded from own results", "u2", "bob", []string{"u3"}},
		{"no match", "u1", "zelda", nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := svc.SearchUsers(ctx, test.caller, test.query)
			if len(got) != len(test.wantIDs) {
				t.Fatalf("got %d results; want %d (%v)", len(got), len(test.wantIDs), got)
			}
			for i, id := range test.wantIDs {
				if got[i].ID != id {
					t.Errorf("result[%d].ID = %q; want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestSearchUsersSkipsBlocked(t *testing.T) {
	svc, tree := newTestService(t)
	ctx := context.Background()
	seedUser(t, tree, "u2", "Bob")
	tree.Set(ctx, "/usersData/u1", models.UserProfile{ID: "u1", Name: "Alice", Blocked: []string{"u2"}})

	if got := svc.SearchUsers(ctx, "u1", "bob"); len(got) != 0 {
		t.Errorf("blocked user surfaced in search: %+v", got)
	}
}

func TestWatchChatListEmitsOnChange(t *testing.T) {
	svc, tree := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seedUser(t, tree, "u1", "Alice")
	seedUser(t, tree, "u2", "Bob")

	lists, err := svc.WatchChatList(ctx, "u1")
	if err != nil {
		t.Fatalf("WatchChatList: %v", err)
	}

	// Initial snapshot is empty.
	select {
	case list := <-lists:
		if len(list) != 0 {
			t.Fatalf("initial snapshot = %+v; want empty", list)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	meta, err := svc.CreateChat(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case list, ok := <-lists:
			if !ok {
				t.Fatal("stream closed early")
			}
			if len(list) == 1 && list[0].ChatID == meta.ChatID {
				return
			}
		case <-deadline:
			t.Fatal("no snapshot containing the new chat")
		}
	}
}

func TestWatchChatListEndsWithContext(t *testing.T) {
	svc, tree := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	seedUser(t, tree, "u1", "Alice")

	lists, err := svc.WatchChatList(ctx, "u1")
	if err != nil {
		t.Fatalf("WatchChatList: %v", err)
	}
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-lists:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream not closed after cancel")
		}
	}
}
