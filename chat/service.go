// Package chat implements the synchronization model: chat creation
// with dual metadata writes, message append with last-message fanout,
// the chat list projection and the per-viewer message stream.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	applog "chatlink/log"
	"chatlink/models"
	"chatlink/store"
)

const (
	usersPath    = "/usersData"
	chatListPath = "/userChatList"
	messagesPath = "/userMessages"
	savedPath    = "/savedMessages"

	// SavedMessagesID is the pseudo chat id for the one-way
	// notes-to-self conversation.
	SavedMessagesID = "saved-messages"
)

var (
	ErrEmptyMessage = errors.New("chat: empty message")
	ErrUnknownUser  = errors.New("chat: unknown user")
	ErrChatNotFound = errors.New("chat: chat not found")
)

type Service struct {
	tree store.Tree
	now  func() time.Time
}

func NewService(tree store.Tree) *Service {
	return &Service{tree: tree, now: time.Now}
}

// SearchUsers returns profiles whose name contains query
// (case-insensitive), excluding the caller and anyone on the caller's
// blocked list. An empty query returns nothing: the directory is never
// dumped wholesale. Read failures degrade to an empty result.
func (s *Service) SearchUsers(ctx context.Context, callerID, query string) []models.UserProfile {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []models.UserProfile{}
	}

	var users map[string]models.UserProfile
	if err := s.tree.Get(ctx, usersPath, &users); err != nil {
		applog.FromContext(ctx).Warn("user search failed",
			slog.String("errorMsg", err.Error()))
		return []models.UserProfile{}
	}

	blocked := make(map[string]bool)
	for _, id := range users[callerID].Blocked {
		blocked[id] = true
	}

	matched := []models.UserProfile{}
	for id, profile := range users {
		if id == callerID || blocked[id] {
			continue
		}
		if !strings.Contains(strings.ToLower(profile.Name), q) {
			continue
		}
		profile.ID = id
		matched = append(matched, profile)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return matched
}

// CreateChat allocates a chat id and writes one ChatMetadata record
// under each participant, both carrying the same creation timestamp.
// The two writes are independent; if one fails the other is not rolled
// back, and Reconcile heals the asymmetry later.
func (s *Service) CreateChat(ctx context.Context, callerID, targetID string) (models.ChatMetadata, error) {
	if callerID == targetID {
		return models.ChatMetadata{}, ErrUnknownUser
	}

	caller, err := s.Profile(ctx, callerID)
	if err != nil {
		return models.ChatMetadata{}, err
	}
	target, err := s.Profile(ctx, targetID)
	if err != nil {
		return models.ChatMetadata{}, err
	}

	chatID := store.NewPushID(s.now())
	createdAt := s.now().UnixMilli()

	forCaller := models.ChatMetadata{
		ChatID:        chatID,
		ReceiverID:    target.ID,
		ReceiverName:  target.Name,
		ReceiverImage: target.Photo,
		LastTimestamp: createdAt,
		CreatedBy:     callerID,
	}
	forTarget := models.ChatMetadata{
		ChatID:        chatID,
		ReceiverID:    caller.ID,
		ReceiverName:  caller.Name,
		ReceiverImage: caller.Photo,
		LastTimestamp: createdAt,
		CreatedBy:     callerID,
	}

	errCaller := s.tree.Set(ctx, metaPath(callerID, chatID), forCaller)
	errTarget := s.tree.Set(ctx, metaPath(targetID, chatID), forTarget)
	if err := errors.Join(errCaller, errTarget); err != nil {
		return models.ChatMetadata{}, fmt.Errorf("create chat: %w", err)
	}
	return forCaller, nil
}

// SendMessage appends a message to the shared subtree and overwrites
// the last-message summary on both participants' metadata records.
// Whitespace-only text is rejected before anything is written.
func (s *Service) SendMessage(ctx context.Context, senderID, chatID, text string) (models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return models.Message{}, ErrEmptyMessage
	}

	sender, err := s.Profile(ctx, senderID)
	if err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		Text:      text,
		SenderID:  senderID,
		Timestamp: s.now().UnixMilli(),
		Type:      "text",
		ImageURL:  sender.Photo,
	}

	if chatID == SavedMessagesID {
		if _, err := s.tree.Push(ctx, savedPath+"/"+senderID, msg); err != nil {
			return models.Message{}, fmt.Errorf("send saved message: %w", err)
		}
		return msg, nil
	}

	var meta models.ChatMetadata
	if err := s.tree.Get(ctx, metaPath(senderID, chatID), &meta); err != nil {
		return models.Message{}, fmt.Errorf("load chat metadata: %w", err)
	}
	if meta.ChatID == "" {
		return models.Message{}, ErrChatNotFound
	}

	if _, err := s.tree.Push(ctx, messagesPath+"/"+chatID, msg); err != nil {
		return models.Message{}, fmt.Errorf("send message: %w", err)
	}

	meta.LastMessage = text
	meta.LastTimestamp = msg.Timestamp
	forReceiver := models.ChatMetadata{
		ChatID:        chatID,
		ReceiverID:    senderID,
		ReceiverName:  sender.Name,
		ReceiverImage: sender.Photo,
		LastMessage:   text,
		LastTimestamp: msg.Timestamp,
		CreatedBy:     meta.CreatedBy,
	}

	// Two independent writes, last writer wins on both records. The
	// message itself is already durable at this point.
	errSender := s.tree.Set(ctx, metaPath(senderID, chatID), meta)
	errReceiver := s.tree.Set(ctx, metaPath(meta.ReceiverID, chatID), forReceiver)
	if err := errors.Join(errSender, errReceiver); err != nil {
		return msg, fmt.Errorf("update chat metadata: %w", err)
	}
	return msg, nil
}

// ChatList reads the caller's whole metadata subtree and returns it
// most-recent-first.
func (s *Service) ChatList(ctx context.Context, userID string) ([]models.ChatMetadata, error) {
	var raw map[string]models.ChatMetadata
	if err := s.tree.Get(ctx, chatListPath+"/"+userID, &raw); err != nil {
		return nil, err
	}

	list := make([]models.ChatMetadata, 0, len(raw))
	for chatID, meta := range raw {
		if meta.ChatID == "" {
			meta.ChatID = chatID
		}
		list = append(list, meta)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].LastTimestamp != list[j].LastTimestamp {
			return list[i].LastTimestamp > list[j].LastTimestamp
		}
		return list[i].ChatID < list[j].ChatID
	})
	return list, nil
}

// ThreadMessage is a message together with its push id.
type ThreadMessage struct {
	Key string `json:"key"`
	models.Message
}

// Messages returns a chat's thread in conversation order: timestamp
// ascending, push id as tiebreak. Sorting here keeps the invariant
// independent of the backing store's key order.
func (s *Service) Messages(ctx context.Context, userID, chatID string) ([]ThreadMessage, error) {
	path := messagesPath + "/" + chatID
	if chatID == SavedMessagesID {
		path = savedPath + "/" + userID
	}

	var raw map[string]models.Message
	if err := s.tree.Get(ctx, path, &raw); err != nil {
		return nil, err
	}

	thread := make([]ThreadMessage, 0, len(raw))
	for key, msg := range raw {
		thread = append(thread, ThreadMessage{Key: key, Message: msg})
	}
	sort.Slice(thread, func(i, j int) bool {
		if thread[i].Timestamp != thread[j].Timestamp {
			return thread[i].Timestamp < thread[j].Timestamp
		}
		return thread[i].Key < thread[j].Key
	})
	return thread, nil
}

// Metadata returns the caller's own metadata record for a chat. A
// missing record yields ErrChatNotFound.
func (s *Service) Metadata(ctx context.Context, userID, chatID string) (models.ChatMetadata, error) {
	var meta models.ChatMetadata
	if err := s.tree.Get(ctx, metaPath(userID, chatID), &meta); err != nil {
		return models.ChatMetadata{}, err
	}
	if meta.ChatID == "" {
		return models.ChatMetadata{}, ErrChatNotFound
	}
	return meta, nil
}

// Profile loads a user profile; a missing record yields
// ErrUnknownUser.
func (s *Service) Profile(ctx context.Context, userID string) (models.UserProfile, error) {
	var profile models.UserProfile
	if err := s.tree.Get(ctx, usersPath+"/"+userID, &profile); err != nil {
		return models.UserProfile{}, err
	}
	if profile.ID == "" {
		return models.UserProfile{}, ErrUnknownUser
	}
	return profile, nil
}

// WatchChatList emits the full sorted projection after every change to
// the caller's metadata subtree. The subscription ends with ctx.
func (s *Service) WatchChatList(ctx context.Context, userID string) (<-chan []models.ChatMetadata, error) {
	notify, err := s.tree.Watch(ctx, chatListPath+"/"+userID)
	if err != nil {
		return nil, err
	}

	out := make(chan []models.ChatMetadata, 1)
	go func() {
		defer close(out)
		emit := func() {
			list, err := s.ChatList(ctx, userID)
			if err != nil {
				if ctx.Err() == nil {
					applog.FromContext(ctx).Warn("chat list projection read failed",
						slog.String("userID", userID), slog.String("errorMsg", err.Error()))
				}
				return
			}
			// Replace any pending snapshot; only the latest matters.
			select {
			case out <- list:
			default:
				select {
				case <-out:
				default:
				}
				out <- list
			}
		}

		emit()
		for range notify {
			emit()
		}
	}()
	return out, nil
}

func metaPath(userID, chatID string) string {
	return chatListPath + "/" + userID + "/" + chatID
}
