package chat

import (
	"context"
	"log/slog"
	"sync"

	applog "chatlink/log"
	"chatlink/models"
)

// RoomState tracks the viewer-side message stream:
// Unselected -> Loading -> Ready, back to Unselected on deselect.
type RoomState int

const (
	StateUnselected RoomState = iota
	StateLoading
	StateReady
)

func (s RoomState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unselected"
	}
}

// RoomEvent is delivered to the room's consumer. Exactly one of the
// payload fields is meaningful, per Type.
type RoomEvent struct {
	Type     string               `json:"type"` // state, metadata, messages
	State    string               `json:"state,omitempty"`
	ChatID   string               `json:"chatId,omitempty"`
	Metadata *models.ChatMetadata `json:"metadata,omitempty"`
	Messages []ThreadMessage      `json:"messages,omitempty"`
}

// Room is one viewer's window onto at most one chat. Selecting a chat
// tears down the previous subscriptions before establishing new ones,
// so no two message subscriptions are ever live for the same viewer.
type Room struct {
	svc    *Service
	userID string

	mu     sync.Mutex
	state  RoomState
	chatID string
	cancel context.CancelFunc
	done   chan struct{}

	events    chan RoomEvent
	closeOnce sync.Once
}

func NewRoom(svc *Service, userID string) *Room {
	return &Room{
		svc:    svc,
		userID: userID,
		state:  StateUnselected,
		events: make(chan RoomEvent, 16),
	}
}

func (r *Room) Events() <-chan RoomEvent { return r.events }

func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Select switches the room to chatID. The previous chat's watches are
// cancelled first.
func (r *Room) Select(ctx context.Context, chatID string) error {
	r.teardown()

	streamCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	r.mu.Lock()
	r.chatID = chatID
	r.cancel = cancel
	r.done = done
	r.state = StateLoading
	r.mu.Unlock()
	r.emit(RoomEvent{Type: "state", State: StateLoading.String(), ChatID: chatID})

	go r.stream(streamCtx, chatID, done)
	return nil
}

// Deselect returns the room to its initial state.
func (r *Room) Deselect() {
	r.teardown()
	r.emit(RoomEvent{Type: "state", State: StateUnselected.String()})
}

// Close tears everything down and closes the event channel.
func (r *Room) Close() {
	r.teardown()
	r.closeOnce.Do(func() { close(r.events) })
}

func (r *Room) teardown() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.chatID = ""
	r.state = StateUnselected
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (r *Room) stream(ctx context.Context, chatID string, done chan struct{}) {
	defer close(done)
	logger := applog.FromContext(ctx).With(
		slog.String("userID", r.userID), slog.String("chatID", chatID))

	metaNotify, err := r.svc.tree.Watch(ctx, metaPath(r.userID, chatID))
	if err != nil {
		logger.Error("metadata watch failed", slog.String("errorMsg", err.Error()))
		return
	}
	msgPath := messagesPath + "/" + chatID
	if chatID == SavedMessagesID {
		msgPath = savedPath + "/" + r.userID
	}
	msgNotify, err := r.svc.tree.Watch(ctx, msgPath)
	if err != nil {
		logger.Error("message watch failed", slog.String("errorMsg", err.Error()))
		return
	}

	// Resolve metadata once; present or confirmed absent both count as
	// resolved and move the room to Ready.
	r.emitMetadata(ctx, chatID)
	r.mu.Lock()
	if r.done == done {
		r.state = StateReady
	}
	r.mu.Unlock()
	r.emit(RoomEvent{Type: "state", State: StateReady.String(), ChatID: chatID})
	r.emitMessages(ctx, chatID, logger)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-metaNotify:
			if !ok {
				return
			}
			r.emitMetadata(ctx, chatID)
		case _, ok := <-msgNotify:
			if !ok {
				return
			}
			r.emitMessages(ctx, chatID, logger)
		}
	}
}

func (r *Room) emitMetadata(ctx context.Context, chatID string) {
	if chatID == SavedMessagesID {
		r.emit(RoomEvent{Type: "metadata", ChatID: chatID, Metadata: &models.ChatMetadata{
			ChatID:       SavedMessagesID,
			ReceiverID:   r.userID,
			ReceiverName: "Saved Messages",
		}})
		return
	}
	meta, err := r.svc.Metadata(ctx, r.userID, chatID)
	if err != nil {
		// Absent metadata renders as the "choose a conversation"
		// placeholder on the client.
		r.emit(RoomEvent{Type: "metadata", ChatID: chatID, Metadata: nil})
		return
	}
	r.emit(RoomEvent{Type: "metadata", ChatID: chatID, Metadata: &meta})
}

func (r *Room) emitMessages(ctx context.Context, chatID string, logger *slog.Logger) {
	thread, err := r.svc.Messages(ctx, r.userID, chatID)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("message read failed", slog.String("errorMsg", err.Error()))
		}
		return
	}
	r.emit(RoomEvent{Type: "messages", ChatID: chatID, Messages: thread})
}

// emit never blocks; when the consumer lags, the oldest event is
// dropped in favor of the new one.
func (r *Room) emit(ev RoomEvent) {
	defer func() {
		// Sending on a closed events channel can only happen in a
		// Close race; drop the event in that case.
		_ = recover()
	}()
	for {
		select {
		case r.events <- ev:
			return
		default:
			select {
			case <-r.events:
			default:
			}
		}
	}
}
