package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	applog "chatlink/log"
	"chatlink/models"
)

// Reconcile self-heals the dual-write gap: chat creation writes two
// metadata records without a transaction, so a crash between them
// leaves the chat visible to one participant only. For every chat in
// the caller's list whose counterpart record is missing, the mirrored
// record is written. Safe to run on every chat-list load; healing is
// idempotent.
func (s *Service) Reconcile(ctx context.Context, userID string) (int, error) {
	list, err := s.ChatList(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(list) == 0 {
		return 0, nil
	}

	owner, err := s.Profile(ctx, userID)
	if err != nil {
		return 0, err
	}

	healed := 0
	var errs []error
	for _, meta := range list {
		if meta.ReceiverID == "" {
			continue
		}
		var counterpart models.ChatMetadata
		if err := s.tree.Get(ctx, metaPath(meta.ReceiverID, meta.ChatID), &counterpart); err != nil {
			errs = append(errs, fmt.Errorf("chat %s: %w", meta.ChatID, err))
			continue
		}
		if counterpart.ChatID != "" {
			continue
		}

		mirror := models.ChatMetadata{
			ChatID:        meta.ChatID,
			ReceiverID:    userID,
			ReceiverName:  owner.Name,
			ReceiverImage: owner.Photo,
			LastMessage:   meta.LastMessage,
			LastTimestamp: meta.LastTimestamp,
			CreatedBy:     meta.CreatedBy,
		}
		if err := s.tree.Set(ctx, metaPath(meta.ReceiverID, meta.ChatID), mirror); err != nil {
			errs = append(errs, fmt.Errorf("chat %s: %w", meta.ChatID, err))
			continue
		}
		applog.FromContext(ctx).Info("healed one-sided chat metadata",
			slog.String("userID", userID),
			slog.String("chatID", meta.ChatID),
			slog.String("receiverID", meta.ReceiverID))
		healed++
	}
	return healed, errors.Join(errs...)
}
