package messaging

import (
	"context"
	"errors"

	"github.com/emberdating/ember-backend/internal/notify"
	"github.com/emberdating/ember-backend/internal/realtime"
)

// Deliver routes an event payload to the recipient's live session if one
// is known, else to the notification fallback (when one is supplied).
// A handle the transport reports gone is pruned from the registry and the
// cache before falling back — there is never a retry against another
// handle, because at most one exists per user. Nothing here ever fails
// the calling operation: the payload's message is already durably stored.
func (s *Service) Deliver(ctx context.Context, recipientID uint64, payload []byte, fallback *notify.Notification) {
	handle := s.resolveHandle(ctx, recipientID)
	if handle == "" {
		s.notifyFallback(ctx, recipientID, fallback)
		return
	}

	err := s.transport.Push(ctx, handle, payload)
	if err == nil {
		return
	}

	if errors.Is(err, realtime.ErrHandleGone) {
		if pruneErr := s.connRepo.PruneHandle(ctx, handle); pruneErr != nil {
			s.appCtx.Logger.Warn("failed to prune stale handle", "handle", handle, "err", pruneErr)
		}
		if cacheErr := s.appCtx.RedisCache.DelConnection(ctx, recipientID); cacheErr != nil {
			s.appCtx.Logger.Warn("failed to drop cached handle", "user_id", recipientID, "err", cacheErr)
		}
		s.appCtx.Logger.Debug("pruned stale session handle", "user_id", recipientID, "handle", handle)
	} else {
		s.appCtx.Logger.Warn("push to live session failed", "user_id", recipientID, "err", err)
	}

	s.notifyFallback(ctx, recipientID, fallback)
}

// resolveHandle looks up the recipient's last known handle, cache first
// with the durable registry as fallback. Cache trouble degrades to a DB
// read, never to a failed delivery.
func (s *Service) resolveHandle(ctx context.Context, userID uint64) string {
	handle, err := s.appCtx.RedisCache.GetConnection(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Warn("connection cache read failed", "user_id", userID, "err", err)
	}
	if handle != "" {
		return handle
	}

	handle, err = s.connRepo.Resolve(ctx, userID)
	if err != nil {
		s.appCtx.Logger.Warn("registry resolve failed", "user_id", userID, "err", err)
		return ""
	}
	if handle != "" {
		if err := s.appCtx.RedisCache.SetConnection(ctx, userID, handle); err != nil {
			s.appCtx.Logger.Warn("failed to backfill connection cache", "user_id", userID, "err", err)
		}
	}
	return handle
}

func (s *Service) notifyFallback(ctx context.Context, userID uint64, n *notify.Notification) {
	if n == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, *n); err != nil {
		s.appCtx.Logger.Warn("notification fallback failed", "user_id", userID, "kind", n.Kind, "err", err)
	}
}
