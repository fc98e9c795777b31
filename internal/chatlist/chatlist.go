// Package chatlist maintains each user's chat list: one summary per partner,
// newest conversation first, followed by followed users with no history.
package chatlist

import (
	"context"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/cache"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/store"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Presence is the part of the presence registry the aggregator reads.
type Presence interface {
	ListOnline(ctx context.Context, ids []string) (map[string]bool, error)
}

type Aggregator struct {
	messages  store.MessageStore
	directory store.Directory
	cache     *cache.DeliveryCache
	presence  Presence
}

func NewAggregator(messages store.MessageStore, directory store.Directory, c *cache.DeliveryCache, p Presence) *Aggregator {
	return &Aggregator{messages: messages, directory: directory, cache: c, presence: p}
}

// Get returns userID's chat list with live online flags.
func (a *Aggregator) Get(ctx context.Context, userID string) ([]models.ChatSummary, error) {
	list, found, err := a.cache.ChatList(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("Chat list cache read failed, rebuilding from store")
	}
	if !found {
		list, err = a.Reconcile(ctx, userID)
		if err != nil {
			return nil, err
		}
	}
	a.overlayOnline(ctx, list)
	return list, nil
}

func (a *Aggregator) overlayOnline(ctx context.Context, list []models.ChatSummary) {
	if len(list) == 0 || a.presence == nil {
		return
	}
	ids := make([]string, len(list))
	for i := range list {
		ids[i] = list[i].PartnerID
	}
	online, err := a.presence.ListOnline(ctx, ids)
	if err != nil {
		logger.Warn().Err(err).Msg("Presence lookup failed, chat list shown offline")
		return
	}
	for i := range list {
		list[i].IsOnline = online[list[i].PartnerID]
	}
}

// Reconcile rebuilds userID's list from the message store and follow graph
// and caches it.
func (a *Aggregator) Reconcile(ctx context.Context, userID string) ([]models.ChatSummary, error) {
	heads, err := a.messages.ConversationHeads(ctx, userID)
	if err != nil {
		return nil, err
	}
	following, err := a.directory.Following(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(heads))
	ids := make([]string, 0, len(heads)+len(following))
	for _, h := range heads {
		seen[h.PartnerID] = true
		ids = append(ids, h.PartnerID)
	}
	var silent []string
	for _, id := range following {
		if id == userID || seen[id] {
			continue
		}
		seen[id] = true
		silent = append(silent, id)
		ids = append(ids, id)
	}

	profiles, err := a.directory.Profiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	list := make([]models.ChatSummary, 0, len(ids))
	for _, h := range heads {
		s := models.ChatSummary{PartnerID: h.PartnerID, UnreadCount: h.UnreadCount}
		s.ApplyProfile(profiles[h.PartnerID])
		s.SetLastMessage(h.LastMessage)
		list = append(list, s)
	}
	for _, id := range silent {
		s := models.ChatSummary{PartnerID: id}
		s.ApplyProfile(profiles[id])
		list = append(list, s)
	}

	if err := a.cache.SetChatList(ctx, userID, list); err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to cache chat list")
	}
	return list, nil
}

// ApplyNewMessage folds an already persisted message into both participants'
// lists. Participants without a cached list are reconciled instead.
func (a *Aggregator) ApplyNewMessage(ctx context.Context, m *models.Message) error {
	profiles, err := a.directory.Profiles(ctx, []string{m.SenderID, m.ReceiverID})
	if err != nil {
		logger.Warn().Err(err).Str("message_id", m.ID).Msg("Profile lookup failed for chat list update")
		profiles = map[string]models.UserSummary{}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, owner := range []string{m.SenderID, m.ReceiverID} {
		owner := owner
		partner := m.PartnerOf(owner)
		g.Go(func() error {
			found, err := a.cache.UpdateChatList(gctx, owner, func(list []models.ChatSummary) ([]models.ChatSummary, bool) {
				return applyMessage(list, owner, partner, profiles[partner], m)
			})
			if err != nil {
				return err
			}
			if !found {
				_, err = a.Reconcile(gctx, owner)
			}
			return err
		})
	}
	return g.Wait()
}

func applyMessage(list []models.ChatSummary, owner, partner string, profile models.UserSummary, m *models.Message) ([]models.ChatSummary, bool) {
	idx := indexOf(list, partner)
	var entry models.ChatSummary
	if idx >= 0 {
		entry = list[idx]
		if entry.LastMessageID != nil && *entry.LastMessageID == m.ID {
			return list, false
		}
		list = append(list[:idx], list[idx+1:]...)
	} else {
		entry = models.ChatSummary{PartnerID: partner}
		entry.ApplyProfile(profile)
	}

	entry.SetLastMessage(*m)
	if m.ReceiverID == owner {
		entry.UnreadCount++
		entry.IsTyping = false
	}
	return append([]models.ChatSummary{entry}, list...), true
}

func indexOf(list []models.ChatSummary, partner string) int {
	for i := range list {
		if list[i].PartnerID == partner {
			return i
		}
	}
	return -1
}

// ResetUnread zeroes owner's unread count for partner in the cached list.
func (a *Aggregator) ResetUnread(ctx context.Context, owner, partner string) error {
	_, err := a.cache.UpdateChatList(ctx, owner, func(list []models.ChatSummary) ([]models.ChatSummary, bool) {
		idx := indexOf(list, partner)
		if idx < 0 || list[idx].UnreadCount == 0 {
			return list, false
		}
		list[idx].UnreadCount = 0
		return list, true
	})
	return err
}

// SetTyping flags partner as typing in owner's cached list.
func (a *Aggregator) SetTyping(ctx context.Context, owner, partner string, typing bool) error {
	_, err := a.cache.UpdateChatList(ctx, owner, func(list []models.ChatSummary) ([]models.ChatSummary, bool) {
		idx := indexOf(list, partner)
		if idx < 0 || list[idx].IsTyping == typing {
			return list, false
		}
		list[idx].IsTyping = typing
		return list, true
	})
	return err
}

// ApplyDeletion folds a tombstoned message into both participants' lists.
// Previews showing m are rewritten. A receiver who had not read m drops the
// cached list instead, since only the store can recount what stays unread.
func (a *Aggregator) ApplyDeletion(ctx context.Context, m *models.Message) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, owner := range []string{m.SenderID, m.ReceiverID} {
		owner := owner
		partner := m.PartnerOf(owner)
		g.Go(func() error {
			if owner == m.ReceiverID && !m.IsRead {
				return a.cache.InvalidateChatList(gctx, owner)
			}
			_, err := a.cache.UpdateChatList(gctx, owner, func(list []models.ChatSummary) ([]models.ChatSummary, bool) {
				idx := indexOf(list, partner)
				if idx < 0 || list[idx].LastMessageID == nil || *list[idx].LastMessageID != m.ID {
					return list, false
				}
				list[idx].SetLastMessage(*m)
				return list, true
			})
			return err
		})
	}
	return g.Wait()
}
