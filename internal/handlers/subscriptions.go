package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/apperror"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// SubscriptionHandler implements the subscription toggle and the subscriber
// and channel listings.
type SubscriptionHandler struct {
	Tokens        TokenVerifier
	Views         ViewBuilder
	Subscriptions SubscriptionStore
	Users         UserStore

	// NowFunc allows tests to pin timestamps. Defaults to time.Now.
	NowFunc func() time.Time
}

func (h SubscriptionHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

// Toggle handles POST /subscriptions/{channelId}. Subscribing to a channel
// the caller already follows removes the subscription.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := requireViewer(h.Tokens, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	channelID := r.PathValue("channelId")
	if channelID == userID {
		respondError(ctx, w, apperror.Validation("cannot subscribe to your own channel"))
		return
	}

	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, apperror.NotFound("channel does not exist"))
			return
		}
		respondError(ctx, w, err)
		return
	}

	existing, err := h.Subscriptions.Find(ctx, userID, channelID)
	switch {
	case err == nil:
		if err := h.Subscriptions.Delete(ctx, existing.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, map[string]bool{"subscribed": false}, "unsubscribed successfully")
	case errors.Is(err, repositories.ErrNotFound):
		sub := models.Subscription{
			ID:           uuid.NewString(),
			SubscriberID: userID,
			ChannelID:    channelID,
			CreatedAt:    h.now(),
		}
		if err := h.Subscriptions.Create(ctx, sub); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				// Lost a toggle race; the subscription already exists.
				respondJSON(ctx, w, http.StatusOK, map[string]bool{"subscribed": true}, "subscribed successfully")
				return
			}
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, map[string]bool{"subscribed": true}, "subscribed successfully")
	default:
		respondError(ctx, w, err)
	}
}

// Subscribers handles GET /subscriptions/channel/{channelId}/subscribers.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscribers, err := h.Views.ChannelSubscribers(ctx, r.PathValue("channelId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, subscribers, "subscribers fetched successfully")
}

// SubscribedChannels handles GET /subscriptions/subscriber/{subscriberId}/channels.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channels, err := h.Views.SubscribedChannels(ctx, r.PathValue("subscriberId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, channels, "subscribed channels fetched successfully")
}
