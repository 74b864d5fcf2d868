package api

import (
	"net/http"

	"github.com/hackgods/clinical-encounters/internal/notification"
)

func (h *handlers) inbox(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	limit, err := intQuery(r, "limit")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	ns, err := h.notifications.Inbox(r.Context(), actor.UserID, actor.Role, notification.InboxOptions{
		Limit:      limit,
		UnreadOnly: r.URL.Query().Get("unread") == "true",
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := make([]NotificationResponse, 0, len(ns))
	for _, n := range ns {
		resp = append(resp, toNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) unreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	n, err := h.notifications.UnreadCount(r.Context(), actor.UserID, actor.Role)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UnreadCountResponse{Count: n})
}

func (h *handlers) markRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(r.Context(), id, actor); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteNotification(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.notifications.Delete(r.Context(), id, actor); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
