// Package api exposes the thin REST read/maintenance surface next to
// the websocket gateway. Realtime delivery stays on the socket; these
// routes serve initial page loads and reconnect catch-up.
package api

import (
	"net/http"
	"strconv"

	midsec "github.com/Kesh3805/job-portal/middleware/security"
	"github.com/Kesh3805/job-portal/module/chat/store"
	"github.com/Kesh3805/job-portal/service/chat"
	"github.com/Kesh3805/job-portal/service/notify"
	"github.com/Kesh3805/job-portal/service/storage"
	"github.com/Kesh3805/job-portal/tools/errs"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Store  *store.Store
	Notify *notify.Dispatcher
	RT     *chat.Server
}

func NewHandlers(st *store.Store, nd *notify.Dispatcher, rt *chat.Server) *Handlers {
	return &Handlers{Store: st, Notify: nd, RT: rt}
}

func httpStatus(err error) int {
	switch errs.CodeOf(err) {
	case errs.CodeValidation:
		return http.StatusBadRequest
	case errs.CodeForbidden:
		return http.StatusForbidden
	case errs.CodeNotFound:
		return http.StatusNotFound
	case errs.CodeTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(httpStatus(err), gin.H{"code": errs.CodeOf(err), "msg": errs.MsgOf(err)})
}

func pageParams(c *gin.Context) (page, pageSize int64) {
	page, _ = strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	pageSize, _ = strconv.ParseInt(c.DefaultQuery("pageSize", "50"), 10, 64)
	return page, pageSize
}

// ListConversations returns the caller's conversations, most recently
// active first, with per-caller unread counts.
func (h *Handlers) ListConversations(c *gin.Context) {
	userID := midsec.UserID(c)
	list, err := h.Store.ListConversations(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

type createConversationReq struct {
	PeerID        string `json:"peerId" binding:"required"`
	JobID         string `json:"jobId"`
	ApplicationID string `json:"applicationId"`
}

// CreateConversation finds or creates the caller's conversation with
// the peer. Repeated calls for the same pair return the same document.
func (h *Handlers) CreateConversation(c *gin.Context) {
	var req createConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrValidation("peerId required"))
		return
	}
	cv, err := h.Store.GetOrCreate(c.Request.Context(), midsec.UserID(c), req.PeerID, store.ConversationRefs{
		JobID:         req.JobID,
		ApplicationID: req.ApplicationID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": cv})
}

// ListMessages pages a conversation's history in chronological order.
func (h *Handlers) ListMessages(c *gin.Context) {
	page, pageSize := pageParams(c)
	msgs, err := h.Store.ListMessages(c.Request.Context(),
		c.Param("id"), midsec.UserID(c), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handlers) ListNotifications(c *gin.Context) {
	page, pageSize := pageParams(c)
	list, err := h.Notify.List(c.Request.Context(), midsec.UserID(c), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	if err := h.Notify.MarkRead(c.Request.Context(), c.Param("id"), midsec.UserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.Notify.MarkAllRead(c.Request.Context(), midsec.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// OnlineUsers snapshots the in-process presence registry.
func (h *Handlers) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"userIds": h.RT.Presence().ActiveUserIDs()})
}

// UserPresence reports whether one user is online. The local registry
// answers for connections on this gateway; the redis mirror covers
// users attached to another gateway instance.
func (h *Handlers) UserPresence(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		fail(c, errs.ErrValidation("user id required"))
		return
	}
	if h.RT.IsOnline(userID) {
		c.JSON(http.StatusOK, gin.H{"userId": userID, "isOnline": true, "gatewayId": h.RT.GwID()})
		return
	}
	gw, online, err := storage.PresenceLookup(c.Request.Context(), userID)
	if err != nil {
		// the mirror is best-effort; an unreachable redis degrades to
		// the local answer instead of failing the request
		c.JSON(http.StatusOK, gin.H{"userId": userID, "isOnline": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "isOnline": online, "gatewayId": gw})
}
