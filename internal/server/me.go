package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hyperworkchat/hyperwork/internal/auth"
	"github.com/hyperworkchat/hyperwork/internal/models"
	"github.com/hyperworkchat/hyperwork/stats"
)

// statsWindow is the number of recent sessions that statistics are computed
// over.
const statsWindow = 100

func (h HandlerSet) Me(c *gin.Context) {
	u, _ := currentUser(c)

	profile, err := h.db.GetProfile(c.Request.Context(), u.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h HandlerSet) UpdateMe(c *gin.Context) {
	u, _ := currentUser(c)

	var req auth.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, codeBadRequest)
		return
	}

	profile, err := h.auth.UpdateProfile(c.Request.Context(), u.ID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

type sessionsResponse struct {
	Sessions []models.WorkSession `json:"sessions"`
	// Next is the cursor for the following page, empty on the last page
	Next string `json:"next,omitempty"`
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	u, _ := currentUser(c)

	limit, ok := queryInt(c, "limit")
	if !ok {
		badRequest(c, codeBadRequest)
		return
	}

	var before time.Time

	if v := c.Query("before"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			badRequest(c, codeInvalidCursor)
			return
		}

		before = t
	}

	sessions, err := h.db.ListSessions(c.Request.Context(), u.ID, limit, before)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := sessionsResponse{Sessions: sessions}
	if resp.Sessions == nil {
		resp.Sessions = []models.WorkSession{}
	}

	if limit > 0 && len(sessions) == limit {
		resp.Next = sessions[len(sessions)-1].StartTime.UTC().Format(time.RFC3339Nano)
	}

	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) Stats(c *gin.Context) {
	u, _ := currentUser(c)

	sessions, err := h.db.ListSessions(c.Request.Context(), u.ID, statsWindow, time.Time{})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats.Compute(sessions, h.now()))
}
