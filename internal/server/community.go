package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hyperworkchat/hyperwork/internal/models"
)

func (h HandlerSet) Leaderboard(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		badRequest(c, codeBadRequest)
		return
	}

	role := models.Role(c.DefaultQuery("role", string(models.RoleStudent)))
	if !role.Valid() {
		badRequest(c, codeBadRequest)
		return
	}

	profiles, err := h.classroom.Leaderboard(c.Request.Context(), role, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if profiles == nil {
		profiles = []models.Profile{}
	}

	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

func (h HandlerSet) ListMessages(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		badRequest(c, codeBadRequest)
		return
	}

	msgs, err := h.chat.History(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type messageRequest struct {
	Content string `json:"content"`
}

func (h HandlerSet) SendMessage(c *gin.Context) {
	u, _ := currentUser(c)

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, codeBadRequest)
		return
	}

	msg, err := h.chat.Send(c.Request.Context(), u, req.Content)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}
