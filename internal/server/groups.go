package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) ListGroups(c *gin.Context) {
	u, _ := currentUser(c)

	groups, err := h.chat.Groups(c.Request.Context(), u)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

type groupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h HandlerSet) CreateGroup(c *gin.Context) {
	u, _ := currentUser(c)

	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, codeBadRequest)
		return
	}

	g, err := h.chat.CreateGroup(c.Request.Context(), u, req.Name, req.Description)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, g)
}

func (h HandlerSet) JoinGroup(c *gin.Context) {
	u, _ := currentUser(c)

	g, err := h.chat.Join(c.Request.Context(), u, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, g)
}

func (h HandlerSet) GroupMembers(c *gin.Context) {
	u, _ := currentUser(c)

	members, err := h.chat.Members(c.Request.Context(), u, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h HandlerSet) GroupMessages(c *gin.Context) {
	u, _ := currentUser(c)

	limit, ok := queryInt(c, "limit")
	if !ok {
		badRequest(c, codeBadRequest)
		return
	}

	msgs, err := h.chat.GroupHistory(c.Request.Context(), u, c.Param("id"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h HandlerSet) SendGroupMessage(c *gin.Context) {
	u, _ := currentUser(c)

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, codeBadRequest)
		return
	}

	msg, err := h.chat.SendGroup(c.Request.Context(), u, c.Param("id"), req.Content)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}
