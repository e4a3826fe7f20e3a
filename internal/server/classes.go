package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hyperworkchat/hyperwork/internal/models"
)

func (h HandlerSet) ListClasses(c *gin.Context) {
	u, _ := currentUser(c)

	classes, err := h.classroom.Classes(c.Request.Context(), u)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if classes == nil {
		classes = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"classes": classes})
}

func (h HandlerSet) Roster(c *gin.Context) {
	u, _ := currentUser(c)

	roster, err := h.classroom.Roster(c.Request.Context(), u, c.Param("class"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, roster)
}

func (h HandlerSet) ListPicks(c *gin.Context) {
	u, _ := currentUser(c)

	picks, err := h.classroom.Picked(c.Request.Context(), u, c.Param("class"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	if picks == nil {
		picks = []models.Selection{}
	}

	c.JSON(http.StatusOK, gin.H{"picks": picks})
}

func (h HandlerSet) Pick(c *gin.Context) {
	u, _ := currentUser(c)

	pick, err := h.classroom.Pick(c.Request.Context(), u, c.Param("class"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, pick)
}

func (h HandlerSet) ResetPicks(c *gin.Context) {
	u, _ := currentUser(c)

	err := h.classroom.Reset(c.Request.Context(), u, c.Param("class"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
