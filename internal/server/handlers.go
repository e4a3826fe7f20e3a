package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/hyperworkchat/hyperwork/internal/auth"
	"github.com/hyperworkchat/hyperwork/internal/chat"
	"github.com/hyperworkchat/hyperwork/internal/classroom"
	"github.com/hyperworkchat/hyperwork/store"
)

// HandlerSet holds the services behind the API routes.
type HandlerSet struct {
	log         zerolog.Logger
	db          store.DB
	auth        *auth.Service
	classroom   *classroom.Service
	chat        *chat.Service
	now         func() time.Time
	environment string
}

func NewHandlerSet(
	log zerolog.Logger,
	environment string,
	db store.DB,
	authSvc *auth.Service,
	classroomSvc *classroom.Service,
	chatSvc *chat.Service,
) HandlerSet {
	return HandlerSet{
		log:         log,
		environment: environment,
		db:          db,
		auth:        authSvc,
		classroom:   classroomSvc,
		chat:        chatSvc,
		now:         time.Now,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		authGroup.POST("/register", h.SignUp)
		authGroup.POST("/login", h.Login)
	}

	protected := v1.Group("")
	protected.Use(Auth(h.auth))
	{
		protected.GET("/me", h.Me)
		protected.PATCH("/me", h.UpdateMe)
		protected.GET("/sessions", h.ListSessions)
		protected.GET("/stats", h.Stats)
		protected.GET("/leaderboard", h.Leaderboard)
		protected.GET("/messages", h.ListMessages)
		protected.POST("/messages", h.SendMessage)
		protected.GET("/groups", h.ListGroups)
		protected.POST("/groups", h.CreateGroup)
		protected.POST("/groups/:id/join", h.JoinGroup)
		protected.GET("/groups/:id/members", h.GroupMembers)
		protected.GET("/groups/:id/messages", h.GroupMessages)
		protected.POST("/groups/:id/messages", h.SendGroupMessage)
	}

	teacher := v1.Group("/classes")
	teacher.Use(Auth(h.auth), RequireTeacher())
	{
		teacher.GET("", h.ListClasses)
		teacher.GET("/:class/students", h.Roster)
		teacher.GET("/:class/picks", h.ListPicks)
		teacher.POST("/:class/pick", h.Pick)
		teacher.DELETE("/:class/picks", h.ResetPicks)
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	dbStatus := "ok"

	if err := h.db.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		dbStatus = "error"

		h.log.Error().Err(err).Msg("database ping failed")
	}

	c.JSON(status, healthResponse{
		Status:      http.StatusText(status),
		Database:    dbStatus,
		Environment: h.environment,
	})
}

// queryInt reads a non-negative integer query parameter.
func queryInt(c *gin.Context, name string) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return 0, true
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}

func badRequest(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": code})
}
