package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperworkchat/hyperwork/internal/models"
)

func TestGroupRoutes(t *testing.T) {
	api := newTestAPI(t)

	_, teacherToken := api.signUp(t, "t@example.com", models.RoleTeacher, "10A")
	student, studentToken := api.signUp(t, "s@example.com", models.RoleStudent, "10A")
	_, otherToken := api.signUp(t, "o@example.com", models.RoleStudent, "10B")

	rec := api.do(t, http.MethodPost, "/api/v1/groups", teacherToken, map[string]any{"name": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidGroup, errorCode(t, rec))

	rec = api.do(t, http.MethodPost, "/api/v1/groups", teacherToken, map[string]any{
		"name":        "Physics",
		"description": "revision",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	g := decode[models.Group](t, rec)
	assert.Equal(t, "10A", g.ClassSection)

	rec = api.do(t, http.MethodGet, "/api/v1/groups", studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]models.Group](t, rec)["groups"], 1)

	rec = api.do(t, http.MethodGet, "/api/v1/groups", otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string][]models.Group](t, rec)["groups"])

	rec = api.do(t, http.MethodGet, "/api/v1/groups/"+g.ID+"/members", teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	members := decode[map[string][]models.GroupMember](t, rec)["members"]
	require.Len(t, members, 2)
	assert.Contains(t, []string{members[0].UserID, members[1].UserID}, student.ID)

	path := "/api/v1/groups/" + g.ID + "/messages"

	rec = api.do(t, http.MethodPost, path, otherToken, map[string]any{"content": "hi"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, codeNotMember, errorCode(t, rec))

	rec = api.do(t, http.MethodPost, "/api/v1/groups/"+g.ID+"/join", otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, codeOtherClass, errorCode(t, rec))

	rec = api.do(t, http.MethodPost, "/api/v1/groups/missing/join", studentToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, path, studentToken, map[string]any{"content": "hello group"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodGet, path+"?limit=10", teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	msgs := decode[map[string][]models.Message](t, rec)["messages"]
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello group", msgs[0].Content)
	assert.Equal(t, g.ID, msgs[0].GroupID)

	rec = api.do(t, http.MethodGet, "/api/v1/messages", teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[map[string][]models.Message](t, rec)["messages"])
}
