package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hyperworkchat/hyperwork/internal/auth"
	"github.com/hyperworkchat/hyperwork/internal/chat"
	"github.com/hyperworkchat/hyperwork/internal/classroom"
	"github.com/hyperworkchat/hyperwork/store"
)

const (
	codeInternal      = "internal_error"
	codeForbidden     = "forbidden"
	codeBadRequest    = "bad_request"
	codeValidation    = "validation_failed"
	codeNotFound      = "not_found"
	codeEmailTaken    = "email_taken"
	codeInvalidLogin  = "invalid_credentials"
	codeInvalidMsg    = "invalid_message"
	codeEmptyClass    = "empty_class"
	codeAllPicked     = "everyone_picked"
	codeSessionEnded  = "session_ended"
	codeMissingClass  = "missing_class"
	codeInvalidCursor = "invalid_before"
	codeInvalidGroup  = "invalid_group"
	codeNotMember     = "not_a_member"
	codeOtherClass    = "other_class"
)

// errorStatus maps known errors to a status code and error code.
func errorStatus(err error) (int, string) {
	var verr *auth.ValidationError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, store.ErrEmailExists):
		return http.StatusConflict, codeEmailTaken
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, codeInvalidLogin
	case errors.Is(err, store.ErrNotFound), errors.Is(err, chat.ErrNoSuchGroup):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, store.ErrSessionEnded):
		return http.StatusConflict, codeSessionEnded
	case errors.Is(err, classroom.ErrNotTeacher):
		return http.StatusForbidden, codeForbidden
	case errors.Is(err, classroom.ErrEmptyClass):
		return http.StatusNotFound, codeEmptyClass
	case errors.Is(err, classroom.ErrEveryonePicked):
		return http.StatusConflict, codeAllPicked
	case errors.Is(err, classroom.ErrNoClass):
		return http.StatusBadRequest, codeMissingClass
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrMessageTooLong):
		return http.StatusBadRequest, codeInvalidMsg
	case errors.Is(err, chat.ErrGroupName), errors.Is(err, chat.ErrGroupDescription):
		return http.StatusBadRequest, codeInvalidGroup
	case errors.Is(err, chat.ErrNotMember):
		return http.StatusForbidden, codeNotMember
	case errors.Is(err, chat.ErrOtherClass):
		return http.StatusForbidden, codeOtherClass
	}

	return http.StatusInternalServerError, codeInternal
}

// writeError responds with the JSON error for err. Unexpected errors are
// logged and reported without details.
func (h HandlerSet) writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)

	body := gin.H{"error": code}

	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}

	if status == http.StatusInternalServerError {
		h.log.Error().
			Err(err).
			Str("request_id", c.Writer.Header().Get(requestIDHeader)).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(status, body)
}
