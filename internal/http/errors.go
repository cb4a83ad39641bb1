package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/whisperwall/internal/log"
	"github.com/sujalbistaa/whisperwall/internal/service"
)

const (
	codeInvalidData  = "INVALID_DATA"
	codeNotFound     = "NOT_FOUND"
	codeForbidden    = "FORBIDDEN"
	codeUnauthorized = "UNAUTHORIZED"
	codeRateLimited  = "RATE_LIMITED"
	codeInternal     = "INTERNAL_ERROR"
)

func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}

// badRequest reports a binding or parameter problem.
func badRequest(c *gin.Context, err error) {
	abortJSON(c, http.StatusBadRequest, codeInvalidData, "Invalid input: "+err.Error())
}

// respondError maps a service error onto a status code. Uncategorized
// errors are logged and swallowed into a constant message.
func respondError(c *gin.Context, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case service.KindValidation:
			abortJSON(c, http.StatusBadRequest, codeInvalidData, se.Message)
			return
		case service.KindNotFound:
			abortJSON(c, http.StatusNotFound, codeNotFound, se.Message)
			return
		case service.KindForbidden:
			abortJSON(c, http.StatusForbidden, codeForbidden, se.Message)
			return
		}
	}
	log.Error.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	abortJSON(c, http.StatusInternalServerError, codeInternal, "Internal server error")
}
