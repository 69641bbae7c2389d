package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
)

// respond writes the envelope every session route returns. The status line
// is the session banner when one is set, otherwise msg.
func respond(c *gin.Context, outcome common.Outcome, msg string, data any) {
	if b := formSession(c).Banner(); b != "" {
		msg = b
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  msg,
		"outcome": outcome,
		"data":    data,
	})
}

func respondResult[T any](c *gin.Context, r common.Result[T], what string, data any) {
	if r.IsFailed() {
		fail(c, r.Err)
		return
	}
	respond(c, r.Outcome, r.Message(what), data)
}

func fail(c *gin.Context, err error) {
	code := "internal_error"
	msg := err.Error()
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		code, msg = appErr.Code, appErr.Message
	}
	status := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		msg = "request failed"
		if appErr != nil {
			msg = appErr.Message
		}
	}
	c.JSON(status, gin.H{
		"error_code": code,
		"message":    msg,
		"status":     msg,
		"outcome":    common.OutcomeFailed,
	})
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error_code": "unavailable",
		"message":    what + " is not configured",
		"status":     what + " is not configured",
		"outcome":    common.OutcomeFailed,
	})
}
