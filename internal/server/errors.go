package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func respondError(c *gin.Context, status int, errType, message string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Error: errorPayload{Type: errType, Message: message},
	})
}

func badRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, "invalid_request", message)
}
