package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/CUknot/chatflow_backend/services"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error" example:"room not found"`
	Code  string `json:"code" example:"NotFound"`
}

var statusByCode = map[string]int{
	"NotFound":         http.StatusNotFound,
	"Forbidden":        http.StatusForbidden,
	"AlreadyMember":    http.StatusConflict,
	"DuplicatePending": http.StatusConflict,
	"AlreadyResolved":  http.StatusConflict,
	"AlreadyExists":    http.StatusConflict,
	"EmptyMessage":     http.StatusBadRequest,
	"ValidationError":  http.StatusBadRequest,
	"Unauthorized":     http.StatusUnauthorized,
	"StoreUnavailable": http.StatusServiceUnavailable,
}

// respondError writes a service failure with the HTTP status for its code
func respondError(c *gin.Context, err error) {
	code := services.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		c.Error(err)
	}

	msg := err.Error()
	if errors.Is(err, services.ErrStoreUnavailable) || !ok {
		msg = "Service temporarily unavailable"
	}
	c.JSON(status, ErrorResponse{Error: msg, Code: code})
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid " + name, Code: "ValidationError"})
		return 0, false
	}
	return uint(id), true
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "ValidationError"})
}
