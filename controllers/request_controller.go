package controllers

import (
	"context"
	"net/http"

	"github.com/CUknot/chatflow_backend/middleware"
	"github.com/CUknot/chatflow_backend/models"
	"github.com/CUknot/chatflow_backend/services"
	"github.com/gin-gonic/gin"
)

type RequestController struct {
	requests *services.RequestService
}

func NewRequestController(requests *services.RequestService) *RequestController {
	return &RequestController{requests: requests}
}

// GetPendingRequests godoc
// @Summary List pending access requests
// @Description Returns pending requests for rooms created by the authenticated user
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of requests"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /api/requests/pending [get]
func (rc *RequestController) GetPendingRequests(c *gin.Context) {
	reqs, err := rc.requests.ListPending(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// ApproveRequest godoc
// @Summary Approve an access request
// @Description Adds the requester to the room. Only the room creator may approve.
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} map[string]interface{} "Request approved"
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Already resolved"
// @Router /api/requests/{id}/approve [post]
func (rc *RequestController) ApproveRequest(c *gin.Context) {
	rc.resolve(c, rc.requests.Approve, "Request approved")
}

// RejectRequest godoc
// @Summary Reject an access request
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} map[string]interface{} "Request rejected"
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Already resolved"
// @Router /api/requests/{id}/reject [post]
func (rc *RequestController) RejectRequest(c *gin.Context) {
	rc.resolve(c, rc.requests.Reject, "Request rejected")
}

func (rc *RequestController) resolve(
	c *gin.Context,
	fn func(context.Context, services.Identity, uint) (*models.RoomRequest, error),
	message string,
) {
	requestID, ok := parseID(c, "id")
	if !ok {
		return
	}

	req, err := fn(c.Request.Context(), middleware.CurrentIdentity(c), requestID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "request": req})
}
