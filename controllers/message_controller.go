package controllers

import (
	"net/http"
	"strconv"

	"github.com/CUknot/chatflow_backend/middleware"
	"github.com/CUknot/chatflow_backend/models"
	"github.com/CUknot/chatflow_backend/services"
	"github.com/gin-gonic/gin"
)

type CreateMessageInput struct {
	Text string `json:"text" example:"Hello, world!"`
}

type UpdateStatusInput struct {
	Status models.MessageStatus `json:"status" binding:"required" example:"read"`
}

type MessageController struct {
	messages *services.MessageService
}

func NewMessageController(messages *services.MessageService) *MessageController {
	return &MessageController{messages: messages}
}

// GetMessages godoc
// @Summary Get a page of a room's messages
// @Description Page 1 holds the newest messages; each page is in chronological order
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(50)
// @Success 200 {object} services.HistoryPage
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/rooms/{id}/messages [get]
func (mc *MessageController) GetMessages(c *gin.Context) {
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultPageSize)))

	history, err := mc.messages.History(c.Request.Context(), middleware.CurrentIdentity(c), roomID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// CreateMessage godoc
// @Summary Send a message to a room
// @Description Persists the message and broadcasts it to the room's live connections
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID"
// @Param message body CreateMessageInput true "Message"
// @Success 201 {object} map[string]interface{} "Message sent successfully"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/rooms/{id}/messages [post]
func (mc *MessageController) CreateMessage(c *gin.Context) {
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input CreateMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	msg, err := mc.messages.Send(c.Request.Context(), middleware.CurrentIdentity(c), roomID, input.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Message sent successfully", "data": msg})
}

// UpdateMessageStatus godoc
// @Summary Advance a message's status
// @Description Moves along sent, delivered, read. Never moves backwards.
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Param status body UpdateStatusInput true "New status"
// @Success 200 {object} map[string]interface{} "Updated message"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/messages/{id}/status [patch]
func (mc *MessageController) UpdateMessageStatus(c *gin.Context) {
	messageID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input UpdateStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	msg, err := mc.messages.UpdateStatus(c.Request.Context(), middleware.CurrentIdentity(c), messageID, input.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": msg})
}

// DeleteMessage godoc
// @Summary Delete a message
// @Description Allowed for the message's author and the room creator
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {object} map[string]string "Message deleted"
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/messages/{id} [delete]
func (mc *MessageController) DeleteMessage(c *gin.Context) {
	messageID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := mc.messages.Delete(c.Request.Context(), middleware.CurrentIdentity(c), messageID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
}
