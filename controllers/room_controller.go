package controllers

import (
	"net/http"

	"github.com/CUknot/chatflow_backend/middleware"
	"github.com/CUknot/chatflow_backend/services"
	"github.com/gin-gonic/gin"
)

type CreateRoomInput struct {
	Name      string `json:"name" binding:"required" example:"Ops"`
	IsPrivate bool   `json:"is_private" example:"true"`
}

type RoomController struct {
	rooms    *services.RoomService
	requests *services.RequestService
}

func NewRoomController(rooms *services.RoomService, requests *services.RequestService) *RoomController {
	return &RoomController{rooms: rooms, requests: requests}
}

// CreateRoom godoc
// @Summary Create a new chat room
// @Description Creates a room with the authenticated user as creator and first participant
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param room body CreateRoomInput true "Room Creation"
// @Success 201 {object} map[string]interface{} "Room created"
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /api/rooms [post]
func (rc *RoomController) CreateRoom(c *gin.Context) {
	var input CreateRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	room, err := rc.rooms.Create(c.Request.Context(), middleware.CurrentIdentity(c), input.Name, input.IsPrivate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Room created successfully", "room": room})
}

// GetPublicRooms godoc
// @Summary List public rooms
// @Description Returns up to 50 public rooms, most recently active first
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of rooms"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /api/rooms/public [get]
func (rc *RoomController) GetPublicRooms(c *gin.Context) {
	rooms, err := rc.rooms.ListPublic(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetMyRooms godoc
// @Summary List the rooms the authenticated user participates in
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of rooms"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /api/rooms/mine [get]
func (rc *RoomController) GetMyRooms(c *gin.Context) {
	rooms, err := rc.rooms.ListMine(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom godoc
// @Summary Get a room by ID
// @Description Public rooms are visible to everyone, private rooms to participants only
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID"
// @Success 200 {object} map[string]interface{} "Room details"
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/rooms/{id} [get]
func (rc *RoomController) GetRoom(c *gin.Context) {
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}

	room, err := rc.rooms.Get(c.Request.Context(), middleware.CurrentIdentity(c), roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

// RequestAccess godoc
// @Summary Request access to a private room
// @Description Opens a pending request and notifies the room's live members
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param id path int true "Room ID"
// @Success 201 {object} map[string]interface{} "Request created"
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Already a member or request pending"
// @Router /api/rooms/{id}/request-access [post]
func (rc *RoomController) RequestAccess(c *gin.Context) {
	roomID, ok := parseID(c, "id")
	if !ok {
		return
	}

	req, err := rc.requests.RequestAccess(c.Request.Context(), middleware.CurrentIdentity(c), roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Access request sent", "request": req})
}
