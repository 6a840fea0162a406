package controllers

import (
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth     *AuthController
	Rooms    *RoomController
	Requests *RequestController
	Messages *MessageController
}

// RegisterRoutes mounts the REST API. authMW guards everything but register and login.
func RegisterRoutes(r gin.IRouter, h Handlers, authMW gin.HandlerFunc) {
	// Authentication routes
	public := r.Group("/api")
	{
		public.POST("/register", h.Auth.Register)
		public.POST("/login", h.Auth.Login)
	}

	// Protected routes
	api := r.Group("/api")
	api.Use(authMW)
	{
		// Room routes
		api.POST("/rooms", h.Rooms.CreateRoom)
		api.GET("/rooms/public", h.Rooms.GetPublicRooms)
		api.GET("/rooms/mine", h.Rooms.GetMyRooms)
		api.GET("/rooms/:id", h.Rooms.GetRoom)
		api.POST("/rooms/:id/request-access", h.Rooms.RequestAccess)

		// Message routes
		api.GET("/rooms/:id/messages", h.Messages.GetMessages)
		api.POST("/rooms/:id/messages", h.Messages.CreateMessage)
		api.PATCH("/messages/:id/status", h.Messages.UpdateMessageStatus)
		api.DELETE("/messages/:id", h.Messages.DeleteMessage)

		// Access request routes
		api.GET("/requests/pending", h.Requests.GetPendingRequests)
		api.POST("/requests/:id/approve", h.Requests.ApproveRequest)
		api.POST("/requests/:id/reject", h.Requests.RejectRequest)
	}
}
