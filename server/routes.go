package server

import (
	"github.com/labstack/echo/v4"
)

// SetupRoutes 只读快照走 /api，账号相关走 /api/v1，实时全部走 /ws
func (s *Server) SetupRoutes(authMiddleware echo.MiddlewareFunc) {
	e := s.Echo

	e.GET("/health", s.SnapshotHandler.Health)

	api := e.Group("/api")
	api.GET("/chat/rooms/:roomId", s.SnapshotHandler.GetChatRoom)
	api.GET("/chat/rooms/:roomId/messages", s.SnapshotHandler.GetChatRoomMessages)
	api.GET("/world/rooms/:roomId", s.SnapshotHandler.GetWorldRoom)
	api.GET("/video/rooms", s.SnapshotHandler.GetVideoRooms)
	api.GET("/video/rooms/:roomId", s.SnapshotHandler.GetVideoRoom)
	api.GET("/ringcentral/calls", s.SnapshotHandler.GetCalls)
	api.GET("/ringcentral/calls/:callId", s.SnapshotHandler.GetCall)

	v1 := e.Group("/api/v1")
	auth := v1.Group("/auth")
	auth.POST("/register", s.AuthHandler.Register)
	auth.POST("/login", s.AuthHandler.Login)
	auth.POST("/refresh", s.AuthHandler.RefreshToken)

	protected := v1.Group("")
	protected.Use(authMiddleware)
	protected.GET("/user", s.AuthHandler.GetCurrentUser)
	protected.GET("/characters", s.CharacterHandler.ListCharacters)
	protected.PUT("/characters/:slot", s.CharacterHandler.SaveCharacter)
	protected.DELETE("/characters/:slot", s.CharacterHandler.DeleteCharacter)
	protected.POST("/characters/activate", s.CharacterHandler.ActivateCharacter)
	protected.GET("/settings", s.CharacterHandler.GetSettings)
	protected.PUT("/settings", s.CharacterHandler.SaveSettings)

	ws := e.Group("/ws")
	ws.Use(authMiddleware)
	ws.GET("", s.WSHandler.HandleWebSocket)
}
