package server

import (
	"net/http"

	"werewolf-party/internal/config"
	"werewolf-party/internal/room"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Server struct {
	cfg      config.Config
	rooms    *room.Registry
	rosters  config.Rosters
	upgrader websocket.Upgrader
}

func New(cfg config.Config, rooms *room.Registry, rosters config.Rosters) *Server {
	return &Server{
		cfg:     cfg,
		rooms:   rooms,
		rosters: rosters,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *Server) Handler() http.Handler {
	registerValidators()
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": s.rooms.Len()})
	})
	router.POST("/room/:roomID", s.handleCreateRoom)
	router.GET("/room/:roomID", s.handleGetRoom)
	router.GET("/room/:roomID/ws", s.handleWebsocket)
	router.GET("/room/:roomID/inspect", s.handleInspect)
	return router
}
