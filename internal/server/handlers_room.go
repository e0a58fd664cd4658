package server

import (
	"errors"
	"fmt"
	"net/http"

	"werewolf-party/internal/logging"
	"werewolf-party/internal/record"
	"werewolf-party/internal/room"
	"werewolf-party/internal/store"
	"werewolf-party/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
)

type roomURI struct {
	RoomID string `uri:"roomID" binding:"required,roomid"`
}

type createRoomRequest struct {
	RolesSchema record.RolesSchema `json:"rolesSchema" binding:"omitempty,oneof=classic custom"`
	Roster      string             `json:"roster"`
	Roles       []record.RoleName  `json:"roles" binding:"omitempty,max=20,dive,rolename"`
}

var createRoomMessages = bindMessages{
	"RolesSchema": {"oneof": "rolesSchema must be classic or custom"},
	"Roles": {
		"max":      fmt.Sprintf("a roster holds at most %d roles", maxRosterSize),
		"rolename": "unknown role name",
	},
}

type roomStateResponse struct {
	RoomID   string         `json:"roomId"`
	Clock    int64          `json:"clock"`
	Snapshot store.Snapshot `json:"snapshot"`
}

// handleCreateRoom seeds a room. Posting to a running room leaves it as is.
func (s *Server) handleCreateRoom(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	var req createRoomRequest
	if !bindOptionalJSON(c, &req, createRoomMessages, "invalid room settings") {
		return
	}
	roles, err := s.resolveRoster(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor, created, err := s.rooms.Open(c.Request.Context(), uri.RoomID, func(r *room.Room) {
		if roles != nil {
			r.SetCustomRoster(roles)
		}
	})
	if err != nil {
		logging.Room(uri.RoomID).WithError(err).Error("open room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open room"})
		return
	}
	var clock int64
	if err := actor.Call(c.Request.Context(), func(r *room.Room) { clock = r.Store().Clock() }); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "room unavailable"})
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"roomId": uri.RoomID, "created": created, "clock": clock})
}

// resolveRoster returns the custom role list asked for, or nil for the
// classic roster.
func (s *Server) resolveRoster(req createRoomRequest) ([]record.RoleName, error) {
	if req.Roster != "" {
		roles, ok := s.rosters[req.Roster]
		if !ok {
			return nil, fmt.Errorf("unknown roster %q", req.Roster)
		}
		return roles, nil
	}
	if req.RolesSchema == record.SchemaCustom {
		if len(req.Roles) == 0 {
			return nil, errors.New("a custom roster needs at least one role")
		}
		return req.Roles, nil
	}
	return nil, nil
}

func (s *Server) handleGetRoom(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	actor, ok := s.lookupRoom(c, uri.RoomID)
	if !ok {
		return
	}
	var resp roomStateResponse
	if err := actor.Call(c.Request.Context(), func(r *room.Room) {
		resp = roomStateResponse{RoomID: r.ID, Clock: r.Store().Clock(), Snapshot: r.Store().Snapshot()}
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "room unavailable"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleInspect(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	actor, ok := s.lookupRoom(c, uri.RoomID)
	if !ok {
		return
	}
	var view web.RoomView
	if err := actor.Call(c.Request.Context(), func(r *room.Room) { view = roomView(r) }); err != nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	templ.Handler(web.RoomInspector(view)).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) lookupRoom(c *gin.Context, roomID string) (*room.Actor, bool) {
	actor, err := s.rooms.Lookup(c.Request.Context(), roomID)
	if errors.Is(err, room.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return nil, false
	}
	if err != nil {
		logging.Room(roomID).WithError(err).Error("lookup room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return nil, false
	}
	return actor, true
}

func roomView(r *room.Room) web.RoomView {
	s := r.Store()
	view := web.RoomView{RoomID: r.ID, Clock: s.Clock()}
	if params, ok := store.First[record.Params](s); ok {
		view.Page = string(params.Page)
		view.IsDay = params.IsDay
		view.Winner = string(params.Winner)
		if params.ActualGameAction != nil {
			view.ActualAction = params.ActualGameAction.String()
		}
		for _, role := range params.Roles {
			view.Roles = append(view.Roles, string(role.Name))
		}
	}
	if timed, ok := store.First[record.TimedAction](s); ok {
		view.PendingAction = timed.Action.String()
		view.Countdown = timed.Countdown
	}
	for _, p := range store.All[record.Player](s) {
		item := web.RoomPlayer{
			Name:     p.Name,
			State:    string(p.State.Name),
			Alive:    p.Alive(),
			Ready:    p.IsReady,
			Admin:    p.IsAdmin,
			Position: fmt.Sprintf("%.0f, %.0f", p.Position.X, p.Position.Y),
		}
		if p.Role != nil {
			item.Role = string(p.Role.Name)
		}
		view.Players = append(view.Players, item)
	}
	for _, m := range store.All[record.Message](s) {
		view.Messages = append(view.Messages, web.RoomMessage{
			Sender:   m.Sender,
			Category: string(m.Category),
			Content:  m.Content,
		})
	}
	return view
}
